package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"internship/internal/model"
)

const (
	testKey    = "test-key"
	testIssuer = "internship-test"
)

var advisor = model.User{ID: "u1", Role: model.RoleAdvisor, Username: "adv", Department: "CS"}

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue(advisor, testIssuer, testKey, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := Parse(pair.AccessToken, testKey, testIssuer)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.User != advisor || claims.Subject != "u1" {
		t.Fatalf("unexpected claims %#v", claims)
	}

	if _, err := Parse(pair.RefreshToken, testKey, testIssuer); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token must not authenticate requests, got %v", err)
	}
	if _, err := Parse(pair.AccessToken, "other-key", testIssuer); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong key, got %v", err)
	}
	if _, err := Parse(pair.AccessToken, testKey, "someone-else"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	pair, err := Issue(advisor, testIssuer, testKey, -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, testKey, testIssuer); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	pair, _ := Issue(advisor, testIssuer, testKey, time.Minute, time.Hour)
	next, err := Refresh(pair.RefreshToken, testIssuer, testKey, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if claims, err := Parse(next.AccessToken, testKey, testIssuer); err != nil || claims.User.Username != "adv" {
		t.Fatalf("refreshed token unusable: %v", err)
	}
	if _, err := Refresh(pair.AccessToken, testIssuer, testKey, time.Minute, time.Hour); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token must not refresh, got %v", err)
	}
}

func TestIssueRejectsUnknownRole(t *testing.T) {
	if _, err := Issue(model.User{Role: "guest"}, testIssuer, testKey, time.Minute, time.Hour); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", UserAuth(testKey, testIssuer))
	g.GET("/me", func(c *gin.Context) {
		u, _ := CurrentUser(c)
		c.String(http.StatusOK, u.Username)
	})
	g.GET("/admin", RequireRole(model.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	pair, _ := Issue(advisor, testIssuer, testKey, time.Minute, time.Hour)
	cases := []struct {
		path, header string
		code         int
	}{
		{"/me", "", http.StatusUnauthorized},
		{"/me", "Bearer garbage", http.StatusUnauthorized},
		{"/me", "Bearer " + pair.AccessToken, http.StatusOK},
		{"/admin", "Bearer " + pair.AccessToken, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.code {
			t.Fatalf("%s %q: got %d want %d", tc.path, tc.header, w.Code, tc.code)
		}
		if tc.code == http.StatusOK && w.Body.String() != "adv" {
			t.Fatalf("unexpected body %q", w.Body.String())
		}
	}
}
