package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"internship/internal/model"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

var (
	// ErrInvalidToken covers malformed, expired, foreign and wrong-kind tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidRole is returned when issuing a token for an unknown role.
	ErrInvalidRole = errors.New("invalid role")
)

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"access_expires_at"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
}

// Claims carries the acting user; the user directory itself is external.
type Claims struct {
	User model.User `json:"user"`
	Kind string     `json:"kind"`
	jwt.RegisteredClaims
}

// Issue signs an access and a refresh token for u.
func Issue(u model.User, issuer, key string, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	if !u.Role.Valid() {
		return TokenPair{}, fmt.Errorf("%w: %q", ErrInvalidRole, u.Role)
	}
	now := time.Now()
	accessExp := now.Add(accessTTL)
	refreshExp := now.Add(refreshTTL)

	accessToken, err := sign(u, kindAccess, issuer, key, now, accessExp)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := sign(u, kindRefresh, issuer, key, now, refreshExp)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func Refresh(refreshToken, issuer, key string, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	claims, err := parse(refreshToken, key, issuer, kindRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return Issue(claims.User, issuer, key, accessTTL, refreshTTL)
}

// Parse validates an access token and returns its claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	return parse(tokenStr, key, issuer, kindAccess)
}

func sign(u model.User, kind, issuer, key string, now, exp time.Time) (string, error) {
	claims := Claims{
		User: u,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.Subject(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

func parse(tokenStr, key, issuer, kind string) (Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(key), nil
	}, opts...)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Kind != kind {
		return Claims{}, fmt.Errorf("%w: expected %s token", ErrInvalidToken, kind)
	}
	if !claims.User.Role.Valid() {
		return Claims{}, fmt.Errorf("%w: unknown role", ErrInvalidToken)
	}
	return *claims, nil
}
