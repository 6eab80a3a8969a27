// Package httpapi exposes the internship portal over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"internship/internal/attendance"
	"internship/internal/auth"
	"internship/internal/httpmiddleware"
	"internship/internal/internship"
	"internship/internal/model"
)

// Checker reports the health of one dependency.
type Checker interface {
	Healthy(ctx context.Context) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) bool

// Healthy calls f.
func (f CheckerFunc) Healthy(ctx context.Context) bool { return f(ctx) }

// Options configures the HTTP surface.
type Options struct {
	JWTIssuer       string
	JWTSigningKey   string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	RateLimitPerMin int
	// CORSOrigins lists browser origins allowed cross-origin access; "*" allows any.
	// Empty leaves CORS headers off.
	CORSOrigins     []string
	Gatherer        prometheus.Gatherer
	Checks          map[string]Checker
}

// Server holds the handlers' collaborators.
type Server struct {
	opts     Options
	requests *internship.Service
	checkins *attendance.Service
	limiter  *httpmiddleware.SimpleTokenBucket
	logger   zerolog.Logger
}

// New creates a server.
func New(opts Options, requests *internship.Service, checkins *attendance.Service, logger zerolog.Logger) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		opts:     opts,
		requests: requests,
		checkins: checkins,
		limiter:  httpmiddleware.NewSimpleTokenBucket(opts.RateLimitPerMin, opts.RateLimitPerMin),
		logger:   logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(s.logger, "/healthz", "/metrics"))
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.New(corsConfig(s.opts.CORSOrigins)))
	}
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", s.healthz)

	limit := s.limiter.GinMiddleware(httpmiddleware.ByUserOrIP)
	r.POST("/v1/sessions", limit, s.createSession)
	r.POST("/v1/sessions/refresh", limit, s.refreshSession)

	v1 := r.Group("/v1", auth.UserAuth(s.opts.JWTSigningKey, s.opts.JWTIssuer), limit)

	req := v1.Group("/requests")
	req.GET("", s.listRequests)
	req.POST("", auth.RequireRole(model.RoleStudent), s.submitRequest)
	req.GET("/:id", s.getRequest)
	req.POST("/:id/transitions", s.transitionRequest)
	req.GET("/:id/progress", s.requestProgress)
	req.GET("/:id/history", s.requestHistory)
	req.PUT("/:id/supervision-appointment", s.setSupervisionAppointment)
	req.PUT("/:id/supervision-report", s.setSupervisionReport)
	req.PUT("/:id/evaluation", s.setEvaluation)
	req.PUT("/:id/certificate", s.issueCertificate)
	req.POST("/:id/payment-proof", s.uploadPaymentProof)

	chk := v1.Group("/checkins")
	chk.POST("", auth.RequireRole(model.RoleStudent), s.recordCheckin)
	chk.GET("", s.listCheckins)
	chk.POST("/import", auth.RequireRole(model.RoleAdmin), s.importCheckins)
	chk.PUT("/:id", auth.RequireRole(model.RoleAdmin), s.updateCheckin)
	chk.DELETE("/:id", auth.RequireRole(model.RoleAdmin), s.deleteCheckin)

	return r
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.opts.Checks {
		ok := check.Healthy(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

func (s *Server) createSession(c *gin.Context) {
	var u model.User
	if err := c.ShouldBindJSON(&u); err != nil {
		badRequest(c, err)
		return
	}
	tokens, err := auth.Issue(u, s.opts.JWTIssuer, s.opts.JWTSigningKey, s.opts.AccessTTL, s.opts.RefreshTTL)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusCreated, tokens)
}

func (s *Server) refreshSession(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	tokens, err := auth.Refresh(body.RefreshToken, s.opts.JWTIssuer, s.opts.JWTSigningKey, s.opts.AccessTTL, s.opts.RefreshTTL)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token", "code": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func currentUser(c *gin.Context) model.User {
	u, _ := auth.CurrentUser(c)
	return u
}

// corsConfig allows the listed origins. Tokens travel in the Authorization header,
// so credentials are never allowed.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        24 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
