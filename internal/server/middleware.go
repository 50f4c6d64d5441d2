package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/huangsam/leadscore/core"
	"golang.org/x/time/rate"
)

const (
	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
	errNoTenant     = "token has no tenant_id claim"
)

// RequestLogger logs every request with its status and latency.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"errors", c.Errors.String())
	}
}

// BodyLimit caps request bodies at limit bytes. Reads past the limit fail
// with *http.MaxBytesError.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// CORS allows the configured origins. No origins means same-origin only.
func CORS(origins []string) (gin.HandlerFunc, error) {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions}
	switch {
	case len(origins) == 0:
		cfg.AllowOriginFunc = func(string) bool { return false }
	case len(origins) == 1 && origins[0] == "*":
		cfg.AllowAllOrigins = true
	default:
		cfg.AllowOrigins = origins
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cors-origins: %w", err)
	}
	return cors.New(cfg), nil
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter allows r requests per second with the given burst per IP.
func NewIPRateLimiter(r float64, burst int) *IPRateLimiter {
	return &IPRateLimiter{rate: rate.Limit(r), burst: burst}
}

func (i *IPRateLimiter) limiter(ip string) *rate.Limiter {
	if l, ok := i.limiters.Load(ip); ok {
		return l.(*rate.Limiter)
	}
	l, _ := i.limiters.LoadOrStore(ip, rate.NewLimiter(i.rate, i.burst))
	return l.(*rate.Limiter)
}

// RateLimit rejects requests over the per-IP budget with 429.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !i.limiter(c.ClientIP()).Allow() {
			abortError(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}

// AuthRequired validates an HMAC-signed bearer token and scopes the request
// to the tenant in its tenant_id claim.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortError(c, http.StatusUnauthorized, errMissingToken, nil)
			return
		}
		claims, err := parseClaims(raw, secret)
		if err != nil {
			abortError(c, http.StatusUnauthorized, errInvalidToken, nil)
			return
		}
		tenant, _ := claims["tenant_id"].(string)
		if strings.TrimSpace(tenant) == "" {
			abortError(c, http.StatusUnauthorized, errNoTenant, nil)
			return
		}
		c.Request = c.Request.WithContext(core.WithTenant(c.Request.Context(), tenant))
		c.Next()
	}
}

// FixedTenant scopes every request to one tenant. It is used when no JWT
// secret is configured.
func FixedTenant(tenant string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(core.WithTenant(c.Request.Context(), tenant))
		c.Next()
	}
}

func extractBearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func parseClaims(raw, secret string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New(errInvalidToken)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New(errInvalidToken)
	}
	return claims, nil
}
