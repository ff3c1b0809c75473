package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/amirk1998/secure-bank/internal/logging"
	"github.com/amirk1998/secure-bank/internal/metrics"
	"github.com/amirk1998/secure-bank/internal/service"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

const (
	principalKey    = "principal"
	requestIDHeader = "X-Request-ID"
	deviceIDHeader  = "X-Device-ID"

	// maxBodyBytes covers the largest data URI payload plus JSON framing.
	maxBodyBytes = 12 << 20
)

// requestLogger tags the request with an ID and a logger carrying it.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, h.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		logging.L(ctx).Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

func limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		}
		c.Next()
	}
}

// requireSession resolves the bearer token. Unless allowFrozen is set, a
// frozen session is refused with 423 and the remaining countdown.
func (h *Handler) requireSession(allowFrozen bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.sessions.ResolveSession(c.Request.Context(), bearerToken(c))
		if err != nil {
			respondError(c, err)
			return
		}

		if !allowFrozen {
			if err := p.Session.CheckFrozen(); err != nil {
				metrics.PolicyRejectionsTotal.WithLabelValues("click_breaker").Inc()
				respondError(c, err)
				return
			}
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	// Browsers cannot set headers on a websocket upgrade.
	if c.FullPath() == "/v1/session/stream" {
		return c.Query("access_token")
	}
	return ""
}

func principal(c *gin.Context) *service.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*service.Principal)
	return p
}

// mustPrincipal returns the caller or aborts with 401.
func mustPrincipal(c *gin.Context) (*service.Principal, bool) {
	p := principal(c)
	if p == nil {
		respondError(c, errors.ErrUnauthorized)
		return nil, false
	}
	return p, true
}

// WithCORS wraps the router with the allowed origins.
func WithCORS(next http.Handler, allowedOrigins []string) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader, deviceIDHeader},
		ExposedHeaders:   []string{requestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})(next)
}
