package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anasy333/krishisat-gateway/internal/guard"
	"github.com/anasy333/krishisat-gateway/pkg/logger"
	"github.com/anasy333/krishisat-gateway/pkg/response"
)

const (
	// LoginPath is where anonymous visitors are sent.
	LoginPath = "/login"
	// DefaultPath is where authenticated but non-permitted visitors land.
	DefaultPath = "/"

	// loadingRetryAfter is the Retry-After hint while the session status is
	// undetermined.
	loadingRetryAfter = 1
)

// GuardMiddleware enforces the route table. Routes absent from the table
// pass through untouched.
func GuardMiddleware(table guard.Table) gin.HandlerFunc {
	log := logger.Get().With(zap.String("component", "route_guard"))

	return func(c *gin.Context) {
		rule := table.Lookup(c.Request.Method, c.Request.URL.Path)
		if rule == nil {
			c.Next()
			return
		}

		s := SessionFrom(c)
		decision := guard.Evaluate(s, rule)

		switch decision {
		case guard.Render:
			c.Next()
			return
		case guard.Loading:
			// Undetermined status must wait, never redirect
			c.Header("Retry-After", strconv.Itoa(loadingRetryAfter))
			response.Abort(c, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE",
				"Session state undetermined, retry shortly")
		case guard.RedirectLogin:
			if wantsHTML(c) {
				c.Redirect(http.StatusFound, LoginPath)
				c.Abort()
			} else {
				response.Abort(c, http.StatusUnauthorized, "LOGIN_REQUIRED",
					"Authentication required")
			}
		case guard.RedirectDefault:
			if wantsHTML(c) {
				c.Redirect(http.StatusFound, DefaultPath)
				c.Abort()
			} else {
				response.Abort(c, http.StatusForbidden, "ROLE_NOT_PERMITTED",
					"Role not permitted for this resource")
			}
		}

		log.Info("guard blocked navigation",
			zap.String("path", c.Request.URL.Path),
			zap.String("decision", decision.String()),
			zap.String("status", string(s.Status)),
			zap.String("role", string(s.Role())))
	}
}

// wantsHTML reports whether the client is a browser navigation rather than
// an API call, deciding between redirects and JSON envelopes.
func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
