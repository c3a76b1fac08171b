package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anasy333/krishisat-gateway/internal/audit"
	"github.com/anasy333/krishisat-gateway/internal/session"
	"github.com/anasy333/krishisat-gateway/internal/upstream"
	"github.com/anasy333/krishisat-gateway/pkg/logger"
	"github.com/anasy333/krishisat-gateway/pkg/response"
)

// UnauthorizedSweep is the single place where an expired credential clears
// the session. Handlers record upstream.ErrUnauthorized on the context; this
// middleware wipes the box and cookie afterwards and answers 401 with a
// login redirect hint. No other code path reacts to upstream 401s.
func UnauthorizedSweep(store *session.Store, publisher audit.Publisher, cookieName string, cookieSecure bool) gin.HandlerFunc {
	log := logger.Get().With(zap.String("component", "unauthorized_sweep"))

	return func(c *gin.Context) {
		c.Next()

		var expired bool
		for _, ginErr := range c.Errors {
			if errors.Is(ginErr.Err, upstream.ErrUnauthorized) {
				expired = true
				break
			}
		}
		if !expired {
			return
		}

		s := SessionFrom(c)
		ctx := c.Request.Context()

		if err := store.Logout(ctx, s.ID); err != nil {
			log.Warn("failed to clear expired session",
				zap.String("sid", s.ID),
				zap.Error(err))
		}
		c.SetCookie(cookieName, "", -1, "/", "", cookieSecure, true)

		event := audit.Event{
			Type:      audit.EventSessionExpired,
			SessionID: s.ID,
		}
		if s.Identity != nil {
			event.UserID = s.Identity.ID
			event.Role = string(s.Identity.Role)
		}
		publisher.Publish(ctx, event)

		log.Info("cleared expired session",
			zap.String("sid", s.ID),
			zap.String("path", c.Request.URL.Path))

		if !c.Writer.Written() {
			if wantsHTML(c) {
				c.Redirect(http.StatusFound, LoginPath)
				return
			}
			response.Error(c, http.StatusUnauthorized, "SESSION_EXPIRED",
				"Session expired, log in again", "")
		}
	}
}
