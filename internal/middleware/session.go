package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anasy333/krishisat-gateway/internal/domain"
	"github.com/anasy333/krishisat-gateway/internal/session"
)

const (
	// ContextKeySession is the gin context key for the resolved session.
	ContextKeySession = "session"

	cookieMaxAge = 30 * 24 * 60 * 60 // seconds, matches the default box TTL
)

// SessionMiddleware resolves the session box on every request. A request
// without a session cookie gets a fresh id so a later login has somewhere
// to land.
func SessionMiddleware(store *session.Store, cookieName string, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(cookieName)
		if err != nil || sid == "" {
			sid = uuid.New().String()
			c.SetCookie(cookieName, sid, cookieMaxAge, "/", "", secure, true)
		}

		s := store.Resolve(c.Request.Context(), sid)
		c.Set(ContextKeySession, s)
		c.Next()
	}
}

// SessionFrom returns the resolved session. Routes behind SessionMiddleware
// always have one; the anonymous fallback covers misconfigured routes.
func SessionFrom(c *gin.Context) *domain.Session {
	v, ok := c.Get(ContextKeySession)
	if !ok {
		return domain.Anonymous("")
	}
	s, ok := v.(*domain.Session)
	if !ok {
		return domain.Anonymous("")
	}
	return s
}
