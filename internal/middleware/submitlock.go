package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/anasy333/krishisat-gateway/pkg/response"
)

const (
	submitLockPrefix = "submitlock:"
	// submitLockTTL caps how long a crashed request can hold a lock.
	submitLockTTL = 30 * time.Second
)

// SubmitLockRedis is the subset of Redis operations the lock needs.
type SubmitLockRedis interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SubmitLock rejects concurrent duplicate submissions of the same login
// form across gateway instances. The lock key is derived from the route and
// the phone number in the body; the in-process flow flags cover the single
// instance case, this covers the rest. Fails open when Redis is down so an
// outage never blocks login.
func SubmitLock(client SubmitLockRedis) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		phone := phoneFromBody(bodyBytes)
		if phone == "" {
			// Malformed body; let the handler produce the validation error
			c.Next()
			return
		}

		key := submitLockPrefix + lockHash(c.Request.URL.Path, phone)
		ctx := c.Request.Context()

		acquired, err := client.SetNX(ctx, key, "1", submitLockTTL).Result()
		if err != nil {
			c.Next()
			return
		}
		if !acquired {
			response.Abort(c, http.StatusConflict, "SUBMISSION_IN_PROGRESS",
				"This action is already being processed")
			return
		}
		defer client.Del(ctx, key)

		c.Next()
	}
}

func phoneFromBody(body []byte) string {
	var payload struct {
		Phone string `json:"phone_number"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Phone
}

func lockHash(path, phone string) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte(phone))
	return hex.EncodeToString(h.Sum(nil))
}
