package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	redisc "github.com/noted-space/noted/internal/pkg/redis"
	"github.com/noted-space/noted/internal/pkg/response"
	"github.com/redis/go-redis/v9"
)

const (
	idempotenceHeader = "X-Idempotence-Key"
	idempotenceTTL    = 60 * time.Second
)

// Idempotence rejects a repeated POST with the same body from the same
// client for a minute, e.g. a double-submitted note. The key comes from the
// X-Idempotence-Key header or a hash of the request.
func Idempotence(rc *redisc.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rc == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key, err := idempotenceKey(c)
		if err != nil || key == "" {
			c.Next()
			return
		}

		redisKey := fmt.Sprintf("noted:idempotence:%s", key)
		ctx := c.Request.Context()

		created, err := rc.Raw().SetNX(ctx, redisKey, "0", idempotenceTTL).Result()
		if err != nil {
			c.Next()
			return
		}
		if !created {
			msg := "the same request was already accepted"
			if val, _ := rc.Get(ctx, redisKey); val == "0" {
				msg = "the same request is still being processed"
			}
			response.Fail(c, http.StatusConflict, msg)
			return
		}

		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 300 {
			rc.Raw().Set(ctx, redisKey, "1", redis.KeepTTL)
		} else {
			rc.Del(ctx, redisKey)
		}
	}
}

func idempotenceKey(c *gin.Context) (string, error) {
	if hdr := c.GetHeader(idempotenceHeader); hdr != "" {
		return CurrentUserID(c) + ":" + hdr, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	raw := c.Request.URL.String() + "|" + string(body) + "|" + c.ClientIP() + "|" + extractToken(c)
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:]), nil
}
