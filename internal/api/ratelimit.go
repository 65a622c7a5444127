package api

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"imagegen-server/internal/models"
)

// NewRateLimitStore возвращает Redis хранилище лимитов, если клиент задан, иначе in-memory.
func NewRateLimitStore(rdb *redis.Client, limit uint, rate time.Duration) ratelimit.Store {
	if rdb != nil {
		return ratelimit.RedisStore(&ratelimit.RedisOptions{
			RedisClient: rdb,
			Rate:        rate,
			Limit:       limit,
		})
	}
	return ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  rate,
		Limit: limit,
	})
}

// RateLimitMiddleware ограничивает частоту запросов генерации по IP клиента.
func RateLimitMiddleware(store ratelimit.Store, logger *zap.Logger) gin.HandlerFunc {
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			logger.Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Code:    models.ErrCodeRateLimited,
				Message: "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}
