package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"imagegen-server/internal/models"
)

const (
	// InterServiceTokenHeader - заголовок с межсервисным JWT.
	InterServiceTokenHeader = "X-Internal-Service-Token"
	// SourceServiceKey - ключ gin.Context с именем сервиса-источника.
	SourceServiceKey = "sourceService"
)

// ZapLoggingMiddleware логирует запросы. /health и /metrics пропускаются.
func ZapLoggingMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestID),
		}

		if len(c.Errors) > 0 {
			for _, ginErr := range c.Errors.ByType(gin.ErrorTypeAny) {
				log.Error("Request error", append(fields, zap.Error(ginErr.Err))...)
			}
			return
		}
		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("Server error", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("Client error", fields...)
		default:
			log.Info("Request completed", fields...)
		}
	}
}

// InterServiceAuthMiddleware требует валидный X-Internal-Service-Token.
func InterServiceAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.With(zap.String("path", c.Request.URL.Path))

		tokenString := c.GetHeader(InterServiceTokenHeader)
		if tokenString == "" {
			log.Warn("X-Internal-Service-Token header missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    models.ErrCodeUnauthorized,
				Message: "Unauthorized: Missing inter-service token",
			})
			return
		}

		subject, err := verifier.VerifyInterServiceToken(tokenString)
		if err != nil {
			handleServiceError(c, err)
			return
		}
		if subject != "" {
			c.Set(SourceServiceKey, subject)
		}
		c.Next()
	}
}
