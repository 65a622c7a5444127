package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	_ "imagegen-server/internal/api/docs"
)

// RouterConfig - настройки сборки роутера.
type RouterConfig struct {
	AllowedOrigins []string
	Verifier       TokenVerifier   // nil - межсервисная авторизация отключена
	RateLimiter    gin.HandlerFunc // nil - без ограничения частоты
	EnableMetrics  bool
	EnableSwagger  bool
}

// NewRouter собирает gin.Engine с общими middleware и маршрутами обработчика.
func NewRouter(cfg RouterConfig, h *Handler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ZapLoggingMiddleware(logger))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", InterServiceTokenHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Middleware Prometheus должно быть подключено до регистрации маршрутов
	if cfg.EnableMetrics {
		p := ginprometheus.NewPrometheus("gin")
		p.Use(router)
	}

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	if cfg.EnableSwagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var mws []gin.HandlerFunc
	if cfg.Verifier != nil {
		mws = append(mws, InterServiceAuthMiddleware(cfg.Verifier, logger))
	}
	h.RegisterRoutes(router, cfg.RateLimiter, mws...)

	return router
}
