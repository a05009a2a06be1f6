package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/ossadapter/internal/api/handler"
	"github.com/timmy/ossadapter/internal/api/middleware"
	"github.com/timmy/ossadapter/internal/logger"
	"github.com/timmy/ossadapter/internal/service"
)

// RouterConfig holds what the router needs besides the services
type RouterConfig struct {
	Mode         string
	CORS         middleware.CORSConfig
	HealthChecks map[string]handler.HealthCheck
	// MaxMultipartMemory bounds the in-memory part of multipart parsing; the rest spills to disk
	MaxMultipartMemory int64
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(fileService *service.FileService, log *logger.Logger, cfg RouterConfig) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	if cfg.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = cfg.MaxMultipartMemory
	}

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	// Create handlers
	healthHandler := handler.NewHealthHandler(cfg.HealthChecks)
	fileHandler := handler.NewFileHandler(fileService)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		files := v1.Group("/files")
		files.POST("", fileHandler.Upload)
		files.POST("/remote", fileHandler.UploadRemote)
		files.GET("", fileHandler.List)
		files.GET("/:id", fileHandler.Get)
		files.GET("/:id/content", fileHandler.Content)
		files.DELETE("/:id", fileHandler.Delete)
	}

	return r
}
