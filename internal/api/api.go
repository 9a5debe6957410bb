package api

import (
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/inu9431/qna-archiver/pkg/sdk"
	"github.com/inu9431/qna-archiver/pkg/utils"

	health_module "github.com/inu9431/qna-archiver/internal/api/modules/health"
	qna_module "github.com/inu9431/qna-archiver/internal/api/modules/qna"
)

func Start(cfg *utils.Config, deps qna_module.Dependencies) {
	// Initialized configuration settings
	port := cfg.GetWithDefault("API_PORT", "8080")

	// Add app level settings/routes
	engine := gin.Default()
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(sdk.NewErrorResponse(404, "Route not found", nil).AsGinResponse())
	})

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.GetWithDefault("CORS_ALLOWED_ORIGINS", "*"), ","),
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup)

	qna_module.Init(deps)
	qna_module.RegisterRoutes(baseGroup, cfg)

	// Then after performing initial setup, start the server
	if err := engine.Run(":" + port); err != nil {
		log.Fatal("[API-MAIN]: Failed to start server: ", err)
	}
}
