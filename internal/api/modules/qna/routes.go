package qna_module

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inu9431/qna-archiver/pkg/sdk"
	"github.com/inu9431/qna-archiver/pkg/utils"
)

// Register routes for the qna module
func RegisterRoutes(g *gin.RouterGroup, cfg *utils.Config) {
	// Make api key validator
	validator, err := makeApiKeyValidator(cfg)
	if err != nil {
		log.Fatalf("failed to create API key validator: %v", err)
	}

	// Create base group for qna routes
	group := g.Group("/qna")
	group.Use(apiKeyHeaderHandler(validator))

	group.POST("", SubmitQuestion)            // Submit a question through the pipeline
	group.GET("", ListRecords)                // List archived records
	group.POST("/:id/verify", VerifyRecord)   // Change a record's verification status
	group.POST("/:id/publish", PublishRecord) // Push a record to the document board
}

// makeApiKeyValidator checks if the provided API key is valid
func makeApiKeyValidator(cfg *utils.Config) (func(key string) bool, error) {
	// Get api key from config
	apiKey := cfg.Get("API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("API_KEY not set in environment")
	}

	return func(key string) bool {
		return apiKey == key
	}, nil
}

// apiKeyHeaderHandler rejects requests whose X-API-KEY header fails validation
func apiKeyHeaderHandler(validator func(key string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !validator(c.GetHeader("X-API-KEY")) {
			c.AbortWithStatusJSON(sdk.NewErrorResponse(http.StatusUnauthorized, "Invalid API key", nil).AsGinResponse())
			return
		}
		c.Next()
	}
}
