package health

import (
	"github.com/gin-gonic/gin"
	"github.com/inu9431/qna-archiver/pkg/sdk"
)

// Return status of the API
func getStatus(c *gin.Context) {
	res := sdk.NewSuccessResponse[any]("OK", nil)
	c.JSON(res.AsGinResponse())
}
