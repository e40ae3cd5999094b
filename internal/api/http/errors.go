package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// statusFor maps a scene result code onto an HTTP status
func statusFor(code types.WSError) int {
	switch code {
	case types.WSErrorOK, types.WSErrorDoNothing:
		return http.StatusOK
	case types.WSErrorNullError, types.WSErrorInvalidParam:
		return http.StatusBadRequest
	case types.WSErrorInvalidSession:
		return http.StatusNotFound
	case types.WSErrorInvalidOperation, types.WSErrorInvalidTransition:
		return http.StatusConflict
	case types.WSErrorIPCFailed:
		return http.StatusBadGateway
	case types.WSErrorUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its scene code. A do-nothing result is a success.
func respondError(c *gin.Context, err error) {
	code := types.Code(err)
	c.JSON(statusFor(code), gin.H{
		"success": code == types.WSErrorDoNothing,
		"code":    int32(code),
		"error":   err.Error(),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"code":    int32(types.WSErrorInvalidParam),
		"error":   msg,
	})
}
