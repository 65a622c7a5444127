package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"imagegen-server/internal/imagegen"
	"imagegen-server/internal/models"
	"imagegen-server/internal/stability"
)

// handleServiceError переводит ошибку сервиса в HTTP ответ.
func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp models.ErrorResponse

	switch {
	case errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeValidation, Message: err.Error()}
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Code: models.ErrCodeNotFound, Message: "Resource not found"}
	case errors.Is(err, models.ErrTokenExpired):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeTokenExpired, Message: "Token has expired"}
	case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrTokenMalformed):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeTokenInvalid, Message: "Token is invalid"}
	case errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeUnauthorized, Message: "Unauthorized"}
	case errors.Is(err, stability.ErrNon200Response),
		errors.Is(err, stability.ErrMalformedResponse),
		errors.Is(err, imagegen.ErrImageDecodeFailed):
		statusCode = http.StatusBadGateway
		errResp = models.ErrorResponse{Code: models.ErrCodeUpstream, Message: err.Error()}
	default:
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Code: models.ErrCodeInternal, Message: "Internal server error"}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(statusCode, errResp)
}
