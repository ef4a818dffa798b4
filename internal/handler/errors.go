package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-favourites/internal/dto"
	"github.com/prperemyshlev/media-favourites/internal/service"
	"go.uber.org/zap"
)

// writeError maps a service error to its HTTP status. Unclassified errors are
// logged and answered with a generic 500.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)

	message := http.StatusText(status)
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		message = svcErr.Message
	}

	if status == http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		message = "Something went wrong, please try again later"
	}

	c.JSON(status, dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInvalidToken):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeBindError answers a request whose body or query failed binding
func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   http.StatusText(http.StatusBadRequest),
		Message: "Validation failed",
		Details: err.Error(),
	})
}
