package handler

import (
	"errors"
	"net/http"

	"custodia/internal/service"

	"github.com/gin-gonic/gin"

	"custodia/pkg/response"
)

// statusFor maps service sentinel errors onto HTTP status codes. Anything
// unrecognized is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrPrerequisiteNotMet):
		return http.StatusConflict
	case errors.Is(err, service.ErrPeriodLocked):
		return http.StatusLocked
	case errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrLimitExceeded),
		errors.Is(err, service.ErrConfiguration):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.JSON(status, response.Error(status, message))
}
