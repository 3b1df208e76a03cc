package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	sponsordomain "github.com/sponsorbase/sponsord/internal/sponsor/domain"
	"github.com/sponsorbase/sponsord/pkg/store"
)

type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *apiError) Error() string { return e.Code }

func invalidRequestError() *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "invalid request body"}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: code, Message: message, Field: field}
}

// AbortWithError translates domain errors into provider-appropriate
// responses: invalid transitions are client errors the provider must not
// retry, store failures are server errors the provider redelivers.
func AbortWithError(c *gin.Context, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		c.AbortWithStatusJSON(ae.Status, gin.H{"error": ae})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, sponsordomain.ErrUnknownInstallation),
		errors.Is(err, sponsordomain.ErrUnknownSponsorship),
		errors.Is(err, sponsordomain.ErrSponsorshipEnded),
		errors.Is(err, sponsordomain.ErrInvalidAccount),
		errors.Is(err, sponsordomain.ErrInvalidAppKind),
		errors.Is(err, sponsordomain.ErrInvalidAmount),
		errors.Is(err, sponsordomain.ErrInvalidEmail):
		status = http.StatusBadRequest
		code = err.Error()
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		code = "not_found"
	}

	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code}})
}
