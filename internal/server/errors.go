package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hireboard/hireboard/internal/authorization"
	identitydomain "github.com/hireboard/hireboard/internal/identity/domain"
	joblistingdomain "github.com/hireboard/hireboard/internal/joblisting/domain"
	orgdomain "github.com/hireboard/hireboard/internal/organization/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

// ErrorHandlingMiddleware funnels every handler error through one taxonomy
// so the JSON error shape is identical across endpoints.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// validationSentinels maps joblisting validation errors to field names for
// the error payload.
var validationSentinels = map[error]string{
	joblistingdomain.ErrInvalidTitle:               "title",
	joblistingdomain.ErrInvalidDescription:         "description",
	joblistingdomain.ErrInvalidLocationRequirement: "location_requirement",
	joblistingdomain.ErrInvalidExperienceLevel:     "experience_level",
	joblistingdomain.ErrInvalidEmploymentType:      "employment_type",
	joblistingdomain.ErrInvalidLocation:            "city",
	joblistingdomain.ErrInvalidWage:                "wage",
}

func mapError(err error) (int, errorPayload) {
	for sentinel, field := range validationSentinels {
		if errors.Is(err, sentinel) {
			return http.StatusBadRequest, errorPayload{
				Type:    "validation_error",
				Message: "validation error",
				Errors: []ValidationError{
					{Field: field, Code: sentinel.Error(), Message: "invalid value"},
				},
			}
		}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, identitydomain.ErrMissingHeaders),
		errors.Is(err, identitydomain.ErrInvalidSignature),
		errors.Is(err, identitydomain.ErrStaleTimestamp),
		errors.Is(err, identitydomain.ErrMalformedPayload):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, authorization.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, joblistingdomain.ErrNotFound),
		errors.Is(err, orgdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
