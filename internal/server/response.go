package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangsam/leadscore/schema"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// weightsResponse is returned by PATCH /v1/configs/:framework/weights.
// When the rebalance clamped other dimensions Advisory is set, and Config is
// only saved if the caller accepted clamping.
type weightsResponse struct {
	Saved    bool                   `json:"saved"`
	Advisory string                 `json:"advisory,omitempty"`
	Clamped  []schema.DimensionKey  `json:"clamped,omitempty"`
	Config   schema.FrameworkConfig `json:"config"`
}

func abortError(c *gin.Context, status int, message string, details any) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Details: details})
}

// handleError maps domain errors to HTTP responses. It returns true if an
// error was written.
func handleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var invalid *schema.InvalidConfigurationError
	switch {
	case errors.As(err, &invalid):
		abortError(c, http.StatusUnprocessableEntity, invalid.Error(), invalid.Violations())
	case errors.Is(err, schema.ErrUnknownFramework):
		abortError(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, schema.ErrUnknownDimension),
		errors.Is(err, schema.ErrWeightOutOfRange),
		errors.Is(err, schema.ErrInvalidThresholds),
		errors.Is(err, schema.ErrMalformedPayload):
		abortError(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, schema.ErrVersionConflict):
		abortError(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, schema.ErrPersistenceDisabled):
		abortError(c, http.StatusServiceUnavailable, "no config backend is configured", nil)
	default:
		_ = c.Error(err)
		abortError(c, http.StatusInternalServerError, "internal error", nil)
	}
	return true
}
