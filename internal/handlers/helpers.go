package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "ibooks/internal/errors"
	"ibooks/internal/middleware"
	"ibooks/internal/timeutil"
)

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (uint, error) {
	userID, exists := c.Get("userID")
	if !exists {
		return 0, apperrors.ErrUnauthorized
	}
	id, ok := userID.(uint)
	if !ok {
		return 0, apperrors.ErrUnauthorized
	}
	return id, nil
}

// parsePathID parses a uint path parameter.
// Returns ErrInvalidInput if the parameter is not a valid positive integer.
func parsePathID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return uint(id), nil
}

// parseQueryID parses an optional uint query parameter.
func parseQueryID(c *gin.Context, param string) (*uint, error) {
	raw := c.Query(param)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	v := uint(id)
	return &v, nil
}

// parseQueryTime parses an optional timestamp query parameter into UTC.
func parseQueryTime(c *gin.Context, param string) (*time.Time, error) {
	raw := c.Query(param)
	if raw == "" {
		return nil, nil
	}
	t, err := timeutil.Parse(raw)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return &t, nil
}

// parseQueryInt parses a required integer query parameter.
func parseQueryInt(c *gin.Context, param string) (int, error) {
	v, err := strconv.Atoi(c.Query(param))
	if err != nil {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return v, nil
}

// parseBodyTime parses a timestamp field of a JSON body into UTC.
func parseBodyTime(field, value string) (time.Time, error) {
	t, err := timeutil.Parse(value)
	if err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+field)
	}
	return t, nil
}

// respondWithError writes the JSON error envelope for err.
func respondWithError(c *gin.Context, err error) {
	middleware.WriteError(c, err)
}

// bindError wraps a binding failure as ErrInvalidInput.
func bindError(err error) error {
	return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// DeleteResponse reports how a delete was carried out.
type DeleteResponse struct {
	OK   bool   `json:"ok"`
	Mode string `json:"mode,omitempty"`
}
