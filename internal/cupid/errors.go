package cupid

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// APIError is an error response from the Cupid service. Description is a
// short title and Message the human readable detail.
type APIError struct {
	StatusCode  int    `json:"code"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return e.Description
	}
	return e.Description + ": " + e.Message
}

// Is lets errors.Is match an APIError against the status sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	}
	return false
}

// NewAPIError builds an APIError with the standard description for status.
func NewAPIError(status int, message string) *APIError {
	return &APIError{StatusCode: status, Description: http.StatusText(status), Message: message}
}

func decodeError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Description == "" {
		apiErr = NewAPIError(resp.StatusCode, strings.TrimSpace(string(body)))
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}
