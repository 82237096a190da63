package arena

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnreachable wraps transport failures talking to the upstream.
var ErrUnreachable = errors.New("arena unreachable")

// APIError is the typed form of the upstream error envelope
// `{statusCode, message, error?}` returned with every non-2xx response.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Kind       string `json:"error,omitempty"`
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("arena api %d %s: %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("arena api %d: %s", e.StatusCode, e.Message)
}

// AsAPIError unwraps err into an *APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusCode returns the upstream status carried by err, or 0.
func StatusCode(err error) int {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether the upstream rejected the bearer token.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden reports an upstream role mismatch.
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}

// IsNotFound reports a missing upstream resource.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

var unavailableMarkers = []string{
	"no active challenge",
	"no challenge",
	"not available",
	"weekend",
	"submission window",
	"outside",
}

// IsChallengeUnavailable reports the distinguished "no active challenge" /
// "outside the submission window" family of errors. They are informational
// states rather than failures.
func IsChallengeUnavailable(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	if apiErr.StatusCode != http.StatusNotFound && apiErr.StatusCode != http.StatusForbidden && apiErr.StatusCode != http.StatusBadRequest {
		return false
	}
	message := strings.ToLower(apiErr.Message)
	for _, marker := range unavailableMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}
