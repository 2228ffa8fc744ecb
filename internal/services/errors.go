package services

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/spx/internal/shared"
)

// APIError is a non-2xx response from the Web API.
type APIError struct {
	StatusCode int
	Message    string
	Method     string
	Endpoint   string
	Header     http.Header
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: %s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("spotify API error: %s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Message)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// ResponseHeader returns the response headers, including Retry-After on 429.
func (e *APIError) ResponseHeader() http.Header { return e.Header }

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return shared.ErrNotAuthenticated
	case http.StatusNotFound:
		return shared.ErrPlaylistNotFound
	default:
		return shared.ErrAPIRequest
	}
}

// spotifyErrorBody is the regular error object of the Web API.
type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// newAPIError builds an APIError from a failed response, reading the message from body when it is JSON.
func newAPIError(resp *http.Response, method, endpoint string, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Method:     method,
		Endpoint:   endpoint,
		Header:     resp.Header.Clone(),
	}

	var parsed spotifyErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		apiErr.Message = parsed.Error.Message
	} else if len(body) > 0 && len(body) < 512 {
		apiErr.Message = string(body)
	}

	return apiErr
}
