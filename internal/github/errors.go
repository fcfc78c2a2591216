package github

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

var (
	// ErrMissingToken is returned when a request is attempted without a token.
	ErrMissingToken = errors.New("GitHub token must be set")

	// ErrUnauthorized matches API errors with HTTP 401, i.e. an invalid or
	// expired token.
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-success response from the GitHub API.
type APIError struct {
	Path       string
	StatusCode int
	StatusText string
}

func newAPIError(path string, resp *http.Response) *APIError {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return &APIError{Path: path, StatusCode: resp.StatusCode, StatusText: text}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error: %d %s", e.StatusCode, e.StatusText)
}

// Is reports 401 responses as ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// FailureKind tells apart why a traffic series could not be fetched.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureForbidden means the endpoint is not available to this token,
	// typically because traffic data requires push access.
	FailureForbidden
	FailureUnauthorized
	FailureTransient
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureForbidden:
		return "forbidden"
	case FailureUnauthorized:
		return "unauthorized"
	default:
		return "transient"
	}
}

// Classify maps a fetch error to a FailureKind.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return FailureUnauthorized
		case http.StatusForbidden, http.StatusNotFound:
			return FailureForbidden
		}
	}
	return FailureTransient
}
