package request

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (reset, unreachable, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the backend refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeHTTP indicates an HTTP-level error (non-2xx status code)
	ErrTypeHTTP
	// ErrTypeParse indicates a response that could not be decoded
	ErrTypeParse
	// ErrTypeRequest indicates the request itself could not be built
	ErrTypeRequest
	// ErrTypeCancelled indicates the caller's context ended the call
	ErrTypeCancelled
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeRequest:
		return "Request Error"
	case ErrTypeCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ErrRetryWindowExceeded is returned by ReAjax once the time since the first
// failure of a retry sequence is longer than the service's RetryWindow.
var ErrRetryWindowExceeded = errors.New("retry window exceeded")

// RequestError represents an error that occurred while talking to the backend
type RequestError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	URL        string    // Request URL (for context)
	Body       string    // Response body excerpt (HTTP errors only)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether the error is retryable
}

// Error implements the error interface
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *RequestError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a typed error
func ClassifyNetworkError(err error, rawURL string) *RequestError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &RequestError{
			Type:    ErrTypeCancelled,
			Message: "request cancelled",
			URL:     rawURL,
			Err:     err,
		}
	}

	if os.IsTimeout(err) {
		return &RequestError{
			Type:      ErrTypeTimeout,
			Message:   "request timed out",
			URL:       rawURL,
			Err:       err,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &RequestError{
			Type:      ErrTypeDNS,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			URL:       rawURL,
			Err:       err,
			Retryable: true,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &RequestError{
			Type:      ErrTypeConnectionRefused,
			Message:   "backend refused connection",
			URL:       rawURL,
			Err:       err,
			Retryable: true,
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return ClassifyNetworkError(urlErr.Err, rawURL)
	}

	return &RequestError{
		Type:      ErrTypeNetwork,
		Message:   "network error occurred",
		URL:       rawURL,
		Err:       err,
		Retryable: true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message, rawURL string, err error) *RequestError {
	classified := ClassifyNetworkError(err, rawURL)
	if classified == nil {
		return &RequestError{
			Type:      ErrTypeNetwork,
			Message:   message,
			URL:       rawURL,
			Retryable: true,
		}
	}
	classified.Message = message
	return classified
}

// NewHTTPError creates an HTTP-level error. Server errors are retryable.
func NewHTTPError(statusCode int, rawURL, body string) *RequestError {
	return &RequestError{
		Type:       ErrTypeHTTP,
		Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		StatusCode: statusCode,
		URL:        rawURL,
		Body:       body,
		Retryable:  statusCode >= 500,
	}
}

// NewParseError creates a decoding error
func NewParseError(message string, err error) *RequestError {
	return &RequestError{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
	}
}

func newRequestBuildError(message string, err error) *RequestError {
	return &RequestError{
		Type:    ErrTypeRequest,
		Message: message,
		Err:     err,
	}
}

func asRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}

// IsNetworkError reports whether err is a transport failure (including
// timeouts, refused connections and DNS failures) or a 5xx response, which the
// request service treats the same way.
func IsNetworkError(err error) bool {
	reqErr, ok := asRequestError(err)
	if !ok {
		return false
	}
	switch reqErr.Type {
	case ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS:
		return true
	case ErrTypeHTTP:
		return reqErr.StatusCode >= 500
	default:
		return false
	}
}

// IsHTTPError checks if an error is an HTTP error
func IsHTTPError(err error) bool {
	reqErr, ok := asRequestError(err)
	return ok && reqErr.Type == ErrTypeHTTP
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	reqErr, ok := asRequestError(err)
	return ok && reqErr.Type == ErrTypeParse
}

// IsCancelled checks if an error was caused by context cancellation
func IsCancelled(err error) bool {
	reqErr, ok := asRequestError(err)
	if ok && reqErr.Type == ErrTypeCancelled {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	reqErr, ok := asRequestError(err)
	return ok && reqErr.Retryable
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) []string {
	if errors.Is(err, ErrRetryWindowExceeded) {
		return []string{
			"The backend kept failing for the whole retry window.",
			"Check that the manager API is running and reachable",
			"Increase retry.window in the config file for slow networks",
		}
	}

	reqErr, ok := asRequestError(err)
	if !ok {
		return []string{"An unexpected error occurred. Please try again."}
	}

	switch reqErr.Type {
	case ErrTypeTimeout:
		return []string{
			"The backend did not respond in time.",
			"Check that the manager API is running",
			"Try increasing the timeout with --timeout",
		}
	case ErrTypeConnectionRefused:
		return []string{
			"The backend refused the connection.",
			"Verify the service URL and port",
			"Make sure the manager API process is started",
		}
	case ErrTypeDNS:
		return []string{
			"Could not resolve the backend hostname.",
			"Use an IP address in the service URL",
			"Check your DNS settings",
		}
	case ErrTypeHTTP:
		if reqErr.StatusCode == 404 {
			return []string{
				"The endpoint was not found (HTTP 404).",
				"The service URL must include the API context path (e.g. /xiaozhi)",
			}
		}
		if reqErr.StatusCode == 401 || reqErr.StatusCode == 403 {
			return []string{
				fmt.Sprintf("The backend rejected the request (HTTP %d).", reqErr.StatusCode),
				"This endpoint may require a session token",
			}
		}
		return []string{fmt.Sprintf("The backend returned HTTP %d. Check the request parameters.", reqErr.StatusCode)}
	case ErrTypeParse:
		return []string{
			"Failed to decode the backend response.",
			"The backend version may not match this client",
		}
	case ErrTypeCancelled:
		return []string{"The operation was cancelled."}
	default:
		return []string{
			"Network communication failed.",
			"Check your network connection",
			"Verify the service URL with 'devmgr config show'",
		}
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	if errors.Is(err, ErrRetryWindowExceeded) {
		return "Backend unavailable - gave up retrying"
	}

	reqErr, ok := asRequestError(err)
	if !ok {
		return err.Error()
	}

	switch reqErr.Type {
	case ErrTypeTimeout:
		return "Backend not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Backend refused connection"
	case ErrTypeDNS:
		return "Cannot resolve backend hostname"
	case ErrTypeHTTP:
		return fmt.Sprintf("Backend error (HTTP %d)", reqErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse backend response"
	case ErrTypeCancelled:
		return "Cancelled"
	default:
		return "Network error - check connection"
	}
}
