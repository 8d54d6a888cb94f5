package settings

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of a settings fetch failure
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection refused, unreachable)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeAuth indicates a missing or rejected access token
	ErrTypeAuth
	// ErrTypeNotFound indicates the project reference does not exist
	ErrTypeNotFound
	// ErrTypeHTTP indicates any other non-200 status code
	ErrTypeHTTP
	// ErrTypeParse indicates a malformed response body or keys file
	ErrTypeParse
	// ErrTypeConfig indicates the client is missing required settings
	ErrTypeConfig
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeNotFound:
		return "Not Found"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeConfig:
		return "Configuration Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// SettingsError is returned by every Source implementation in this package.
type SettingsError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
	Retryable  bool
}

// Error implements the error interface
func (e *SettingsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *SettingsError) Unwrap() error {
	return e.Err
}

// classifyNetworkError maps transport failures onto error types.
func classifyNetworkError(message string, err error) *SettingsError {
	if os.IsTimeout(err) {
		return &SettingsError{Type: ErrTypeTimeout, Message: message, Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &SettingsError{Type: ErrTypeDNS, Message: message, Err: err, Retryable: dnsErr.IsTemporary}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &SettingsError{Type: ErrTypeNetwork, Message: message + " (connection refused)", Err: err, Retryable: true}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && urlErr.Err != err {
		return classifyNetworkError(message, urlErr.Err)
	}

	return &SettingsError{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}
}

// newStatusError maps an HTTP status code onto an error type.
func newStatusError(statusCode int, body string) *SettingsError {
	msg := fmt.Sprintf("unexpected status code: %d", statusCode)
	if body = strings.TrimSpace(body); body != "" {
		msg += ": " + body
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &SettingsError{Type: ErrTypeAuth, Message: "access token rejected", StatusCode: statusCode}
	case statusCode == http.StatusNotFound:
		return &SettingsError{Type: ErrTypeNotFound, Message: "project not found", StatusCode: statusCode}
	case statusCode == http.StatusTooManyRequests:
		return &SettingsError{Type: ErrTypeHTTP, Message: msg, StatusCode: statusCode, Retryable: true}
	default:
		return &SettingsError{Type: ErrTypeHTTP, Message: msg, StatusCode: statusCode, Retryable: statusCode >= 500}
	}
}

func newParseError(message string, err error) *SettingsError {
	return &SettingsError{Type: ErrTypeParse, Message: message, Err: err}
}

func newConfigError(message string) *SettingsError {
	return &SettingsError{Type: ErrTypeConfig, Message: message}
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var se *SettingsError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	return hasType(err, ErrTypeAuth)
}

// IsNotFound checks if an error means the project does not exist
func IsNotFound(err error) bool {
	return hasType(err, ErrTypeNotFound)
}

func hasType(err error, t ErrorType) bool {
	var se *SettingsError
	return errors.As(err, &se) && se.Type == t
}

// GetTroubleshootingHint returns user-facing advice for a fetch failure
func GetTroubleshootingHint(err error) string {
	var se *SettingsError
	if !errors.As(err, &se) {
		return "An unexpected error occurred. Please try again."
	}

	switch se.Type {
	case ErrTypeAuth:
		return strings.Join([]string{
			"The settings endpoint rejected the access token.",
			"Troubleshooting:",
			"  • Set RTINSPECT_ACCESS_TOKEN to a valid personal access token",
			"  • Check that the token has access to this project",
		}, "\n")
	case ErrTypeNotFound:
		return strings.Join([]string{
			"The project reference was not found.",
			"Troubleshooting:",
			"  • Check the --project value",
			"  • Use --keys-file for a local stack without a settings endpoint",
		}, "\n")
	case ErrTypeTimeout, ErrTypeNetwork, ErrTypeDNS:
		return strings.Join([]string{
			"Could not reach the settings endpoint.",
			"Troubleshooting:",
			"  • Check your network connection",
			"  • Verify --api-url",
		}, "\n")
	case ErrTypeParse:
		return "The settings response could not be parsed. Check --api-url points at the platform API."
	case ErrTypeConfig:
		return se.Message
	default:
		return "An error occurred. Please check the error message for details."
	}
}
