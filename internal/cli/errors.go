package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ConfigError indicates invalid configuration: a malformed config file, a bad
// flag combination, or scenario files that fail structural validation. Root
// maps it to a dedicated exit code so scripts can tell "fix your setup" apart
// from "your tests failed".
type ConfigError struct {
	// Reason is the underlying error.
	Reason error
}

// NewConfigError wraps an error as a configuration problem.
func NewConfigError(reason error) *ConfigError {
	return &ConfigError{Reason: reason}
}

// NewConfigErrorf builds a configuration problem from a format string.
func NewConfigErrorf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Errorf(format, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Reason)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok
}

// ConnectionErrorType categorizes why a target could not be reached.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown covers failures none of the other categories match.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS covers certificate verification and handshake failures.
	ConnectionErrorTLS
	// ConnectionErrorNetwork covers refused, reset, and unreachable connections.
	ConnectionErrorNetwork
	// ConnectionErrorTimeout covers dial and request deadline expiry.
	ConnectionErrorTimeout
	// ConnectionErrorDNS covers name resolution failures.
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ConnectionError indicates that a target the harness depends on could not be
// reached: the application under test, the API base URL, or an OAuth token
// endpoint. Root maps it to its own exit code so CI can retry connectivity
// problems without rerunning genuinely failed suites.
type ConnectionError struct {
	// Endpoint is the URL that could not be reached.
	Endpoint string
	// Type categorizes the connection error.
	Type ConnectionErrorType
	// Reason is the underlying error.
	Reason error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s for %s: %v", e.Type, e.Endpoint, e.Reason)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *ConnectionError) Is(target error) bool {
	_, ok := target.(*ConnectionError)
	return ok
}

// ClassifyConnectionError wraps err as a ConnectionError for endpoint,
// categorizing it for user feedback and exit-code mapping. Returns nil for a
// nil err.
func ClassifyConnectionError(err error, endpoint string) *ConnectionError {
	if err == nil {
		return nil
	}

	return &ConnectionError{
		Endpoint: endpoint,
		Type:     classifyConnection(err),
		Reason:   err,
	}
}

// classifyConnection orders the checks from most to least specific. The
// message fallbacks catch errors that crossed a library boundary as plain
// strings and lost their concrete type.
func classifyConnection(err error) ConnectionErrorType {
	msg := err.Error()

	var dnsErr *net.DNSError

	switch {
	case isCertificateError(err, msg):
		return ConnectionErrorTLS
	case errors.As(err, &dnsErr):
		return ConnectionErrorDNS
	case isTimeout(err, msg):
		return ConnectionErrorTimeout
	case containsAny(msg,
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connect:"):
		return ConnectionErrorNetwork
	default:
		return ConnectionErrorUnknown
	}
}

func isCertificateError(err error, msg string) bool {
	// The x509 verification errors are returned by value.
	var (
		invalidErr x509.CertificateInvalidError
		hostErr    x509.HostnameError
		authErr    x509.UnknownAuthorityError
		rootsErr   x509.SystemRootsError
	)
	if errors.As(err, &invalidErr) || errors.As(err, &hostErr) ||
		errors.As(err, &authErr) || errors.As(err, &rootsErr) {
		return true
	}

	return containsAny(msg, "x509:", "certificate", "tls:", "TLS handshake")
}

func isTimeout(err error, msg string) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return containsAny(msg, "timeout", "deadline exceeded")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
