// Package resilience classifies provider failures and rate-limits outbound
// AI calls. The pipeline never retries on its own; classification exists so
// callers and phase metadata can tell a retryable outage apart from a
// permanent failure when the user decides whether to re-run.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// ProviderError wraps a failure from an upstream AI or HTTP provider with
// enough detail to classify it.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Provider == "" {
		return e.Err.Error()
	}
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether a failed call could plausibly succeed on a
// user-initiated re-run: rate limits, server-side errors, and network-level
// faults qualify; bad input and auth failures do not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var pe *ProviderError
	if errors.As(err, &pe) && RetryableStatus(pe.StatusCode) {
		return true
	}

	// API client errors report their HTTP status without importing this
	// package.
	var sc interface{ HTTPStatus() int }
	if errors.As(err, &sc) && RetryableStatus(sc.HTTPStatus()) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// RetryableStatus reports whether an HTTP status code indicates a transient
// server-side condition.
func RetryableStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
