package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/fleetflow/leadflow/internal/errs"
)

// IsTransient returns true if the error (or any error in its chain) looks
// safe to retry: an ExternalServiceError from a collaborator, a network
// timeout, or a connection-level failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Collaborator failures are retryable by default.
	if errs.IsExternal(err) {
		return true
	}

	// Validation and missing-entry errors never resolve by retrying.
	if errs.IsValidation(err) || errs.IsNotFound(err) {
		return false
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

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
