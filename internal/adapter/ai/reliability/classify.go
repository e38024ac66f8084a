package reliability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

// timeoutPatterns catch transport errors that lost their typed cause on the way up,
// e.g. errors flattened into strings by an SDK.
var timeoutPatterns = []string{
	"deadline exceeded",
	"exceed context deadline",
	"timeout",
	"timed out",
}

// IsTimeout reports whether err means the call ran out of time.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, docgen.ErrTimeout) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Cancellation is not a timeout even when the message mentions one
	if errors.Is(err, context.Canceled) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range timeoutPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Classify maps a call failure to the provenance recorded on its result.
func Classify(err error) docgen.Provenance {
	if err == nil {
		return docgen.ProvenanceSuccess
	}
	if IsTimeout(err) {
		return docgen.ProvenanceTimedOut
	}
	return docgen.ProvenanceError
}

// IsTimeoutStatusCode reports HTTP statuses that a gateway uses for upstream timeouts.
func IsTimeoutStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
