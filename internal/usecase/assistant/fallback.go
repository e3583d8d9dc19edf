package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/kailas-cloud/regassist/internal/domain"
)

// DefaultToolErrorMarkers are matched against provider error text.
var DefaultToolErrorMarkers = []string{"web_search", "tool", "tool_choice"}

// ToolErrorDetector decides whether a failed tool-enabled call may be retried without tools.
// Detection is a case-insensitive substring match on the provider message, which carries no
// dedicated tool error code. A wording change upstream silently disables the fallback.
type ToolErrorDetector struct {
	markers []string
}

// NewToolErrorDetector creates a detector. Empty markers fall back to DefaultToolErrorMarkers.
func NewToolErrorDetector(markers []string) ToolErrorDetector {
	if len(markers) == 0 {
		markers = DefaultToolErrorMarkers
	}
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lowered = append(lowered, m)
		}
	}
	return ToolErrorDetector{markers: lowered}
}

// IsToolError reports whether err looks caused by the tool. Rate limits, credential errors,
// empty answers and cancellations never qualify: retrying them without tools cannot help.
func (d ToolErrorDetector) IsToolError(err error) bool {
	if err == nil ||
		errors.Is(err, domain.ErrProviderRateLimited) ||
		errors.Is(err, domain.ErrProviderUnauthorized) ||
		errors.Is(err, domain.ErrMissingCredential) ||
		errors.Is(err, domain.ErrEmptyResponse) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range d.markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
