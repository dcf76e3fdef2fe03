package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/bkyoung/review-quorum/internal/domain"
)

// ConfigurationError indicates the review could not start at all. It is the
// only error the engine propagates; provider failures are recorded as data.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// timeouter matches net.Error-style errors that can self-report a timeout.
type timeouter interface {
	Timeout() bool
}

// classifyOutcomeError converts an adapter failure into an OutcomeError,
// distinguishing timeouts from other invocation failures.
func classifyOutcomeError(providerID string, err error) *domain.OutcomeError {
	if err == nil {
		return nil
	}

	kind := domain.OutcomeErrorInvocation
	if errors.Is(err, context.DeadlineExceeded) {
		kind = domain.OutcomeErrorTimeout
	} else {
		var te timeouter
		if errors.As(err, &te) && te.Timeout() {
			kind = domain.OutcomeErrorTimeout
		}
	}

	return &domain.OutcomeError{
		Kind:    kind,
		Message: fmt.Sprintf("provider %s: %v", providerID, err),
	}
}
