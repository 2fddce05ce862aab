package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexygraph/docflow/internal/core/domain"
	"github.com/lexygraph/docflow/internal/infrastructure/resilience"
)

// Attempt-level failures carry enough shape to classify for retry and to map
// to the caller-facing taxonomy afterwards.

type timeoutError struct {
	budget time.Duration
	cause  error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("agent call exceeded %s budget: %v", e.budget, e.cause)
}

func (e *timeoutError) Unwrap() error { return e.cause }

type unreachableError struct {
	cause error
}

func (e *unreachableError) Error() string {
	return fmt.Sprintf("agent unreachable: %v", e.cause)
}

func (e *unreachableError) Unwrap() error { return e.cause }

type statusError struct {
	statusCode int
	body       string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("agent returned status %d", e.statusCode)
	}
	return fmt.Sprintf("agent returned status %d: %s", e.statusCode, e.body)
}

type malformedError struct {
	cause error
}

func (e *malformedError) Error() string {
	return fmt.Sprintf("decode agent response: %v", e.cause)
}

func (e *malformedError) Unwrap() error { return e.cause }

// classifyCallError retries only the transient class: attempt timeout,
// connection-level failure, or a 5xx from the downstream. A 4xx reflects
// caller input and is never retried.
func classifyCallError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}

	var te *timeoutError
	if errors.As(err, &te) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	var ue *unreachableError
	if errors.As(err, &ue) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	var se *statusError
	if errors.As(err, &se) {
		if se.statusCode >= 500 {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

// mapCallError translates the terminal attempt error into the domain
// taxonomy: timeout -> gateway-timeout class, connection failure ->
// bad-gateway class, downstream status re-surfaced with its original code,
// unparseable body -> bad-gateway class.
func mapCallError(err error) error {
	if err == nil {
		return nil
	}

	var te *timeoutError
	if errors.As(err, &te) {
		return domain.WrapError(domain.ErrTimeout, "call agent", err)
	}
	var ue *unreachableError
	if errors.As(err, &ue) {
		return domain.WrapError(domain.ErrUnreachable, "call agent", err)
	}
	var se *statusError
	if errors.As(err, &se) {
		return fmt.Errorf("call agent: %w", &domain.DownstreamStatusError{
			StatusCode: se.statusCode,
			Body:       se.body,
		})
	}
	var me *malformedError
	if errors.As(err, &me) {
		return domain.WrapError(domain.ErrMalformedResponse, "call agent", err)
	}
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "call agent", err)
	}
	return err
}
