package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrBadTarget         = errors.New("unknown target agent")
	ErrTimeout           = errors.New("downstream timeout")
	ErrUnreachable       = errors.New("downstream unreachable")
	ErrDownstream        = errors.New("downstream error")
	ErrMalformedResponse = errors.New("malformed downstream response")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// DownstreamStatusError re-surfaces a downstream agent's HTTP failure with
// its original status code and body attached for diagnostics.
type DownstreamStatusError struct {
	StatusCode int
	Body       string
}

func (e *DownstreamStatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("downstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("downstream returned status %d: %s", e.StatusCode, body)
}

func (e *DownstreamStatusError) Unwrap() error { return ErrDownstream }
