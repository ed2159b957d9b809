// Package oracle talks to the advisory language model. Replies are untrusted
// advice: callers parse them and fall back to static tables on any failure.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTimeout means the call did not finish within its budget.
	ErrTimeout = errors.New("oracle timeout")
	// ErrUnavailable covers provider, network and configuration failures.
	ErrUnavailable = errors.New("oracle unavailable")
	// ErrEmptyPrompt rejects blank prompts before any network call.
	ErrEmptyPrompt = errors.New("oracle prompt is empty")
	// ErrMalformedResponse is raised by reply parsers.
	ErrMalformedResponse = errors.New("oracle response malformed")
)

// Client sends one prompt and returns the raw reply text.
type Client interface {
	Invoke(ctx context.Context, prompt string, timeout time.Duration) (string, error)
}

// Func adapts a function to Client.
type Func func(ctx context.Context, prompt string) (string, error)

// Invoke applies timeout and classifies the error.
func (f Func) Invoke(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	return invokeWithin(ctx, prompt, timeout, f)
}

// Unavailable always fails. It backs the "none" provider so the engine runs
// on its static tables.
type Unavailable struct {
	Reason string
}

// Invoke returns ErrUnavailable.
func (u Unavailable) Invoke(context.Context, string, time.Duration) (string, error) {
	if u.Reason == "" {
		return "", ErrUnavailable
	}
	return "", fmt.Errorf("%w: %s", ErrUnavailable, u.Reason)
}

// invokeWithin runs call under timeout (0 means the caller's deadline only).
func invokeWithin(
	ctx context.Context,
	prompt string,
	timeout time.Duration,
	call func(context.Context, string) (string, error),
) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := call(callCtx, prompt)
	if err != nil {
		return "", classify(ctx, callCtx, err)
	}
	return out, nil
}

// classify maps err onto the package sentinels. Cancellation of parent is
// returned as the parent's own error so callers can tell it apart.
func classify(parent, callCtx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case parent.Err() != nil:
		return parent.Err()
	case errors.Is(callCtx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		if errors.Is(err, ErrTimeout) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrUnavailable), errors.Is(err, ErrEmptyPrompt):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

// Outcome labels err for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrEmptyPrompt):
		return "empty_prompt"
	default:
		return "unavailable"
	}
}
