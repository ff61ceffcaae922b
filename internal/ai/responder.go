// README: Text-generation backends behind one Responder interface.
package ai

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrEmptyResponse is returned when a backend answers with no usable text.
	ErrEmptyResponse = errors.New("ai: empty response")
	ErrNoProvider    = errors.New("ai: no responder configured")
)

// Responder turns a fully composed prompt into reply text.
type Responder interface {
	Respond(ctx context.Context, prompt string) (string, error)
}

// ResponderFunc adapts a plain function to Responder.
type ResponderFunc func(ctx context.Context, prompt string) (string, error)

func (f ResponderFunc) Respond(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Chain tries each responder in order and returns the first non-empty reply.
type Chain []Responder

func (c Chain) Respond(ctx context.Context, prompt string) (string, error) {
	if len(c) == 0 {
		return "", ErrNoProvider
	}
	var errs []error
	for _, r := range c {
		text, err := r.Respond(ctx, prompt)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err == nil {
			err = ErrEmptyResponse
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}
