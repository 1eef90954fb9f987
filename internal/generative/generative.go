package generative

import (
	"context"
	"errors"
)

// ErrDisabled is returned by generators that have no backing model configured.
var ErrDisabled = errors.New("generative text is disabled")

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
