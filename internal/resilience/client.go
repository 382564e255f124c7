package resilience

import (
	"context"

	"github.com/vagledaren/vagledaren/internal/generate"
)

// client decorates a generation client with the retry policy. Streaming is
// retried only up to the point the stream is established; chunks already
// delivered cannot be replayed.
type client struct {
	inner   generate.Client
	retrier *Retrier
}

// WrapClient returns a generate.Client whose calls go through the retrier.
func WrapClient(inner generate.Client, retrier *Retrier) generate.Client {
	return &client{inner: inner, retrier: retrier}
}

func (c *client) Complete(ctx context.Context, prompt string) (string, error) {
	return Execute(ctx, c.retrier, "complete", func(ctx context.Context) (string, error) {
		return c.inner.Complete(ctx, prompt)
	})
}

func (c *client) CompleteStream(ctx context.Context, prompt string) (*generate.Stream, error) {
	return Execute(ctx, c.retrier, "complete_stream", func(ctx context.Context) (*generate.Stream, error) {
		return c.inner.CompleteStream(ctx, prompt)
	})
}
