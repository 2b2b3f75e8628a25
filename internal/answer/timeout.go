package answer

import (
	"context"
	"time"
)

// Timeout bounds each call to the wrapped Answerer.
type Timeout struct {
	inner   Answerer
	timeout time.Duration
}

// WithTimeout wraps inner. A non-positive d returns inner unchanged.
func WithTimeout(inner Answerer, d time.Duration) Answerer {
	if d <= 0 {
		return inner
	}
	return &Timeout{inner: inner, timeout: d}
}

func (t *Timeout) Answer(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Answer(ctx, query)
}
