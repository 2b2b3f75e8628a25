package answer

import (
	"context"
	"sync"
)

// Lazy defers building an Answerer until the first question. Construction
// runs once; its result, including any error, is reused by every later call.
type Lazy struct {
	build func(ctx context.Context) (Answerer, error)
	once  sync.Once
	done  chan struct{}
	inner Answerer
	err   error
}

// NewLazy wraps a constructor. The constructor receives a background
// context because it outlives the request that triggers it.
func NewLazy(build func(ctx context.Context) (Answerer, error)) *Lazy {
	return &Lazy{build: build, done: make(chan struct{})}
}

func (l *Lazy) start() {
	l.once.Do(func() {
		go func() {
			defer close(l.done)
			l.inner, l.err = l.build(context.Background())
		}()
	})
}

// Answer builds the answerer on first use, then delegates. A caller whose
// context ends while models are loading gets its context error; the build
// keeps running for later calls.
func (l *Lazy) Answer(ctx context.Context, query string) (string, error) {
	l.start()
	select {
	case <-l.done:
	case <-ctx.Done():
		return "", stageError("initialize answerer", ctx.Err())
	}
	if l.err != nil {
		return "", stageError("initialize answerer", l.err)
	}
	return l.inner.Answer(ctx, query)
}

// Warm forces construction, for callers that prefer to pay the cost at startup.
func (l *Lazy) Warm() error {
	l.start()
	<-l.done
	return l.err
}
