package propagate

import (
	"github.com/emrgen/propagate/internal/store"
)

// Engine keeps the cached copies held in link fields consistent with the documents
// they point at.
type Engine struct {
	store store.Store
	// direct serves the reads repair trusts, it must not sit behind a cache
	direct      store.DocumentStore
	concurrency int
}

type Option func(*Engine)

// WithConcurrency bounds the number of goroutines each fan-out runs at once.
// Zero or less means unbounded.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// WithDirectReads makes repair read documents from s instead of the engine's store.
// Use it when the engine's store is cached.
func WithDirectReads(s store.DocumentStore) Option {
	return func(e *Engine) {
		e.direct = s
	}
}

func NewEngine(store store.Store, opts ...Option) *Engine {
	e := &Engine{store: store, direct: store}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
