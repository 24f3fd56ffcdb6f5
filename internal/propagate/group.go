package propagate

import (
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// group runs tasks concurrently and collects every error. A failing task does not
// cancel its siblings.
type group struct {
	eg   errgroup.Group
	mu   sync.Mutex
	errs []error
}

func newGroup(limit int) *group {
	g := &group{}
	if limit > 0 {
		g.eg.SetLimit(limit)
	}
	return g
}

func (g *group) Go(f func() error) {
	g.eg.Go(func() error {
		if err := f(); err != nil {
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		}
		return nil
	})
}

// Add records an error that did not come from a task.
func (g *group) Add(err error) {
	if err == nil {
		return
	}
	g.mu.Lock()
	g.errs = append(g.errs, err)
	g.mu.Unlock()
}

// Wait blocks until every task returned and joins their errors.
func (g *group) Wait() error {
	_ = g.eg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
