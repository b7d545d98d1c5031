// Package workers runs independent export units concurrently with fail-fast semantics
package workers

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/cryexport/cryexport/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// SafeGroup wraps errgroup.Group with panic recovery. The first failing unit
// cancels the group context so pending units stop early.
type SafeGroup struct {
	group  *errgroup.Group
	logger logger.Logger
}

// NewSafeGroup creates a SafeGroup bounded to limit goroutines (<= 0 means NumCPU)
func NewSafeGroup(ctx context.Context, log logger.Logger, limit int) (*SafeGroup, context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g.SetLimit(limit)
	return &SafeGroup{
		group:  g,
		logger: log,
	}, ctx
}

// Go runs fn in a new goroutine, converting a panic into an error
func (sg *SafeGroup) Go(fn func() error) {
	sg.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				if sg.logger != nil {
					sg.logger.Error("Worker panic recovered",
						logger.WithField("panic", r),
						logger.WithField("stack_trace", string(debug.Stack())))
				}
				err = fmt.Errorf("worker panic: %v", r)
			}
		}()

		return fn()
	})
}

// Wait blocks until all goroutines have completed and returns the first error
func (sg *SafeGroup) Wait() error {
	return sg.group.Wait()
}
