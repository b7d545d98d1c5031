package workers_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cryexport/cryexport/internal/workers"
	"github.com/cryexport/cryexport/pkg/logger"
)

func TestSafeGroup_AllSucceed(t *testing.T) {
	g, _ := workers.NewSafeGroup(context.Background(), logger.Discard(), 2)

	var count int32
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			atomic.AddInt32(&count, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 10 {
		t.Errorf("expected 10 runs, got %d", count)
	}
}

func TestSafeGroup_FirstErrorCancels(t *testing.T) {
	g, ctx := workers.NewSafeGroup(context.Background(), logger.Discard(), 1)
	boom := errors.New("boom")

	g.Go(func() error { return boom })
	g.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})

	if err := g.Wait(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestSafeGroup_RecoversPanic(t *testing.T) {
	g, _ := workers.NewSafeGroup(context.Background(), logger.Discard(), 0)

	g.Go(func() error {
		panic("unit exploded")
	})

	err := g.Wait()
	if err == nil || !strings.Contains(err.Error(), "unit exploded") {
		t.Fatalf("expected panic to be converted to error, got %v", err)
	}
}
