package context_test

import (
	"context"
	"strings"
	"testing"
	"time"

	pcontext "github.com/cryexport/cryexport/pkg/context"
)

func TestRunID(t *testing.T) {
	tests := []struct {
		name  string
		ctx   context.Context
		want  string
		isSet bool
	}{
		{"absent", context.Background(), "unknown-run", false},
		{"explicit", pcontext.WithRunID(context.Background(), "run_abc"), "run_abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pcontext.GetRunID(tt.ctx); got != tt.want {
				t.Errorf("GetRunID() = %q, want %q", got, tt.want)
			}
			if got := pcontext.HasRunID(tt.ctx); got != tt.isSet {
				t.Errorf("HasRunID() = %v, want %v", got, tt.isSet)
			}
		})
	}
}

func TestWithRunID_GeneratesWhenEmpty(t *testing.T) {
	ctx := pcontext.WithRunID(context.Background(), "")

	id := pcontext.GetRunID(ctx)
	if !strings.HasPrefix(id, "run_") || len(id) <= len("run_") {
		t.Errorf("unexpected generated run id %q", id)
	}
}

func TestGenerateRunID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := pcontext.GenerateRunID()
		if seen[id] {
			t.Fatalf("duplicate run id %q", id)
		}
		seen[id] = true
	}
}

func TestOperation(t *testing.T) {
	if got := pcontext.GetOperation(context.Background()); got != "unknown-operation" {
		t.Errorf("GetOperation() = %q", got)
	}

	ctx := pcontext.WithOperation(context.Background(), "export")
	if got := pcontext.GetOperation(ctx); got != "export" {
		t.Errorf("GetOperation() = %q", got)
	}
}

func TestEnrichContext(t *testing.T) {
	ctx := pcontext.WithRunID(context.Background(), "run_keep")
	ctx = pcontext.EnrichContext(ctx)

	if got := pcontext.GetRunID(ctx); got != "run_keep" {
		t.Errorf("existing run id replaced with %q", got)
	}
	if pcontext.GetStartTime(ctx).IsZero() {
		t.Error("expected start time")
	}

	fresh := pcontext.EnrichContext(context.Background())
	if !pcontext.HasRunID(fresh) {
		t.Error("expected generated run id")
	}
}

func TestGetDuration(t *testing.T) {
	if d := pcontext.GetDuration(context.Background()); d != 0 {
		t.Errorf("duration without start time = %v", d)
	}

	ctx := pcontext.WithStartTime(context.Background(), time.Now().Add(-time.Second))
	if d := pcontext.GetDuration(ctx); d < time.Second {
		t.Errorf("duration = %v, want >= 1s", d)
	}
}

func TestValuesDoNotOverwriteEachOther(t *testing.T) {
	ctx := pcontext.EnrichContext(pcontext.WithOperation(context.Background(), "export"))

	if got := pcontext.GetOperation(ctx); got != "export" {
		t.Errorf("GetOperation() = %q, want export", got)
	}
	if !pcontext.HasRunID(ctx) {
		t.Error("expected generated run id next to the operation")
	}
	if pcontext.GetStartTime(ctx).IsZero() {
		t.Error("expected start time")
	}
}
