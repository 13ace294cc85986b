package runner

import (
	"context"
	"testing"
	"time"

	"github.com/drblury/agentflow/internal/agent/config"
	"github.com/drblury/agentflow/internal/agent/domain"
	"github.com/drblury/agentflow/internal/agent/logging"
	"github.com/drblury/agentflow/internal/agent/store"
	"github.com/drblury/agentflow/internal/agent/worker"
)

// TestAsyncRunnerOnChannelTransport runs a whole process through a real
// worker service on the in-process channel transport, step by step.
func TestAsyncRunnerOnChannelTransport(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	svc, err := worker.NewService(ctx, config.Default(), logging.Nop(), worker.ServiceDependencies{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	st := store.NewMemoryStore()
	r, err := NewAsyncRunner(svc, st, nil)
	if err != nil {
		t.Fatalf("NewAsyncRunner: %v", err)
	}
	def := squarePipeline()
	if err := r.Prepare(def); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	go func() { _ = svc.Start(ctx) }()
	select {
	case <-svc.Running():
	case <-ctx.Done():
		t.Fatal("router did not start")
	}

	if err := r.Run(ctx, def.Start(7), pipelineTrigger(2)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var got []domain.ProcessStatus
	for {
		got = statuses(t, st, 7)
		if len(got) >= 4 {
			break
		}
		select {
		case <-ctx.Done():
			t.Fatalf("timed out waiting for completion; statuses %+v", got)
		case <-time.After(10 * time.Millisecond):
		}
	}

	want := []struct {
		step   string
		status domain.Status
	}{
		{"", domain.StatusPending},
		{"add", domain.StatusInProgress},
		{"square", domain.StatusInProgress},
		{"check", domain.StatusSucceeded},
	}
	if len(got) != len(want) {
		t.Fatalf("statuses = %+v", got)
	}
	for i, w := range want {
		if got[i].Step != w.step || got[i].Status != w.status {
			t.Fatalf("status[%d] = %+v, want %s/%s", i, got[i], w.step, w.status)
		}
	}
}
