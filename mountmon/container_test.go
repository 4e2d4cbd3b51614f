package mountmon

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
)

// fakeController records every operation and fails the ones it is told to.
type fakeController struct {
	mu       sync.Mutex
	stops    []string
	starts   []string
	missing  map[string]bool
	failOp   map[string]string // id -> "stop" or "start"
	stopHook func()
}

var _ Controller = (*fakeController)(nil)

func (c *fakeController) Status(ctx context.Context, id string) (Status, error) {
	if c.missing[id] {
		return Status{}, nil
	}
	return Status{Exists: true, Running: true}, nil
}

func (c *fakeController) Stop(ctx context.Context, id string) error {
	c.mu.Lock()
	c.stops = append(c.stops, id)
	c.mu.Unlock()

	if c.stopHook != nil {
		c.stopHook()
	}
	if c.failOp[id] == "stop" {
		return errors.New("stop refused")
	}
	return nil
}

func (c *fakeController) Start(ctx context.Context, id string) error {
	c.mu.Lock()
	c.starts = append(c.starts, id)
	c.mu.Unlock()

	if c.failOp[id] == "start" {
		return errors.New("start refused")
	}
	return nil
}

func TestRestartAll(t *testing.T) {
	t.Run("partial failure", func(t *testing.T) {
		j := mockJournal{}
		ctrl := &fakeController{failOp: map[string]string{"101": "stop"}}

		failed := RestartAll(context.Background(), ctrl, &j, []string{"101", "102"}, 0)

		// A failed stop must not skip the start, and must not abort the
		// batch: both containers get both phases attempted.
		if len(ctrl.stops) != 2 || len(ctrl.starts) != 2 {
			t.Errorf("expected 2 stops and 2 starts, got %d and %d",
				len(ctrl.stops), len(ctrl.starts))
		}

		if len(failed) != 1 || failed[0] != "101" {
			t.Errorf("expected only 101 to fail, got %v", failed)
		}

		j.Verify(t, false, []Event{
			&EventContainerOpError{ID: "101", Op: "stop", Error: "stop refused"},
			&EventContainerStarted{ID: "101"},
			&EventContainerStopped{ID: "102"},
			&EventContainerStarted{ID: "102"},
		})
	})

	t.Run("canceled mid-batch", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		j := mockJournal{}
		ctrl := &fakeController{stopHook: cancel}

		failed := RestartAll(ctx, ctrl, &j, []string{"101", "102", "103"}, 0)

		// Cancellation lands during the first restart; the batch stops
		// there and every id without a completed start counts as failed.
		if len(ctrl.stops) != 1 || len(ctrl.starts) != 0 {
			t.Errorf("expected 1 stop and no starts, got %d and %d",
				len(ctrl.stops), len(ctrl.starts))
		}

		want := []string{"101", "102", "103"}
		if len(failed) != len(want) {
			t.Fatalf("expected all ids to fail, got %v", failed)
		}
		for i := range want {
			if failed[i] != want[i] {
				t.Errorf("failed[%d] = %q, want %q", i, failed[i], want[i])
			}
		}
	})

	t.Run("all healthy", func(t *testing.T) {
		j := mockJournal{}
		ctrl := &fakeController{}

		failed := RestartAll(context.Background(), ctrl, &j, []string{"101", "102"}, 0)
		if len(failed) != 0 {
			t.Errorf("expected no failures, got %v", failed)
		}

		j.Verify(t, true, []Event{
			&EventContainerStopped{ID: "101"},
			&EventContainerStarted{ID: "101"},
			&EventContainerStopped{ID: "102"},
			&EventContainerStarted{ID: "102"},
		})
	})
}

func TestVerifyContainers(t *testing.T) {
	ctrl := &fakeController{missing: map[string]bool{"404": true}}

	if err := VerifyContainers(context.Background(), ctrl, []string{"101", "102"}); err != nil {
		t.Error("unexpected error for existing containers:", err)
	}

	if err := VerifyContainers(context.Background(), ctrl, []string{"101", "404"}); err == nil {
		t.Error("expected an error for a missing container")
	}
}
