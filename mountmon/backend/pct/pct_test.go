package pct

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

// fakeRunner scripts pct invocations by subcommand.
type fakeRunner struct {
	calls   []string
	outputs map[string]string
	errs    map[string]error
}

func (r *fakeRunner) run(ctx context.Context, args ...string) (string, error) {
	r.calls = append(r.calls, strings.Join(args, " "))

	if err := r.errs[args[0]]; err != nil {
		return "", err
	}
	return r.outputs[args[0]], nil
}

func newTestController(r *fakeRunner) *Controller {
	c := New()
	c.run = r.run
	return c
}

func TestStatus(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		c := newTestController(&fakeRunner{
			outputs: map[string]string{"status": "status: running\n"},
		})

		st, err := c.Status(context.Background(), "101")
		if err != nil {
			t.Fatal("unexpected error:", err)
		}
		if !st.Exists || !st.Running {
			t.Errorf("expected an existing running container, got %+v", st)
		}
	})

	t.Run("stopped", func(t *testing.T) {
		c := newTestController(&fakeRunner{
			outputs: map[string]string{"status": "status: stopped\n"},
		})

		st, err := c.Status(context.Background(), "101")
		if err != nil {
			t.Fatal("unexpected error:", err)
		}
		if !st.Exists || st.Running {
			t.Errorf("expected an existing stopped container, got %+v", st)
		}
	})

	t.Run("missing", func(t *testing.T) {
		c := newTestController(&fakeRunner{
			errs: map[string]error{
				"status": errors.New(`pct status failed: Configuration file 'nodes/pve/lxc/999.conf' does not exist`),
			},
		})

		st, err := c.Status(context.Background(), "999")
		if err != nil {
			t.Fatal("a missing container must not be an error:", err)
		}
		if st.Exists {
			t.Error("expected Exists to be false")
		}
	})
}

func TestStop(t *testing.T) {
	t.Run("graceful", func(t *testing.T) {
		r := &fakeRunner{}
		c := newTestController(r)

		if err := c.Stop(context.Background(), "101"); err != nil {
			t.Fatal("unexpected error:", err)
		}
		if len(r.calls) != 1 || r.calls[0] != "shutdown 101" {
			t.Errorf("expected a single shutdown call, got %v", r.calls)
		}
	})

	t.Run("forced fallback", func(t *testing.T) {
		r := &fakeRunner{
			errs: map[string]error{"shutdown": errors.New("shutdown timed out")},
		}
		c := newTestController(r)

		if err := c.Stop(context.Background(), "101"); err != nil {
			t.Fatal("the forced stop should have rescued the failure:", err)
		}
		if len(r.calls) != 2 || r.calls[1] != "stop 101" {
			t.Errorf("expected shutdown then stop, got %v", r.calls)
		}
	})

	t.Run("both fail", func(t *testing.T) {
		r := &fakeRunner{
			errs: map[string]error{
				"shutdown": errors.New("shutdown timed out"),
				"stop":     errors.New("stop failed"),
			},
		}
		c := newTestController(r)

		if err := c.Stop(context.Background(), "101"); err == nil {
			t.Error("expected an error when both phases fail")
		}
	})
}

func TestStart(t *testing.T) {
	r := &fakeRunner{}
	c := newTestController(r)

	if err := c.Start(context.Background(), "101"); err != nil {
		t.Fatal("unexpected error:", err)
	}
	if len(r.calls) != 1 || r.calls[0] != "start 101" {
		t.Errorf("expected a single start call, got %v", r.calls)
	}
}
