package mountmon

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Status describes a container as reported by its backend.
type Status struct {
	Exists  bool
	Running bool
}

// Controller is the narrow surface mountmon needs from a container backend.
// Stop is expected to attempt a graceful stop and fall back to a forced one
// internally; by the time it returns an error, the backend has given up.
type Controller interface {
	Status(ctx context.Context, id string) (Status, error)
	Stop(ctx context.Context, id string) error
	Start(ctx context.Context, id string) error
}

// VerifyContainers checks that every id resolves to an existing container.
// It is called once at startup; a missing container is a configuration
// error, not something to discover mid-cycle.
func VerifyContainers(ctx context.Context, ctrl Controller, ids []string) error {
	for _, id := range ids {
		st, err := ctrl.Status(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "failed to query container %s", id)
		}
		if !st.Exists {
			return errors.Errorf("container %s does not exist", id)
		}
	}
	return nil
}

// RestartAll restarts every container in order: stop, a short delay to let
// the stop settle, then start. A failure in either phase marks the id as
// failed but never skips the remaining phase or the remaining containers.
// The returned slice holds the ids that failed, in input order.
func RestartAll(ctx context.Context, ctrl Controller, j Journaler, ids []string, delay time.Duration) []string {
	var failed []string

	for i, id := range ids {
		ok := true

		if err := ctrl.Stop(ctx, id); err != nil {
			j.Write(&EventContainerOpError{ID: id, Op: "stop", Error: err.Error()})
			ok = false
		} else {
			j.Write(&EventContainerStopped{ID: id})
		}

		if err := sleepCtx(ctx, delay); err != nil {
			// Shutting down mid-batch; this id and everything after it
			// never got a start attempt, so they all count as failed.
			failed = append(failed, ids[i:]...)
			return failed
		}

		// Start even if the stop failed: the container may simply have been
		// stopped already, and a start attempt costs nothing.
		if err := ctrl.Start(ctx, id); err != nil {
			j.Write(&EventContainerOpError{ID: id, Op: "start", Error: err.Error()})
			ok = false
		} else {
			j.Write(&EventContainerStarted{ID: id})
		}

		if !ok {
			failed = append(failed, id)
		}
	}

	return failed
}
