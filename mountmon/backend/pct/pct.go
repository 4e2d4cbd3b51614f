// Package pct drives Proxmox VE LXC containers through the pct CLI. It is
// the default backend: the mounts being monitored typically back LXC bind
// mounts on the same host.
package pct

import (
	"context"
	"os/exec"
	"strings"

	"mountmon/mountmon"

	"github.com/pkg/errors"
)

// Controller shells out to pct for every operation. pct has no long-lived
// connection to speak of, so there is nothing to hold open between calls.
type Controller struct {
	// run is swapped out in tests.
	run func(ctx context.Context, args ...string) (string, error)
}

var _ mountmon.Controller = (*Controller)(nil)

// New creates a pct-backed controller.
func New() *Controller {
	return &Controller{run: runPct}
}

func runPct(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "pct", args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return "", errors.Wrapf(err, "pct %s failed", args[0])
		}
		return "", errors.Wrapf(err, "pct %s failed: %s", args[0], msg)
	}
	return string(out), nil
}

// Status implements mountmon.Controller. A container whose config file pct
// cannot find is reported as non-existent rather than as an error.
func (c *Controller) Status(ctx context.Context, id string) (mountmon.Status, error) {
	out, err := c.run(ctx, "status", id)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return mountmon.Status{}, nil
		}
		return mountmon.Status{}, err
	}

	return mountmon.Status{
		Exists:  true,
		Running: strings.Contains(out, "status: running"),
	}, nil
}

// Stop implements mountmon.Controller. It asks the container to shut down
// cleanly and falls back to a forced stop if the shutdown fails or the
// container ignores it.
func (c *Controller) Stop(ctx context.Context, id string) error {
	_, shutdownErr := c.run(ctx, "shutdown", id)
	if shutdownErr == nil {
		return nil
	}

	if _, err := c.run(ctx, "stop", id); err != nil {
		return errors.Wrapf(err, "forced stop after failed shutdown (%v)", shutdownErr)
	}
	return nil
}

// Start implements mountmon.Controller.
func (c *Controller) Start(ctx context.Context, id string) error {
	_, err := c.run(ctx, "start", id)
	return err
}
