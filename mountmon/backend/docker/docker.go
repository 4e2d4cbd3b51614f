// Package docker adapts the Docker Engine API to mountmon's Controller
// interface, for fleets where the mount-dependent services are compose
// containers rather than LXC guests.
package docker

import (
	"context"

	"mountmon/mountmon"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/pkg/errors"
)

// Controller talks to the local Docker daemon.
type Controller struct {
	cli client.APIClient
}

var _ mountmon.Controller = (*Controller)(nil)

// New creates a docker-backed controller from the environment (DOCKER_HOST
// and friends), negotiating the API version with the daemon.
func New() (*Controller, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create docker client")
	}

	return &Controller{cli: cli}, nil
}

// NewWithClient creates a controller around an existing client, mainly for
// tests.
func NewWithClient(cli client.APIClient) *Controller {
	return &Controller{cli: cli}
}

// Status implements mountmon.Controller. NotFound is a valid answer, not an
// error.
func (c *Controller) Status(ctx context.Context, id string) (mountmon.Status, error) {
	insp, err := c.cli.ContainerInspect(ctx, id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return mountmon.Status{}, nil
		}
		return mountmon.Status{}, errors.Wrap(err, "failed to inspect container")
	}

	st := mountmon.Status{Exists: true}
	if insp.State != nil {
		st.Running = insp.State.Running
	}
	return st, nil
}

// Stop implements mountmon.Controller. ContainerStop already escalates from
// SIGTERM to SIGKILL after the daemon's stop timeout, so the graceful path
// and the forced fallback are one call. Stopping a container that is
// already gone is treated as success.
func (c *Controller) Stop(ctx context.Context, id string) error {
	if err := c.cli.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "failed to stop container")
	}
	return nil
}

// Start implements mountmon.Controller.
func (c *Controller) Start(ctx context.Context, id string) error {
	if err := c.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return errors.Wrap(err, "failed to start container")
	}
	return nil
}
