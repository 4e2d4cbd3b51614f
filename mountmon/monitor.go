package mountmon

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Surveillance timing is deliberately decoupled from the configured check
// interval: once the mounts are stable there is no reason to hammer the
// mount table at the waiting-phase rate.
var (
	SurveillanceInterval = time.Minute
	HeartbeatInterval    = 10 * time.Minute
	RestartDelay         = 3 * time.Second
)

// ErrWaitTimeout is returned by Run when the mounts never became active
// within the configured timeout and the monitor is not in daemon mode.
var ErrWaitTimeout = errors.New("timed out waiting for mounts")

// Monitor drives the wait/restart/surveil cycle. It runs as a single
// logical thread of control: every probe, container operation and sleep is
// awaited before the next one is issued.
type Monitor struct {
	// Overridable per instance; defaulted from the package variables.
	SurveillanceInterval time.Duration
	HeartbeatInterval    time.Duration
	RestartDelay         time.Duration

	cfg    Config
	prober Prober
	ctrl   Controller
	j      Journaler

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	// active mount status from the previous probe pass, used to journal
	// transitions rather than every poll result.
	lastStatus map[string]bool
}

// NewMonitor creates a monitor. It does not start anything; call Run.
func NewMonitor(cfg Config, prober Prober, ctrl Controller, j Journaler) *Monitor {
	return &Monitor{
		SurveillanceInterval: SurveillanceInterval,
		HeartbeatInterval:    HeartbeatInterval,
		RestartDelay:         RestartDelay,

		cfg:    cfg,
		prober: prober,
		ctrl:   ctrl,
		j:      j,

		sleep: sleepCtx,
		now:   time.Now,
	}
}

// Run executes monitor cycles until the context is canceled. In daemon mode
// it never returns on its own: a wait timeout simply begins a new cycle.
// Otherwise a wait timeout ends the run with ErrWaitTimeout.
//
// Cancellation returns nil; it is the normal way to stop a monitor.
func (m *Monitor) Run(ctx context.Context) error {
	m.j.Write(&EventMonitorStarted{
		Mounts:     m.cfg.MountPoints,
		Containers: m.cfg.Containers,
		Daemon:     m.cfg.Daemon,
	})

	for {
		err := m.cycle(ctx)
		switch {
		case err == nil:
			// Surveillance saw a mount drop; begin a new cycle.

		case errors.Is(err, ErrWaitTimeout):
			if !m.cfg.Daemon {
				return err
			}
			// Daemon mode retries indefinitely.

		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil

		default:
			return err
		}
	}
}

// cycle runs one full pass of the state machine: wait for the mounts, drive
// the restart batch, then surveil until a mount drops. It returns nil when
// surveillance detects a lost mount (the caller starts a new cycle),
// ErrWaitTimeout when the wait phase expires, or the context error.
func (m *Monitor) cycle(ctx context.Context) error {
	if err := m.wait(ctx); err != nil {
		return err
	}

	failed := RestartAll(ctx, m.ctrl, m.j, m.cfg.Containers, m.RestartDelay)
	m.j.Write(&EventRestartSummary{
		Restarted: len(m.cfg.Containers) - len(failed),
		Failed:    failed,
	})

	// Per-container failures never abort the cycle; surveillance begins
	// regardless.
	return m.surveil(ctx)
}

// wait polls until every mount is active or the timeout elapses. Elapsed
// time is measured against a monotonic start mark, so wall-clock
// adjustments don't cut the wait short or stretch it.
func (m *Monitor) wait(ctx context.Context) error {
	start := m.now()

	for {
		if m.probe() {
			m.j.Write(&EventMountsActive{Waited: m.now().Sub(start).Round(time.Second)})
			return nil
		}

		if err := m.sleep(ctx, m.cfg.CheckInterval); err != nil {
			return err
		}

		if elapsed := m.now().Sub(start); elapsed >= m.cfg.Timeout {
			m.j.Write(&EventWaitTimeout{
				Elapsed:  elapsed.Round(time.Second),
				Retrying: m.cfg.Daemon,
			})
			return ErrWaitTimeout
		}
	}
}

// surveil re-probes the mounts at the fixed surveillance interval and
// returns nil as soon as any of them goes inactive. A heartbeat entry is
// journaled at a coarser interval to bound log volume.
func (m *Monitor) surveil(ctx context.Context) error {
	m.j.Write(&EventSurveillance{Interval: m.SurveillanceInterval})
	lastBeat := m.now()

	for {
		if err := m.sleep(ctx, m.SurveillanceInterval); err != nil {
			return err
		}

		if !m.probe() {
			return nil
		}

		if m.now().Sub(lastBeat) >= m.HeartbeatInterval {
			m.j.Write(&EventHeartbeat{Mounts: len(m.cfg.MountPoints)})
			lastBeat = m.now()
		}
	}
}

// probe checks every mount point once and journals status transitions.
// Probe errors are journaled as warnings and treated as "not mounted".
func (m *Monitor) probe() bool {
	status := make(map[string]bool, len(m.cfg.MountPoints))
	all := true

	for _, path := range m.cfg.MountPoints {
		ok, err := m.prober.Mounted(path)
		if err != nil {
			m.j.Write(&EventWarning{
				Component: "prober",
				Error:     err.Error(),
			})
			ok = false
		}

		status[path] = ok
		if !ok {
			all = false
		}

		// Journal transitions only; the first probe of a run counts as a
		// transition so the log records the starting state.
		prev, seen := m.lastStatus[path]
		if !seen || prev != ok {
			if ok {
				m.j.Write(&EventMountUp{Path: path})
			} else {
				m.j.Write(&EventMountDown{Path: path})
			}
		}
	}

	m.lastStatus = status
	return all
}

// sleepCtx sleeps for d or until the context is canceled, whichever comes
// first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
