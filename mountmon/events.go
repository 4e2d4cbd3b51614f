package mountmon

import (
	"fmt"
	"strings"
	"time"
)

// Level classifies an event for the log line format.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// eventType describes an event type.
type eventType = string

const (
	eventWarning          eventType = "warning"
	eventMonitorStarted   eventType = "monitor started"
	eventMountUp          eventType = "mount up"
	eventMountDown        eventType = "mount down"
	eventMountsActive     eventType = "mounts active"
	eventWaitTimeout      eventType = "wait timeout"
	eventContainerStopped eventType = "container stopped"
	eventContainerStarted eventType = "container started"
	eventContainerOpError eventType = "container op error"
	eventRestartSummary   eventType = "restart summary"
	eventSurveillance     eventType = "surveillance"
	eventHeartbeat        eventType = "heartbeat"
	eventConfigReloaded   eventType = "config reloaded"
	eventShutdown         eventType = "shutdown"
)

// Event is an interface describing known events. Message is the
// human-readable form written into the log file.
type Event interface {
	Type() string
	Level() Level
	Message() string
	event()
}

// EventWarning is emitted when a non-fatal error occurs.
type EventWarning struct {
	Component string
	Error     string
}

func (ev *EventWarning) Type() string { return eventWarning }
func (ev *EventWarning) Level() Level { return LevelWarning }
func (ev *EventWarning) Message() string {
	return ev.Component + ": " + ev.Error
}
func (ev *EventWarning) event() {}

// EventMonitorStarted is emitted once when monitoring begins.
type EventMonitorStarted struct {
	Mounts     []string
	Containers []string
	Daemon     bool
}

func (ev *EventMonitorStarted) Type() string { return eventMonitorStarted }
func (ev *EventMonitorStarted) Level() Level { return LevelInfo }
func (ev *EventMonitorStarted) Message() string {
	mode := "interactive"
	if ev.Daemon {
		mode = "daemon"
	}
	return fmt.Sprintf("monitoring %d mount(s) for %d container(s) in %s mode",
		len(ev.Mounts), len(ev.Containers), mode)
}
func (ev *EventMonitorStarted) event() {}

// EventMountUp is emitted when a mount point transitions to active.
type EventMountUp struct {
	Path string
}

func (ev *EventMountUp) Type() string    { return eventMountUp }
func (ev *EventMountUp) Level() Level    { return LevelInfo }
func (ev *EventMountUp) Message() string { return "mount active: " + ev.Path }
func (ev *EventMountUp) event()          {}

// EventMountDown is emitted when a mount point transitions to inactive,
// including on the first probe of a cycle if it starts out unmounted.
type EventMountDown struct {
	Path string
}

func (ev *EventMountDown) Type() string    { return eventMountDown }
func (ev *EventMountDown) Level() Level    { return LevelWarning }
func (ev *EventMountDown) Message() string { return "mount not active: " + ev.Path }
func (ev *EventMountDown) event()          {}

// EventMountsActive is emitted when every configured mount probes active and
// the restart phase is about to begin.
type EventMountsActive struct {
	Waited time.Duration
}

func (ev *EventMountsActive) Type() string { return eventMountsActive }
func (ev *EventMountsActive) Level() Level { return LevelInfo }
func (ev *EventMountsActive) Message() string {
	return fmt.Sprintf("all mounts active after %s, restarting containers", ev.Waited)
}
func (ev *EventMountsActive) event() {}

// EventWaitTimeout is emitted when the wait phase exhausts its timeout.
type EventWaitTimeout struct {
	Elapsed  time.Duration
	Retrying bool
}

func (ev *EventWaitTimeout) Type() string { return eventWaitTimeout }
func (ev *EventWaitTimeout) Level() Level {
	if ev.Retrying {
		return LevelWarning
	}
	return LevelError
}
func (ev *EventWaitTimeout) Message() string {
	msg := fmt.Sprintf("timed out after %s waiting for mounts", ev.Elapsed)
	if ev.Retrying {
		msg += ", retrying"
	}
	return msg
}
func (ev *EventWaitTimeout) event() {}

// EventContainerStopped is emitted after a container stop succeeds.
type EventContainerStopped struct {
	ID string
}

func (ev *EventContainerStopped) Type() string    { return eventContainerStopped }
func (ev *EventContainerStopped) Level() Level    { return LevelInfo }
func (ev *EventContainerStopped) Message() string { return "stopped container " + ev.ID }
func (ev *EventContainerStopped) event()          {}

// EventContainerStarted is emitted after a container start succeeds.
type EventContainerStarted struct {
	ID string
}

func (ev *EventContainerStarted) Type() string    { return eventContainerStarted }
func (ev *EventContainerStarted) Level() Level    { return LevelInfo }
func (ev *EventContainerStarted) Message() string { return "started container " + ev.ID }
func (ev *EventContainerStarted) event()          {}

// EventContainerOpError is emitted when a single stop or start attempt
// fails. It never aborts the surrounding batch.
type EventContainerOpError struct {
	ID    string
	Op    string // "stop" or "start"
	Error string
}

func (ev *EventContainerOpError) Type() string { return eventContainerOpError }
func (ev *EventContainerOpError) Level() Level { return LevelError }
func (ev *EventContainerOpError) Message() string {
	return fmt.Sprintf("failed to %s container %s: %s", ev.Op, ev.ID, ev.Error)
}
func (ev *EventContainerOpError) event() {}

// EventRestartSummary is emitted at the end of a restart batch.
type EventRestartSummary struct {
	Restarted int
	Failed    []string
}

func (ev *EventRestartSummary) Type() string { return eventRestartSummary }
func (ev *EventRestartSummary) Level() Level {
	if len(ev.Failed) > 0 {
		return LevelWarning
	}
	return LevelInfo
}
func (ev *EventRestartSummary) Message() string {
	if len(ev.Failed) == 0 {
		return fmt.Sprintf("restarted %d container(s)", ev.Restarted)
	}
	return fmt.Sprintf("restarted %d container(s), %d failed: %s",
		ev.Restarted, len(ev.Failed), strings.Join(ev.Failed, ", "))
}
func (ev *EventRestartSummary) event() {}

// EventSurveillance is emitted when the monitor settles into the slow
// re-check loop after a successful restart batch.
type EventSurveillance struct {
	Interval time.Duration
}

func (ev *EventSurveillance) Type() string { return eventSurveillance }
func (ev *EventSurveillance) Level() Level { return LevelInfo }
func (ev *EventSurveillance) Message() string {
	return fmt.Sprintf("mounts stable, re-checking every %s", ev.Interval)
}
func (ev *EventSurveillance) event() {}

// EventHeartbeat is emitted at a coarse fixed interval during surveillance
// so long quiet stretches still leave a trace in the log.
type EventHeartbeat struct {
	Mounts int
}

func (ev *EventHeartbeat) Type() string { return eventHeartbeat }
func (ev *EventHeartbeat) Level() Level { return LevelInfo }
func (ev *EventHeartbeat) Message() string {
	return fmt.Sprintf("surveillance heartbeat, %d mount(s) active", ev.Mounts)
}
func (ev *EventHeartbeat) event() {}

// EventConfigReloaded is emitted when the configuration file changes on disk
// and the monitor restarts with the new settings.
type EventConfigReloaded struct {
	Path string
}

func (ev *EventConfigReloaded) Type() string    { return eventConfigReloaded }
func (ev *EventConfigReloaded) Level() Level    { return LevelInfo }
func (ev *EventConfigReloaded) Message() string { return "configuration reloaded from " + ev.Path }
func (ev *EventConfigReloaded) event()          {}

// EventShutdown is the final entry written on every exit path.
type EventShutdown struct {
	Reason string
}

func (ev *EventShutdown) Type() string    { return eventShutdown }
func (ev *EventShutdown) Level() Level    { return LevelInfo }
func (ev *EventShutdown) Message() string { return "shutting down: " + ev.Reason }
func (ev *EventShutdown) event()          {}
