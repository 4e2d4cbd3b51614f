package ui

import (
	"fmt"
	"io"

	"mountmon/mountmon"
)

// ConsoleJournaler renders monitor events as colored status lines for
// interactive runs. It is combined with the file journaler through
// journal.MultiWriter; daemon mode leaves it out entirely.
type ConsoleJournaler struct {
	w io.Writer
}

var _ mountmon.Journaler = (*ConsoleJournaler)(nil)

// NewConsoleJournaler creates a console journaler writing to w.
func NewConsoleJournaler(w io.Writer) *ConsoleJournaler {
	return &ConsoleJournaler{w: w}
}

// Write implements mountmon.Journaler.
func (c *ConsoleJournaler) Write(ev mountmon.Event) error {
	var line string

	switch ev.Level() {
	case mountmon.LevelWarning:
		line = WarnMsg("%s", ev.Message())
	case mountmon.LevelError:
		line = ErrorMsg("%s", ev.Message())
	default:
		switch ev.(type) {
		case *mountmon.EventMountUp, *mountmon.EventContainerStarted,
			*mountmon.EventRestartSummary:
			line = SuccessMsg("%s", ev.Message())
		default:
			line = InfoMsg("%s", ev.Message())
		}
	}

	_, err := fmt.Fprintln(c.w, line)
	return err
}
