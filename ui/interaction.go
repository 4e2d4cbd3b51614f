package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	envNoInteraction = "NO_INTERACTION"
	envCI            = "CI"
	envTerm          = "TERM"
)

var interactive bool

// ConfigureInteraction decides once whether this run may talk to a human
// and pins the lipgloss color profile accordingly. Daemon mode passes
// noInteraction=true and gets plain ASCII everywhere.
func ConfigureInteraction(noInteraction bool) {
	interactive = detectInteractiveMode(noInteraction)

	if interactive {
		lipgloss.SetColorProfile(termenv.ColorProfile())
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

// IsInteractive reports whether prompts are allowed.
func IsInteractive() bool { return interactive }

func detectInteractiveMode(noInteraction bool) bool {
	if noInteraction {
		return false
	}
	if envTruthy(envNoInteraction) || envTruthy(envCI) {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envTerm)), "dumb") {
		return false
	}
	return stdinIsTerminal() && stderrIsTerminal()
}

func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func envTruthy(key string) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Confirm asks a yes/no question on stderr and returns the answer. The
// default on an empty answer is no.
func Confirm(question string) (bool, error) {
	fmt.Fprintf(os.Stderr, "%s %s ", InfoMsg("%s", question), Muted("[y/N]"))

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}

	switch strings.TrimSpace(strings.ToLower(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// PromptList asks for a comma-separated list on stderr and returns the
// trimmed items. An empty answer returns an empty slice.
func PromptList(label string) ([]string, error) {
	fmt.Fprintf(os.Stderr, "%s %s ", InfoMsg("%s", label), Muted("(comma-separated)"))

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return nil, err
	}

	var out []string
	for _, item := range strings.Split(line, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}
