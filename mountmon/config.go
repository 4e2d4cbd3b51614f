package mountmon

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Built-in defaults, used when no other configuration source provides a
// value.
const (
	DefaultTimeout       = 5 * time.Minute
	DefaultCheckInterval = 5 * time.Second
)

var (
	DefaultLogPath    = "/var/log/mountmon.log"
	DefaultConfigPath = "/etc/mountmon/mountmon.conf"
	DefaultBackend    = "pct"
)

// Config is the fully resolved monitor configuration. It is constructed once
// at startup and passed by value; nothing mutates it afterwards.
type Config struct {
	MountPoints   []string
	Containers    []string
	Backend       string
	Timeout       time.Duration
	CheckInterval time.Duration
	LogPath       string
	Daemon        bool
}

// Values is a single source of configuration settings. Zero fields mean the
// source did not provide the setting and the next source in precedence order
// is consulted.
type Values struct {
	MountPoints   []string
	Containers    []string
	Backend       string
	Timeout       time.Duration
	CheckInterval time.Duration
	LogPath       string
}

// Defaults returns the built-in settings, the last source consulted.
func Defaults() Values {
	return Values{
		Backend:       DefaultBackend,
		Timeout:       DefaultTimeout,
		CheckInterval: DefaultCheckInterval,
		LogPath:       DefaultLogPath,
	}
}

// Merge returns v with every unset field filled in from fallback.
func (v Values) Merge(fallback Values) Values {
	if len(v.MountPoints) == 0 {
		v.MountPoints = fallback.MountPoints
	}
	if len(v.Containers) == 0 {
		v.Containers = fallback.Containers
	}
	if v.Backend == "" {
		v.Backend = fallback.Backend
	}
	if v.Timeout == 0 {
		v.Timeout = fallback.Timeout
	}
	if v.CheckInterval == 0 {
		v.CheckInterval = fallback.CheckInterval
	}
	if v.LogPath == "" {
		v.LogPath = fallback.LogPath
	}
	return v
}

// Config validates the merged values and freezes them into a Config. It is
// the only place configuration errors are produced, so the caller can treat
// any error from here as fatal.
func (v Values) Config(daemon bool) (Config, error) {
	if len(v.MountPoints) == 0 {
		return Config{}, errors.New("no mount points configured")
	}
	if len(v.Containers) == 0 {
		return Config{}, errors.New("no containers configured")
	}

	for _, path := range v.MountPoints {
		if !filepath.IsAbs(path) {
			return Config{}, errors.Errorf("mount point %q is not an absolute path", path)
		}
	}

	switch v.Backend {
	case "pct":
		// Proxmox VMIDs are numeric; catch typos before shelling out.
		for _, id := range v.Containers {
			if _, err := strconv.Atoi(id); err != nil {
				return Config{}, errors.Errorf("container id %q is not numeric", id)
			}
		}
	case "docker":
	default:
		return Config{}, errors.Errorf("unknown backend %q", v.Backend)
	}

	if v.Timeout <= 0 {
		return Config{}, errors.Errorf("timeout must be positive, got %s", v.Timeout)
	}
	if v.CheckInterval <= 0 {
		return Config{}, errors.Errorf("check interval must be positive, got %s", v.CheckInterval)
	}
	if v.LogPath == "" {
		return Config{}, errors.New("no log path configured")
	}

	return Config{
		MountPoints:   append([]string(nil), v.MountPoints...),
		Containers:    append([]string(nil), v.Containers...),
		Backend:       v.Backend,
		Timeout:       v.Timeout,
		CheckInterval: v.CheckInterval,
		LogPath:       v.LogPath,
		Daemon:        daemon,
	}, nil
}

// LoadFile reads a key=value configuration file. Comment lines begin with
// '#'; unknown keys are ignored so a config file can be shared with other
// tooling. List values accept both the shell-array form ("/a" "/b") and a
// comma-separated string.
func LoadFile(path string) (Values, error) {
	f, err := os.Open(path)
	if err != nil {
		return Values{}, errors.Wrap(err, "failed to open config file")
	}
	defer f.Close()

	var v Values

	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Values{}, errors.Errorf("missing '=' on line %d", lineNum)
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "MOUNT_POINTS":
			v.MountPoints = parseList(value)
		case "CONTAINERS":
			v.Containers = parseList(value)
		case "BACKEND":
			v.Backend = unquote(value)
		case "TIMEOUT":
			v.Timeout, err = parseSeconds(value)
			if err != nil {
				return Values{}, errors.Wrapf(err, "invalid TIMEOUT on line %d", lineNum)
			}
		case "CHECK_INTERVAL":
			v.CheckInterval, err = parseSeconds(value)
			if err != nil {
				return Values{}, errors.Wrapf(err, "invalid CHECK_INTERVAL on line %d", lineNum)
			}
		case "LOG_PATH":
			v.LogPath = unquote(value)
		}
	}

	if err := scanner.Err(); err != nil {
		return Values{}, errors.Wrap(err, "failed to read config file")
	}

	return v, nil
}

// ParseList parses a list flag or config value in either supported form.
func ParseList(value string) []string {
	return parseList(value)
}

func parseList(value string) []string {
	value = strings.TrimSpace(value)

	if strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")") {
		// Shell-array form: ("/mnt/a" "/mnt/b").
		fields := strings.Fields(value[1 : len(value)-1])

		out := make([]string, 0, len(fields))
		for _, f := range fields {
			if f = unquote(f); f != "" {
				out = append(out, f)
			}
		}
		return out
	}

	parts := strings.Split(unquote(value), ",")

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseSeconds(value string) (time.Duration, error) {
	secs, err := strconv.Atoi(unquote(value))
	if err != nil {
		return 0, errors.Wrap(err, "not a number of seconds")
	}
	if secs <= 0 {
		return 0, errors.Errorf("%d is not a positive number of seconds", secs)
	}
	return time.Duration(secs) * time.Second, nil
}

func unquote(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
