package mountmon

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Prober reports whether a path is currently an active mount point. A
// missing directory is not an error: network mount targets legitimately may
// not exist until the remote filesystem attaches.
type Prober interface {
	Mounted(path string) (bool, error)
}

// AllMounted probes every path and returns true only if all of them are
// active. Probe errors count as unmounted; the caller decides whether to
// report them.
func AllMounted(p Prober, paths []string) bool {
	all := true
	for _, path := range paths {
		ok, err := p.Mounted(path)
		if err != nil || !ok {
			all = false
		}
	}
	return all
}

// MountProber checks the kernel mount table. It reads /proc/self/mountinfo
// and falls back to comparing device numbers of a path and its parent when
// the table is unreadable (e.g. on a system without procfs).
type MountProber struct {
	// MountInfoPath overrides the mount table location, mainly for tests.
	MountInfoPath string

	j Journaler

	mu     sync.Mutex
	warned map[string]bool
}

// NewMountProber creates a prober that reports non-fatal oddities (such as a
// mount target directory that does not exist yet) to the journaler.
func NewMountProber(j Journaler) *MountProber {
	return &MountProber{
		MountInfoPath: "/proc/self/mountinfo",
		j:             j,
		warned:        make(map[string]bool),
	}
}

// Mounted implements Prober.
func (p *MountProber) Mounted(path string) (bool, error) {
	path = filepath.Clean(path)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			p.warnOnce(path, "target directory does not exist yet")
			return false, nil
		}
		return false, errors.Wrap(err, "failed to stat mount target")
	}

	mounted, err := p.inMountTable(path)
	if err == nil {
		p.clearWarning(path)
		return mounted, nil
	}

	// The mount table is unreadable; compare device numbers instead. A
	// mounted path sits on a different device than its parent.
	var st, parent unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return false, errors.Wrap(err, "failed to lstat mount target")
	}
	if err := unix.Lstat(filepath.Dir(path), &parent); err != nil {
		return false, errors.Wrap(err, "failed to lstat mount parent")
	}

	p.clearWarning(path)
	return st.Dev != parent.Dev, nil
}

func (p *MountProber) inMountTable(path string) (bool, error) {
	data, err := os.ReadFile(p.MountInfoPath)
	if err != nil {
		return false, errors.Wrap(err, "failed to read mount table")
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if mountPoint(scanner.Text()) == path {
			return true, nil
		}
	}

	return false, scanner.Err()
}

// warnOnce journals a warning for a path the first time the condition is
// seen, so a poll loop doesn't flood the log every few seconds.
func (p *MountProber) warnOnce(path, msg string) {
	p.mu.Lock()
	seen := p.warned[path]
	p.warned[path] = true
	p.mu.Unlock()

	if !seen && p.j != nil {
		p.j.Write(&EventWarning{
			Component: "prober",
			Error:     msg + ": " + path,
		})
	}
}

func (p *MountProber) clearWarning(path string) {
	p.mu.Lock()
	delete(p.warned, path)
	p.mu.Unlock()
}

// mountPoint extracts the mount point (field 5) from one mountinfo line,
// decoding the octal escapes the kernel uses for whitespace in paths.
func mountPoint(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return ""
	}
	return unescapeMount(fields[4])
}

func unescapeMount(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if n, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}

	return b.String()
}
