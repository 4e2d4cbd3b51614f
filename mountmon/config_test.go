package mountmon

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadFile(t *testing.T) {
	want := Values{
		MountPoints:   []string{"/mnt/a", "/mnt/b"},
		Containers:    []string{"101", "102"},
		Timeout:       120 * time.Second,
		CheckInterval: 10 * time.Second,
		LogPath:       "/var/log/mountmon/test.log",
	}

	// The shell-array and comma-separated list forms are equivalent.
	for _, file := range []string{"testdata/array.conf", "testdata/commas.conf"} {
		t.Run(file, func(t *testing.T) {
			v, err := LoadFile(file)
			if err != nil {
				t.Fatal("failed to load config:", err)
			}
			if !reflect.DeepEqual(v, want) {
				t.Errorf("unexpected values:\ngot  %#v\nwant %#v", v, want)
			}
		})
	}

	t.Run("missing", func(t *testing.T) {
		if _, err := LoadFile("testdata/does-not-exist.conf"); err == nil {
			t.Error("expected an error for a missing file")
		}
	})
}

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`("/mnt/a" "/mnt/b")`, []string{"/mnt/a", "/mnt/b"}},
		{`"/mnt/a,/mnt/b"`, []string{"/mnt/a", "/mnt/b"}},
		{`/mnt/a, /mnt/b`, []string{"/mnt/a", "/mnt/b"}},
		{`('/mnt/a')`, []string{"/mnt/a"}},
		{`101,102`, []string{"101", "102"}},
		{` `, nil},
	}

	for _, test := range tests {
		got := parseList(test.in)
		if len(got) == 0 && len(test.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("parseList(%q) = %v, want %v", test.in, got, test.want)
		}
	}
}

func TestValuesMerge(t *testing.T) {
	flags := Values{
		MountPoints: []string{"/mnt/flag"},
		Timeout:     time.Minute,
	}
	file := Values{
		MountPoints:   []string{"/mnt/file"},
		Containers:    []string{"200"},
		CheckInterval: 2 * time.Second,
	}

	merged := flags.Merge(file).Merge(Defaults())

	if got := merged.MountPoints[0]; got != "/mnt/flag" {
		t.Errorf("flag value should win, got %q", got)
	}
	if got := merged.Containers[0]; got != "200" {
		t.Errorf("file value should fill in, got %q", got)
	}
	if merged.Timeout != time.Minute {
		t.Errorf("flag timeout should win, got %s", merged.Timeout)
	}
	if merged.CheckInterval != 2*time.Second {
		t.Errorf("file interval should win, got %s", merged.CheckInterval)
	}
	if merged.LogPath != DefaultLogPath {
		t.Errorf("default log path should fill in, got %q", merged.LogPath)
	}
	if merged.Backend != "pct" {
		t.Errorf("default backend should fill in, got %q", merged.Backend)
	}
}

func TestValuesConfig(t *testing.T) {
	valid := Values{
		MountPoints: []string{"/mnt/nas"},
		Containers:  []string{"101"},
	}.Merge(Defaults())

	t.Run("valid", func(t *testing.T) {
		cfg, err := valid.Config(true)
		if err != nil {
			t.Fatal("unexpected error:", err)
		}
		if !cfg.Daemon {
			t.Error("daemon flag not carried over")
		}
		if cfg.Timeout != DefaultTimeout {
			t.Errorf("unexpected timeout %s", cfg.Timeout)
		}
	})

	t.Run("docker names", func(t *testing.T) {
		v := valid
		v.Backend = "docker"
		v.Containers = []string{"jellyfin", "sonarr"}

		if _, err := v.Config(false); err != nil {
			t.Error("docker backend should allow container names:", err)
		}
	})

	errorCases := []struct {
		name   string
		mutate func(*Values)
	}{
		{"no mounts", func(v *Values) { v.MountPoints = nil }},
		{"no containers", func(v *Values) { v.Containers = nil }},
		{"relative mount", func(v *Values) { v.MountPoints = []string{"mnt/nas"} }},
		{"non-numeric pct id", func(v *Values) { v.Containers = []string{"jellyfin"} }},
		{"unknown backend", func(v *Values) { v.Backend = "lxd" }},
		{"negative timeout", func(v *Values) { v.Timeout = -time.Second }},
		{"no log path", func(v *Values) { v.LogPath = "" }},
	}

	for _, test := range errorCases {
		t.Run(test.name, func(t *testing.T) {
			v := valid
			test.mutate(&v)

			if _, err := v.Config(false); err == nil {
				t.Error("expected a configuration error")
			}
		})
	}
}
