package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mountmon/mountmon"
	"mountmon/mountmon/backend/docker"
	"mountmon/mountmon/backend/pct"
	"mountmon/mountmon/journal"
	"mountmon/ui"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	root.AddCommand(newCheckCmd())
	root.AddCommand(newUnitCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorMsg("%v", err))
		os.Exit(1)
	}
}

type rootFlags struct {
	mounts     string
	containers string
	timeout    int
	interval   int
	logPath    string
	configPath string
	backend    string
	daemon     bool
	yes        bool
}

func (f *rootFlags) bindCommon(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mounts, "mounts", "", "Comma-separated mount points to watch")
	cmd.Flags().StringVar(&f.containers, "containers", "", "Comma-separated container ids to restart")
	cmd.Flags().StringVar(&f.configPath, "config", "", "Config file path (default "+mountmon.DefaultConfigPath+")")
	cmd.Flags().StringVar(&f.backend, "backend", "", `Container backend, "pct" or "docker" (default pct)`)
}

func newRootCmd() *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:           "mountmon",
		Short:         "Restart containers once the mounts they depend on come back",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	f.bindCommon(cmd)
	cmd.Flags().IntVar(&f.timeout, "timeout", 0, "Seconds to wait for the mounts before giving up (default 300)")
	cmd.Flags().IntVar(&f.interval, "interval", 0, "Seconds between mount probes while waiting (default 5)")
	cmd.Flags().StringVar(&f.logPath, "log", "", "Log file path (default "+mountmon.DefaultLogPath+")")
	cmd.Flags().BoolVar(&f.daemon, "daemon", false, "Run unattended: no console output, retry forever on timeout")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// resolveConfig merges flags > config file > prompts > defaults, in that
// precedence order, and validates the result.
func resolveConfig(f rootFlags, daemon, allowPrompt bool) (mountmon.Config, error) {
	flagVals := mountmon.Values{
		Backend: f.backend,
		LogPath: f.logPath,
	}
	if f.mounts != "" {
		flagVals.MountPoints = mountmon.ParseList(f.mounts)
	}
	if f.containers != "" {
		flagVals.Containers = mountmon.ParseList(f.containers)
	}
	if f.timeout > 0 {
		flagVals.Timeout = time.Duration(f.timeout) * time.Second
	}
	if f.interval > 0 {
		flagVals.CheckInterval = time.Duration(f.interval) * time.Second
	}

	merged := flagVals

	path, explicit := configPath(f)
	fileVals, err := mountmon.LoadFile(path)
	switch {
	case err == nil:
		merged = merged.Merge(fileVals)
	case explicit || !os.IsNotExist(errors.Cause(err)):
		// A config file the user named must load; the default path is
		// optional.
		return mountmon.Config{}, err
	}

	if allowPrompt && ui.IsInteractive() {
		if len(merged.MountPoints) == 0 {
			if merged.MountPoints, err = ui.PromptList("Mount points to watch:"); err != nil {
				return mountmon.Config{}, err
			}
		}
		if len(merged.Containers) == 0 {
			if merged.Containers, err = ui.PromptList("Container ids to restart:"); err != nil {
				return mountmon.Config{}, err
			}
		}
	}

	merged = merged.Merge(mountmon.Defaults())
	return merged.Config(daemon)
}

func configPath(f rootFlags) (path string, explicit bool) {
	if f.configPath != "" {
		return f.configPath, true
	}
	return mountmon.DefaultConfigPath, false
}

func newController(cfg mountmon.Config) (mountmon.Controller, error) {
	switch cfg.Backend {
	case "docker":
		return docker.New()
	default:
		return pct.New(), nil
	}
}

func run(ctx context.Context, f rootFlags) error {
	ui.ConfigureInteraction(f.daemon)

	cfg, err := resolveConfig(f, f.daemon, true)
	if err != nil {
		return err
	}

	ctrl, err := newController(cfg)
	if err != nil {
		return err
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = mountmon.VerifyContainers(verifyCtx, ctrl, cfg.Containers)
	cancel()
	if err != nil {
		return err
	}

	if !cfg.Daemon && !f.yes && ui.IsInteractive() {
		fmt.Fprintln(os.Stderr, ui.InfoMsg("mounts: %s", strings.Join(cfg.MountPoints, ", ")))
		fmt.Fprintln(os.Stderr, ui.InfoMsg("containers (%s): %s", cfg.Backend, strings.Join(cfg.Containers, ", ")))

		ok, err := ui.Confirm("Start monitoring?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, ui.WarnMsg("aborted"))
			return nil
		}
	}

	fileJournal, err := journal.NewFileLockJournaler(cfg.LogPath)
	if err != nil {
		if errors.Is(err, journal.ErrLockedElsewhere) {
			return errors.Errorf("another mountmon instance is already writing %s", cfg.LogPath)
		}
		return err
	}
	defer fileJournal.Close()

	var j mountmon.Journaler = fileJournal
	if !cfg.Daemon {
		j = journal.MultiWriter(fileJournal, ui.NewConsoleJournaler(os.Stdout))
	}

	// The final log entry must land on every exit path: normal stop,
	// timeout, and signal.
	reason := "monitor stopped"
	defer func() {
		j.Write(&mountmon.EventShutdown{Reason: reason})
	}()

	prober := mountmon.NewMountProber(j)

	if !cfg.Daemon {
		err := mountmon.NewMonitor(cfg, prober, ctrl, j).Run(ctx)
		switch {
		case err != nil:
			reason = "wait timeout exhausted"
		case ctx.Err() != nil:
			reason = "signal received"
		}
		return err
	}

	return runDaemon(ctx, f, cfg, ctrl, prober, j, &reason)
}

// runDaemon runs monitor cycles forever, restarting the monitor with fresh
// settings whenever the config file changes. An invalid edit is journaled
// and the previous configuration stays in effect.
func runDaemon(
	ctx context.Context,
	f rootFlags,
	cfg mountmon.Config,
	ctrl mountmon.Controller,
	prober mountmon.Prober,
	j mountmon.Journaler,
	reason *string,
) error {
	path, _ := configPath(f)
	watcher := mountmon.TryWatchConfig(ctx, path, j)

	for {
		runCtx, cancelRun := context.WithCancel(ctx)
		done := make(chan error, 1)

		go func() {
			done <- mountmon.NewMonitor(cfg, prober, ctrl, j).Run(runCtx)
		}()

		select {
		case err := <-done:
			cancelRun()
			if ctx.Err() != nil {
				*reason = "signal received"
				return nil
			}
			return err

		case <-watcher.Reloads:
			cancelRun()
			<-done

			cfg = reloadConfig(ctx, f, cfg, ctrl, j)
		}
	}
}

// reloadConfig resolves the config file again after a change and returns the
// settings the next monitor cycle should use. An edit that fails validation,
// or that names containers the backend cannot find, is journaled as a
// warning and the previous settings stay in effect.
func reloadConfig(
	ctx context.Context,
	f rootFlags,
	old mountmon.Config,
	ctrl mountmon.Controller,
	j mountmon.Journaler,
) mountmon.Config {
	keep := func(err error) mountmon.Config {
		j.Write(&mountmon.EventWarning{
			Component: "config",
			Error:     "reload failed, keeping previous settings: " + err.Error(),
		})
		return old
	}

	newCfg, err := resolveConfig(f, true, false)
	if err != nil {
		return keep(err)
	}

	// The reloaded container list goes through the same existence check as
	// the one at startup.
	verifyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = mountmon.VerifyContainers(verifyCtx, ctrl, newCfg.Containers)
	cancel()
	if err != nil {
		return keep(err)
	}

	// The log file and backend are bound at startup; changing them needs a
	// restart.
	if newCfg.LogPath != old.LogPath {
		j.Write(&mountmon.EventWarning{
			Component: "config",
			Error:     "LOG_PATH changed, restart to apply",
		})
		newCfg.LogPath = old.LogPath
	}
	if newCfg.Backend != old.Backend {
		j.Write(&mountmon.EventWarning{
			Component: "config",
			Error:     "BACKEND changed, restart to apply",
		})
		newCfg.Backend = old.Backend
	}

	path, _ := configPath(f)
	j.Write(&mountmon.EventConfigReloaded{Path: path})
	return newCfg
}
