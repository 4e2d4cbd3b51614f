package main

import (
	"fmt"
	"os"

	"mountmon/mountmon"
	"mountmon/ui"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newCheckCmd builds the one-shot "check" subcommand: probe every
// configured mount and container once, print a table, exit nonzero if
// anything is down.
func newCheckCmd() *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:           "check",
		Short:         "Probe the configured mounts and containers once and report",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.ConfigureInteraction(false)

			cfg, err := resolveConfig(f, false, false)
			if err != nil {
				return err
			}

			ctrl, err := newController(cfg)
			if err != nil {
				return err
			}

			prober := mountmon.NewMountProber(nil)

			healthy := true
			rows := make([][]string, 0, len(cfg.MountPoints)+len(cfg.Containers))

			for _, path := range cfg.MountPoints {
				up, err := prober.Mounted(path)
				if err != nil {
					up = false
				}
				if !up {
					healthy = false
				}
				rows = append(rows, []string{"mount", path, ui.StatusCell(up)})
			}

			for _, id := range cfg.Containers {
				st, err := ctrl.Status(cmd.Context(), id)

				var cell string
				switch {
				case err != nil:
					healthy = false
					cell = ui.ErrorStyle.Render("error: " + err.Error())
				case !st.Exists:
					healthy = false
					cell = ui.ErrorStyle.Render("missing")
				case st.Running:
					cell = ui.SuccessStyle.Render("running")
				default:
					healthy = false
					cell = ui.WarnStyle.Render("stopped")
				}

				rows = append(rows, []string{"container", id, cell})
			}

			fmt.Fprintln(os.Stdout, ui.Table([]string{"TYPE", "TARGET", "STATUS"}, rows))

			if !healthy {
				return errors.New("one or more targets are not healthy")
			}
			return nil
		},
	}

	f.bindCommon(cmd)
	return cmd
}
