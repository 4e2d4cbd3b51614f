package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// newUnitCmd builds the "unit" subcommand, which prints a systemd service
// for unattended boot-time operation. Pipe it into
// /etc/systemd/system/mountmon.service and enable it.
func newUnitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "unit",
		Short:         "Print a systemd service unit for running mountmon at boot",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				exe = os.Args[0]
			}

			execStart := strconv.Quote(exe) + " --daemon"
			if configPath != "" {
				execStart += " --config " + strconv.Quote(configPath)
			}

			fmt.Fprintf(cmd.OutOrStdout(), unitTemplate, execStart)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path to bake into the unit")
	return cmd
}

const unitTemplate = `[Unit]
Description=Restart mount-dependent containers when their mounts return
After=network-online.target remote-fs.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=%s
Restart=on-failure
RestartSec=10

[Install]
WantedBy=multi-user.target
`
