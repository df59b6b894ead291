package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/eclipse-che/che-e2e-harness/internal/services"
	"github.com/eclipse-che/che-e2e-harness/pkg/process"
)

func newCmdLogs() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Workspace logs",
	}
	cmd.AddCommand(newCmdLogsStore())
	return cmd
}

func newCmdLogsStore() *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "store WORKSPACE_ID",
		Short: "Copy the logs of a workspace to a local directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			if dest == "" {
				dest = cfg.Logs.ReportDir
			}

			runner := process.NewShellRunner(cfg.Timeouts.Process)
			reader := services.NewLogReader(services.NewLogSource(cfg, runner), runner)
			reader.Store(cmd.Context(), args[0], dest, cfg.Logs.SuppressWarnings)

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "logs of %s stored under %s\n", args[0], dest)
			return nil
		},
	}
	cmd.Flags().StringVar(&dest, "dest", "", "Destination directory (default logs.report-dir)")
	return cmd
}
