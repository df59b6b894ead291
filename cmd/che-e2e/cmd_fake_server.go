package main

import (
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/eclipse-che/che-e2e-harness/internal/server"
)

func newCmdFakeServer() *cobra.Command {
	var (
		addr       string
		startDelay int
	)
	cmd := &cobra.Command{
		Use:   "fake-server",
		Short: "Serve an in-memory platform for local runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := server.NewFakePlatform(addr, startDelay)
			if err != nil {
				return err
			}

			cyan := color.New(color.FgCyan)
			out := cmd.OutOrStdout()
			cyan.Fprintf(out, "api:  %s\n", p.APIURL())
			cyan.Fprintf(out, "auth: %s\n", p.AuthURL())

			return p.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().IntVar(&startDelay, "start-delay", 2, "Status reads before a starting workspace runs")
	return cmd
}
