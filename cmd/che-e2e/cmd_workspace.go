package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/eclipse-che/che-e2e-harness/internal/harness"
	"github.com/eclipse-che/che-e2e-harness/internal/models"
	"github.com/eclipse-che/che-e2e-harness/internal/services"
	"github.com/eclipse-che/che-e2e-harness/internal/templates"
	"github.com/eclipse-che/che-e2e-harness/internal/util"
)

func newCmdWorkspace() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage workspaces as the admin user",
	}
	cmd.AddCommand(newCmdWorkspaceCreate())
	cmd.AddCommand(newCmdWorkspaceGet())
	cmd.AddCommand(newCmdWorkspaceDelete())
	cmd.AddCommand(newCmdWorkspaceTemplates())
	return cmd
}

func newCmdWorkspaceCreate() *cobra.Command {
	var (
		name     string
		template string
		memoryGB int
		start    bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workspace from a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := newHarness(cmd.Context())
			if err != nil {
				return err
			}
			ws, err := h.CreateWorkspace(cmd.Context(), services.CreateRequest{
				Name:     name,
				Template: template,
				MemoryGB: memoryGB,
				Start:    start,
			})
			if err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "created workspace %s\n", ws.Name)
			printWorkspace(cmd, ws)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Workspace name (default workspace-<random>)")
	cmd.Flags().StringVar(&template, "template", templates.Default, "Template file name")
	cmd.Flags().IntVar(&memoryGB, "memory-gb", 0, "Memory in GB (default provider.default-memory-gb)")
	cmd.Flags().BoolVar(&start, "start", false, "Start the workspace and wait until it runs")
	return cmd
}

func newCmdWorkspaceGet() *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Show a workspace of the admin user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := newHarness(cmd.Context())
			if err != nil {
				return err
			}
			ws, err := h.Workspaces.GetWorkspace(cmd.Context(), args[0], h.AdminUser())
			if err != nil {
				return err
			}
			printWorkspace(cmd, ws)
			return nil
		},
	}
}

func newCmdWorkspaceDelete() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Stop and delete a workspace of the admin user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := newHarness(cmd.Context())
			if err != nil {
				return err
			}
			client, err := h.WorkspaceClient()
			if err != nil {
				return err
			}
			if err := client.Delete(cmd.Context(), args[0], h.AdminUser().Name); err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "deleted workspace %s\n", args[0])
			return nil
		},
	}
}

func newCmdWorkspaceTemplates() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the templates of the configured infrastructure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFromContext(cmd.Context())
			names, err := templates.NewLoader(cfg.Platform.Infrastructure).Names()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func newHarness(ctx context.Context) (*harness.Harness, error) {
	h, err := harness.New(configFromContext(ctx))
	if err != nil {
		return nil, err
	}
	if err := h.Setup(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

func printWorkspace(cmd *cobra.Command, ws *models.Workspace) {
	dim := color.New(color.Faint)
	out := cmd.OutOrStdout()
	dim.Fprint(out, "  id:     ")
	fmt.Fprintln(out, ws.ID)
	dim.Fprint(out, "  owner:  ")
	fmt.Fprintln(out, ws.Owner)
	dim.Fprint(out, "  status: ")
	fmt.Fprintln(out, ws.Status)
	dim.Fprint(out, "  memory: ")
	fmt.Fprintf(out, "%d MB (%d GB)\n", util.ConvertBytesToMB(ws.MemoryBytes), util.BytesToGB(ws.MemoryBytes))
}
