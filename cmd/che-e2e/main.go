package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/eclipse-che/che-e2e-harness/internal/config"
)

type configKey struct{}

func newRootCmd() *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "che-e2e",
		Short: "Workspace lifecycle tooling for the e2e suite",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Config file (YAML or JSON)")
	if err := config.BindFlags(v, cmd.PersistentFlags()); err != nil {
		panic(err)
	}

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		return setup(c, v)
	}

	cmd.AddCommand(newCmdWorkspace())
	cmd.AddCommand(newCmdLogs())
	cmd.AddCommand(newCmdFakeServer())
	return cmd
}

func setup(c *cobra.Command, v *viper.Viper) error {
	file, _ := c.Flags().GetString("config")
	cfg, err := config.Load(v, file)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)

	c.SetContext(context.WithValue(c.Context(), configKey{}, cfg))
	return nil
}

func configFromContext(ctx context.Context) *config.Configuration {
	if cfg, ok := ctx.Value(configKey{}).(*config.Configuration); ok {
		return cfg
	}
	return config.NewConfigurationWithDefaults()
}

func main() {
	root := newRootCmd()
	root.SetContext(context.Background())
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		_ = zap.L().Sync()
		os.Exit(1)
	}
	_ = zap.L().Sync()
}
