package main

import (
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/eclipse-che/che-e2e-harness/internal/config"
	"github.com/eclipse-che/che-e2e-harness/test/e2e/infra"
)

const localPollInterval = 100 * time.Millisecond

var (
	cfg          *config.Configuration
	infraMode    string
	infraManager infra.InfraManager
)

func validateMode(mode string) error {
	if mode != infra.ModeLocal && mode != infra.ModeRemote {
		return fmt.Errorf("invalid infra-mode %q: must be '%s' or '%s'", mode, infra.ModeLocal, infra.ModeRemote)
	}
	return nil
}

func main() {
	var (
		configFile string
		listenAddr string
		startDelay int
	)
	pflag.StringVar(&infraMode, "infra-mode", infra.ModeLocal, "Infrastructure mode: 'local' (in-process fake platform) or 'remote' (externally managed)")
	pflag.StringVar(&configFile, "config", "", "Optional configuration file")
	pflag.StringVar(&listenAddr, "listen-addr", "127.0.0.1:0", "Fake platform listen address (local mode)")
	pflag.IntVar(&startDelay, "start-delay", 2, "Status reads before a workspace transition settles (local mode)")

	v := config.NewViper()
	if err := config.BindFlags(v, pflag.CommandLine); err != nil {
		log.Fatalf("failed to bind flags: %v", err)
	}
	pflag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	if err := validateMode(infraMode); err != nil {
		log.Fatalf("failed to validate configuration: %v", err)
	}

	cfg, err = config.Load(v, configFile)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	switch infraMode {
	case infra.ModeLocal:
		infraManager = infra.NewLocalInfraManager(listenAddr, startDelay)
		if cfg.Admin.Email == "" {
			cfg.Admin.Email = cfg.Admin.Name + "@che.local"
		}
		if cfg.Admin.Password == "" {
			cfg.Admin.Password = infra.AdminPassword
		}
		if !pflag.CommandLine.Changed("timeouts.poll-interval") {
			cfg.Timeouts.PollInterval = localPollInterval
		}
	case infra.ModeRemote:
		infraManager = infra.NewRemoteInfraManager(cfg.Platform.APIURL, cfg.Platform.AuthURL)
	}

	RegisterFailHandler(Fail)
	if !RunSpecs(&testing.T{}, "E2E Suite") {
		os.Exit(1)
	}
}
