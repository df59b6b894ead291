package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
)

const EnvPrefix = "CHE_E2E"

type Infrastructure string

const (
	InfrastructureDocker    Infrastructure = "docker"
	InfrastructureOpenShift Infrastructure = "openshift"
	InfrastructureK8S       Infrastructure = "k8s"
	InfrastructureOSIO      Infrastructure = "osio"
)

// TemplateDirectory returns the template directory used for the infrastructure.
// Kubernetes flavours share the openshift templates.
func (i Infrastructure) TemplateDirectory() string {
	switch i {
	case InfrastructureK8S, InfrastructureOSIO, InfrastructureOpenShift:
		return string(InfrastructureOpenShift)
	default:
		return strings.ToLower(string(i))
	}
}

func (i Infrastructure) Valid() bool {
	switch i {
	case InfrastructureDocker, InfrastructureOpenShift, InfrastructureK8S, InfrastructureOSIO:
		return true
	default:
		return false
	}
}

type Configuration struct {
	Platform  Platform `mapstructure:"platform"`
	Admin     Admin    `mapstructure:"admin"`
	Timeouts  Timeouts `mapstructure:"timeouts"`
	Logs      Logs     `mapstructure:"logs"`
	Provider  Provider `mapstructure:"provider"`
	LogLevel  string   `mapstructure:"log-level" default:"info"`
	LogFormat string   `mapstructure:"log-format" default:"console"`
}

type Platform struct {
	APIURL         string         `mapstructure:"api-url" default:"http://localhost:8080/api"`
	AuthURL        string         `mapstructure:"auth-url" default:"http://localhost:8080/auth"`
	Host           string         `mapstructure:"host" default:"localhost"`
	Infrastructure Infrastructure `mapstructure:"infrastructure" default:"docker"`
	Namespace      string         `mapstructure:"namespace" default:"che"`
	IPImage        string         `mapstructure:"ip-image" default:"eclipse/che-ip:nightly"`
}

type Admin struct {
	Name     string `mapstructure:"name" default:"admin"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password" debugmap:"hidden"`
}

type Timeouts struct {
	StartWorkspace  time.Duration `mapstructure:"start-workspace" default:"240s"`
	StopWorkspace   time.Duration `mapstructure:"stop-workspace" default:"120s"`
	DeleteWorkspace time.Duration `mapstructure:"delete-workspace" default:"180s"`
	PollInterval    time.Duration `mapstructure:"poll-interval" default:"10s"`
	Process         time.Duration `mapstructure:"process" default:"2m"`
}

type Logs struct {
	ReportDir        string `mapstructure:"report-dir" default:"./report"`
	SuppressWarnings bool   `mapstructure:"suppress-warnings"`
}

type Provider struct {
	DefaultMemoryGB int    `mapstructure:"default-memory-gb" default:"2"`
	ShutdownWorkers int    `mapstructure:"shutdown-workers" default:"4"`
	LockDir         string `mapstructure:"lock-dir"`
}

// NewConfigurationWithDefaults returns a configuration filled from the
// default struct tags.
func NewConfigurationWithDefaults() *Configuration {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("invalid configuration defaults: %v", err))
	}
	return cfg
}

func (c *Configuration) Validate() error {
	if _, err := url.ParseRequestURI(c.Platform.APIURL); err != nil {
		return srvErrors.NewConfigurationError("platform.api-url", err.Error())
	}
	if _, err := url.ParseRequestURI(c.Platform.AuthURL); err != nil {
		return srvErrors.NewConfigurationError("platform.auth-url", err.Error())
	}
	if !c.Platform.Infrastructure.Valid() {
		return srvErrors.NewConfigurationError("platform.infrastructure", fmt.Sprintf("unknown infrastructure %q", c.Platform.Infrastructure))
	}
	for field, d := range map[string]time.Duration{
		"timeouts.start-workspace":  c.Timeouts.StartWorkspace,
		"timeouts.stop-workspace":   c.Timeouts.StopWorkspace,
		"timeouts.delete-workspace": c.Timeouts.DeleteWorkspace,
		"timeouts.poll-interval":    c.Timeouts.PollInterval,
		"timeouts.process":          c.Timeouts.Process,
	} {
		if d <= 0 {
			return srvErrors.NewConfigurationError(field, "must be positive")
		}
	}
	if c.Provider.ShutdownWorkers < 1 {
		return srvErrors.NewConfigurationError("provider.shutdown-workers", "must be at least 1")
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return srvErrors.NewConfigurationError("log-format", "must be 'console' or 'json'")
	}
	return nil
}

// NewViper returns a viper instance reading CHE_E2E_* environment variables,
// e.g. CHE_E2E_PLATFORM_API_URL for platform.api-url.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load builds the configuration from defaults, the optional config file and
// whatever v has bound (env, flags), then validates it.
func Load(v *viper.Viper, configFile string) (*Configuration, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", configFile, err)
		}
	}

	cfg := NewConfigurationWithDefaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var keys = []string{
	"platform.api-url", "platform.auth-url", "platform.host", "platform.infrastructure", "platform.namespace", "platform.ip-image",
	"admin.name", "admin.email", "admin.password",
	"timeouts.start-workspace", "timeouts.stop-workspace", "timeouts.delete-workspace", "timeouts.poll-interval", "timeouts.process",
	"logs.report-dir", "logs.suppress-warnings",
	"provider.default-memory-gb", "provider.shutdown-workers", "provider.lock-dir",
	"log-level", "log-format",
}

// BindFlags registers one flag per configuration key on fs, using the
// struct defaults, and binds them to v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	d := NewConfigurationWithDefaults()

	fs.String("platform.api-url", d.Platform.APIURL, "Platform REST API base URL")
	fs.String("platform.auth-url", d.Platform.AuthURL, "Identity provider base URL (token endpoint)")
	fs.String("platform.host", d.Platform.Host, "Platform host name or IP")
	fs.String("platform.infrastructure", string(d.Platform.Infrastructure), "Infrastructure variant: docker, openshift, k8s or osio")
	fs.String("platform.namespace", d.Platform.Namespace, "Namespace holding workspace pods (openshift)")
	fs.String("platform.ip-image", d.Platform.IPImage, "Image printing the host IP (docker)")
	fs.String("admin.name", d.Admin.Name, "Admin user name")
	fs.String("admin.email", d.Admin.Email, "Admin user e-mail")
	fs.String("admin.password", d.Admin.Password, "Admin user password")
	fs.Duration("timeouts.start-workspace", d.Timeouts.StartWorkspace, "Deadline for a workspace to become RUNNING")
	fs.Duration("timeouts.stop-workspace", d.Timeouts.StopWorkspace, "Deadline for a workspace to become STOPPED")
	fs.Duration("timeouts.delete-workspace", d.Timeouts.DeleteWorkspace, "Deadline for one workspace deletion at teardown")
	fs.Duration("timeouts.poll-interval", d.Timeouts.PollInterval, "Interval between workspace status polls")
	fs.Duration("timeouts.process", d.Timeouts.Process, "Deadline for one shell command")
	fs.String("logs.report-dir", d.Logs.ReportDir, "Directory receiving workspace logs of failed tests")
	fs.Bool("logs.suppress-warnings", d.Logs.SuppressWarnings, "Do not warn when workspace logs can't be read")
	fs.Int("provider.default-memory-gb", d.Provider.DefaultMemoryGB, "Default workspace memory in GB")
	fs.Int("provider.shutdown-workers", d.Provider.ShutdownWorkers, "Parallel deletions at teardown")
	fs.String("provider.lock-dir", d.Provider.LockDir, "Directory for cross-process workspace creation locks")
	fs.String("log-level", d.LogLevel, "Log level: debug, info, warn, error")
	fs.String("log-format", d.LogFormat, "Log format: console or json")

	for _, key := range keys {
		if err := v.BindPFlag(key, fs.Lookup(key)); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", key, err)
		}
	}
	return nil
}
