// Package config defines the configuration structure for the e2e harness.
//
// Configuration is organized into logical sections (Platform, Admin, Timeouts,
// Logs, Provider) and is loaded once at process start. It is a process-wide
// constant afterwards.
//
// # Configuration Structure
//
//	Configuration
//	├── Platform       - Target platform endpoints and infrastructure variant
//	├── Admin          - Admin test user credentials
//	├── Timeouts       - Readiness poll, teardown and process deadlines
//	├── Logs           - Where workspace logs of failed tests are stored
//	├── Provider       - Workspace provider tuning
//	├── LogFormat      - Logging format
//	└── LogLevel       - Logging verbosity
//
// # Platform Configuration
//
//	┌────────────────┬─────────────────────────────┬──────────────────────────────────┐
//	│ Field          │ Default                     │ Description                      │
//	├────────────────┼─────────────────────────────┼──────────────────────────────────┤
//	│ APIURL         │ "http://localhost:8080/api" │ Platform REST API base URL       │
//	│ AuthURL        │ "http://localhost:8080/auth"│ Token endpoint base URL          │
//	│ Host           │ "localhost"                 │ Platform host                    │
//	│ Infrastructure │ "docker"                    │ docker, openshift, k8s, osio     │
//	│ Namespace      │ "che"                       │ Workspace namespace (openshift)  │
//	│ IPImage        │ "eclipse/che-ip:nightly"    │ Host IP probe image (docker)     │
//	└────────────────┴─────────────────────────────┴──────────────────────────────────┘
//
// The infrastructure selects both the workspace template directory (k8s and
// osio share the openshift templates) and the log source used on failures.
//
// # Admin Configuration
//
// Name defaults to "admin". Email and Password have no default; the admin
// user provider refuses to start without them.
//
// # Timeouts Configuration
//
//	┌─────────────────┬─────────┬──────────────────────────────────────────┐
//	│ Field           │ Default │ Description                              │
//	├─────────────────┼─────────┼──────────────────────────────────────────┤
//	│ StartWorkspace  │ 240s    │ Deadline for RUNNING after start         │
//	│ StopWorkspace   │ 120s    │ Deadline for STOPPED after stop          │
//	│ DeleteWorkspace │ 180s    │ Deadline for one deletion at teardown    │
//	│ PollInterval    │ 10s     │ Interval between status polls            │
//	│ Process         │ 2m      │ Deadline for one shell command           │
//	└─────────────────┴─────────┴──────────────────────────────────────────┘
//
// # Loading
//
// Defaults come from `default` struct tags (creasty/defaults). Values are then
// overridden by an optional config file, CHE_E2E_* environment variables and
// command line flags, through viper:
//
//	v := config.NewViper()
//	_ = config.BindFlags(v, cmd.PersistentFlags())
//	cfg, err := config.Load(v, configFile)
//
// Environment variable names replace dots and dashes with underscores:
// platform.api-url is read from CHE_E2E_PLATFORM_API_URL.
package config
