// Package services implements the workspace lifecycle logic of the harness.
//
// # Service Dependency Graph
//
//	harness.Harness
//	    │
//	    ▼
//	Services Layer
//	    ├── WorkspaceProvider ──► che.WorkspaceClient, templates.Loader, scheduler
//	    ├── LogReader ──────────► LogSource, process.Runner
//	    ├── AdminUserProvider ──► che.TokenClient
//	    └── UserProvider ───────► AdminUserProvider, che.UserClient, che.TokenClient
//
// # WorkspaceProvider
//
// WorkspaceProvider creates workspaces from templates, shares them between
// tests and deletes the ones it created at the end of the suite.
//
// Cache:
//
//	(name, owner) ──► *models.Workspace
//
// A cache hit returns the same pointer every time. On a miss, concurrent
// callers for a key share one singleflight call, so the platform sees one
// create (or one lookup) per key. With a lock directory configured, creation
// also holds a file lock <dir>/<owner>_<name>.lock and first checks whether
// another process created the workspace meanwhile; such a workspace is reused
// but not owned.
//
// Ownership:
//   - CreateWorkspace: owned, deleted by Release or Shutdown
//   - GetWorkspace: cached, never deleted
//   - a create whose start failed: not cached, still owned
//
// Shutdown submits one deletion per owned workspace to a scheduler. A
// deletion's timeout starts when a worker picks it up, so entries queued
// behind slow ones keep their full budget. Failures are combined with
// multierr. Every deletion is attempted.
//
// Concurrent callers for one key share a single flight. The flight outlives
// a caller that gives up; it is bounded by WithCreateTimeout instead.
//
// # LogReader
//
// LogReader copies the logs of a workspace after a failed test:
//
//	<dest>/<workspace id>/<log name>/...
//
// For each LogInfo of its LogSource it runs the source's copy command. A
// failed copy is logged at warn level (unless suppressed) and the next log is
// tried. Directories left empty are removed, with failures logged at debug
// level. Store never returns an error.
//
// Log sources per infrastructure:
//
//	┌────────────────┬──────────────────────┬────────────────────────────────┐
//	│ Infrastructure │ Source               │ Command                        │
//	├────────────────┼──────────────────────┼────────────────────────────────┤
//	│ docker         │ DockerLogSource      │ docker cp (platform on host)   │
//	│ openshift, k8s │ OpenShiftLogSource   │ oc rsync from the workspace pod│
//	│ osio           │ DisabledLogSource    │ none                           │
//	└────────────────┴──────────────────────┴────────────────────────────────┘
//
// # User Providers
//
// AdminUserProvider refuses to be built without admin e-mail and password and
// resolves the admin token lazily, once. Its Delete is a no-op.
//
// UserProvider creates user-<random> accounts as the admin, obtains their
// tokens and deletes whatever is left at Shutdown.
package services
