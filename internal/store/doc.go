// Package store implements the in-memory data layer of the fake platform.
//
// The fake platform backs the local e2e mode and package tests. Nothing is
// persisted; a Store lives as long as the server holding it.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────┐
//	│                Store (facade)               │
//	├──────────────────────┬──────────────────────┤
//	│    WorkspaceStore    │      UserStore       │
//	│  workspaces by id    │  users by id         │
//	│  status transitions  │  profile attributes  │
//	└──────────────────────┴──────────────────────┘
//
// # Workspace Lifecycle
//
//	STOPPED ──Start──▶ STARTING ──N reads──▶ RUNNING
//	                       │
//	                       └──N reads──▶ ERROR (broken recipe)
//	RUNNING ──Stop───▶ STOPPING ──N reads──▶ STOPPED
//
// N is the start delay (WithStartDelay). Only Get counts as a read; Find
// and Lookup never advance a transition. With N = 0 transitions complete immediately.
//
// A workspace whose default environment recipe location ends with ":broken"
// goes to ERROR instead of RUNNING.
//
// # Errors
//
//   - srvErrors.ResourceNotFoundError for unknown ids
//   - srvErrors.DuplicateResourceError when a workspace name is reused within a
//     namespace, or a user name is reused
package store
