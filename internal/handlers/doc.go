// Package handlers implements the HTTP handlers of the fake platform.
//
// The handlers serve the subset of the platform REST API consumed by the
// harness clients, backed by the in-memory store, plus a token issuer standing
// in for the identity provider.
//
// # API Routes (under /api, bearer token required)
//
//	┌────────┬──────────────────────────┬──────────────────────────────────────┐
//	│ Method │ Path                     │ Handler                              │
//	├────────┼──────────────────────────┼──────────────────────────────────────┤
//	│ POST   │ /workspace               │ CreateWorkspace                      │
//	│ GET    │ /workspace?name=&owner=  │ FindWorkspaces (always a list)       │
//	│ GET    │ /workspace/{id}          │ GetWorkspace (counts as status read) │
//	│ DELETE │ /workspace/{id}          │ DeleteWorkspace (409 unless STOPPED) │
//	│ POST   │ /workspace/{id}/runtime  │ StartWorkspace                       │
//	│ DELETE │ /workspace/{id}/runtime  │ StopWorkspace                        │
//	│ PUT    │ /profile/attributes      │ UpdateProfileAttributes              │
//	│ POST   │ /user                    │ CreateUser                           │
//	│ DELETE │ /user/{id}               │ DeleteUser                           │
//	└────────┴──────────────────────────┴──────────────────────────────────────┘
//
// # Auth Routes (under /auth)
//
//	POST /token                              issue an RS256 token
//	GET  /certs                              JWKS
//	GET  /.well-known/openid-configuration   discovery
//
// A workspace created without a namespace query parameter belongs to the
// preferred_username of the caller's token.
//
// # Error Responses
//
//	400  invalid body
//	401  missing or invalid token, wrong password at /token
//	404  unknown workspace or user
//	409  duplicate name, or deleting a workspace that is not STOPPED
package handlers
