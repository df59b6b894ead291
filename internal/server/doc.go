// Package server provides the HTTP server of the fake platform.
//
// The server uses the Gin web framework. It is started in-process by the local
// e2e mode, the fake-server command and package tests.
//
// # Architecture Overview
//
//	┌───────────────────────────────────────────────────────────────┐
//	│                         HTTP Server                           │
//	├───────────────────────────────────────────────────────────────┤
//	│                       Middleware Stack                        │
//	│  ┌─────────────────────────────────────────────────────────┐  │
//	│  │  ginzap.Ginzap (request logging, "http" logger)         │  │
//	│  │  ginzap.RecoveryWithZap (panic recovery)                │  │
//	│  └─────────────────────────────────────────────────────────┘  │
//	├───────────────────────────────┬───────────────────────────────┤
//	│        Router (/api)          │        Router (/auth)         │
//	│  workspace, profile, user     │  token issuer, JWKS           │
//	└───────────────────────────────┴───────────────────────────────┘
//
// # Server Lifecycle
//
// Creation binds the listener right away, so URL is known before Start:
//
//	p, err := server.NewFakePlatform("127.0.0.1:0", 2)
//	p.StartBackground(ctx)
//	client := che.NewServiceApiWithToken(p.APIURL(), token)
//
// Start blocks until ctx is done, then shuts down gracefully. Stop may be
// called directly as well.
package server
