/*
Package main provides the end-to-end suite exercising the workspace harness
against a platform.

# Package Structure

	test/e2e/
	├── main.go          Entry point: flags, config, InfraManager setup, Ginkgo runner
	├── tests.go         Ginkgo specs (workspace lifecycle, test users, broken workspace)
	├── doc.go           This file
	├── infra/
	│   ├── infra.go     InfraManager interface and modes
	│   ├── local.go     LocalInfraManager (in-process fake platform)
	│   └── remote.go    RemoteInfraManager (no-op, externally managed)
	└── service/
	    └── service.go   PlatformSvc: platform clients authenticated as one user

# InfraManager

	type InfraManager interface {
	    StartPlatform(ctx) / StopPlatform()
	    APIURL() / AuthURL()
	    GenerateToken(ctx, username, password, email)
	}

Two implementations:
  - LocalInfraManager: serves the fake platform on -listen-addr. Workspaces
    settle after -start-delay status reads and tokens are signed in-process.
  - RemoteInfraManager: no-op; the platform at platform.api-url is managed
    externally and tokens come from platform.auth-url.

Selected via the -infra-mode flag ("local" or "remote"). Every configuration
key is also a flag (e.g. --admin.password) and a CHE_E2E_* variable.

# Hooks

	BeforeSuite      start the platform, build the harness, Setup
	ReportAfterEach  store workspace logs of failed specs under logs.report-dir
	AfterSuite       Teardown (workspaces, then users), stop the platform

# Running

	go run ./test/e2e
	go run ./test/e2e --infra-mode remote --platform.api-url http://che:8080/api \
	    --platform.auth-url http://che:8080/auth --admin.email admin@che --admin.password secret
*/
package main
