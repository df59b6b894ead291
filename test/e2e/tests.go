package main

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eclipse-che/che-e2e-harness/internal/harness"
	"github.com/eclipse-che/che-e2e-harness/internal/models"
	"github.com/eclipse-che/che-e2e-harness/internal/services"
	"github.com/eclipse-che/che-e2e-harness/internal/templates"
	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
	"github.com/eclipse-che/che-e2e-harness/test/e2e/infra"
	"github.com/eclipse-che/che-e2e-harness/test/e2e/service"
)

var (
	h   *harness.Harness
	svc *service.PlatformSvc

	// workspaces touched by the running spec, stored on failure
	specWorkspaces []*models.Workspace
)

func track(ws *models.Workspace) *models.Workspace {
	if ws != nil {
		specWorkspaces = append(specWorkspaces, ws)
	}
	return ws
}

var _ = BeforeSuite(func(ctx SpecContext) {
	Expect(infraManager.StartPlatform(context.Background())).To(Succeed())

	var opts []harness.Option
	if infraMode == infra.ModeLocal {
		cfg.Platform.APIURL = infraManager.APIURL()
		cfg.Platform.AuthURL = infraManager.AuthURL()
		opts = append(opts, harness.WithLogSource(services.DisabledLogSource{}))
	}

	var err error
	h, err = harness.New(cfg, opts...)
	Expect(err).NotTo(HaveOccurred())
	Expect(h.Setup(ctx)).To(Succeed())

	svc = service.NewPlatformService(cfg.Platform.APIURL, infraManager.GenerateToken)
}, NodeTimeout(time.Minute))

var _ = AfterSuite(func(ctx SpecContext) {
	if h != nil {
		Expect(h.Teardown(ctx)).To(Succeed())
	}
	if err := infraManager.StopPlatform(); err != nil {
		zap.S().Warnw("failed to stop platform", "error", err)
	}
}, NodeTimeout(5*time.Minute))

var _ = BeforeEach(func() {
	specWorkspaces = nil
})

var _ = ReportAfterEach(func(report SpecReport) {
	if report.Failed() && h != nil {
		GinkgoWriter.Printf("storing logs of %d workspace(s) into %s\n", len(specWorkspaces), h.LogsDir())
		h.OnFailure(context.Background(), specWorkspaces...)
	}
})

var _ = Describe("Workspace lifecycle", Ordered, func() {
	const sharedName = "e2e-shared"

	It("should create and start a workspace for the admin", func(ctx SpecContext) {
		// Given the admin user
		admin := h.AdminUser()

		// When a started workspace is requested
		ws, err := h.CreateWorkspace(ctx, services.CreateRequest{Name: sharedName, Start: true})
		track(ws)

		// Then it is RUNNING on the platform
		Expect(err).NotTo(HaveOccurred())
		client := svc.WithAuthUser(ctx, admin.Name, admin.Password, admin.Email).Workspaces()
		remote, err := client.GetByName(ctx, sharedName, admin.Name)
		Expect(err).NotTo(HaveOccurred())
		Expect(remote.ID).To(Equal(ws.ID))
		Expect(remote.Status).To(Equal(models.WorkspaceStatusRunning))
	}, SpecTimeout(5*time.Minute))

	It("should hand out the same workspace for a repeated request", func(ctx SpecContext) {
		// Given the workspace created above
		first, err := h.Workspaces.GetWorkspace(ctx, sharedName, h.AdminUser())
		Expect(err).NotTo(HaveOccurred())
		track(first)

		// When it is requested again
		second, err := h.CreateWorkspace(ctx, services.CreateRequest{Name: sharedName, Start: true})

		// Then the cached instance is returned
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(BeIdenticalTo(first))
	}, SpecTimeout(time.Minute))

	It("should delete a released workspace", func(ctx SpecContext) {
		// Given a stopped workspace
		name := "e2e-released"
		ws, err := h.CreateWorkspace(ctx, services.CreateRequest{Name: name})
		Expect(err).NotTo(HaveOccurred())
		track(ws)

		// When it is released
		Expect(h.Workspaces.Release(ctx, name, h.AdminUser())).To(Succeed())

		// Then the platform no longer has it
		client, err := h.WorkspaceClient()
		Expect(err).NotTo(HaveOccurred())
		exists, err := client.Exists(ctx, name, h.AdminUser().Name)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	}, SpecTimeout(5*time.Minute))
})

var _ = Describe("Test users", func() {
	It("should create a workspace owned by a dedicated user", func(ctx SpecContext) {
		// Given a fresh test user
		user, err := h.Users.Create(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(user.Token).NotTo(BeEmpty())

		// When a workspace is created on its behalf
		ws, err := h.CreateWorkspace(ctx, services.CreateRequest{Owner: user, Template: templates.Ubuntu})
		Expect(err).NotTo(HaveOccurred())
		track(ws)

		// Then the user sees it in its namespace
		client := svc.WithAuthUser(ctx, user.Name, user.Password, user.Email).Workspaces()
		exists, err := client.Exists(ctx, ws.Name, user.Name)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())
	}, SpecTimeout(2*time.Minute))
})

var _ = Describe("Broken workspace", func() {
	It("should fail to start and stay scheduled for teardown", func(ctx SpecContext) {
		// Given the broken template
		req := services.CreateRequest{Name: "e2e-broken", Template: templates.Broken, Start: true}

		// When it is started
		_, err := h.CreateWorkspace(ctx, req)

		// Then the failure is reported by the platform, not as a timeout
		Expect(err).To(HaveOccurred())
		Expect(srvErrors.IsTimeoutError(err)).To(BeFalse())

		client, err := h.WorkspaceClient()
		Expect(err).NotTo(HaveOccurred())
		exists, err := client.Exists(ctx, req.Name, h.AdminUser().Name)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())
	}, SpecTimeout(5*time.Minute))
})
