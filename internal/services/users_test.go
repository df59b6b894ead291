package services_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/eclipse-che/che-e2e-harness/internal/config"
	"github.com/eclipse-che/che-e2e-harness/internal/models"
	"github.com/eclipse-che/che-e2e-harness/internal/server"
	"github.com/eclipse-che/che-e2e-harness/internal/services"
	"github.com/eclipse-che/che-e2e-harness/pkg/che"
	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
)

var _ = Describe("User providers", func() {
	var (
		ctx      context.Context
		cancel   context.CancelFunc
		platform *server.FakePlatform
		tokens   *che.TokenClient
		creds    config.Admin
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())

		var err error
		platform, err = server.NewFakePlatform("127.0.0.1:0", 0)
		Expect(err).NotTo(HaveOccurred())
		platform.StartBackground(ctx)

		tokens = che.NewTokenClient(platform.AuthURL())
		creds = config.Admin{Name: "admin", Email: "admin@che", Password: "secret"}
	})

	AfterEach(func() {
		cancel()
	})

	Context("AdminUserProvider", func() {
		DescribeTable("should fail fast on missing credentials",
			func(email, password, field string) {
				_, err := services.NewAdminUserProvider(tokens, config.Admin{Name: "admin", Email: email, Password: password})

				var cfgErr *srvErrors.ConfigurationError
				Expect(err).To(BeAssignableToTypeOf(cfgErr))
				Expect(err.(*srvErrors.ConfigurationError).Field).To(Equal(field))
			},
			Entry("no email", "", "secret", "admin.email"),
			Entry("no password", "admin@che", "", "admin.password"),
		)

		It("should resolve the admin once", func() {
			p, err := services.NewAdminUserProvider(tokens, creds)
			Expect(err).NotTo(HaveOccurred())

			first, err := p.Get(ctx)
			Expect(err).NotTo(HaveOccurred())
			second, err := p.Get(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(BeIdenticalTo(first))
			Expect(first.IsAdmin()).To(BeTrue())
			Expect(first.Token).NotTo(BeEmpty())
			Expect(first.ID).NotTo(BeEmpty())
			Expect(p.Delete(ctx, first)).To(Succeed())
		})
	})

	Context("UserProvider", func() {
		var users *services.UserProvider

		BeforeEach(func() {
			admin, err := services.NewAdminUserProvider(tokens, creds)
			Expect(err).NotTo(HaveOccurred())
			users = services.NewUserProvider(admin, tokens, che.NewServiceApi(platform.APIURL()))
		})

		It("should create users with their own token", func() {
			user, err := users.Create(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(user.Name).To(HavePrefix("user-"))
			Expect(user.Kind).To(Equal(models.UserKindEphemeral))
			Expect(user.Token).NotTo(BeEmpty())
			_, err = platform.Store().Users().Get(user.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should delete every tracked user at shutdown", func() {
			first, err := users.Create(ctx)
			Expect(err).NotTo(HaveOccurred())
			second, err := users.Create(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(users.Delete(ctx, first)).To(Succeed())
			Expect(users.Shutdown(ctx)).To(Succeed())

			_, err = platform.Store().Users().Get(second.ID)
			Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
		})

		It("should never delete the admin", func() {
			Expect(users.Delete(ctx, &models.TestUser{ID: "admin-id", Kind: models.UserKindAdmin})).To(Succeed())
		})
	})
})
