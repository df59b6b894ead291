package che_test

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	v1 "github.com/eclipse-che/che-e2e-harness/api/v1"
	"github.com/eclipse-che/che-e2e-harness/internal/models"
	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
	"github.com/eclipse-che/che-e2e-harness/pkg/che"
)

var _ = Describe("User, profile and token clients", func() {
	var (
		ctx    context.Context
		server *ghttp.Server
		api    *che.ServiceApi
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = ghttp.NewServer()
		api = che.NewServiceApiWithToken(server.URL()+"/api", "admin-token")
	})

	AfterEach(func() {
		server.Close()
	})

	It("should create and delete users", func() {
		server.AppendHandlers(
			ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/user"),
				ghttp.VerifyJSONRepresenting(v1.UserDto{Name: "user1", Email: "user1@che", Password: "secret"}),
				ghttp.RespondWithJSONEncoded(http.StatusCreated, v1.UserDto{Id: "u-1", Name: "user1", Email: "user1@che"}),
			),
			ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodDelete, "/api/user/u-1"),
				ghttp.RespondWith(http.StatusNoContent, nil),
			),
			ghttp.RespondWith(http.StatusNotFound, nil),
		)
		users := che.NewUserClient(api)

		user, err := users.Create(ctx, "user1", "user1@che", "secret")
		Expect(err).NotTo(HaveOccurred())
		Expect(user.ID).To(Equal("u-1"))
		Expect(user.Password).To(Equal("secret"))
		Expect(user.Kind).To(Equal(models.UserKindEphemeral))

		Expect(users.Delete(ctx, "u-1")).To(Succeed())
		Expect(srvErrors.IsResourceNotFoundError(users.Delete(ctx, "u-1"))).To(BeTrue())
	})

	It("should put profile attributes", func() {
		server.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodPut, "/api/profile/attributes"),
			ghttp.VerifyHeaderKV("Authorization", "Bearer admin-token"),
			ghttp.VerifyJSONRepresenting(map[string]string{"firstName": "Ada", "lastName": "Lovelace"}),
			ghttp.RespondWith(http.StatusOK, nil),
		))

		Expect(che.NewProfileClient(api).SetUserNames(ctx, "Ada", "Lovelace")).To(Succeed())
	})

	It("should read the subject of an issued token", func() {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "user-id-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString([]byte("test-key"))
		Expect(err).NotTo(HaveOccurred())

		server.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodPost, "/auth/token"),
			ghttp.VerifyJSONRepresenting(v1.TokenRequest{Username: "admin", Password: "pwd"}),
			ghttp.RespondWithJSONEncoded(http.StatusOK, v1.TokenResponse{Token: signed}),
		))

		token, err := che.NewTokenClient(server.URL()+"/auth").Token(ctx, "admin", "pwd", "")

		Expect(err).NotTo(HaveOccurred())
		Expect(token.Raw).To(Equal(signed))
		Expect(token.Subject).To(Equal("user-id-1"))
	})

	It("should reject an unparsable token", func() {
		server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, v1.TokenResponse{Token: "garbage"}))

		_, err := che.NewTokenClient(server.URL()).Token(ctx, "admin", "pwd", "")

		Expect(err).To(HaveOccurred())
	})
})
