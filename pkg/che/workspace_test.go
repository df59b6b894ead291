package che_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	v1 "github.com/eclipse-che/che-e2e-harness/api/v1"
	"github.com/eclipse-che/che-e2e-harness/internal/models"
	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
	"github.com/eclipse-che/che-e2e-harness/pkg/che"
)

var _ = Describe("WorkspaceClient", func() {
	var (
		ctx    context.Context
		server *ghttp.Server
		client *che.WorkspaceClient
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = ghttp.NewServer()
		api := che.NewServiceApiWithToken(server.URL()+"/api", "admin-token")
		client = che.NewWorkspaceClient(api,
			che.WithPollInterval(20*time.Millisecond),
			che.WithStartTimeout(300*time.Millisecond),
			che.WithStopTimeout(300*time.Millisecond),
		)
	})

	AfterEach(func() {
		server.Close()
	})

	// statusSequence answers GET /api/workspace/{id} with the given statuses,
	// repeating the last one, and counts the polls.
	statusSequence := func(id, name string, polls *int32, statuses ...models.WorkspaceStatus) {
		server.RouteToHandler(http.MethodGet, "/api/workspace/"+id, func(w http.ResponseWriter, r *http.Request) {
			n := int(atomic.AddInt32(polls, 1))
			if n > len(statuses) {
				n = len(statuses)
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(workspaceDto(id, name, "admin", statuses[n-1]))
		})
	}

	Context("CreateWorkspace", func() {
		// Given a template config
		// When a workspace named ws1 is created with 2GB
		// Then the request carries the name, default env and memory, authenticated with the token
		It("should post the prepared config and decode the answer", func() {
			config := models.WorkspaceConfig{
				DefaultEnv: "default",
				Environments: map[string]models.Environment{
					"default": {Machines: map[string]models.Machine{"dev": {}}},
				},
			}
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/workspace"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer admin-token"),
				func(w http.ResponseWriter, r *http.Request) {
					var body models.WorkspaceConfig
					Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
					Expect(body.Name).To(Equal("ws1"))
					Expect(body.DefaultEnv).To(Equal("ws1"))
					Expect(body.Environments["ws1"].Machines["dev"].Attributes).To(HaveKeyWithValue(models.MemoryLimitAttribute, "2147483648"))
				},
				ghttp.RespondWithJSONEncoded(http.StatusCreated, workspaceDto("abc123", "ws1", "admin", models.WorkspaceStatusStopped)),
			))

			ws, err := client.CreateWorkspace(ctx, "ws1", 2, models.MemoryUnitGB, config)

			Expect(err).NotTo(HaveOccurred())
			Expect(ws.ID).To(Equal("abc123"))
			Expect(ws.Name).To(Equal("ws1"))
			Expect(ws.Owner).To(Equal("admin"))
		})

		It("should fail with RemoteApiError on non-2xx", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusConflict, `{"message":"exists"}`))

			_, err := client.CreateWorkspace(ctx, "ws1", 1, models.MemoryUnitGB, models.WorkspaceConfig{})

			Expect(srvErrors.IsRemoteApiError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("409"))
		})

		It("should fail with RemoteApiError on malformed body", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusCreated, "not json"))

			_, err := client.CreateWorkspace(ctx, "ws1", 1, models.MemoryUnitGB, models.WorkspaceConfig{})

			Expect(srvErrors.IsRemoteApiError(err)).To(BeTrue())
		})
	})

	Context("Start", func() {
		// Given a workspace that reports RUNNING on the second status read
		// When it is started
		// Then Start returns after exactly two polls
		It("should poll until RUNNING", func() {
			var polls int32
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/workspace/abc123/runtime", "environment=ws1"),
				ghttp.RespondWith(http.StatusOK, nil),
			))
			statusSequence("abc123", "ws1", &polls, models.WorkspaceStatusStarting, models.WorkspaceStatusRunning)

			err := client.Start(ctx, "abc123", "ws1", "admin")

			Expect(err).NotTo(HaveOccurred())
			Expect(atomic.LoadInt32(&polls)).To(Equal(int32(2)))
		})

		// Given a workspace that never leaves STARTING
		// When it is started with a short deadline
		// Then a TimeoutError is returned after a bounded number of polls
		It("should time out when the workspace never becomes RUNNING", func() {
			var polls int32
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, nil))
			statusSequence("abc123", "ws1", &polls, models.WorkspaceStatusStarting)

			start := time.Now()
			err := client.Start(ctx, "abc123", "ws1", "admin")

			Expect(srvErrors.IsTimeoutError(err)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))
			Expect(atomic.LoadInt32(&polls)).To(BeNumerically(">=", 2))
			Expect(atomic.LoadInt32(&polls)).To(BeNumerically("<=", 20))

			stopped := atomic.LoadInt32(&polls)
			Consistently(func() int32 { return atomic.LoadInt32(&polls) }, 100*time.Millisecond, 20*time.Millisecond).Should(Equal(stopped))
		})

		It("should stop polling when the workspace fails", func() {
			var polls int32
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, nil))
			statusSequence("abc123", "ws1", &polls, models.WorkspaceStatusError)

			err := client.Start(ctx, "abc123", "ws1", "admin")

			Expect(err).To(HaveOccurred())
			Expect(srvErrors.IsTimeoutError(err)).To(BeFalse())
			Expect(srvErrors.IsRemoteApiError(err)).To(BeTrue())
			Expect(atomic.LoadInt32(&polls)).To(Equal(int32(1)))
		})

		It("should fail with RemoteApiError when the start request is rejected", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusForbidden, nil))

			err := client.Start(ctx, "abc123", "ws1", "admin")

			Expect(srvErrors.IsRemoteApiError(err)).To(BeTrue())
		})

		It("should honour caller cancellation", func() {
			var polls int32
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, nil))
			statusSequence("abc123", "ws1", &polls, models.WorkspaceStatusStarting)

			cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			err := client.Start(cctx, "abc123", "ws1", "admin")

			Expect(err).To(MatchError(context.DeadlineExceeded))
		})
	})

	Context("GetByName and Exists", func() {
		It("should return the matching workspace", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/api/workspace", "name=ws1&owner=admin"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, []v1.WorkspaceDto{workspaceDto("abc123", "ws1", "admin", models.WorkspaceStatusRunning)}),
			))

			ws, err := client.GetByName(ctx, "ws1", "admin")

			Expect(err).NotTo(HaveOccurred())
			Expect(ws.ID).To(Equal("abc123"))
			Expect(ws.Status).To(Equal(models.WorkspaceStatusRunning))
		})

		It("should fail with NotFoundError when absent", func() {
			server.AppendHandlers(
				ghttp.RespondWithJSONEncoded(http.StatusOK, []v1.WorkspaceDto{}),
				ghttp.RespondWith(http.StatusNotFound, nil),
			)

			_, err := client.GetByName(ctx, "ws1", "admin")
			Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())

			exists, err := client.Exists(ctx, "ws1", "admin")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
		})

		It("should surface server errors from Exists", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, nil))

			_, err := client.Exists(ctx, "ws1", "admin")

			Expect(srvErrors.IsRemoteApiError(err)).To(BeTrue())
		})
	})

	Context("Delete", func() {
		// Given a running workspace
		// When it is deleted
		// Then it is stopped first and removed once STOPPED
		It("should stop a running workspace before removing it", func() {
			var polls int32
			server.AppendHandlers(
				ghttp.RespondWithJSONEncoded(http.StatusOK, []v1.WorkspaceDto{workspaceDto("abc123", "ws1", "admin", models.WorkspaceStatusRunning)}),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodDelete, "/api/workspace/abc123/runtime"),
					ghttp.RespondWith(http.StatusNoContent, nil),
				),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodDelete, "/api/workspace/abc123"),
					ghttp.RespondWith(http.StatusNoContent, nil),
				),
			)
			statusSequence("abc123", "ws1", &polls, models.WorkspaceStatusStopping, models.WorkspaceStatusStopped)

			Expect(client.Delete(ctx, "ws1", "admin")).To(Succeed())
			Expect(server.ReceivedRequests()).To(HaveLen(5))
		})

		It("should ignore an absent workspace", func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, []v1.WorkspaceDto{}))

			Expect(client.Delete(ctx, "ws1", "admin")).To(Succeed())
		})
	})
})
