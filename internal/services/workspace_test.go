package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	v1 "github.com/eclipse-che/che-e2e-harness/api/v1"
	"github.com/eclipse-che/che-e2e-harness/internal/config"
	"github.com/eclipse-che/che-e2e-harness/internal/models"
	"github.com/eclipse-che/che-e2e-harness/internal/server"
	"github.com/eclipse-che/che-e2e-harness/internal/services"
	"github.com/eclipse-che/che-e2e-harness/internal/templates"
	"github.com/eclipse-che/che-e2e-harness/pkg/che"
	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
)

var workspaceIDPath = regexp.MustCompile(`^/api/workspace/[^/]+$`)

func stoppedDto(name, owner string) v1.WorkspaceDto {
	return v1.WorkspaceDto{
		Id:        "id-" + name,
		Namespace: owner,
		Status:    string(models.WorkspaceStatusStopped),
		Config:    models.WorkspaceConfig{Name: name, DefaultEnv: name},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var _ = Describe("WorkspaceProvider", func() {
	var (
		ctx      context.Context
		srv      *ghttp.Server
		provider *services.WorkspaceProvider
		admin    *models.TestUser
	)

	BeforeEach(func() {
		ctx = context.Background()
		srv = ghttp.NewServer()
		srv.SetAllowUnhandledRequests(false)

		client := che.NewWorkspaceClient(che.NewServiceApi(srv.URL()+"/api"),
			che.WithPollInterval(10*time.Millisecond),
			che.WithStartTimeout(time.Second),
			che.WithStopTimeout(time.Second),
		)
		provider = services.NewWorkspaceProvider(client, templates.NewLoader(config.InfrastructureDocker),
			services.WithDeleteTimeout(time.Second),
			services.WithShutdownWorkers(2),
		)
		admin = &models.TestUser{Name: "admin", Token: "admin-token", Kind: models.UserKindAdmin}
	})

	AfterEach(func() {
		srv.Close()
	})

	Context("GetWorkspace", func() {
		// Given a workspace that exists on the platform
		// When it is requested twice
		// Then the same instance is returned and the platform is asked once
		It("should return the cached instance without a second lookup", func() {
			srv.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/api/workspace", "name=ws1&owner=admin"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer admin-token"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, []v1.WorkspaceDto{stoppedDto("ws1", "admin")}),
			))

			first, err := provider.GetWorkspace(ctx, "ws1", admin)
			Expect(err).NotTo(HaveOccurred())
			second, err := provider.GetWorkspace(ctx, "ws1", admin)
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(BeIdenticalTo(first))
			Expect(srv.ReceivedRequests()).To(HaveLen(1))
		})

		It("should surface NotFoundError", func() {
			srv.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, []v1.WorkspaceDto{}))

			_, err := provider.GetWorkspace(ctx, "missing", admin)

			Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
		})

		It("should not delete looked up workspaces at shutdown", func() {
			srv.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, []v1.WorkspaceDto{stoppedDto("ws1", "admin")}))
			_, err := provider.GetWorkspace(ctx, "ws1", admin)
			Expect(err).NotTo(HaveOccurred())

			Expect(provider.Shutdown(ctx)).To(Succeed())
			Expect(srv.ReceivedRequests()).To(HaveLen(1))
		})
	})

	Context("CreateWorkspace", func() {
		var creates int32

		BeforeEach(func() {
			creates = 0
			srv.RouteToHandler(http.MethodPost, "/api/workspace", func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&creates, 1)
				var cfg models.WorkspaceConfig
				Expect(json.NewDecoder(r.Body).Decode(&cfg)).To(Succeed())
				// keep the request in flight so that concurrent callers overlap
				time.Sleep(50 * time.Millisecond)
				dto := stoppedDto(cfg.Name, "admin")
				dto.Config = cfg
				writeJSON(w, http.StatusCreated, dto)
			})
		})

		// Given several tests asking for the same workspace at once
		// When they all call CreateWorkspace
		// Then exactly one remote create happens and all get the same workspace
		It("should create once for concurrent callers of the same key", func() {
			const callers = 8
			results := make([]*models.Workspace, callers)

			var wg sync.WaitGroup
			for i := range callers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					ws, err := provider.CreateWorkspace(ctx, services.CreateRequest{Owner: admin, Name: "ws1", Template: templates.Default})
					Expect(err).NotTo(HaveOccurred())
					results[i] = ws
				}()
			}
			wg.Wait()

			Expect(atomic.LoadInt32(&creates)).To(Equal(int32(1)))
			for _, ws := range results {
				Expect(ws).To(BeIdenticalTo(results[0]))
			}
		})

		It("should apply the template, name and memory", func() {
			ws, err := provider.CreateWorkspace(ctx, services.CreateRequest{Owner: admin, MemoryGB: 3, Template: templates.UbuntuGo})

			Expect(err).NotTo(HaveOccurred())
			Expect(ws.Name).To(MatchRegexp(`^workspace-[0-9a-f]{6}$`))
			Expect(ws.MemoryBytes).To(Equal(int64(3) << 30))
			Expect(ws.Config.Environments[ws.Name].Recipe.Location).To(Equal("eclipse/ubuntu_go"))
		})

		It("should fail without an owner", func() {
			_, err := provider.CreateWorkspace(ctx, services.CreateRequest{Name: "ws1"})

			Expect(err).To(HaveOccurred())
			Expect(atomic.LoadInt32(&creates)).To(BeZero())
		})

		It("should fail on an unknown template before calling the platform", func() {
			_, err := provider.CreateWorkspace(ctx, services.CreateRequest{Owner: admin, Template: "missing.json"})

			Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
			Expect(atomic.LoadInt32(&creates)).To(BeZero())
		})
	})

	Context("Shared flights", func() {
		var (
			posted  chan struct{}
			proceed chan struct{}
		)

		BeforeEach(func() {
			posted = make(chan struct{}, 1)
			proceed = make(chan struct{})
			srv.RouteToHandler(http.MethodPost, "/api/workspace", func(w http.ResponseWriter, r *http.Request) {
				var cfg models.WorkspaceConfig
				Expect(json.NewDecoder(r.Body).Decode(&cfg)).To(Succeed())
				posted <- struct{}{}
				<-proceed
				writeJSON(w, http.StatusCreated, stoppedDto(cfg.Name, "admin"))
			})
			srv.RouteToHandler(http.MethodGet, "/api/workspace", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, []v1.WorkspaceDto{stoppedDto(r.URL.Query().Get("name"), "admin")})
			})
		})

		// Given a creation in flight
		// When another test looks the workspace up before the creation returns
		// Then the workspace is still deleted at shutdown
		It("should keep ownership when a lookup caches the workspace first", func() {
			var deletes int32
			srv.RouteToHandler(http.MethodDelete, workspaceIDPath, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&deletes, 1)
				w.WriteHeader(http.StatusNoContent)
			})

			created := make(chan *models.Workspace, 1)
			go func() {
				defer GinkgoRecover()
				ws, err := provider.CreateWorkspace(ctx, services.CreateRequest{Owner: admin, Name: "ws1"})
				Expect(err).NotTo(HaveOccurred())
				created <- ws
			}()
			Eventually(posted, 2*time.Second).Should(Receive())

			found, err := provider.GetWorkspace(ctx, "ws1", admin)
			Expect(err).NotTo(HaveOccurred())
			close(proceed)

			var ws *models.Workspace
			Eventually(created, 2*time.Second).Should(Receive(&ws))
			Expect(ws).To(BeIdenticalTo(found))

			Expect(provider.Shutdown(ctx)).To(Succeed())
			Expect(atomic.LoadInt32(&deletes)).To(Equal(int32(1)))
		})

		// Given two callers sharing one creation
		// When the first caller gives up
		// Then the second one still receives the workspace
		It("should not fail waiting callers when the first caller gives up", func() {
			leaderCtx, cancelLeader := context.WithCancel(ctx)
			leaderErr := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				_, err := provider.CreateWorkspace(leaderCtx, services.CreateRequest{Owner: admin, Name: "ws1"})
				leaderErr <- err
			}()
			Eventually(posted, 2*time.Second).Should(Receive())

			created := make(chan *models.Workspace, 1)
			go func() {
				defer GinkgoRecover()
				ws, err := provider.CreateWorkspace(ctx, services.CreateRequest{Owner: admin, Name: "ws1"})
				Expect(err).NotTo(HaveOccurred())
				created <- ws
			}()
			time.Sleep(50 * time.Millisecond)

			cancelLeader()
			Eventually(leaderErr, 2*time.Second).Should(Receive(MatchError(context.Canceled)))
			close(proceed)

			var ws *models.Workspace
			Eventually(created, 2*time.Second).Should(Receive(&ws))
			Expect(ws.ID).To(Equal("id-ws1"))
		})
	})

	Context("Shutdown", func() {
		// Given three created workspaces
		// When the deletion of the second one fails
		// Then all three deletions are still issued and the failure is reported
		It("should attempt every deletion despite a failure", func() {
			srv.RouteToHandler(http.MethodPost, "/api/workspace", func(w http.ResponseWriter, r *http.Request) {
				var cfg models.WorkspaceConfig
				Expect(json.NewDecoder(r.Body).Decode(&cfg)).To(Succeed())
				writeJSON(w, http.StatusCreated, stoppedDto(cfg.Name, "admin"))
			})
			srv.RouteToHandler(http.MethodGet, "/api/workspace", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, []v1.WorkspaceDto{stoppedDto(r.URL.Query().Get("name"), "admin")})
			})

			var (
				mu      sync.Mutex
				deleted []string
			)
			srv.RouteToHandler(http.MethodDelete, workspaceIDPath, func(w http.ResponseWriter, r *http.Request) {
				id := strings.TrimPrefix(r.URL.Path, "/api/workspace/")
				mu.Lock()
				deleted = append(deleted, id)
				mu.Unlock()
				if id == "id-ws2" {
					writeJSON(w, http.StatusInternalServerError, v1.ErrorResponse{Message: "boom"})
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})

			for _, name := range []string{"ws1", "ws2", "ws3"} {
				_, err := provider.CreateWorkspace(ctx, services.CreateRequest{Owner: admin, Name: name})
				Expect(err).NotTo(HaveOccurred())
			}

			err := provider.Shutdown(ctx)

			Expect(err).To(MatchError(ContainSubstring("admin/ws2")))
			Expect(deleted).To(ConsistOf("id-ws1", "id-ws2", "id-ws3"))
		})

		// Given more workspaces than shutdown workers
		// When every deletion fits its own timeout but not the sum of them
		// Then all of them are deleted
		It("should start each deletion timeout when a worker picks it up", func() {
			client := che.NewWorkspaceClient(che.NewServiceApi(srv.URL()+"/api"),
				che.WithPollInterval(10*time.Millisecond),
			)
			provider = services.NewWorkspaceProvider(client, templates.NewLoader(config.InfrastructureDocker),
				services.WithDeleteTimeout(time.Second),
				services.WithShutdownWorkers(1),
			)

			srv.RouteToHandler(http.MethodPost, "/api/workspace", func(w http.ResponseWriter, r *http.Request) {
				var cfg models.WorkspaceConfig
				Expect(json.NewDecoder(r.Body).Decode(&cfg)).To(Succeed())
				writeJSON(w, http.StatusCreated, stoppedDto(cfg.Name, "admin"))
			})
			srv.RouteToHandler(http.MethodGet, "/api/workspace", func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(600 * time.Millisecond)
				writeJSON(w, http.StatusOK, []v1.WorkspaceDto{stoppedDto(r.URL.Query().Get("name"), "admin")})
			})
			var deletes int32
			srv.RouteToHandler(http.MethodDelete, workspaceIDPath, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&deletes, 1)
				w.WriteHeader(http.StatusNoContent)
			})

			for _, name := range []string{"a", "b", "c"} {
				_, err := provider.CreateWorkspace(ctx, services.CreateRequest{Owner: admin, Name: name})
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(provider.Shutdown(ctx)).To(Succeed())
			Expect(atomic.LoadInt32(&deletes)).To(Equal(int32(3)))
		})

		// Given a deletion that hangs
		// When shutting down
		// Then the deletion is abandoned after its timeout and the others complete
		It("should bound each deletion by its timeout", func() {
			srv.RouteToHandler(http.MethodPost, "/api/workspace", func(w http.ResponseWriter, r *http.Request) {
				var cfg models.WorkspaceConfig
				Expect(json.NewDecoder(r.Body).Decode(&cfg)).To(Succeed())
				writeJSON(w, http.StatusCreated, stoppedDto(cfg.Name, "admin"))
			})
			release := make(chan struct{})
			srv.RouteToHandler(http.MethodGet, "/api/workspace", func(w http.ResponseWriter, r *http.Request) {
				name := r.URL.Query().Get("name")
				if name == "hung" {
					select {
					case <-release:
					case <-r.Context().Done():
					}
					return
				}
				writeJSON(w, http.StatusOK, []v1.WorkspaceDto{stoppedDto(name, "admin")})
			})
			var deletes int32
			srv.RouteToHandler(http.MethodDelete, workspaceIDPath, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&deletes, 1)
				w.WriteHeader(http.StatusNoContent)
			})
			defer close(release)

			for _, name := range []string{"hung", "ws1"} {
				_, err := provider.CreateWorkspace(ctx, services.CreateRequest{Owner: admin, Name: name})
				Expect(err).NotTo(HaveOccurred())
			}

			start := time.Now()
			err := provider.Shutdown(ctx)

			Expect(err).To(MatchError(ContainSubstring("admin/hung")))
			Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
			Expect(atomic.LoadInt32(&deletes)).To(Equal(int32(1)))
		})
	})
})

var _ = Describe("WorkspaceProvider on the fake platform", func() {
	var (
		ctx      context.Context
		cancel   context.CancelFunc
		platform *server.FakePlatform
		client   *che.WorkspaceClient
		admin    *models.TestUser
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())

		var err error
		platform, err = server.NewFakePlatform("127.0.0.1:0", 2)
		Expect(err).NotTo(HaveOccurred())
		platform.StartBackground(ctx)

		token, err := platform.GenerateToken("admin", "admin@che")
		Expect(err).NotTo(HaveOccurred())
		admin = &models.TestUser{Name: "admin", Token: token, Kind: models.UserKindAdmin}

		client = che.NewWorkspaceClient(che.NewServiceApi(platform.APIURL()),
			che.WithPollInterval(10*time.Millisecond),
			che.WithStartTimeout(2*time.Second),
			che.WithStopTimeout(2*time.Second),
		)
	})

	AfterEach(func() {
		cancel()
	})

	It("should create, start, release and shut down", func() {
		provider := services.NewWorkspaceProvider(client, templates.NewLoader(config.InfrastructureDocker),
			services.WithLockDir(GinkgoT().TempDir()),
		)

		ws1, err := provider.CreateWorkspace(ctx, services.CreateRequest{Owner: admin, Name: "ws1", Start: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(ws1.Status).To(Equal(models.WorkspaceStatusRunning))

		_, err = provider.CreateWorkspace(ctx, services.CreateRequest{Owner: admin, Name: "ws2", Template: templates.Ubuntu, Start: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(platform.Store().Workspaces().Count()).To(Equal(2))

		Expect(provider.Release(ctx, "ws1", admin)).To(Succeed())
		Expect(platform.Store().Workspaces().Count()).To(Equal(1))

		Expect(provider.Shutdown(ctx)).To(Succeed())
		Expect(platform.Store().Workspaces().Count()).To(BeZero())
	})

	It("should reuse a workspace another process created under the lock", func() {
		lockDir := GinkgoT().TempDir()
		other := services.NewWorkspaceProvider(client, templates.NewLoader(config.InfrastructureDocker), services.WithLockDir(lockDir))
		provider := services.NewWorkspaceProvider(client, templates.NewLoader(config.InfrastructureDocker), services.WithLockDir(lockDir))

		created, err := other.CreateWorkspace(ctx, services.CreateRequest{Owner: admin, Name: "shared"})
		Expect(err).NotTo(HaveOccurred())

		reused, err := provider.CreateWorkspace(ctx, services.CreateRequest{Owner: admin, Name: "shared"})
		Expect(err).NotTo(HaveOccurred())
		Expect(reused.ID).To(Equal(created.ID))

		Expect(provider.Shutdown(ctx)).To(Succeed())
		Expect(platform.Store().Workspaces().Count()).To(Equal(1))
		Expect(other.Shutdown(ctx)).To(Succeed())
		Expect(platform.Store().Workspaces().Count()).To(BeZero())
	})

	It("should keep a workspace that failed to start for shutdown", func() {
		provider := services.NewWorkspaceProvider(client, templates.NewLoader(config.InfrastructureDocker))

		_, err := provider.CreateWorkspace(ctx, services.CreateRequest{Owner: admin, Name: "broken", Template: templates.Broken, Start: true})
		Expect(err).To(HaveOccurred())
		Expect(platform.Store().Workspaces().Count()).To(Equal(1))

		Expect(provider.Shutdown(ctx)).To(Succeed())
		Expect(platform.Store().Workspaces().Count()).To(BeZero())
	})
})
