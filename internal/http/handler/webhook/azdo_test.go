package webhook_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/prsync/internal/domain"
	"basegraph.app/prsync/internal/http/dto"
	"basegraph.app/prsync/internal/http/handler/webhook"
	"basegraph.app/prsync/internal/ledger"
	"basegraph.app/prsync/internal/service"
)

type fakeReconcileService struct {
	handleFn func(ctx context.Context, event domain.PullRequestEvent) (*service.ReconcileResult, error)
	events   []domain.PullRequestEvent
}

func (f *fakeReconcileService) HandleEvent(ctx context.Context, event domain.PullRequestEvent) (*service.ReconcileResult, error) {
	f.events = append(f.events, event)
	if f.handleFn != nil {
		return f.handleFn(ctx, event)
	}
	return &service.ReconcileResult{Outcome: service.OutcomeNoStateChange}, nil
}

// boardsStub is a one-project Azure DevOps double for end-to-end handler tests.
type boardsStub struct {
	items   map[int]*domain.WorkItem
	links   []int
	linkErr error
}

func (b *boardsStub) GetWorkItem(ctx context.Context, id int) (*domain.WorkItem, error) {
	wi, ok := b.items[id]
	if !ok {
		return nil, fmt.Errorf("work item %d not found", id)
	}
	copied := *wi
	return &copied, nil
}

func (b *boardsStub) GetAllowedStates(ctx context.Context, workItemType string) ([]string, error) {
	return []string{"To Do", "Doing", "CodeReview", "Done"}, nil
}

func (b *boardsStub) UpdateWorkItemState(ctx context.Context, id int, state string) error {
	b.items[id].State = state
	return nil
}

func (b *boardsStub) GetLinkedWorkItemIDs(ctx context.Context, repositoryID string, pullRequestID int) ([]int, error) {
	return b.links, b.linkErr
}

func post(router *gin.Engine, body string, configure ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	for _, fn := range configure {
		fn(req)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) dto.ReconcileResponse {
	var resp dto.ReconcileResponse
	Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
	return resp
}

var _ = Describe("AzureDevOpsWebhookHandler", func() {
	var (
		router *gin.Engine
		buf    *bytes.Buffer
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		buf = &bytes.Buffer{}
		slog.SetDefault(slog.New(slog.NewJSONHandler(buf, nil)))
	})

	Context("with a stubbed reconciler", func() {
		var reconciler *fakeReconcileService

		BeforeEach(func() {
			reconciler = &fakeReconcileService{}
			h := webhook.NewAzureDevOpsWebhookHandler(reconciler, webhook.Credentials{})
			router.POST("/webhook", h.HandleEvent)
		})

		It("passes the flattened pull request event to the reconciler", func() {
			w := post(router, `{
				"eventType": "git.pullrequest.updated",
				"resource": {
					"status": "active",
					"pullRequestId": 7,
					"repository": {"id": "repo-guid", "name": "web"},
					"workItemRefs": [{"id": "101", "url": "https://dev.azure.com/contoso/_apis/wit/workItems/101"}, {"id": 102}, {"id": "x"}]
				}
			}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("X-Delivery-Id")).ToNot(BeEmpty())
			Expect(reconciler.events).To(HaveLen(1))
			Expect(reconciler.events[0]).To(Equal(domain.PullRequestEvent{
				EventType:      "git.pullrequest.updated",
				Status:         domain.PullRequestActive,
				PullRequestID:  7,
				RepositoryID:   "repo-guid",
				RepositoryName: "web",
				WorkItemIDs:    []int{101, 102},
			}))
			Expect(buf.String()).To(ContainSubstring("azure devops webhook received"))
			Expect(buf.String()).To(ContainSubstring(`"repository":"web"`))
		})

		It("answers no state change for an empty body", func() {
			w := post(router, "")

			Expect(w.Code).To(Equal(http.StatusOK))
			resp := decode(w)
			Expect(resp.Outcome).To(Equal("no_state_change"))
			Expect(resp.Message).To(Equal("No state change"))
			Expect(reconciler.events[0].Status).To(BeEmpty())
		})

		It("accepts a string pull request id", func() {
			w := post(router, `{"resource":{"status":"active","pullRequestId":"17","repository":{"id":"r"}}}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(reconciler.events).To(HaveLen(1))
			Expect(reconciler.events[0].PullRequestID).To(Equal(17))
		})

		It("treats an unparseable pull request id as missing", func() {
			w := post(router, `{"resource":{"status":"active","pullRequestId":"abc"}}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(reconciler.events[0].PullRequestID).To(BeZero())
		})

		It("refuses bodies over the size limit", func() {
			padding := strings.Repeat("x", webhook.MaxBodyBytes)
			w := post(router, `{"eventType":"`+padding+`","resource":{"status":"active","pullRequestId":1}}`)

			Expect(w.Code).To(Equal(http.StatusRequestEntityTooLarge))
			Expect(reconciler.events).To(BeEmpty())
		})

		It("rejects malformed JSON", func() {
			w := post(router, `{"resource":`)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(reconciler.events).To(BeEmpty())
		})

		It("returns 500 when reconciliation fails unexpectedly", func() {
			reconciler.handleFn = func(context.Context, domain.PullRequestEvent) (*service.ReconcileResult, error) {
				return nil, errors.New("context canceled")
			}

			w := post(router, `{"resource":{"status":"active","pullRequestId":1}}`)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})

		It("reports partial failures with a 200", func() {
			reconciler.handleFn = func(context.Context, domain.PullRequestEvent) (*service.ReconcileResult, error) {
				return &service.ReconcileResult{
					Outcome:    service.OutcomeUpdated,
					State:      domain.StateDone,
					UpdatedIDs: []int{1},
					Failures:   []service.WorkItemFailure{{WorkItemID: 2, Err: service.ErrWriteFailed}},
				}, nil
			}

			w := post(router, `{"resource":{"status":"completed","pullRequestId":1}}`)
			Expect(w.Code).To(Equal(http.StatusOK))
			resp := decode(w)
			Expect(resp.Updated).To(Equal(1))
			Expect(resp.Failed).To(Equal(1))
			Expect(resp.Message).To(Equal("Updated 1 work item(s) → Done (1 failed)"))
		})
	})

	Context("with basic auth configured", func() {
		BeforeEach(func() {
			h := webhook.NewAzureDevOpsWebhookHandler(&fakeReconcileService{}, webhook.Credentials{Username: "azdo", Password: "s3cret"})
			router.POST("/webhook", h.HandleEvent)
		})

		It("accepts matching credentials", func() {
			w := post(router, `{}`, func(r *http.Request) { r.SetBasicAuth("azdo", "s3cret") })
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("rejects wrong or missing credentials", func() {
			Expect(post(router, `{}`, func(r *http.Request) { r.SetBasicAuth("azdo", "nope") }).Code).To(Equal(http.StatusUnauthorized))
			Expect(post(router, `{}`).Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Context("end to end with the reconcile service", func() {
		var boards *boardsStub

		BeforeEach(func() {
			boards = &boardsStub{items: map[int]*domain.WorkItem{}}
			services := service.NewServices(service.ServicesConfig{
				AzureDevOps:           boards,
				Ledger:                ledger.NewMemoryLedger(ledger.MemoryConfig{MaxEntries: 10, TTL: time.Hour}),
				EarlyCompletionWindow: ledger.DefaultWindow,
			})
			h := webhook.NewAzureDevOpsWebhookHandler(services.Reconcile(), webhook.Credentials{})
			router.POST("/webhook", h.HandleEvent)
		})

		It("updates a Doing work item to CodeReview", func() {
			boards.items[101] = &domain.WorkItem{ID: 101, Type: "Task", State: "Doing"}

			w := post(router, `{"eventType":"git.pullrequest.created","resource":{"status":"active","pullRequestId":7,"repository":{"id":"r","name":"web"},"workItemRefs":[{"id":101}]}}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			resp := decode(w)
			Expect(resp.Message).To(Equal("Updated 1 work item(s) → CodeReview"))
			Expect(resp.Updated).To(Equal(1))
			Expect(boards.items[101].State).To(Equal("CodeReview"))
		})

		It("ignores a completed event right after the first one", func() {
			boards.items[101] = &domain.WorkItem{ID: 101, Type: "Task", State: "CodeReview"}

			post(router, `{"resource":{"status":"active","pullRequestId":42,"workItemRefs":[{"id":101}]}}`)
			w := post(router, `{"resource":{"status":"completed","pullRequestId":42,"workItemRefs":[{"id":101}]}}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w).Message).To(Equal("Ignored early completed"))
			Expect(boards.items[101].State).To(Equal("CodeReview"))
		})

		It("answers no linked work items when the lookup fails", func() {
			boards.linkErr = errors.New("503 Service Unavailable")

			w := post(router, `{"resource":{"status":"active","pullRequestId":8,"repository":{"id":"r"}}}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			resp := decode(w)
			Expect(resp.Outcome).To(Equal("no_linked_work_items"))
			Expect(resp.Message).To(Equal("No linked work items"))
		})
	})
})
