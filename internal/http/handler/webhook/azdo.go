package webhook

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"basegraph.app/prsync/common/id"
	"basegraph.app/prsync/common/logger"
	"basegraph.app/prsync/internal/http/dto"
	"basegraph.app/prsync/internal/service"
)

const (
	deliveryIDHeader = "X-Delivery-Id"

	// MaxBodyBytes caps a notification body. Pull request payloads are a few
	// kilobytes even with many reviewers and work item refs.
	MaxBodyBytes = 1 << 20
)

// Credentials are the basic auth username/password set on the service hook
// subscription. Empty credentials disable the check.
type Credentials struct {
	Username string
	Password string
}

type AzureDevOpsWebhookHandler struct {
	reconciler  service.ReconcileService
	credentials Credentials
}

func NewAzureDevOpsWebhookHandler(reconciler service.ReconcileService, credentials Credentials) *AzureDevOpsWebhookHandler {
	return &AzureDevOpsWebhookHandler{
		reconciler:  reconciler,
		credentials: credentials,
	}
}

func (h *AzureDevOpsWebhookHandler) HandleEvent(c *gin.Context) {
	deliveryID := id.New()
	c.Header(deliveryIDHeader, strconv.FormatInt(deliveryID, 10))

	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
		DeliveryID: logger.Ptr(deliveryID),
		Component:  "prsync.http.webhook",
	})

	if !h.authorized(c.Request) {
		slog.WarnContext(ctx, "rejected webhook with invalid credentials")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook credentials"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.WarnContext(ctx, "webhook body too large", "limit_bytes", tooLarge.Limit)
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	// Service hooks are JSON regardless of content type; an empty body is a
	// notification without a resource.
	var payload dto.PullRequestWebhook
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			slog.WarnContext(ctx, "invalid webhook payload", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
	}

	event := payload.ToEvent()
	if event.EventType != "" {
		ctx = logger.WithLogFields(ctx, logger.LogFields{EventType: logger.Ptr(event.EventType)})
	}

	slog.InfoContext(ctx, "azure devops webhook received",
		"status", event.Status,
		"repository", event.RepositoryName,
		"pull_request_id", event.PullRequestID,
		"work_item_refs", len(event.WorkItemIDs),
	)

	result, err := h.reconciler.HandleEvent(ctx, event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to process webhook", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return
	}

	slog.InfoContext(ctx, "azure devops webhook processed",
		"outcome", result.Outcome,
		"message", result.Message(),
	)

	c.JSON(http.StatusOK, dto.ReconcileResponse{
		Status:     "ok",
		Outcome:    string(result.Outcome),
		Message:    result.Message(),
		State:      string(result.State),
		Updated:    result.Updated(),
		Failed:     len(result.Failures),
		DeliveryID: deliveryID,
	})
}

func (h *AzureDevOpsWebhookHandler) authorized(r *http.Request) bool {
	if h.credentials.Username == "" && h.credentials.Password == "" {
		return true
	}
	username, password, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.credentials.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(h.credentials.Password)) == 1
	return userOK && passOK
}
