package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/prsync/internal/http/handler/webhook"
)

// WebhookRouter registers the service hook endpoint. /webhook is kept for
// subscriptions created before the /webhooks prefix existed.
func WebhookRouter(router *gin.Engine, handler *webhook.AzureDevOpsWebhookHandler) {
	router.POST("/webhook", handler.HandleEvent)
	router.POST("/webhooks/azdo", handler.HandleEvent)
}
