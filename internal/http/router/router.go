package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/prsync/internal/http/handler/webhook"
	"basegraph.app/prsync/internal/service"
)

type RouterConfig struct {
	WebhookUsername string
	WebhookPassword string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	azdoHandler := webhook.NewAzureDevOpsWebhookHandler(services.Reconcile(), webhook.Credentials{
		Username: cfg.WebhookUsername,
		Password: cfg.WebhookPassword,
	})
	WebhookRouter(router, azdoHandler)
}
