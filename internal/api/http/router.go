package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dealerkit/chat-orchestrator/internal/api/http/handlers"
	"github.com/dealerkit/chat-orchestrator/internal/auth"
	"github.com/dealerkit/chat-orchestrator/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Webhook         *handlers.WebhookHandler
	Conversations   *handlers.ConversationsHandler
	AuthMiddleware  *auth.AuthMiddleware
	WebhookVerifier *auth.WebhookVerifier
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	webhook := app.Group("/webhook", cfg.WebhookVerifier.Handle)
	webhook.Post("/gateway", cfg.Webhook.HandleInbound)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle)
	admin.Get("/conversations", cfg.Conversations.List)
	admin.Get("/conversations/:id", cfg.Conversations.Get)
	admin.Post("/conversations/:id/escalate",
		auth.RequireRole(domain.RoleOwner, domain.RoleAdmin, domain.RoleManager),
		cfg.Conversations.Escalate)
	admin.Post("/broadcasts",
		auth.RequireRole(domain.RoleOwner, domain.RoleAdmin),
		cfg.Conversations.Broadcast)
}
