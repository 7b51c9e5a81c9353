package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/dealerkit/chat-orchestrator/internal/config"
	apperrors "github.com/dealerkit/chat-orchestrator/pkg/util"
)

// WebhookVerifier authenticates gateway webhook deliveries via the
// X-Webhook-Token header. A bcrypt hash of the shared token can be configured
// instead of the plaintext so the secret never sits in the environment as-is.
type WebhookVerifier struct {
	token     string
	tokenHash string
}

// NewWebhookVerifier constructs the verifier from gateway config.
func NewWebhookVerifier(cfg config.GatewayConfig) *WebhookVerifier {
	return &WebhookVerifier{token: cfg.WebhookToken, tokenHash: cfg.WebhookTokenHash}
}

// Handle rejects webhook calls that do not present the shared token. When no
// token is configured the check is skipped (local development).
func (v *WebhookVerifier) Handle(c *fiber.Ctx) error {
	if v.token == "" && v.tokenHash == "" {
		return c.Next()
	}

	presented := c.Get("X-Webhook-Token")
	if presented == "" {
		return apperrors.NewUnauthorized("missing webhook token")
	}

	if v.tokenHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(v.tokenHash), []byte(presented)) != nil {
			return apperrors.NewUnauthorized("invalid webhook token")
		}
		return c.Next()
	}

	if subtle.ConstantTimeCompare([]byte(v.token), []byte(presented)) != 1 {
		return apperrors.NewUnauthorized("invalid webhook token")
	}
	return c.Next()
}
