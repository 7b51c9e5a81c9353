// Package gateway is the outbound adapter for the external chat provider.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dealerkit/chat-orchestrator/internal/config"
)

// Client sends messages through the chat provider. Any non-success response is
// treated by callers as a per-recipient failure.
type Client interface {
	SendText(ctx context.Context, clientID, phone, text string) error
	SendDocument(ctx context.Context, clientID, phone, base64Payload, filename, caption string) error
	SendImage(ctx context.Context, clientID, phone, imageData, caption string) error
}

// ProviderError carries the provider's HTTP-style failure details.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("gateway responded %d: %s", e.StatusCode, e.Body)
}

// HTTPClient implements Client against the provider's REST API.
type HTTPClient struct {
	baseURL  string
	apiToken string
	http     *http.Client
	logger   *zap.Logger
}

// NewHTTPClient builds a provider client from config.
func NewHTTPClient(cfg config.GatewayConfig, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:  cfg.BaseURL,
		apiToken: cfg.APIToken,
		http:     &http.Client{Timeout: cfg.Timeout()},
		logger:   logger,
	}
}

// SendText delivers a plain text message.
func (c *HTTPClient) SendText(ctx context.Context, clientID, phone, text string) error {
	return c.post(ctx, "/messages/text", map[string]string{
		"client_id": clientID,
		"phone":     phone,
		"message":   text,
	})
}

// SendDocument delivers a base64-encoded document with filename and caption.
func (c *HTTPClient) SendDocument(ctx context.Context, clientID, phone, base64Payload, filename, caption string) error {
	return c.post(ctx, "/messages/document", map[string]string{
		"client_id": clientID,
		"phone":     phone,
		"document":  base64Payload,
		"filename":  filename,
		"caption":   caption,
	})
}

// SendImage delivers an image with caption.
func (c *HTTPClient) SendImage(ctx context.Context, clientID, phone, imageData, caption string) error {
	return c.post(ctx, "/messages/image", map[string]string{
		"client_id": clientID,
		"phone":     phone,
		"image":     imageData,
		"caption":   caption,
	})
}

func (c *HTTPClient) post(ctx context.Context, path string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Bounded read; provider error bodies are small but untrusted.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ProviderError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	c.logger.Debug("gateway send",
		zap.String("path", path),
		zap.String("phone", payload["phone"]),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
