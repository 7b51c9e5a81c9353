package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/dealerkit/chat-orchestrator/internal/persistence"
)

func newHealthApp() *fiber.App {
	handler := NewHealthHandler("chat-orchestrator", "test", &persistence.Postgres{}, &persistence.Redis{})
	app := fiber.New()
	app.Get("/health/live", handler.Live)
	app.Get("/health/ready", handler.Ready)
	return app
}

func TestLiveAlwaysReportsAlive(t *testing.T) {
	app := newHealthApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status  string `json:"status"`
		Service string `json:"service"`
		Uptime  string `json:"uptime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "alive" || body.Service != "chat-orchestrator" {
		t.Errorf("body = %+v", body)
	}
	if body.Uptime == "" {
		t.Error("uptime missing")
	}
}

func TestReadyReportsEachUnavailableDependency(t *testing.T) {
	app := newHealthApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/health/ready", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}

	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "DEPENDENCY_UNAVAILABLE" {
		t.Errorf("code = %q", body.Error.Code)
	}
	for _, dep := range []string{"postgres", "redis"} {
		if detail, ok := body.Error.Details[dep]; !ok || detail == "ok" {
			t.Errorf("dependency %q detail = %q, want an error", dep, detail)
		}
	}
}
