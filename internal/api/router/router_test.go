package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/gracestack/church-comms-platform/internal/directory"
	"github.com/gracestack/church-comms-platform/internal/groups"
	"github.com/gracestack/church-comms-platform/internal/messaging"
	"github.com/gracestack/church-comms-platform/pkg/logging"
)

// stubBackend satisfies the store interfaces the pipeline needs without a
// database: nothing matches, every save succeeds.
type stubBackend struct{}

func (stubBackend) SaveInbound(ctx context.Context, conv *messaging.Conversation, createConv bool, msg *messaging.Message) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (stubBackend) HasProviderMessage(ctx context.Context, providerMessageID string) (bool, error) {
	return false, nil
}

func (stubBackend) LatestConversationForPerson(ctx context.Context, personID uuid.UUID) (uuid.UUID, error) {
	return uuid.Nil, messaging.ErrNoConversation
}

func (stubBackend) LatestConversationForNumbers(ctx context.Context, numbers []string) (uuid.UUID, error) {
	return uuid.Nil, messaging.ErrNoConversation
}

func (stubBackend) LatestConversationForDigits(ctx context.Context, digits []string, window int) (uuid.UUID, error) {
	return uuid.Nil, messaging.ErrNoConversation
}

func (stubBackend) ConversationTenant(ctx context.Context, conversationID uuid.UUID) (*uuid.UUID, *uuid.UUID, error) {
	return nil, nil, messaging.ErrNoConversation
}

func (stubBackend) LatestActiveTenant(ctx context.Context) (uuid.UUID, error) {
	return uuid.Nil, messaging.ErrNoConversation
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.Default()
	backend := stubBackend{}
	service := messaging.NewService(messaging.ServiceConfig{
		Identity:      messaging.NewIdentityResolver(directory.NewInMemoryRepository(), logger),
		Conversations: messaging.NewConversationResolver(backend, 0, logger),
		Tenants:       messaging.NewTenantAttributor(backend, groups.NewInMemoryStore(), false, logger),
		Persister:     backend,
		Logger:        logger,
	})
	messagingHandler := messaging.NewHandler(service, messaging.ProviderTwilio, logger, nil)

	cfg := &Config{
		Logger:           logger,
		MessagingHandler: messagingHandler,
	}

	return New(cfg)
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterMessagingWebhookEndpoint(t *testing.T) {
	router := newTestRouter(t)

	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("From", "+19255501617")
	form.Set("To", "+15550009999")
	form.Set("Body", "Hi there")

	req := httptest.NewRequest(http.MethodPost, "/messaging/sms/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "application/xml" {
		t.Fatalf("expected XML response, got %s", ct)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
