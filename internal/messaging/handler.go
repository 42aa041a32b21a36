package messaging

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	observemetrics "github.com/gracestack/church-comms-platform/internal/observability/metrics"
	"github.com/gracestack/church-comms-platform/pkg/logging"
)

var smsTracer = otel.Tracer("churchcomms.internal.messaging.sms")

// emptyAck is what the carrier expects back: an acknowledgment carrying no
// reply message.
const emptyAck = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// Handler handles inbound SMS webhook requests.
type Handler struct {
	service  *Service
	provider string
	logger   *logging.Logger
	metrics  *observemetrics.MessagingMetrics
}

// NewHandler creates a new inbound SMS handler speaking the given provider's
// webhook contract (ProviderTwilio when empty).
func NewHandler(service *Service, provider string, logger *logging.Logger, metrics *observemetrics.MessagingMetrics) *Handler {
	if service == nil {
		panic("messaging: service cannot be nil")
	}
	if provider == "" {
		provider = ProviderTwilio
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, provider: provider, logger: logger, metrics: metrics}
}

// InboundSMS handles POST /messaging/sms/webhook requests.
func (h *Handler) InboundSMS(w http.ResponseWriter, r *http.Request) {
	ctx, span := smsTracer.Start(r.Context(), "messaging.sms.webhook")
	defer span.End()
	start := time.Now()

	env, err := ParseInboundWebhook(r, h.provider)
	if err != nil {
		h.logger.Error("failed to parse sms webhook", "error", err, "provider", h.provider)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		h.metrics.ObserveWebhookLatency("bad_request", time.Since(start).Seconds())
		return
	}
	span.SetAttributes(
		attribute.String("churchcomms.sms.provider_message_id", env.ProviderMessageID),
		attribute.String("churchcomms.sms.from", env.From),
		attribute.String("churchcomms.sms.to", env.To),
	)

	result, err := h.service.Ingest(ctx, env)
	if err != nil {
		if errors.Is(err, ErrMissingSender) {
			h.logger.Error("invalid sms payload", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)
			span.RecordError(err)
			h.metrics.ObserveWebhookLatency("bad_request", time.Since(start).Seconds())
			return
		}
		// Persistence failed; a non-2xx tells the carrier to redeliver.
		h.logger.Error("failed to persist inbound sms", "error", err, "provider_message_id", env.ProviderMessageID)
		http.Error(w, "Failed to persist message", http.StatusInternalServerError)
		span.RecordError(err)
		h.metrics.ObserveWebhookLatency("error", time.Since(start).Seconds())
		return
	}

	if result.Duplicate {
		h.logger.Info("duplicate sms webhook acked", "provider_message_id", env.ProviderMessageID)
		h.metrics.ObserveDedupeSkip()
		h.metrics.ObserveWebhookLatency("duplicate", time.Since(start).Seconds())
		h.writeAck(w)
		return
	}

	identityOutcome := "unresolved"
	if result.PersonID != nil {
		identityOutcome = "resolved"
	}
	conversationOutcome := "existing"
	if result.ConversationCreated {
		conversationOutcome = "created"
		h.metrics.ObserveConversationOpened()
	}
	tenantOutcome := "unresolved"
	if result.TenantID != nil {
		tenantOutcome = "resolved"
	}
	h.metrics.ObserveInbound(identityOutcome, conversationOutcome, tenantOutcome)
	h.metrics.ObserveWebhookLatency("ok", time.Since(start).Seconds())

	span.SetAttributes(
		attribute.String("churchcomms.sms.conversation_id", result.ConversationID.String()),
		attribute.Bool("churchcomms.sms.conversation_created", result.ConversationCreated),
	)
	h.logger.Info("inbound sms accepted",
		"message_id", result.MessageID,
		"conversation_id", result.ConversationID,
		"conversation_created", result.ConversationCreated,
		"strategy", result.Strategy,
		"identity", identityOutcome,
		"tenant", tenantOutcome,
	)
	h.writeAck(w)
}

func (h *Handler) writeAck(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(emptyAck))
}

// HealthCheck returns a simple health check response.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status": "ok",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
