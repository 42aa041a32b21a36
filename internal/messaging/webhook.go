package messaging

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Provider names accepted by SMS_PROVIDER.
const (
	ProviderTwilio = "twilio"
	ProviderTelnyx = "telnyx"
)

// ParseInboundWebhook decodes the carrier's POST into an envelope using the
// configured provider's wire contract. Unknown providers fall back to the
// Twilio form encoding.
func ParseInboundWebhook(r *http.Request, provider string) (InboundEnvelope, error) {
	if provider == ProviderTelnyx {
		return parseTelnyxWebhook(r)
	}
	return parseTwilioWebhook(r)
}

func parseTwilioWebhook(r *http.Request) (InboundEnvelope, error) {
	if err := r.ParseForm(); err != nil {
		return InboundEnvelope{}, fmt.Errorf("messaging: parse webhook form: %w", err)
	}
	return InboundEnvelope{
		From:              r.FormValue("From"),
		To:                r.FormValue("To"),
		Body:              r.FormValue("Body"),
		ProviderMessageID: r.FormValue("MessageSid"),
	}, nil
}

// telnyxWebhookEnvelope is the subset of Telnyx's message.received event this
// pipeline consumes.
type telnyxWebhookEnvelope struct {
	Data struct {
		EventType string `json:"event_type"`
		Payload   struct {
			ID   string `json:"id"`
			Text string `json:"text"`
			From struct {
				PhoneNumber string `json:"phone_number"`
			} `json:"from"`
			To []struct {
				PhoneNumber string `json:"phone_number"`
			} `json:"to"`
		} `json:"payload"`
	} `json:"data"`
}

func parseTelnyxWebhook(r *http.Request) (InboundEnvelope, error) {
	var evt telnyxWebhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		return InboundEnvelope{}, fmt.Errorf("messaging: decode telnyx webhook: %w", err)
	}
	env := InboundEnvelope{
		From:              evt.Data.Payload.From.PhoneNumber,
		Body:              evt.Data.Payload.Text,
		ProviderMessageID: evt.Data.Payload.ID,
	}
	if len(evt.Data.Payload.To) > 0 {
		env.To = evt.Data.Payload.To[0].PhoneNumber
	}
	return env, nil
}
