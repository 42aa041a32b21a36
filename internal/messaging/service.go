package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gracestack/church-comms-platform/pkg/logging"
)

// ErrMissingSender is returned for envelopes without a From number.
var ErrMissingSender = errors.New("messaging: envelope has no sender number")

// Persister is the write slice of the store the service needs.
type Persister interface {
	SaveInbound(ctx context.Context, conv *Conversation, createConv bool, msg *Message) (uuid.UUID, error)
	HasProviderMessage(ctx context.Context, providerMessageID string) (bool, error)
}

// IngestResult reports how one envelope was attributed.
type IngestResult struct {
	MessageID           uuid.UUID
	ConversationID      uuid.UUID
	ConversationCreated bool
	// Strategy is the conversation resolver strategy that matched; empty
	// when a new thread was created.
	Strategy  string
	PersonID  *uuid.UUID
	TenantID  *uuid.UUID
	Duplicate bool
}

// Service runs the inbound pipeline: normalize, resolve identity, resolve or
// create the conversation, attribute the tenant, persist. Resolver failures
// degrade to unresolved; only persistence fails the call.
type Service struct {
	identity      *IdentityResolver
	conversations *ConversationResolver
	tenants       *TenantAttributor
	persister     Persister
	dedupe        *DedupeStore
	logger        *logging.Logger
	locks         *senderLocks
}

type ServiceConfig struct {
	Identity      *IdentityResolver
	Conversations *ConversationResolver
	Tenants       *TenantAttributor
	Persister     Persister
	Dedupe        *DedupeStore
	Logger        *logging.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Identity == nil || cfg.Conversations == nil || cfg.Tenants == nil {
		panic("messaging: all resolvers required")
	}
	if cfg.Persister == nil {
		panic("messaging: persister required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Service{
		identity:      cfg.Identity,
		conversations: cfg.Conversations,
		tenants:       cfg.Tenants,
		persister:     cfg.Persister,
		dedupe:        cfg.Dedupe,
		logger:        cfg.Logger,
		locks:         newSenderLocks(),
	}
}

// Ingest processes one inbound envelope end to end. Exactly one message row
// is written per non-duplicate envelope.
func (s *Service) Ingest(ctx context.Context, env InboundEnvelope) (IngestResult, error) {
	if strings.TrimSpace(env.From) == "" {
		return IngestResult{}, ErrMissingSender
	}

	if dup := s.alreadySeen(ctx, env.ProviderMessageID); dup {
		return IngestResult{Duplicate: true}, nil
	}

	forms := NormalizePhone(env.From)
	person := s.identity.Resolve(ctx, forms)

	// Resolve-or-create runs under a per-sender lock so two rapid first
	// messages from one number land in a single thread.
	unlock := s.locks.Lock(forms.SenderKey())
	defer unlock()

	convID, strategy, found := s.conversations.Resolve(ctx, person, forms)

	existingID := convID
	if !found {
		existingID = uuid.Nil
		convID = uuid.New()
	}
	tenantID := s.tenants.Resolve(ctx, person, existingID)

	var personID *uuid.UUID
	if person != nil {
		id := person.ID
		personID = &id
	}

	var conv *Conversation
	if !found {
		conv = &Conversation{
			ID:       convID,
			Title:    ConversationTitle(env.Body, person.DisplayName(), env.From),
			Kind:     KindGeneral,
			Status:   StatusActive,
			TenantID: tenantID,
		}
	}

	now := time.Now().UTC()
	msg := &Message{
		ProviderMessageID: env.ProviderMessageID,
		Direction:         DirectionInbound,
		FromNumber:        env.From,
		ToNumber:          env.To,
		Body:              env.Body,
		Status:            "received",
		PersonID:          personID,
		ConversationID:    convID,
		TenantID:          tenantID,
		DeliveredAt:       &now,
	}

	msgID, err := s.persister.SaveInbound(ctx, conv, !found, msg)
	if err != nil {
		return IngestResult{}, err
	}
	// Recorded after the commit so a failed attempt never blocks the
	// carrier's redelivery.
	if err := s.dedupe.MarkSeen(ctx, env.ProviderMessageID); err != nil {
		s.logger.Warn("dedupe mark failed", "error", err, "provider_message_id", env.ProviderMessageID)
	}

	result := IngestResult{
		MessageID:           msgID,
		ConversationID:      convID,
		ConversationCreated: !found,
		Strategy:            strategy,
		PersonID:            personID,
		TenantID:            tenantID,
	}
	if tenantID == nil {
		// Data-quality signal, not a caller-visible failure.
		s.logger.Warn("inbound message has no tenant attribution",
			"message_id", msgID, "conversation_id", convID, "from", env.From)
	}
	return result, nil
}

// alreadySeen consults the redis fast path and then the authoritative
// messages table. Redis keys are written only after a successful commit, so a
// hit is trustworthy; a miss still falls through to the table. Failures in
// either check degrade to "not seen": processing a message twice is
// recoverable, dropping one is not.
func (s *Service) alreadySeen(ctx context.Context, providerMessageID string) bool {
	if strings.TrimSpace(providerMessageID) == "" {
		return false
	}
	seen, err := s.dedupe.Seen(ctx, providerMessageID)
	if err != nil {
		s.logger.Warn("dedupe check failed", "error", err, "provider_message_id", providerMessageID)
	} else if seen {
		return true
	}
	exists, err := s.persister.HasProviderMessage(ctx, providerMessageID)
	if err != nil {
		s.logger.Warn("provider message lookup failed", "error", err, "provider_message_id", providerMessageID)
		return false
	}
	return exists
}
