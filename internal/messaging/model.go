package messaging

import (
	"time"

	"github.com/google/uuid"
)

// ConversationKind distinguishes free-form threads from group-bound ones.
type ConversationKind string

const (
	KindGeneral ConversationKind = "general"
	KindGroup   ConversationKind = "group"
)

// ConversationStatus marks whether a thread still accepts traffic.
type ConversationStatus string

const (
	StatusActive   ConversationStatus = "active"
	StatusArchived ConversationStatus = "archived"
)

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Conversation is a logical SMS thread. The carrier supplies no thread id,
// so threads are created and matched entirely by this subsystem.
type Conversation struct {
	ID        uuid.UUID          `json:"id"`
	Title     string             `json:"title"`
	Kind      ConversationKind   `json:"kind"`
	Status    ConversationStatus `json:"status"`
	TenantID  *uuid.UUID         `json:"tenant_id,omitempty"`
	GroupID   *uuid.UUID         `json:"group_id,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Message is one SMS, immutable once persisted.
type Message struct {
	ID                uuid.UUID  `json:"id"`
	ProviderMessageID string     `json:"provider_message_id"`
	Direction         string     `json:"direction"`
	FromNumber        string     `json:"from_number"`
	ToNumber          string     `json:"to_number"`
	Body              string     `json:"body"`
	Status            string     `json:"status"`
	PersonID          *uuid.UUID `json:"person_id,omitempty"`
	ConversationID    uuid.UUID  `json:"conversation_id"`
	TenantID          *uuid.UUID `json:"tenant_id,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// InboundEnvelope carries one carrier webhook payload through the pipeline.
// Request-scoped; discarded after processing.
type InboundEnvelope struct {
	From              string
	To                string
	Body              string
	ProviderMessageID string
}
