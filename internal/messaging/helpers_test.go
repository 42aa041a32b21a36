package messaging

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gracestack/church-comms-platform/internal/directory"
	"github.com/gracestack/church-comms-platform/internal/groups"
	"github.com/gracestack/church-comms-platform/pkg/logging"
)

// memoryBackend implements Persister, ConversationFinder and TenantSource
// over in-process maps so the pipeline can run end to end without Postgres.
type memoryBackend struct {
	mu            sync.Mutex
	clock         time.Time
	conversations map[uuid.UUID]*Conversation
	messages      []Message
	failSave      error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		clock:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		conversations: make(map[uuid.UUID]*Conversation),
	}
}

// tick returns a strictly increasing timestamp so recency ordering is
// deterministic regardless of wall-clock resolution.
func (b *memoryBackend) tick() time.Time {
	b.clock = b.clock.Add(time.Second)
	return b.clock
}

func (b *memoryBackend) seedConversation(status ConversationStatus, tenantID, groupID *uuid.UUID) uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.tick()
	id := uuid.New()
	b.conversations[id] = &Conversation{
		ID:        id,
		Kind:      KindGeneral,
		Status:    status,
		TenantID:  tenantID,
		GroupID:   groupID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

func (b *memoryBackend) seedMessage(conversationID uuid.UUID, personID *uuid.UUID, from, to string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.tick()
	b.messages = append(b.messages, Message{
		ID:             uuid.New(),
		Direction:      DirectionInbound,
		FromNumber:     from,
		ToNumber:       to,
		PersonID:       personID,
		ConversationID: conversationID,
		CreatedAt:      now,
	})
	if conv, ok := b.conversations[conversationID]; ok {
		conv.UpdatedAt = now
	}
}

func (b *memoryBackend) messageCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

func (b *memoryBackend) conversationCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conversations)
}

func (b *memoryBackend) conversation(id uuid.UUID) *Conversation {
	b.mu.Lock()
	defer b.mu.Unlock()
	conv, ok := b.conversations[id]
	if !ok {
		return nil
	}
	c := *conv
	return &c
}

func (b *memoryBackend) lastMessage() *Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.messages) == 0 {
		return nil
	}
	m := b.messages[len(b.messages)-1]
	return &m
}

func (b *memoryBackend) SaveInbound(ctx context.Context, conv *Conversation, createConv bool, msg *Message) (uuid.UUID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failSave != nil {
		return uuid.Nil, b.failSave
	}
	now := b.tick()
	if createConv {
		c := *conv
		c.CreatedAt = now
		c.UpdatedAt = now
		b.conversations[c.ID] = &c
	} else if existing, ok := b.conversations[msg.ConversationID]; ok {
		existing.UpdatedAt = now
	}
	m := *msg
	m.ID = uuid.New()
	m.CreatedAt = now
	b.messages = append(b.messages, m)
	return m.ID, nil
}

func (b *memoryBackend) HasProviderMessage(ctx context.Context, providerMessageID string) (bool, error) {
	if providerMessageID == "" {
		return false, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.messages {
		if b.messages[i].ProviderMessageID == providerMessageID {
			return true, nil
		}
	}
	return false, nil
}

func (b *memoryBackend) LatestConversationForPerson(ctx context.Context, personID uuid.UUID) (uuid.UUID, error) {
	return b.latestMatching(0, func(m Message) bool {
		return m.PersonID != nil && *m.PersonID == personID
	})
}

func (b *memoryBackend) LatestConversationForNumbers(ctx context.Context, numbers []string) (uuid.UUID, error) {
	set := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		set[n] = struct{}{}
	}
	return b.latestMatching(0, func(m Message) bool {
		if _, ok := set[m.FromNumber]; ok {
			return true
		}
		_, ok := set[m.ToNumber]
		return ok
	})
}

func (b *memoryBackend) LatestConversationForDigits(ctx context.Context, digits []string, window int) (uuid.UUID, error) {
	set := make(map[string]struct{}, len(digits))
	for _, d := range digits {
		set[d] = struct{}{}
	}
	return b.latestMatching(window, func(m Message) bool {
		if _, ok := set[sanitizePhone(m.FromNumber)]; ok {
			return true
		}
		_, ok := set[sanitizePhone(m.ToNumber)]
		return ok
	})
}

// latestMatching mirrors the store queries: active conversations only, the
// window (when positive) bounds the scan to the most recently updated ones,
// and ties break on the newest qualifying message.
func (b *memoryBackend) latestMatching(window int, match func(Message) bool) (uuid.UUID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	eligible := make(map[uuid.UUID]struct{})
	active := make([]*Conversation, 0, len(b.conversations))
	for _, c := range b.conversations {
		if c.Status == StatusActive {
			active = append(active, c)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].UpdatedAt.After(active[j].UpdatedAt) })
	if window > 0 && len(active) > window {
		active = active[:window]
	}
	for _, c := range active {
		eligible[c.ID] = struct{}{}
	}

	var best uuid.UUID
	var bestAt time.Time
	for i := range b.messages {
		m := b.messages[i]
		if _, ok := eligible[m.ConversationID]; !ok {
			continue
		}
		if !match(m) {
			continue
		}
		if best == uuid.Nil || m.CreatedAt.After(bestAt) {
			best = m.ConversationID
			bestAt = m.CreatedAt
		}
	}
	if best == uuid.Nil {
		return uuid.Nil, ErrNoConversation
	}
	return best, nil
}

func (b *memoryBackend) ConversationTenant(ctx context.Context, conversationID uuid.UUID) (*uuid.UUID, *uuid.UUID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	conv, ok := b.conversations[conversationID]
	if !ok {
		return nil, nil, ErrNoConversation
	}
	return conv.TenantID, conv.GroupID, nil
}

func (b *memoryBackend) LatestActiveTenant(ctx context.Context) (uuid.UUID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var best *Conversation
	for _, c := range b.conversations {
		if c.TenantID == nil {
			continue
		}
		if best == nil || c.UpdatedAt.After(best.UpdatedAt) {
			best = c
		}
	}
	if best == nil {
		return uuid.Nil, ErrNoConversation
	}
	return *best.TenantID, nil
}

type pipelineOptions struct {
	groups        groups.Store
	allowFallback bool
	dedupe        *DedupeStore
}

// newTestService wires the full pipeline over a memory backend.
func newTestService(backend *memoryBackend, opts pipelineOptions, people ...directory.Person) *Service {
	logger := logging.Default()
	groupStore := opts.groups
	if groupStore == nil {
		groupStore = groups.NewInMemoryStore()
	}
	return NewService(ServiceConfig{
		Identity:      NewIdentityResolver(directory.NewInMemoryRepository(people...), logger),
		Conversations: NewConversationResolver(backend, 0, logger),
		Tenants:       NewTenantAttributor(backend, groupStore, opts.allowFallback, logger),
		Persister:     backend,
		Dedupe:        opts.dedupe,
		Logger:        logger,
	})
}
