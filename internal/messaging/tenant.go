package messaging

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/gracestack/church-comms-platform/internal/directory"
	"github.com/gracestack/church-comms-platform/internal/groups"
	"github.com/gracestack/church-comms-platform/internal/tenancy"
	"github.com/gracestack/church-comms-platform/pkg/logging"
)

// TenantSource is the read slice of the store tenant attribution needs.
type TenantSource interface {
	// ConversationTenant returns a conversation's own tenant and group refs.
	ConversationTenant(ctx context.Context, conversationID uuid.UUID) (tenantID, groupID *uuid.UUID, err error)
	// LatestActiveTenant returns the tenant of the most recently updated
	// conversation anywhere that has one, or ErrNoConversation.
	LatestActiveTenant(ctx context.Context) (uuid.UUID, error)
}

// TenantAttributor decides which organization owns an inbound message, first
// non-nil signal wins: a tenant already bound to the request context (numbers
// provisioned for a single congregation are routed with their tenant pinned),
// the sender's membership, the matched conversation's tenant, that
// conversation's group tenant, then the most recently active
// tenant in the system. The last step assumes a single-tenant-dominant
// deployment and can misattribute in true multi-tenant setups, so it is
// switchable; with it off an unresolved tenant stays nil.
type TenantAttributor struct {
	store         TenantSource
	groups        groups.Store
	allowFallback bool
	logger        *logging.Logger
}

func NewTenantAttributor(store TenantSource, groupStore groups.Store, allowFallback bool, logger *logging.Logger) *TenantAttributor {
	if store == nil {
		panic("messaging: tenant source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TenantAttributor{store: store, groups: groupStore, allowFallback: allowFallback, logger: logger}
}

// Resolve returns the owning tenant or nil. Never an error: an unresolved
// tenant is a data-quality signal, not a failure.
func (a *TenantAttributor) Resolve(ctx context.Context, person *directory.Person, conversationID uuid.UUID) *uuid.UUID {
	if t, ok := tenancy.TenantIDFromContext(ctx); ok {
		return &t
	}
	if person != nil && person.TenantID != nil {
		return person.TenantID
	}
	if conversationID != uuid.Nil {
		tenantID, groupID, err := a.store.ConversationTenant(ctx, conversationID)
		switch {
		case err != nil:
			if !errors.Is(err, ErrNoConversation) {
				a.logger.Warn("conversation tenant lookup failed", "error", err, "conversation_id", conversationID)
			}
		case tenantID != nil:
			return tenantID
		case groupID != nil && a.groups != nil:
			if t, err := a.groups.TenantForGroup(ctx, *groupID); err == nil {
				return &t
			} else if !errors.Is(err, groups.ErrGroupNotFound) {
				a.logger.Warn("group tenant lookup failed", "error", err, "group_id", *groupID)
			}
		}
	}
	if a.allowFallback {
		if t, err := a.store.LatestActiveTenant(ctx); err == nil {
			return &t
		} else if !errors.Is(err, ErrNoConversation) {
			a.logger.Warn("tenant fallback lookup failed", "error", err)
		}
	}
	return nil
}
