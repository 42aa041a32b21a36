package groups

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrGroupNotFound is returned when a group id has no row.
var ErrGroupNotFound = errors.New("groups: group not found")

// Store resolves which tenant owns a group. Groups are managed elsewhere in
// the application; messaging only consults them for tenant attribution.
type Store interface {
	TenantForGroup(ctx context.Context, groupID uuid.UUID) (uuid.UUID, error)
}

// PostgresStore reads the groups table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("groups: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

// TenantForGroup implements Store.
func (s *PostgresStore) TenantForGroup(ctx context.Context, groupID uuid.UUID) (uuid.UUID, error) {
	query := `SELECT tenant_id FROM groups WHERE id = $1`
	var tenantID uuid.UUID
	if err := s.pool.QueryRow(ctx, query, groupID).Scan(&tenantID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrGroupNotFound
		}
		return uuid.Nil, fmt.Errorf("groups: select tenant: %w", err)
	}
	return tenantID, nil
}

// InMemoryStore is a Store backed by a map, for tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tenants: make(map[uuid.UUID]uuid.UUID)}
}

// Put registers a group under a tenant.
func (s *InMemoryStore) Put(groupID, tenantID uuid.UUID) {
	s.mu.Lock()
	s.tenants[groupID] = tenantID
	s.mu.Unlock()
}

// TenantForGroup implements Store.
func (s *InMemoryStore) TenantForGroup(ctx context.Context, groupID uuid.UUID) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenantID, ok := s.tenants[groupID]
	if !ok {
		return uuid.Nil, ErrGroupNotFound
	}
	return tenantID, nil
}
