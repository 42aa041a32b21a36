package directory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository reads the people table populated by the membership
// service.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("directory: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// FindByPhone returns the single person stored with this exact phone string.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (*Person, error) {
	if phone == "" {
		return nil, ErrPersonNotFound
	}
	// LIMIT 2 so an ambiguous phone is distinguishable from a unique one.
	query := `
		SELECT id, first_name, last_name, phone, tenant_id, created_at
		FROM people
		WHERE phone = $1
		LIMIT 2
	`
	rows, err := r.pool.Query(ctx, query, phone)
	if err != nil {
		return nil, fmt.Errorf("directory: select by phone: %w", err)
	}
	defer rows.Close()

	var matches []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Phone, &p.TenantID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("directory: scan person: %w", err)
		}
		matches = append(matches, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: select by phone: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, ErrPersonNotFound
	case 1:
		p := matches[0]
		return &p, nil
	default:
		return nil, ErrAmbiguousPhone
	}
}

// ListWithPhone returns every person with a phone on file.
func (r *PostgresRepository) ListWithPhone(ctx context.Context) ([]Person, error) {
	query := `
		SELECT id, first_name, last_name, phone, tenant_id, created_at
		FROM people
		WHERE phone IS NOT NULL AND phone <> ''
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("directory: list with phone: %w", err)
	}
	defer rows.Close()

	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Phone, &p.TenantID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("directory: scan person: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
