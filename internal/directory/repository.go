package directory

import (
	"context"
	"sync"
)

// Repository defines read access to the person directory.
type Repository interface {
	// FindByPhone returns the single person whose stored phone exactly equals
	// the given string. ErrPersonNotFound when none match, ErrAmbiguousPhone
	// when more than one does.
	FindByPhone(ctx context.Context, phone string) (*Person, error)
	// ListWithPhone returns every person that has a non-empty phone on file.
	ListWithPhone(ctx context.Context) ([]Person, error)
}

// InMemoryRepository is a Repository backed by a map, used in tests and
// single-process development setups.
type InMemoryRepository struct {
	mu     sync.RWMutex
	people []Person
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository(people ...Person) *InMemoryRepository {
	return &InMemoryRepository{people: people}
}

// Add appends a person to the directory.
func (r *InMemoryRepository) Add(p Person) {
	r.mu.Lock()
	r.people = append(r.people, p)
	r.mu.Unlock()
}

// FindByPhone implements Repository.
func (r *InMemoryRepository) FindByPhone(ctx context.Context, phone string) (*Person, error) {
	if phone == "" {
		return nil, ErrPersonNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *Person
	for i := range r.people {
		if r.people[i].Phone != phone {
			continue
		}
		if found != nil {
			return nil, ErrAmbiguousPhone
		}
		p := r.people[i]
		found = &p
	}
	if found == nil {
		return nil, ErrPersonNotFound
	}
	return found, nil
}

// ListWithPhone implements Repository.
func (r *InMemoryRepository) ListWithPhone(ctx context.Context) ([]Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Person, 0, len(r.people))
	for _, p := range r.people {
		if p.Phone == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
