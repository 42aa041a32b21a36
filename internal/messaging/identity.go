package messaging

import (
	"context"
	"errors"

	"github.com/gracestack/church-comms-platform/internal/directory"
	"github.com/gracestack/church-comms-platform/pkg/logging"
)

// IdentityResolver maps a sender phone number to a directory person. The
// directory was populated over time by several import paths and is not
// uniformly normalized, so exact lookups are tried form by form before a
// digit-only scan of the whole directory.
type IdentityResolver struct {
	directory directory.Repository
	logger    *logging.Logger
}

func NewIdentityResolver(repo directory.Repository, logger *logging.Logger) *IdentityResolver {
	if repo == nil {
		panic("messaging: directory repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IdentityResolver{directory: repo, logger: logger}
}

// Resolve returns the person who sent from this number, or nil when no step
// of the cascade yields exactly one match. An unresolved identity is not an
// error; lookup failures degrade to the next step.
func (r *IdentityResolver) Resolve(ctx context.Context, forms PhoneForms) *directory.Person {
	for _, candidate := range forms.LookupCandidates() {
		person, err := r.directory.FindByPhone(ctx, candidate)
		if err == nil {
			return person
		}
		if errors.Is(err, directory.ErrPersonNotFound) || errors.Is(err, directory.ErrAmbiguousPhone) {
			continue
		}
		r.logger.Warn("directory lookup failed", "error", err, "candidate", candidate)
	}
	return r.scanByDigits(ctx, forms.DigitCandidates())
}

// scanByDigits compares every directory phone digit-for-digit. Catches
// entries stored with punctuation no exact form predicts, e.g. "(925) 550.1617",
// and country-code mismatches between the stored and inbound forms.
func (r *IdentityResolver) scanByDigits(ctx context.Context, digits []string) *directory.Person {
	if len(digits) == 0 {
		return nil
	}
	people, err := r.directory.ListWithPhone(ctx)
	if err != nil {
		r.logger.Warn("directory scan failed", "error", err)
		return nil
	}
	var found *directory.Person
	for i := range people {
		if !matchesAnyDigits(people[i].Phone, digits) {
			continue
		}
		if found != nil {
			// More than one entry shares these digits; refuse to guess.
			return nil
		}
		p := people[i]
		found = &p
	}
	return found
}

func matchesAnyDigits(phone string, digits []string) bool {
	stored := sanitizePhone(phone)
	if stored == "" {
		return false
	}
	for _, d := range digits {
		if stored == d {
			return true
		}
	}
	return false
}
