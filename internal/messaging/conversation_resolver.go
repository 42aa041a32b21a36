package messaging

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/gracestack/church-comms-platform/internal/directory"
	"github.com/gracestack/church-comms-platform/pkg/logging"
)

// ErrNoConversation is returned by finder queries when nothing matches.
var ErrNoConversation = errors.New("messaging: no matching conversation")

// ConversationFinder is the read slice of the store the resolver needs. Each
// method returns the active conversation whose most recent qualifying message
// is newest, or ErrNoConversation.
type ConversationFinder interface {
	LatestConversationForPerson(ctx context.Context, personID uuid.UUID) (uuid.UUID, error)
	LatestConversationForNumbers(ctx context.Context, numbers []string) (uuid.UUID, error)
	LatestConversationForDigits(ctx context.Context, digits []string, window int) (uuid.UUID, error)
}

// Strategy names, also used as metric/log labels.
const (
	StrategyIdentity = "identity"
	StrategyNumber   = "number"
	StrategyDigits   = "digits"
)

type conversationStrategy struct {
	name    string
	resolve func(ctx context.Context, person *directory.Person, forms PhoneForms) (uuid.UUID, error)
}

// ConversationResolver decides which existing thread an inbound message
// continues. Strategies run in precedence order and the first hit wins:
// threading by identity beats threading by number, because a phone number can
// be reassigned while a person cannot.
type ConversationResolver struct {
	finder     ConversationFinder
	scanWindow int
	logger     *logging.Logger
	strategies []conversationStrategy
}

// DefaultScanWindow bounds the digit-scoped strategy to the most recently
// updated active conversations instead of the full table.
const DefaultScanWindow = 25

func NewConversationResolver(finder ConversationFinder, scanWindow int, logger *logging.Logger) *ConversationResolver {
	if finder == nil {
		panic("messaging: conversation finder required")
	}
	if scanWindow <= 0 {
		scanWindow = DefaultScanWindow
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &ConversationResolver{finder: finder, scanWindow: scanWindow, logger: logger}
	r.strategies = []conversationStrategy{
		{name: StrategyIdentity, resolve: r.byIdentity},
		{name: StrategyNumber, resolve: r.byNumber},
		{name: StrategyDigits, resolve: r.byDigits},
	}
	return r
}

// Resolve runs the cascade. It returns the matched conversation and the name
// of the strategy that found it, or ok=false when every strategy came up
// empty and the caller must create a thread. Query failures degrade to the
// next strategy rather than aborting.
func (r *ConversationResolver) Resolve(ctx context.Context, person *directory.Person, forms PhoneForms) (uuid.UUID, string, bool) {
	for _, s := range r.strategies {
		id, err := s.resolve(ctx, person, forms)
		if err == nil {
			return id, s.name, true
		}
		if !errors.Is(err, ErrNoConversation) {
			r.logger.Warn("conversation strategy failed", "strategy", s.name, "error", err)
		}
	}
	return uuid.Nil, "", false
}

func (r *ConversationResolver) byIdentity(ctx context.Context, person *directory.Person, _ PhoneForms) (uuid.UUID, error) {
	if person == nil {
		return uuid.Nil, ErrNoConversation
	}
	return r.finder.LatestConversationForPerson(ctx, person.ID)
}

func (r *ConversationResolver) byNumber(ctx context.Context, _ *directory.Person, forms PhoneForms) (uuid.UUID, error) {
	numbers := forms.NumberCandidates()
	if len(numbers) == 0 {
		return uuid.Nil, ErrNoConversation
	}
	return r.finder.LatestConversationForNumbers(ctx, numbers)
}

func (r *ConversationResolver) byDigits(ctx context.Context, _ *directory.Person, forms PhoneForms) (uuid.UUID, error) {
	digits := forms.DigitCandidates()
	if len(digits) == 0 {
		return uuid.Nil, ErrNoConversation
	}
	return r.finder.LatestConversationForDigits(ctx, digits, r.scanWindow)
}
