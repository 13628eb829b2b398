package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"kindred/internal/audit"
	dErrors "kindred/pkg/domain-errors"
	"kindred/pkg/requestcontext"
)

// Service wraps the ledger store with disposition orchestration: state
// machine enforcement, audit emission, and error translation. Handlers depend
// on this rather than on the store.
type Service struct {
	store  Store
	audit  *audit.Publisher
	logger *slog.Logger
}

// NewService constructs a ledger service. The audit publisher may be nil.
func NewService(store Store, auditPublisher *audit.Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, audit: auditPublisher, logger: logger}
}

// Get returns a candidate by entry ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*MatchCandidate, error) {
	c, err := s.store.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no such candidate")
	}
	return c, err
}

// List returns candidates matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*MatchCandidate, error) {
	return s.store.List(ctx, filter)
}

// Dispose applies a human or automated decision to a candidate. The state
// machine is one-directional; invalid transitions surface as conflicts. The
// load, transition check, and status write share one store transaction so a
// failed write leaves no trace.
func (s *Service) Dispose(ctx context.Context, id uuid.UUID, to Status, actor string) (*MatchCandidate, error) {
	var (
		c    *MatchCandidate
		from Status
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.Get(ctx, id)
		if err != nil {
			return err
		}

		from = c.Status
		now := requestcontext.Now(ctx)
		if err := c.Transition(to, now); err != nil {
			return err
		}
		if err := s.store.UpdateStatus(ctx, id, from, to, now); err != nil {
			if errors.Is(err, ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "no such candidate")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.TryEmit(ctx, audit.Event{
		Action:    audit.ActionCandidateDisposed,
		Candidate: c.ID,
		Pair:      c.Pair.String(),
		Actor:     actor,
		Detail:    string(from) + " -> " + string(to),
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "candidate disposed",
			"candidate_id", c.ID,
			"pair", c.Pair.String(),
			"from", from,
			"to", to,
			"actor", actor,
		)
	}
	return c, nil
}
