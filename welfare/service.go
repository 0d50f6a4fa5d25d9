package welfare

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcdf/welfare-engine/generic"
)

// =============================================================================
// SERVICE - Workflow operations with transactional guarantees
// =============================================================================

// Service runs every welfare workflow. Each write loads the entity, applies
// the transition on the in-memory copy, then persists it with a status
// compare-and-swap and any ledger entries inside one WithTx.
type Service struct {
	Store  TxStore
	Clock  generic.Clock
	Logger *slog.Logger
}

func NewService(store TxStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{Store: store, Clock: generic.SystemClock, Logger: logger}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return generic.SystemClock()
	}
	return s.Clock()
}

// Now reports the service clock, for callers that default "as of" dates.
func (s *Service) Now() time.Time { return s.now() }

func (s *Service) log() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// ledgerFor binds the fund ledger to a store, usually the one inside WithTx.
func (s *Service) ledgerFor(st generic.LedgerStore) *generic.DefaultLedger {
	return &generic.DefaultLedger{Store: st, Clock: s.now}
}

// Ledger returns the fund ledger over the service's store.
func (s *Service) Ledger() generic.Ledger {
	return s.ledgerFor(s.Store)
}

// load fetches one row and turns a missing row into a NotFoundError.
func load[T any](ctx context.Context, get func(context.Context, int64) (*T, error), entity string, id int64) (*T, error) {
	v, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, generic.NotFound(entity, id)
	}
	return v, nil
}

func (s *Service) post(ctx context.Context, st Store, entries ...generic.Entry) error {
	l := s.ledgerFor(st)
	for _, e := range entries {
		if _, err := l.Record(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// LEDGER
// =============================================================================

func (s *Service) RecordEntry(ctx context.Context, e generic.Entry, actor generic.Actor) (generic.Entry, error) {
	if err := generic.RequireActor(actor); err != nil {
		return generic.Entry{}, err
	}
	e.RecordedBy = actor
	recorded, err := s.Ledger().Record(ctx, e)
	if err != nil {
		return generic.Entry{}, err
	}
	s.log().Info("ledger entry recorded", "id", recorded.ID, "type", recorded.Type, "source", recorded.Source, "amount", recorded.Amount.StringFixed(2), "actor", actor)
	return recorded, nil
}

func (s *Service) ReverseEntry(ctx context.Context, id generic.EntryID, actor generic.Actor, reason string) (generic.Entry, error) {
	if err := generic.RequireActor(actor); err != nil {
		return generic.Entry{}, err
	}
	if reason == "" {
		return generic.Entry{}, generic.Invalid("reason", "a reversal reason is required")
	}
	reversal, err := s.Ledger().Reverse(ctx, id, actor, reason)
	if err != nil {
		return generic.Entry{}, err
	}
	s.log().Info("ledger entry reversed", "id", id, "reversal_id", reversal.ID, "actor", actor)
	return reversal, nil
}

func (s *Service) LedgerEntries(ctx context.Context, filter generic.EntryFilter) ([]generic.Entry, error) {
	return s.Ledger().Entries(ctx, filter)
}

func (s *Service) CurrentBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.Ledger().CurrentBalance(ctx)
}

func (s *Service) BalanceAsOf(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	return s.Ledger().BalanceAsOf(ctx, date)
}

func (s *Service) MonthlySummary(ctx context.Context, year int, month time.Month) (*generic.MonthlySummary, error) {
	return s.Ledger().MonthlySummary(ctx, year, month)
}
