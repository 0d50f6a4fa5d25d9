/*
ledger.go - Append-only fund ledger

PURPOSE:
  The Ledger is the immutable record of every cash movement in and out of
  the fund. Contribution receipts, loan disbursements and repayments, claim
  payments and cashouts all land here. The fund balance is always computed
  by summing entries - there's no separate "balance" field that can drift.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, entries cannot be modified
  3. IDEMPOTENT: Same idempotency key = same entry (no duplicates)
  4. balance = Σ inflow.amount − Σ outflow.amount (optionally bounded by date)

CORRECTIONS:
  A wrong entry is never edited. Instead:
  1. Reverse() writes an entry of the opposite type for the same amount
  2. Both original and reversal remain in the ledger
  3. Net effect is zero, history is preserved

EXAMPLE FLOW:
  1. Contribution received:   inflow  +1000 (contribution)
  2. Late fine received:      inflow  +500  (contribution_fine)
  3. Cashout disbursed:       outflow -700  (cashout)

  Balance: 1000 + 500 - 700 = 800

SEE ALSO:
  - store.go: LedgerStore persistence interface
  - store/memory.go: In-memory LedgerStore
  - store/sqlite: SQLite LedgerStore
*/
package generic

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTRY - One immutable cash movement
// =============================================================================

type EntryType string

const (
	EntryInflow  EntryType = "inflow"
	EntryOutflow EntryType = "outflow"
)

func (t EntryType) Valid() bool { return t == EntryInflow || t == EntryOutflow }

// Opposite returns the type that offsets t.
func (t EntryType) Opposite() EntryType {
	if t == EntryInflow {
		return EntryOutflow
	}
	return EntryInflow
}

type EntryID string

// Common ledger sources. Source is free-form; these are the ones the
// workflows write.
const (
	SourceContribution     = "contribution"
	SourceContributionFine = "contribution_fine"
	SourceLoanDisbursement = "loan_disbursement"
	SourceLoanRepayment    = "loan_repayment"
	SourceHealthClaim      = "health_claim"
	SourceCashout          = "cashout"
	SourceReversal         = "reversal"
)

type Entry struct {
	ID              EntryID
	Type            EntryType
	Source          string
	Amount          decimal.Decimal // always positive; Type carries the sign
	TransactionDate time.Time
	MemberID        *int64
	Reference       string // e.g. "loan:12", "RCP2024020001"
	Description     string
	IdempotencyKey  string
	ReversalOf      EntryID

	// Audit fields
	RecordedBy Actor
	CreatedAt  time.Time
}

// Signed returns the entry's contribution to the balance.
func (e Entry) Signed() decimal.Decimal {
	if e.Type == EntryOutflow {
		return e.Amount.Neg()
	}
	return e.Amount
}

// EntryFilter narrows a ledger read. Zero fields match everything.
// From and To are inclusive calendar days.
type EntryFilter struct {
	From     *time.Time
	To       *time.Time
	MemberID *int64
	Type     EntryType
	Source   string
}

// Matches reports whether e passes the filter.
func (f EntryFilter) Matches(e Entry) bool {
	if f.From != nil && DayBefore(e.TransactionDate, *f.From) {
		return false
	}
	if f.To != nil && DayAfter(e.TransactionDate, *f.To) {
		return false
	}
	if f.MemberID != nil && (e.MemberID == nil || *e.MemberID != *f.MemberID) {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Source != "" && e.Source != f.Source {
		return false
	}
	return true
}

// =============================================================================
// AGGREGATION - Pure functions over entry sets
// =============================================================================

// Balance returns Σ inflow − Σ outflow.
func Balance(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Signed())
	}
	return Money(total)
}

// BalanceAsOf returns the balance of entries dated on or before date.
func BalanceAsOf(entries []Entry, date time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if DayAfter(e.TransactionDate, date) {
			continue
		}
		total = total.Add(e.Signed())
	}
	return Money(total)
}

// SummaryLine is the total for one (type, source) pair.
type SummaryLine struct {
	Type   EntryType
	Source string
	Total  decimal.Decimal
	Count  int
}

type MonthlySummary struct {
	Year         int
	Month        time.Month
	Lines        []SummaryLine
	TotalInflow  decimal.Decimal
	TotalOutflow decimal.Decimal
	Net          decimal.Decimal
}

// Summarize groups the entries dated in year/month by (type, source).
// Lines are ordered inflows first, then by source.
func Summarize(entries []Entry, year int, month time.Month) *MonthlySummary {
	period := Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}

	type groupKey struct {
		t EntryType
		s string
	}
	groups := make(map[groupKey]*SummaryLine)
	summary := &MonthlySummary{
		Year:         year,
		Month:        month,
		TotalInflow:  decimal.Zero,
		TotalOutflow: decimal.Zero,
	}

	for _, e := range entries {
		if !period.Contains(e.TransactionDate) {
			continue
		}
		k := groupKey{e.Type, e.Source}
		line, ok := groups[k]
		if !ok {
			line = &SummaryLine{Type: e.Type, Source: e.Source, Total: decimal.Zero}
			groups[k] = line
		}
		line.Total = line.Total.Add(e.Amount)
		line.Count++
		if e.Type == EntryInflow {
			summary.TotalInflow = summary.TotalInflow.Add(e.Amount)
		} else {
			summary.TotalOutflow = summary.TotalOutflow.Add(e.Amount)
		}
	}

	for _, line := range groups {
		summary.Lines = append(summary.Lines, *line)
	}
	sort.Slice(summary.Lines, func(i, j int) bool {
		if summary.Lines[i].Type != summary.Lines[j].Type {
			return summary.Lines[i].Type == EntryInflow
		}
		return summary.Lines[i].Source < summary.Lines[j].Source
	})

	summary.TotalInflow = Money(summary.TotalInflow)
	summary.TotalOutflow = Money(summary.TotalOutflow)
	summary.Net = summary.TotalInflow.Sub(summary.TotalOutflow)
	return summary
}

// =============================================================================
// LEDGER - Append-only fund ledger
// =============================================================================

// Ledger is the source of truth for the fund balance.
//
// INVARIANTS:
//   - Append-only: No Update, No Delete. EVER.
//   - Immutable: Once written, entries cannot be modified.
//
// Corrections are made via Reverse, not edits.
type Ledger interface {
	// Record validates and appends an entry. Fails if the idempotency key
	// exists. This is the ONLY write path besides Reverse.
	Record(ctx context.Context, e Entry) (Entry, error)

	// Reverse appends the offsetting entry for id.
	Reverse(ctx context.Context, id EntryID, actor Actor, reason string) (Entry, error)

	Entries(ctx context.Context, filter EntryFilter) ([]Entry, error)
	CurrentBalance(ctx context.Context) (decimal.Decimal, error)
	BalanceAsOf(ctx context.Context, date time.Time) (decimal.Decimal, error)
	MonthlySummary(ctx context.Context, year int, month time.Month) (*MonthlySummary, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using LedgerStore
// =============================================================================

type DefaultLedger struct {
	Store LedgerStore
	Clock Clock
}

func NewLedger(store LedgerStore) *DefaultLedger {
	return &DefaultLedger{Store: store, Clock: SystemClock}
}

// ValidateEntry checks an entry before it is appended.
func ValidateEntry(e Entry) error {
	if !e.Type.Valid() {
		return Invalid("type", "must be inflow or outflow, got %q", e.Type)
	}
	if e.Source == "" {
		return Invalid("source", "is required")
	}
	if !e.Amount.IsPositive() {
		return Invalid("amount", "must be greater than zero, got %s", e.Amount.String())
	}
	if e.TransactionDate.IsZero() {
		return Invalid("transaction_date", "is required")
	}
	return nil
}

func (l *DefaultLedger) Record(ctx context.Context, e Entry) (Entry, error) {
	if err := ValidateEntry(e); err != nil {
		return Entry{}, err
	}
	if e.IdempotencyKey != "" {
		exists, err := l.Store.EntryExists(ctx, e.IdempotencyKey)
		if err != nil {
			return Entry{}, err
		}
		if exists {
			return Entry{}, ErrDuplicateIdempotencyKey
		}
	}

	if e.ID == "" {
		e.ID = EntryID(uuid.NewString())
	}
	e.Amount = Money(e.Amount)
	e.TransactionDate = Date(e.TransactionDate)
	e.CreatedAt = l.now()
	if e.RecordedBy == "" {
		e.RecordedBy = System
	}

	if err := l.Store.AppendEntry(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return e, nil
}

func (l *DefaultLedger) Reverse(ctx context.Context, id EntryID, actor Actor, reason string) (Entry, error) {
	original, err := l.Store.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if original == nil {
		return Entry{}, NotFound("ledger entry", id)
	}
	if original.ReversalOf != "" {
		return Entry{}, Invalid("id", "entry %s is itself a reversal of %s", id, original.ReversalOf)
	}

	return l.Record(ctx, Entry{
		Type:            original.Type.Opposite(),
		Source:          SourceReversal,
		Amount:          original.Amount,
		TransactionDate: l.now(),
		MemberID:        original.MemberID,
		Reference:       original.Reference,
		Description:     fmt.Sprintf("reversal of %s: %s", id, reason),
		IdempotencyKey:  "reversal-" + string(id),
		ReversalOf:      id,
		RecordedBy:      actor,
	})
}

func (l *DefaultLedger) Entries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	return l.Store.LoadEntries(ctx, filter)
}

func (l *DefaultLedger) CurrentBalance(ctx context.Context) (decimal.Decimal, error) {
	entries, err := l.Store.LoadEntries(ctx, EntryFilter{})
	if err != nil {
		return decimal.Zero, err
	}
	return Balance(entries), nil
}

func (l *DefaultLedger) BalanceAsOf(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	entries, err := l.Store.LoadEntries(ctx, EntryFilter{To: &date})
	if err != nil {
		return decimal.Zero, err
	}
	return BalanceAsOf(entries, date), nil
}

func (l *DefaultLedger) MonthlySummary(ctx context.Context, year int, month time.Month) (*MonthlySummary, error) {
	if month < time.January || month > time.December {
		return nil, Invalid("month", "must be between 1 and 12, got %d", month)
	}
	from, to := StartOfMonth(year, month), EndOfMonth(year, month)
	entries, err := l.Store.LoadEntries(ctx, EntryFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	return Summarize(entries, year, month), nil
}

func (l *DefaultLedger) now() time.Time {
	if l.Clock == nil {
		return SystemClock()
	}
	return l.Clock()
}
