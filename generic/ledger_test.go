package generic_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/generic/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestLedger() (*generic.DefaultLedger, *store.Memory) {
	mem := store.NewMemory()
	ledger := generic.NewLedger(mem)
	ledger.Clock = generic.FixedClock(time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC))
	return ledger, mem
}

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func entry(t generic.EntryType, amount int64, date time.Time, source string) generic.Entry {
	return generic.Entry{
		Type:            t,
		Source:          source,
		Amount:          money(amount),
		TransactionDate: date,
	}
}

func record(t *testing.T, l generic.Ledger, e generic.Entry) generic.Entry {
	t.Helper()
	out, err := l.Record(context.Background(), e)
	require.NoError(t, err)
	return out
}

// =============================================================================
// BALANCE
// =============================================================================

func TestLedger_CurrentBalance_InflowsMinusOutflows(t *testing.T) {
	// GIVEN: 3 inflows of 1000 and 1 outflow of 500
	// THEN: balance is 2500
	ledger, _ := newTestLedger()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		record(t, ledger, entry(generic.EntryInflow, 1000, generic.NewDate(2024, time.January, 5+i), generic.SourceContribution))
	}
	record(t, ledger, entry(generic.EntryOutflow, 500, generic.NewDate(2024, time.January, 20), generic.SourceCashout))

	balance, err := ledger.CurrentBalance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.Equal(money(2500)), "got %s", balance)
}

func TestLedger_BalanceAsOf_IncludesEntriesOnThatDay(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	record(t, ledger, entry(generic.EntryInflow, 1000, generic.NewDate(2024, time.January, 10), generic.SourceContribution))
	record(t, ledger, entry(generic.EntryInflow, 300, generic.NewDate(2024, time.January, 31), generic.SourceContribution))
	record(t, ledger, entry(generic.EntryOutflow, 200, generic.NewDate(2024, time.February, 1), generic.SourceCashout))

	asOf, err := ledger.BalanceAsOf(ctx, generic.NewDate(2024, time.January, 31))
	require.NoError(t, err)
	assert.True(t, asOf.Equal(money(1300)), "got %s", asOf)

	before, err := ledger.BalanceAsOf(ctx, generic.NewDate(2024, time.January, 9))
	require.NoError(t, err)
	assert.True(t, before.IsZero())
}

func TestLedger_BalanceAsOf_EqualsBalanceOfPartition(t *testing.T) {
	// balanceAsOf(d) == currentBalance over only the entries dated <= d
	ledger, _ := newTestLedger()
	ctx := context.Background()

	var early []generic.Entry
	cut := generic.NewDate(2024, time.February, 15)
	for day := 1; day <= 28; day++ {
		date := generic.NewDate(2024, time.February, day)
		typ := generic.EntryInflow
		if day%3 == 0 {
			typ = generic.EntryOutflow
		}
		e := record(t, ledger, entry(typ, int64(day*10), date, "test"))
		if !generic.DayAfter(date, cut) {
			early = append(early, e)
		}
	}

	partitioned := generic.NewLedger(store.NewMemory())
	for _, e := range early {
		e.ID = ""
		record(t, partitioned, e)
	}

	want, err := partitioned.CurrentBalance(ctx)
	require.NoError(t, err)
	got, err := ledger.BalanceAsOf(ctx, cut)
	require.NoError(t, err)
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func TestLedger_BalanceAdditivity(t *testing.T) {
	// N inflows of a and M outflows of b give N*a - M*b
	cases := []struct{ n, a, m, b int64 }{
		{0, 0, 0, 0},
		{1, 100, 0, 50},
		{5, 1000, 3, 700},
		{2, 250, 4, 300},
	}
	for _, tc := range cases {
		ledger, _ := newTestLedger()
		date := generic.NewDate(2024, time.May, 1)
		for i := int64(0); i < tc.n; i++ {
			record(t, ledger, entry(generic.EntryInflow, tc.a, date, "in"))
		}
		for i := int64(0); i < tc.m; i++ {
			record(t, ledger, entry(generic.EntryOutflow, tc.b, date, "out"))
		}
		balance, err := ledger.CurrentBalance(context.Background())
		require.NoError(t, err)
		assert.True(t, balance.Equal(money(tc.n*tc.a-tc.m*tc.b)), "case %+v: got %s", tc, balance)
	}
}

// =============================================================================
// VALIDATION & IDEMPOTENCY
// =============================================================================

func TestLedger_Record_RejectsInvalidEntries(t *testing.T) {
	ledger, _ := newTestLedger()
	date := generic.NewDate(2024, time.January, 1)

	cases := map[string]generic.Entry{
		"zero amount":     entry(generic.EntryInflow, 0, date, "x"),
		"negative amount": entry(generic.EntryInflow, -5, date, "x"),
		"bad type":        entry("sideways", 10, date, "x"),
		"missing source":  entry(generic.EntryInflow, 10, date, ""),
		"missing date":    entry(generic.EntryInflow, 10, time.Time{}, "x"),
	}
	for name, e := range cases {
		_, err := ledger.Record(context.Background(), e)
		assert.ErrorIs(t, err, generic.ErrValidation, name)
	}
}

func TestLedger_Record_DuplicateIdempotencyKey(t *testing.T) {
	ledger, _ := newTestLedger()
	e := entry(generic.EntryOutflow, 500, generic.NewDate(2024, time.January, 1), generic.SourceLoanDisbursement)
	e.IdempotencyKey = "loan-1-disbursement"

	record(t, ledger, e)
	_, err := ledger.Record(context.Background(), e)
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)
}

// =============================================================================
// REVERSAL
// =============================================================================

func TestLedger_Reverse_OffsetsOriginal(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	original := record(t, ledger, entry(generic.EntryOutflow, 750, generic.NewDate(2024, time.March, 1), generic.SourceCashout))
	record(t, ledger, entry(generic.EntryInflow, 1000, generic.NewDate(2024, time.March, 1), generic.SourceContribution))

	reversal, err := ledger.Reverse(ctx, original.ID, "admin-1", "paid to wrong account")
	require.NoError(t, err)
	assert.Equal(t, generic.EntryInflow, reversal.Type)
	assert.Equal(t, original.ID, reversal.ReversalOf)
	assert.Equal(t, generic.Actor("admin-1"), reversal.RecordedBy)

	balance, err := ledger.CurrentBalance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.Equal(money(1000)), "got %s", balance)

	// Original is still there, untouched
	all, err := ledger.Entries(ctx, generic.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = ledger.Reverse(ctx, original.ID, "admin-1", "again")
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)

	_, err = ledger.Reverse(ctx, reversal.ID, "admin-1", "undo the undo")
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestLedger_Reverse_UnknownEntry(t *testing.T) {
	ledger, _ := newTestLedger()
	_, err := ledger.Reverse(context.Background(), "nope", "admin", "x")
	assert.True(t, generic.IsNotFound(err))
}

// =============================================================================
// MONTHLY SUMMARY
// =============================================================================

func TestLedger_MonthlySummary_GroupsByTypeAndSource(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	record(t, ledger, entry(generic.EntryInflow, 1000, generic.NewDate(2024, time.February, 1), generic.SourceContribution))
	record(t, ledger, entry(generic.EntryInflow, 1000, generic.NewDate(2024, time.February, 29), generic.SourceContribution))
	record(t, ledger, entry(generic.EntryInflow, 500, generic.NewDate(2024, time.February, 15), generic.SourceContributionFine))
	record(t, ledger, entry(generic.EntryOutflow, 18000, generic.NewDate(2024, time.February, 10), generic.SourceHealthClaim))
	record(t, ledger, entry(generic.EntryInflow, 9999, generic.NewDate(2024, time.March, 1), generic.SourceContribution))

	summary, err := ledger.MonthlySummary(ctx, 2024, time.February)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 3)

	assert.Equal(t, generic.EntryInflow, summary.Lines[0].Type)
	assert.Equal(t, generic.SourceContribution, summary.Lines[0].Source)
	assert.Equal(t, 2, summary.Lines[0].Count)
	assert.True(t, summary.Lines[0].Total.Equal(money(2000)))

	assert.Equal(t, generic.SourceContributionFine, summary.Lines[1].Source)
	assert.Equal(t, generic.EntryOutflow, summary.Lines[2].Type)

	assert.True(t, summary.TotalInflow.Equal(money(2500)))
	assert.True(t, summary.TotalOutflow.Equal(money(18000)))
	assert.True(t, summary.Net.Equal(money(-15500)))

	_, err = ledger.MonthlySummary(ctx, 2024, 13)
	assert.ErrorIs(t, err, generic.ErrValidation)
}
