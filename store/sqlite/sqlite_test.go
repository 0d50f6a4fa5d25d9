/*
sqlite_test.go - Store-level tests

Tests for:
- Sequences, status-guarded updates and transaction rollback
- Append-only ledger triggers
- Uniqueness rules surfacing as conflicts
*/
package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/welfare"
)

var testTime = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createMember(t *testing.T, s *Store, number string) *welfare.Member {
	t.Helper()
	m := &welfare.Member{
		RegistrationNumber: number,
		FullName:           "Ada Obi",
		Status:             welfare.MemberActive,
		RegistrationDate:   generic.NewDate(2024, time.January, 1),
		IsComplete:         true,
		Bank:               welfare.BankAccount{AccountNumber: "0123456789", BankName: "First Bank"},
		CreatedAt:          testTime,
		UpdatedAt:          testTime,
	}
	require.NoError(t, s.CreateMember(context.Background(), m))
	return m
}

func TestNextValue_IncrementsPerName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.NextValue(ctx, "RCP202406")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	other, err := s.NextValue(ctx, "RCP202407")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}

func TestGet_MissingRowIsNilNil(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m, err := s.GetMember(ctx, 42)
	assert.NoError(t, err)
	assert.Nil(t, m)

	l, err := s.GetLoan(ctx, 42)
	assert.NoError(t, err)
	assert.Nil(t, l)

	e, err := s.GetEntry(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, e)
}

func TestMember_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := createMember(t, s, "MCDF/00001")

	got, err := s.GetMember(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "MCDF/00001", got.RegistrationNumber)
	assert.Equal(t, welfare.MemberActive, got.Status)
	assert.Equal(t, generic.NewDate(2024, time.January, 1), got.RegistrationDate)
	assert.Equal(t, "0123456789", got.Bank.AccountNumber)
	assert.Nil(t, got.EligibilityStartDate)
	assert.True(t, got.IsComplete)
}

func TestUpdateMember_StatusGuard(t *testing.T) {
	// GIVEN: a member that another writer already suspended
	// WHEN: an update expecting "active" is written
	// THEN: ErrConcurrentModification and the row is untouched
	s := newTestStore(t)
	ctx := context.Background()
	m := createMember(t, s, "MCDF/00001")

	suspended := *m
	suspended.Status = welfare.MemberSuspended
	require.NoError(t, s.UpdateMember(ctx, &suspended, welfare.MemberActive))

	stale := *m
	stale.Status = welfare.MemberInactive
	err := s.UpdateMember(ctx, &stale, welfare.MemberActive)
	assert.ErrorIs(t, err, generic.ErrConcurrentModification)

	got, err := s.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, welfare.MemberSuspended, got.Status)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(st welfare.Store) error {
		m := &welfare.Member{
			RegistrationNumber: "MCDF/00001",
			FullName:           "Ada Obi",
			Status:             welfare.MemberPreRegistered,
			RegistrationDate:   testTime,
			CreatedAt:          testTime,
			UpdatedAt:          testTime,
		}
		if err := st.CreateMember(ctx, m); err != nil {
			return err
		}
		if _, err := st.NextValue(ctx, "MCDF"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	members, err := s.ListMembers(ctx, welfare.MemberFilter{})
	require.NoError(t, err)
	assert.Empty(t, members)

	next, err := s.NextValue(ctx, "MCDF")
	require.NoError(t, err)
	assert.Equal(t, int64(1), next, "sequence bump was rolled back")
}

// =============================================================================
// LEDGER
// =============================================================================

func TestLedger_AppendOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	memberID := createMember(t, s, "MCDF/00001").ID

	entry := generic.Entry{
		ID:              "entry-1",
		Type:            generic.EntryInflow,
		Source:          generic.SourceContribution,
		Amount:          decimal.RequireFromString("1000.50"),
		TransactionDate: generic.NewDate(2024, time.June, 1),
		MemberID:        &memberID,
		IdempotencyKey:  "contribution-RCP2024060001",
		RecordedBy:      "admin-1",
		CreatedAt:       testTime,
	}
	require.NoError(t, s.AppendEntry(ctx, entry))

	_, err := s.db.ExecContext(ctx, "UPDATE ledger_entries SET amount = '1' WHERE id = ?", "entry-1")
	assert.Error(t, err)
	_, err = s.db.ExecContext(ctx, "DELETE FROM ledger_entries WHERE id = ?", "entry-1")
	assert.Error(t, err)

	got, err := s.GetEntry(ctx, "entry-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Amount.Equal(entry.Amount), "got %s", got.Amount)
	assert.Equal(t, memberID, *got.MemberID)

	exists, err := s.EntryExists(ctx, "contribution-RCP2024060001")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLedger_LoadEntriesFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, date := range []time.Time{
		generic.NewDate(2024, time.May, 31),
		generic.NewDate(2024, time.June, 1),
		generic.NewDate(2024, time.June, 30),
	} {
		require.NoError(t, s.AppendEntry(ctx, generic.Entry{
			ID:              generic.EntryID(string(rune('a' + i))),
			Type:            generic.EntryOutflow,
			Source:          generic.SourceCashout,
			Amount:          decimal.NewFromInt(100),
			TransactionDate: date,
			CreatedAt:       testTime,
		}))
	}

	from := generic.NewDate(2024, time.June, 1)
	to := generic.NewDate(2024, time.June, 30)
	entries, err := s.LoadEntries(ctx, generic.EntryFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// =============================================================================
// UNIQUENESS
// =============================================================================

func TestCashout_OneOpenRequestPerMember(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := createMember(t, s, "MCDF/00001")

	newRequest := func() *welfare.CashoutRequest {
		return &welfare.CashoutRequest{
			MemberID:        m.ID,
			RequestedAmount: decimal.NewFromInt(500),
			Status:          welfare.CashoutPending,
			CreatedAt:       testTime,
			UpdatedAt:       testTime,
		}
	}

	first := newRequest()
	require.NoError(t, s.CreateCashout(ctx, first))

	err := s.CreateCashout(ctx, newRequest())
	assert.ErrorIs(t, err, generic.ErrConflict)

	open, err := s.HasOpenCashout(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, open)

	first.Status = welfare.CashoutRejected
	first.Rejected = &welfare.StageStamp{By: "admin-1", At: testTime, Notes: "duplicate"}
	require.NoError(t, s.UpdateCashout(ctx, first, welfare.CashoutPending))

	assert.NoError(t, s.CreateCashout(ctx, newRequest()), "a closed request frees the slot")
}

func TestEnrollment_OncePerProgram(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := createMember(t, s, "MCDF/00001")

	p := &welfare.Program{Name: "Tailoring", Active: true, CreatedAt: testTime, UpdatedAt: testTime}
	require.NoError(t, s.CreateProgram(ctx, p))

	enroll := func() error {
		return s.CreateEnrollment(ctx, &welfare.Enrollment{
			ProgramID:  p.ID,
			MemberID:   m.ID,
			Status:     welfare.EnrollmentEnrolled,
			EnrolledAt: testTime,
			UpdatedAt:  testTime,
		})
	}
	require.NoError(t, enroll())
	assert.ErrorIs(t, enroll(), generic.ErrConflict)

	taken, err := s.CountEnrollments(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, taken)
}

func TestProgram_RulesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	minPaid := 3
	p := &welfare.Program{
		Name:      "Welding",
		Capacity:  10,
		Rules:     welfare.EligibilityRules{MinContributions: &minPaid},
		Active:    true,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
	require.NoError(t, s.CreateProgram(ctx, p))

	got, err := s.GetProgram(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Rules.MinContributions)
	assert.Equal(t, 3, *got.Rules.MinContributions)
	assert.Nil(t, got.Rules.MinAge)
	assert.Equal(t, 10, got.Capacity)
}
