package welfare_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/welfare"
)

func disbursedLoan(t *testing.T, amount int64, period string) welfare.Loan {
	t.Helper()
	l := welfare.Loan{
		ID:              3,
		MemberID:        1,
		Amount:          money(amount),
		RepaymentMode:   welfare.RepaymentInstallments,
		RepaymentPeriod: period,
		Status:          welfare.LoanPending,
	}
	require.NoError(t, l.Approve("admin-1", day(2024, time.January, 5)))
	require.NoError(t, l.Disburse("admin-1", day(2024, time.January, 10)))
	return l
}

func repayment(amount int64, date time.Time) welfare.LoanRepayment {
	return welfare.LoanRepayment{Amount: money(amount), PaymentDate: date}
}

func TestParseRepaymentMonths(t *testing.T) {
	assert.Equal(t, 6, welfare.ParseRepaymentMonths("6 months"))
	assert.Equal(t, 12, welfare.ParseRepaymentMonths("12"))
	assert.Equal(t, 3, welfare.ParseRepaymentMonths("3months"))
	assert.Equal(t, welfare.DefaultRepaymentMonths, welfare.ParseRepaymentMonths("half a year"))
	assert.Equal(t, welfare.DefaultRepaymentMonths, welfare.ParseRepaymentMonths(""))
}

func TestLoan_ApplyInstallment(t *testing.T) {
	// GIVEN: 60000 over "6 months"
	// THEN: installment is 10000
	l := welfare.Loan{Amount: money(60000), RepaymentMode: welfare.RepaymentInstallments, RepaymentPeriod: "6 months"}
	l.ApplyInstallment()
	require.NotNil(t, l.InstallmentAmount)
	assert.True(t, l.InstallmentAmount.Equal(money(10000)), "got %s", l.InstallmentAmount)

	// A given installment is kept.
	given := money(7000)
	l = welfare.Loan{Amount: money(60000), RepaymentMode: welfare.RepaymentInstallments, InstallmentAmount: &given}
	l.ApplyInstallment()
	assert.True(t, l.InstallmentAmount.Equal(given))

	// Full repayment carries none.
	l = welfare.Loan{Amount: money(60000), RepaymentMode: welfare.RepaymentFull}
	l.ApplyInstallment()
	assert.Nil(t, l.InstallmentAmount)
}

func TestLoan_OutstandingIsAmountMinusRepayments(t *testing.T) {
	l := disbursedLoan(t, 60000, "6 months")

	for i, amount := range []int64{10000, 10000, 5000} {
		closed, err := l.AddRepayment(repayment(amount, day(2024, time.February, 1+i)), testNow)
		require.NoError(t, err)
		assert.False(t, closed)
		assert.True(t, l.OutstandingBalance().Equal(l.Amount.Sub(l.TotalRepaid())))
	}
	assert.True(t, l.TotalRepaid().Equal(money(25000)))
	assert.True(t, l.OutstandingBalance().Equal(money(35000)))
	assert.Equal(t, welfare.LoanDisbursed, l.Status)
}

func TestLoan_AddRepayment_ClosesWhenSettled(t *testing.T) {
	// GIVEN: a disbursed 1000 loan
	// WHEN: 400 then 700 are repaid
	// THEN: the loan closes as repaid with -100 outstanding
	l := disbursedLoan(t, 1000, "2 months")

	closed, err := l.AddRepayment(repayment(400, day(2024, time.February, 1)), testNow)
	require.NoError(t, err)
	assert.False(t, closed)

	closed, err = l.AddRepayment(repayment(700, day(2024, time.March, 1)), testNow)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, welfare.LoanRepaid, l.Status)
	assert.NotNil(t, l.ClosedAt)
	assert.True(t, l.OutstandingBalance().Equal(money(-100)))

	_, err = l.AddRepayment(repayment(1, day(2024, time.March, 2)), testNow)
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

func TestLoan_AddRepayment_Validation(t *testing.T) {
	l := disbursedLoan(t, 1000, "2 months")

	_, err := l.AddRepayment(repayment(0, day(2024, time.February, 1)), testNow)
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = l.AddRepayment(welfare.LoanRepayment{Amount: money(10)}, testNow)
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Empty(t, l.Repayments)
}

func TestLoan_Disburse_SetsStartAndDueDate(t *testing.T) {
	l := disbursedLoan(t, 60000, "6 months")

	require.NotNil(t, l.StartDate)
	assert.Equal(t, day(2024, time.January, 10), *l.StartDate)
	assert.Equal(t, day(2024, time.July, 10), *l.DueDate())
	assert.Equal(t, generic.Actor("admin-1"), l.DisbursedBy)
}

func TestLoan_IsOverdue(t *testing.T) {
	l := disbursedLoan(t, 60000, "6 months")

	assert.False(t, l.IsOverdue(day(2024, time.July, 10)), "due date itself is not overdue")
	assert.True(t, l.IsOverdue(day(2024, time.July, 11)))

	_, err := l.AddRepayment(repayment(60000, day(2024, time.June, 1)), testNow)
	require.NoError(t, err)
	assert.False(t, l.IsOverdue(day(2024, time.December, 1)))
}

func TestLoan_MarkRepaid_RequiresSettledBalance(t *testing.T) {
	l := disbursedLoan(t, 1000, "1 month")
	before := l

	err := l.MarkRepaid(testNow)
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Equal(t, before, l)

	require.NoError(t, l.MarkDefaulted(testNow))
	assert.Equal(t, welfare.LoanDefaulted, l.Status)
}

func TestLoan_FailedTransitionLeavesLoanUnchanged(t *testing.T) {
	l := welfare.Loan{ID: 9, MemberID: 1, Amount: money(500), RepaymentMode: welfare.RepaymentFull, Status: welfare.LoanPending}
	before := l

	assert.ErrorIs(t, l.Disburse("admin-1", testNow), generic.ErrInvalidTransition)
	assert.ErrorIs(t, l.MarkDefaulted(testNow), generic.ErrInvalidTransition)
	assert.ErrorIs(t, l.Approve("", testNow), generic.ErrValidation)
	assert.Equal(t, before, l)
}
