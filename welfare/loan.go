package welfare

import (
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcdf/welfare-engine/generic"
)

// =============================================================================
// LOAN
// =============================================================================
//
//   pending ──approve──▶ approved ──disburse──▶ disbursed ──▶ repaid
//                                                   └──────▶ defaulted
//
// Rejection is recorded through Approval, not as a loan status.

type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanApproved  LoanStatus = "approved"
	LoanDisbursed LoanStatus = "disbursed"
	LoanRepaid    LoanStatus = "repaid"
	LoanDefaulted LoanStatus = "defaulted"
)

// IsOpen reports whether the loan blocks the member from a new one.
func (s LoanStatus) IsOpen() bool {
	return s == LoanApproved || s == LoanDisbursed
}

type RepaymentMode string

const (
	RepaymentInstallments RepaymentMode = "installments"
	RepaymentFull         RepaymentMode = "full"
)

func (m RepaymentMode) Valid() bool {
	return m == RepaymentInstallments || m == RepaymentFull
}

// DefaultRepaymentMonths applies when the repayment period has no number in it.
const DefaultRepaymentMonths = 6

var leadingMonths = regexp.MustCompile(`\d+`)

// ParseRepaymentMonths extracts the month count from free text such as
// "6 months" or "12".
func ParseRepaymentMonths(period string) int {
	match := leadingMonths.FindString(period)
	if match == "" {
		return DefaultRepaymentMonths
	}
	n, err := strconv.Atoi(match)
	if err != nil || n <= 0 {
		return DefaultRepaymentMonths
	}
	return n
}

type LoanRepayment struct {
	ID          int64
	LoanID      int64
	Amount      decimal.Decimal
	PaymentDate time.Time
	Reference   string
	RecordedBy  generic.Actor
	CreatedAt   time.Time
}

type Loan struct {
	ID                int64
	MemberID          int64
	Amount            decimal.Decimal
	RepaymentMode     RepaymentMode
	InstallmentAmount *decimal.Decimal
	RepaymentPeriod   string
	Purpose           string
	Status            LoanStatus
	StartDate         *time.Time
	ApprovedBy        generic.Actor
	ApprovedAt        *time.Time
	DisbursedBy       generic.Actor
	DisbursedAt       *time.Time
	ClosedAt          *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Repayments is loaded with the loan; derived balances read from it.
	Repayments []LoanRepayment
}

func (l *Loan) Validate() error {
	if l.MemberID == 0 {
		return generic.Invalid("member_id", "is required")
	}
	if !l.Amount.IsPositive() {
		return generic.Invalid("amount", "must be greater than zero")
	}
	if !l.RepaymentMode.Valid() {
		return generic.Invalid("repayment_mode", "must be installments or full")
	}
	if l.InstallmentAmount != nil && !l.InstallmentAmount.IsPositive() {
		return generic.Invalid("installment_amount", "must be greater than zero")
	}
	return nil
}

// ApplyInstallment fills installment_amount for installment loans that
// don't carry one.
func (l *Loan) ApplyInstallment() {
	if l.RepaymentMode != RepaymentInstallments || l.InstallmentAmount != nil {
		return
	}
	months := decimal.NewFromInt(int64(ParseRepaymentMonths(l.RepaymentPeriod)))
	installment := generic.Money(l.Amount.Div(months))
	l.InstallmentAmount = &installment
}

// Months is the repayment term.
func (l *Loan) Months() int {
	return ParseRepaymentMonths(l.RepaymentPeriod)
}

// =============================================================================
// DERIVED
// =============================================================================

func (l *Loan) TotalRepaid() decimal.Decimal {
	total := decimal.Zero
	for _, r := range l.Repayments {
		total = total.Add(r.Amount)
	}
	return total
}

// OutstandingBalance may go negative on overpayment.
func (l *Loan) OutstandingBalance() decimal.Decimal {
	return l.Amount.Sub(l.TotalRepaid())
}

func (l *Loan) IsFullyRepaid() bool {
	return !l.OutstandingBalance().IsPositive()
}

// DueDate is start_date plus the repayment term. Nil until disbursed.
func (l *Loan) DueDate() *time.Time {
	if l.StartDate == nil {
		return nil
	}
	due := generic.AddMonths(*l.StartDate, l.Months())
	return &due
}

// IsOverdue reports a disbursed loan still owing money after its due date.
func (l *Loan) IsOverdue(asOf time.Time) bool {
	if l.Status != LoanDisbursed || l.IsFullyRepaid() {
		return false
	}
	due := l.DueDate()
	return due != nil && generic.DayAfter(asOf, *due)
}

// =============================================================================
// TRANSITIONS
// =============================================================================

const loanEntity = "loan"

func (l *Loan) Approve(actor generic.Actor, at time.Time) error {
	if err := generic.Guard(loanEntity, l.ID, "approve", l.Status, LoanPending); err != nil {
		return err
	}
	if err := generic.RequireActor(actor); err != nil {
		return err
	}
	l.Status = LoanApproved
	l.ApprovedBy = actor
	l.ApprovedAt = &at
	l.UpdatedAt = at
	return nil
}

// Disburse pays the loan out and starts the repayment term.
func (l *Loan) Disburse(actor generic.Actor, at time.Time) error {
	if err := generic.Guard(loanEntity, l.ID, "disburse", l.Status, LoanApproved); err != nil {
		return err
	}
	if err := generic.RequireActor(actor); err != nil {
		return err
	}
	start := generic.Date(at)
	l.Status = LoanDisbursed
	l.DisbursedBy = actor
	l.DisbursedAt = &at
	l.StartDate = &start
	l.UpdatedAt = at
	return nil
}

// AddRepayment appends a repayment and closes the loan once nothing is
// outstanding. It reports whether the loan was closed.
func (l *Loan) AddRepayment(r LoanRepayment, at time.Time) (bool, error) {
	if err := generic.Guard(loanEntity, l.ID, "record repayment on", l.Status, LoanDisbursed); err != nil {
		return false, err
	}
	if !r.Amount.IsPositive() {
		return false, generic.Invalid("amount", "repayment must be greater than zero")
	}
	if r.PaymentDate.IsZero() {
		return false, generic.Invalid("payment_date", "is required")
	}
	r.LoanID = l.ID
	r.Amount = generic.Money(r.Amount)
	r.PaymentDate = generic.Date(r.PaymentDate)
	r.CreatedAt = at
	l.Repayments = append(l.Repayments, r)
	l.UpdatedAt = at

	if l.IsFullyRepaid() {
		l.Status = LoanRepaid
		l.ClosedAt = &at
		return true, nil
	}
	return false, nil
}

// MarkRepaid closes a disbursed loan whose balance is already settled.
func (l *Loan) MarkRepaid(at time.Time) error {
	if err := generic.Guard(loanEntity, l.ID, "mark repaid", l.Status, LoanDisbursed); err != nil {
		return err
	}
	if !l.IsFullyRepaid() {
		return generic.Invalid("outstanding_balance", "loan %d still has %s outstanding", l.ID, l.OutstandingBalance().StringFixed(2))
	}
	l.Status = LoanRepaid
	l.ClosedAt = &at
	l.UpdatedAt = at
	return nil
}

func (l *Loan) MarkDefaulted(at time.Time) error {
	if err := generic.Guard(loanEntity, l.ID, "mark defaulted", l.Status, LoanDisbursed); err != nil {
		return err
	}
	l.Status = LoanDefaulted
	l.ClosedAt = &at
	l.UpdatedAt = at
	return nil
}
