/*
contribution.go - Contribution plans, contributions and late fines

PURPOSE:
  A member pays a recurring amount under one ContributionPlan. Each payment
  is a Contribution covering one period of the plan. Paying after the
  period has closed attracts a fine of half the amount.

FINE RULE:
  fine = amount × 0.5   if payment_date > period_end AND status != paid
  fine = 0              otherwise

  The fine is computed when the contribution is created and recomputed on
  update ONLY when payment_date or period_end changes. A fine set while the
  contribution was pending is kept when it is later marked paid without a
  date change; that fine is then collected together with the amount.

RECEIPTS:
  RCP{YYYY}{MM}{0001..}, allocated from an atomic per-month counter.

STATUS FLOW:
  pending ──pay──▶ paid
     │  └─sweep─▶ overdue ──pay──▶ paid
     └──cancel──▶ cancelled ◀──cancel── overdue
*/
package welfare

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcdf/welfare-engine/generic"
)

// =============================================================================
// CONTRIBUTION PLAN
// =============================================================================

type ContributionPlan struct {
	ID        int64
	Name      string
	Frequency generic.Frequency
	Amount    decimal.Decimal
	Active    bool
	CreatedAt time.Time
}

func (p ContributionPlan) Validate() error {
	if p.Name == "" {
		return generic.Invalid("name", "is required")
	}
	if !p.Frequency.Valid() {
		return generic.Invalid("frequency", "must be one of daily, weekly, monthly, quarterly, annual")
	}
	if !p.Amount.IsPositive() {
		return generic.Invalid("amount", "must be greater than zero")
	}
	return nil
}

// PeriodFor returns the plan period a payment on date covers.
func (p ContributionPlan) PeriodFor(date time.Time) generic.Period {
	return p.Frequency.PeriodFor(date)
}

// =============================================================================
// CONTRIBUTION
// =============================================================================

type ContributionStatus string

const (
	ContributionPaid      ContributionStatus = "paid"
	ContributionPending   ContributionStatus = "pending"
	ContributionOverdue   ContributionStatus = "overdue"
	ContributionCancelled ContributionStatus = "cancelled"
)

func (s ContributionStatus) Valid() bool {
	switch s {
	case ContributionPaid, ContributionPending, ContributionOverdue, ContributionCancelled:
		return true
	}
	return false
}

// ReceiptPrefix is the sequence prefix for contribution receipts.
const ReceiptPrefix = "RCP"

// FineRate is the late-payment surcharge.
var FineRate = generic.Rate("0.5")

type Contribution struct {
	ID            int64
	MemberID      int64
	PlanID        int64
	Amount        decimal.Decimal
	FineAmount    decimal.Decimal
	PaymentDate   time.Time
	PeriodStart   time.Time
	PeriodEnd     time.Time
	Status        ContributionStatus
	ReceiptNumber string
	RecordedBy    generic.Actor
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ComputeFine returns the late-payment fine for a contribution.
func ComputeFine(amount decimal.Decimal, paymentDate, periodEnd time.Time, status ContributionStatus) decimal.Decimal {
	if status == ContributionPaid || !generic.DayAfter(paymentDate, periodEnd) {
		return decimal.Zero
	}
	return generic.Money(amount.Mul(FineRate))
}

// Total is the amount plus any fine.
func (c *Contribution) Total() decimal.Decimal {
	return c.Amount.Add(c.FineAmount)
}

func (c *Contribution) Validate() error {
	if c.MemberID == 0 {
		return generic.Invalid("member_id", "is required")
	}
	if !c.Amount.IsPositive() {
		return generic.Invalid("amount", "must be greater than zero")
	}
	if c.PaymentDate.IsZero() {
		return generic.Invalid("payment_date", "is required")
	}
	if c.PeriodStart.IsZero() || c.PeriodEnd.IsZero() {
		return generic.Invalid("period", "period_start and period_end are required")
	}
	if generic.DayBefore(c.PeriodEnd, c.PeriodStart) {
		return generic.Invalid("period_end", "must not be before period_start")
	}
	if !c.Status.Valid() {
		return generic.Invalid("status", "must be one of paid, pending, overdue, cancelled")
	}
	return nil
}

// Prepare normalizes and computes the fine for a new contribution.
func (c *Contribution) Prepare(at time.Time) error {
	if c.Status == "" {
		c.Status = ContributionPending
	}
	if err := c.Validate(); err != nil {
		return err
	}
	c.Amount = generic.Money(c.Amount)
	c.PaymentDate = generic.Date(c.PaymentDate)
	c.PeriodStart = generic.Date(c.PeriodStart)
	c.PeriodEnd = generic.Date(c.PeriodEnd)
	c.FineAmount = ComputeFine(c.Amount, c.PaymentDate, c.PeriodEnd, c.Status)
	c.CreatedAt = at
	c.UpdatedAt = at
	return nil
}

// ContributionUpdate carries the fields an edit may change. Nil = unchanged.
type ContributionUpdate struct {
	Amount      *decimal.Decimal
	PaymentDate *time.Time
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// Apply edits a pending or overdue contribution. The fine is recomputed
// only if the payment date or period end actually changed.
func (c *Contribution) Apply(u ContributionUpdate, at time.Time) error {
	if err := generic.Guard("contribution", c.ID, "edit", c.Status, ContributionPending, ContributionOverdue); err != nil {
		return err
	}

	next := *c
	if u.Amount != nil {
		next.Amount = generic.Money(*u.Amount)
	}
	if u.PaymentDate != nil {
		next.PaymentDate = generic.Date(*u.PaymentDate)
	}
	if u.PeriodStart != nil {
		next.PeriodStart = generic.Date(*u.PeriodStart)
	}
	if u.PeriodEnd != nil {
		next.PeriodEnd = generic.Date(*u.PeriodEnd)
	}
	if err := next.Validate(); err != nil {
		return err
	}

	if !next.PaymentDate.Equal(c.PaymentDate) || !next.PeriodEnd.Equal(c.PeriodEnd) {
		next.FineAmount = ComputeFine(next.Amount, next.PaymentDate, next.PeriodEnd, next.Status)
	}
	next.UpdatedAt = at
	*c = next
	return nil
}

// MarkPaid records receipt of the money. A new payment date, when given,
// goes through the same dirty-field fine recompute as Apply.
func (c *Contribution) MarkPaid(paymentDate *time.Time, at time.Time) error {
	if err := generic.Guard("contribution", c.ID, "mark paid", c.Status, ContributionPending, ContributionOverdue); err != nil {
		return err
	}
	c.Status = ContributionPaid
	if paymentDate != nil && !generic.SameDay(*paymentDate, c.PaymentDate) {
		c.PaymentDate = generic.Date(*paymentDate)
		c.FineAmount = ComputeFine(c.Amount, c.PaymentDate, c.PeriodEnd, c.Status)
	}
	c.UpdatedAt = at
	return nil
}

// MarkOverdue flags a pending contribution whose period closed before asOf.
func (c *Contribution) MarkOverdue(asOf time.Time) error {
	if err := generic.Guard("contribution", c.ID, "mark overdue", c.Status, ContributionPending); err != nil {
		return err
	}
	if !generic.DayAfter(asOf, c.PeriodEnd) {
		return generic.Invalid("period_end", "period %s has not ended", generic.FormatDate(c.PeriodEnd))
	}
	c.Status = ContributionOverdue
	c.UpdatedAt = asOf
	return nil
}

func (c *Contribution) Cancel(at time.Time) error {
	if err := generic.Guard("contribution", c.ID, "cancel", c.Status, ContributionPending, ContributionOverdue); err != nil {
		return err
	}
	c.Status = ContributionCancelled
	c.UpdatedAt = at
	return nil
}

// ledgerEntries returns the inflows a paid contribution posts.
func (c *Contribution) ledgerEntries(actor generic.Actor) []generic.Entry {
	memberID := c.MemberID
	entries := []generic.Entry{{
		Type:            generic.EntryInflow,
		Source:          generic.SourceContribution,
		Amount:          c.Amount,
		TransactionDate: c.PaymentDate,
		MemberID:        &memberID,
		Reference:       c.ReceiptNumber,
		Description:     "contribution " + generic.FormatDate(c.PeriodStart) + " to " + generic.FormatDate(c.PeriodEnd),
		IdempotencyKey:  "contribution-" + c.ReceiptNumber,
		RecordedBy:      actor,
	}}
	if c.FineAmount.IsPositive() {
		entries = append(entries, generic.Entry{
			Type:            generic.EntryInflow,
			Source:          generic.SourceContributionFine,
			Amount:          c.FineAmount,
			TransactionDate: c.PaymentDate,
			MemberID:        &memberID,
			Reference:       c.ReceiptNumber,
			Description:     "late payment fine",
			IdempotencyKey:  "contribution-fine-" + c.ReceiptNumber,
			RecordedBy:      actor,
		})
	}
	return entries
}
