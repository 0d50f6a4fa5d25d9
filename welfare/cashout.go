package welfare

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcdf/welfare-engine/generic"
)

// =============================================================================
// CASHOUT REQUEST
// =============================================================================
//
//   pending ──verify──▶ verified ──approve──▶ approved ──disburse──▶ disbursed
//      └────reject────────┴──reject──▶ rejected
//
// Each stage stamps who moved it, when, and their notes. A member holds at
// most one open request (pending, verified or approved).

type CashoutStatus string

const (
	CashoutPending   CashoutStatus = "pending"
	CashoutVerified  CashoutStatus = "verified"
	CashoutApproved  CashoutStatus = "approved"
	CashoutRejected  CashoutStatus = "rejected"
	CashoutDisbursed CashoutStatus = "disbursed"
)

func (s CashoutStatus) IsOpen() bool {
	return s == CashoutPending || s == CashoutVerified || s == CashoutApproved
}

// StageStamp records one workflow step.
type StageStamp struct {
	By    generic.Actor
	At    time.Time
	Notes string
}

type CashoutRequest struct {
	ID              int64
	MemberID        int64
	RequestedAmount decimal.Decimal
	ApprovedAmount  *decimal.Decimal
	Status          CashoutStatus
	Reason          string
	Bank            BankAccount // snapshot at request time

	Verified  *StageStamp
	Approved  *StageStamp
	Disbursed *StageStamp
	Rejected  *StageStamp

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EligibleCashoutAmount is what a member's paid contributions entitle them
// to: the paid amounts plus the fines collected on them.
func EligibleCashoutAmount(paid []Contribution) decimal.Decimal {
	total := decimal.Zero
	for _, c := range paid {
		if c.Status != ContributionPaid {
			continue
		}
		total = total.Add(c.Amount).Add(c.FineAmount)
	}
	return generic.Money(total)
}

// NewCashoutRequest validates a request against the member's entitlement.
// The open-request rule needs the store and is checked by the service.
func NewCashoutRequest(m Member, amount, eligible decimal.Decimal, reason string, at time.Time) (*CashoutRequest, error) {
	if !amount.IsPositive() {
		return nil, generic.Invalid("requested_amount", "must be greater than zero")
	}
	amount = generic.Money(amount)
	var issues []string
	if m.Status != MemberActive {
		issues = append(issues, "membership status is "+string(m.Status)+", must be active")
	}
	if amount.GreaterThan(eligible) {
		issues = append(issues, "requested "+amount.StringFixed(2)+" exceeds eligible amount "+eligible.StringFixed(2))
	}
	if m.Bank.IsZero() {
		issues = append(issues, "member has no bank account details to pay into")
	}
	if len(issues) > 0 {
		return nil, &generic.EligibilityError{Subject: "cashout", Issues: issues}
	}
	return &CashoutRequest{
		MemberID:        m.ID,
		RequestedAmount: amount,
		Status:          CashoutPending,
		Reason:          reason,
		Bank:            m.Bank,
		CreatedAt:       at,
		UpdatedAt:       at,
	}, nil
}

// PayoutAmount is the approved amount, or the requested amount if the
// approver did not change it.
func (r *CashoutRequest) PayoutAmount() decimal.Decimal {
	if r.ApprovedAmount != nil {
		return *r.ApprovedAmount
	}
	return r.RequestedAmount
}

const cashoutEntity = "cashout request"

func (r *CashoutRequest) Verify(actor generic.Actor, notes string, at time.Time) error {
	if err := generic.Guard(cashoutEntity, r.ID, "verify", r.Status, CashoutPending); err != nil {
		return err
	}
	if err := generic.RequireActor(actor); err != nil {
		return err
	}
	r.Status = CashoutVerified
	r.Verified = &StageStamp{By: actor, At: at, Notes: notes}
	r.UpdatedAt = at
	return nil
}

// Approve accepts a verified request. amount overrides the requested amount
// when non-nil.
func (r *CashoutRequest) Approve(actor generic.Actor, amount *decimal.Decimal, notes string, at time.Time) error {
	if err := generic.Guard(cashoutEntity, r.ID, "approve", r.Status, CashoutVerified); err != nil {
		return err
	}
	if err := generic.RequireActor(actor); err != nil {
		return err
	}
	approved := r.RequestedAmount
	if amount != nil {
		if !amount.IsPositive() {
			return generic.Invalid("approved_amount", "must be greater than zero")
		}
		approved = generic.Money(*amount)
	}
	r.Status = CashoutApproved
	r.ApprovedAmount = &approved
	r.Approved = &StageStamp{By: actor, At: at, Notes: notes}
	r.UpdatedAt = at
	return nil
}

func (r *CashoutRequest) Disburse(actor generic.Actor, notes string, at time.Time) error {
	if err := generic.Guard(cashoutEntity, r.ID, "disburse", r.Status, CashoutApproved); err != nil {
		return err
	}
	if err := generic.RequireActor(actor); err != nil {
		return err
	}
	r.Status = CashoutDisbursed
	r.Disbursed = &StageStamp{By: actor, At: at, Notes: notes}
	r.UpdatedAt = at
	return nil
}

// Reject is allowed before approval only.
func (r *CashoutRequest) Reject(actor generic.Actor, reason string, at time.Time) error {
	if err := generic.Guard(cashoutEntity, r.ID, "reject", r.Status, CashoutPending, CashoutVerified); err != nil {
		return err
	}
	if err := generic.RequireActor(actor); err != nil {
		return err
	}
	if reason == "" {
		return generic.Invalid("reason", "a rejection reason is required")
	}
	r.Status = CashoutRejected
	r.Rejected = &StageStamp{By: actor, At: at, Notes: reason}
	r.UpdatedAt = at
	return nil
}

// RecordCashout bumps the member's cashout counters after a disbursement.
func (m *Member) RecordCashout(at time.Time) {
	day := generic.Date(at)
	m.CashoutCount++
	m.LastCashoutDate = &day
	m.UpdatedAt = at
}
