// Package welfare implements the member welfare-fund workflows: member
// enrollment and eligibility, contributions and fines, loans, health claims,
// cashouts, approvals and vocational programs. It uses the generic engine for
// money, calendars, numbering and the fund ledger.
package welfare

import (
	"fmt"
	"time"

	"github.com/mcdf/welfare-engine/generic"
)

// =============================================================================
// MEMBER
// =============================================================================

type MemberStatus string

const (
	MemberPreRegistered MemberStatus = "pre_registered"
	MemberPending       MemberStatus = "pending"
	MemberActive        MemberStatus = "active"
	MemberInactive      MemberStatus = "inactive"
	MemberSuspended     MemberStatus = "suspended"
	MemberTerminated    MemberStatus = "terminated"
)

// RegistrationSequence is the Sequencer name for member numbers.
const RegistrationSequence = "MCDF"

// RegistrationNumber formats a member number, e.g. MCDF/00042.
func RegistrationNumber(seq int64) string {
	return fmt.Sprintf("MCDF/%05d", seq)
}

// BankAccount is where cashouts are paid. Cashout requests copy it at
// request time so later edits don't redirect an approved payout.
type BankAccount struct {
	AccountNumber string
	AccountName   string
	BankName      string
}

// IsZero reports whether no bank details were captured at all.
func (b BankAccount) IsZero() bool {
	return b.AccountNumber == "" && b.AccountName == "" && b.BankName == ""
}

type Member struct {
	ID                   int64
	RegistrationNumber   string
	FullName             string
	Phone                string
	DateOfBirth          *time.Time
	PlanID               *int64
	Status               MemberStatus
	RegistrationDate     time.Time
	EligibilityStartDate *time.Time
	IsComplete           bool
	CashoutCount         int
	LastCashoutDate      *time.Time
	Bank                 BankAccount
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsHealthEligible reports whether the member's eligibility window has
// opened by asOf.
func (m *Member) IsHealthEligible(asOf time.Time) bool {
	return m.EligibilityStartDate != nil && generic.DayBeforeOrEqual(*m.EligibilityStartDate, asOf)
}

// ReferenceDate is the registration date, falling back to creation time.
func (m *Member) ReferenceDate() time.Time {
	if m.RegistrationDate.IsZero() {
		return m.CreatedAt
	}
	return m.RegistrationDate
}

// =============================================================================
// LIFECYCLE
// =============================================================================
//
//   pre_registered ──complete──▶ pending ──approve──▶ active
//                                                     │  ▲
//                                      suspend/deactivate│  │reactivate
//                                                     ▼  │
//                                            suspended / inactive
//
//   terminate: from active, suspended or inactive. Terminal.

const memberEntity = "member"

// Complete marks the registration as complete and queues it for approval.
func (m *Member) Complete(at time.Time) error {
	if err := generic.Guard(memberEntity, m.ID, "complete", m.Status, MemberPreRegistered); err != nil {
		return err
	}
	if m.FullName == "" {
		return generic.Invalid("full_name", "is required to complete registration")
	}
	if m.PlanID == nil {
		return generic.Invalid("plan_id", "a contribution plan must be selected to complete registration")
	}
	m.IsComplete = true
	m.Status = MemberPending
	m.UpdatedAt = at
	return nil
}

// Approve activates a completed registration. The caller recalculates
// eligibility afterwards; leaving active clears the eligibility window.
func (m *Member) Approve(at time.Time) error {
	if err := generic.Guard(memberEntity, m.ID, "approve", m.Status, MemberPending); err != nil {
		return err
	}
	if !m.IsComplete {
		return generic.Invalid("is_complete", "registration is not complete")
	}
	m.Status = MemberActive
	m.UpdatedAt = at
	return nil
}

func (m *Member) Suspend(at time.Time) error {
	if err := generic.Guard(memberEntity, m.ID, "suspend", m.Status, MemberActive); err != nil {
		return err
	}
	m.Status = MemberSuspended
	m.EligibilityStartDate = nil
	m.UpdatedAt = at
	return nil
}

func (m *Member) Deactivate(at time.Time) error {
	if err := generic.Guard(memberEntity, m.ID, "deactivate", m.Status, MemberActive, MemberSuspended); err != nil {
		return err
	}
	m.Status = MemberInactive
	m.EligibilityStartDate = nil
	m.UpdatedAt = at
	return nil
}

func (m *Member) Reactivate(at time.Time) error {
	if err := generic.Guard(memberEntity, m.ID, "reactivate", m.Status, MemberSuspended, MemberInactive); err != nil {
		return err
	}
	m.Status = MemberActive
	m.UpdatedAt = at
	return nil
}

func (m *Member) Terminate(at time.Time) error {
	if err := generic.Guard(memberEntity, m.ID, "terminate", m.Status, MemberActive, MemberSuspended, MemberInactive); err != nil {
		return err
	}
	m.Status = MemberTerminated
	m.EligibilityStartDate = nil
	m.UpdatedAt = at
	return nil
}
