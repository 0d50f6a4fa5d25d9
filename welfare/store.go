/*
store.go - Persistence contract for the welfare workflows

PURPOSE:
  Everything the services need from the database, expressed as loads by id,
  inserts, status-guarded updates and count/sum queries.

CONVENTIONS:
  - Get* returns nil, nil when the row does not exist. Services turn that
    into generic.NotFoundError.
  - Create* assigns the id on the passed pointer.
  - Update* is a compare-and-swap on status: the row is written only if it
    is still in `expected`. Otherwise generic.ErrConcurrentModification.
  - Uniqueness rules (one open cashout per member, one enrollment per member
    per program) surface as generic.ErrConflict.
  - Ledger entries go through generic.LedgerStore and are never updated.

TRANSACTIONS:
  TxStore.WithTx runs fn against a Store bound to one database transaction.
  A status change and the ledger entry it produces are written in the same
  WithTx call, so either both land or neither does.
*/
package welfare

import (
	"context"
	"time"

	"github.com/mcdf/welfare-engine/generic"
)

type MemberFilter struct {
	Status MemberStatus
}

type ContributionFilter struct {
	MemberID *int64
	Status   ContributionStatus
	// PeriodEndBefore selects contributions whose period closed before the day.
	PeriodEndBefore *time.Time
}

type LoanFilter struct {
	MemberID *int64
	Status   LoanStatus
}

type ClaimFilter struct {
	MemberID *int64
	Status   ClaimStatus
}

type CashoutFilter struct {
	MemberID *int64
	Status   CashoutStatus
}

type Store interface {
	generic.LedgerStore
	generic.Sequencer

	// Members
	CreateMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, id int64) (*Member, error)
	UpdateMember(ctx context.Context, m *Member, expected MemberStatus) error
	ListMembers(ctx context.Context, filter MemberFilter) ([]Member, error)

	// Dependents
	SaveDependent(ctx context.Context, d *Dependent) error
	GetDependent(ctx context.Context, id int64) (*Dependent, error)
	ListDependents(ctx context.Context, memberID int64) ([]Dependent, error)

	// Plans and contributions
	CreatePlan(ctx context.Context, p *ContributionPlan) error
	GetPlan(ctx context.Context, id int64) (*ContributionPlan, error)
	ListPlans(ctx context.Context) ([]ContributionPlan, error)
	CreateContribution(ctx context.Context, c *Contribution) error
	GetContribution(ctx context.Context, id int64) (*Contribution, error)
	UpdateContribution(ctx context.Context, c *Contribution, expected ContributionStatus) error
	ListContributions(ctx context.Context, filter ContributionFilter) ([]Contribution, error)
	// CountPaidContributions counts paid contributions with a payment date
	// on or after since. A nil since counts all of them.
	CountPaidContributions(ctx context.Context, memberID int64, since *time.Time) (int, error)

	// Loans
	CreateLoan(ctx context.Context, l *Loan) error
	GetLoan(ctx context.Context, id int64) (*Loan, error)
	UpdateLoan(ctx context.Context, l *Loan, expected LoanStatus) error
	ListLoans(ctx context.Context, filter LoanFilter) ([]Loan, error)
	CountOpenLoans(ctx context.Context, memberID int64) (int, error)
	AddRepayment(ctx context.Context, r *LoanRepayment) error

	// Providers and claims
	CreateProvider(ctx context.Context, p *HealthcareProvider) error
	GetProvider(ctx context.Context, id int64) (*HealthcareProvider, error)
	ListProviders(ctx context.Context) ([]HealthcareProvider, error)
	CreateClaim(ctx context.Context, c *HealthClaim) error
	GetClaim(ctx context.Context, id int64) (*HealthClaim, error)
	UpdateClaim(ctx context.Context, c *HealthClaim, expected ClaimStatus) error
	ListClaims(ctx context.Context, filter ClaimFilter) ([]HealthClaim, error)
	AddClaimDocument(ctx context.Context, d *ClaimDocument) error

	// Cashouts
	CreateCashout(ctx context.Context, r *CashoutRequest) error
	GetCashout(ctx context.Context, id int64) (*CashoutRequest, error)
	UpdateCashout(ctx context.Context, r *CashoutRequest, expected CashoutStatus) error
	ListCashouts(ctx context.Context, filter CashoutFilter) ([]CashoutRequest, error)
	HasOpenCashout(ctx context.Context, memberID int64) (bool, error)

	// Approvals
	CreateApproval(ctx context.Context, a *Approval) error
	GetApproval(ctx context.Context, id int64) (*Approval, error)
	UpdateApproval(ctx context.Context, a *Approval, expected ApprovalStatus) error
	ListApprovals(ctx context.Context, subject Subject) ([]Approval, error)

	// Programs
	CreateProgram(ctx context.Context, p *Program) error
	GetProgram(ctx context.Context, id int64) (*Program, error)
	ListPrograms(ctx context.Context) ([]Program, error)
	CreateEnrollment(ctx context.Context, e *Enrollment) error
	GetEnrollment(ctx context.Context, id int64) (*Enrollment, error)
	UpdateEnrollment(ctx context.Context, e *Enrollment, expected EnrollmentStatus) error
	ListEnrollments(ctx context.Context, programID int64) ([]Enrollment, error)
	// CountEnrollments counts enrollments still holding a seat (enrolled or
	// completed).
	CountEnrollments(ctx context.Context, programID int64) (int, error)
}

// TxStore is a Store that can run a unit of work atomically.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
