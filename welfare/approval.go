package welfare

import (
	"fmt"
	"time"

	"github.com/mcdf/welfare-engine/generic"
)

// SubjectKind names what an approval is attached to.
type SubjectKind string

const (
	SubjectLoan         SubjectKind = "loan"
	SubjectClaim        SubjectKind = "claim"
	SubjectRegistration SubjectKind = "registration"
)

// Subject is the closed set of things that go through multi-level
// sign-off. Only this package can add variants.
type Subject interface {
	Kind() SubjectKind
	SubjectID() int64
	isSubject()
}

type LoanSubject struct{ LoanID int64 }

func (s LoanSubject) Kind() SubjectKind { return SubjectLoan }
func (s LoanSubject) SubjectID() int64  { return s.LoanID }
func (LoanSubject) isSubject()          {}

type ClaimSubject struct{ ClaimID int64 }

func (s ClaimSubject) Kind() SubjectKind { return SubjectClaim }
func (s ClaimSubject) SubjectID() int64  { return s.ClaimID }
func (ClaimSubject) isSubject()          {}

// RegistrationSubject is a member's registration.
type RegistrationSubject struct{ MemberID int64 }

func (s RegistrationSubject) Kind() SubjectKind { return SubjectRegistration }
func (s RegistrationSubject) SubjectID() int64  { return s.MemberID }
func (RegistrationSubject) isSubject()          {}

// SubjectFrom rebuilds a Subject from its stored kind and id.
func SubjectFrom(kind SubjectKind, id int64) (Subject, error) {
	if id <= 0 {
		return nil, generic.Invalid("subject_id", "must be a positive id")
	}
	switch kind {
	case SubjectLoan:
		return LoanSubject{LoanID: id}, nil
	case SubjectClaim:
		return ClaimSubject{ClaimID: id}, nil
	case SubjectRegistration:
		return RegistrationSubject{MemberID: id}, nil
	}
	return nil, generic.Invalid("subject_type", "unknown approval subject %q", kind)
}

// ApprovalLevel is the tier of the approving office.
type ApprovalLevel int

const (
	LevelLocalGovernment ApprovalLevel = 1
	LevelState           ApprovalLevel = 2
	LevelProject         ApprovalLevel = 3
)

func (l ApprovalLevel) Valid() bool {
	return l >= LevelLocalGovernment && l <= LevelProject
}

func (l ApprovalLevel) String() string {
	switch l {
	case LevelLocalGovernment:
		return "LG"
	case LevelState:
		return "State"
	case LevelProject:
		return "Project"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Approval is one approver's decision at one level. Levels are recorded
// independently; nothing requires LG sign-off before State.
type Approval struct {
	ID        int64
	Subject   Subject
	Level     ApprovalLevel
	Approver  generic.Actor
	Status    ApprovalStatus
	Comments  string
	DecidedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewApproval(subject Subject, level ApprovalLevel, approver generic.Actor, at time.Time) (*Approval, error) {
	if subject == nil {
		return nil, generic.Invalid("subject", "is required")
	}
	if !level.Valid() {
		return nil, generic.Invalid("level", "must be 1 (LG), 2 (State) or 3 (Project)")
	}
	if err := generic.RequireActor(approver); err != nil {
		return nil, err
	}
	return &Approval{
		Subject:   subject,
		Level:     level,
		Approver:  approver,
		Status:    ApprovalPending,
		CreatedAt: at,
		UpdatedAt: at,
	}, nil
}

// Decide records the approver's verdict on a pending approval.
func (a *Approval) Decide(decision ApprovalStatus, approver generic.Actor, comments string, at time.Time) error {
	if err := generic.Guard("approval", a.ID, "decide", a.Status, ApprovalPending); err != nil {
		return err
	}
	if decision != ApprovalApproved && decision != ApprovalRejected {
		return generic.Invalid("status", "decision must be approved or rejected")
	}
	if err := generic.RequireActor(approver); err != nil {
		return err
	}
	a.Status = decision
	a.Approver = approver
	a.Comments = comments
	a.DecidedAt = &at
	a.UpdatedAt = at
	return nil
}
