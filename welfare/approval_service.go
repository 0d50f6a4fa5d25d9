package welfare

import (
	"context"

	"github.com/mcdf/welfare-engine/generic"
)

// =============================================================================
// APPROVALS
// =============================================================================

// RecordApproval opens a pending sign-off for a subject at one level.
func (s *Service) RecordApproval(ctx context.Context, subject Subject, level ApprovalLevel, approver generic.Actor) (*Approval, error) {
	a, err := NewApproval(subject, level, approver, s.now())
	if err != nil {
		return nil, err
	}
	err = s.Store.WithTx(ctx, func(st Store) error {
		if err := subjectExists(ctx, st, subject); err != nil {
			return err
		}
		return st.CreateApproval(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("approval requested", "approval_id", a.ID, "subject", subject.Kind(), "subject_id", subject.SubjectID(),
		"level", a.Level.String(), "approver", approver)
	return a, nil
}

func subjectExists(ctx context.Context, st Store, subject Subject) error {
	var err error
	switch sub := subject.(type) {
	case LoanSubject:
		_, err = load(ctx, st.GetLoan, loanEntity, sub.LoanID)
	case ClaimSubject:
		_, err = load(ctx, st.GetClaim, claimEntity, sub.ClaimID)
	case RegistrationSubject:
		_, err = load(ctx, st.GetMember, memberEntity, sub.MemberID)
	}
	return err
}

// DecideApproval records an approver's verdict on a pending approval.
func (s *Service) DecideApproval(ctx context.Context, id int64, decision ApprovalStatus, approver generic.Actor, comments string) (*Approval, error) {
	var out *Approval
	err := s.Store.WithTx(ctx, func(st Store) error {
		a, err := load(ctx, st.GetApproval, "approval", id)
		if err != nil {
			return err
		}
		if err := a.Decide(decision, approver, comments, s.now()); err != nil {
			return err
		}
		if err := st.UpdateApproval(ctx, a, ApprovalPending); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("approval decided", "approval_id", id, "status", out.Status, "level", out.Level.String(), "approver", approver)
	return out, nil
}

func (s *Service) GetApproval(ctx context.Context, id int64) (*Approval, error) {
	return load(ctx, s.Store.GetApproval, "approval", id)
}

func (s *Service) ListApprovals(ctx context.Context, subject Subject) ([]Approval, error) {
	return s.Store.ListApprovals(ctx, subject)
}
