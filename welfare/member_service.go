package welfare

import (
	"context"
	"time"

	"github.com/mcdf/welfare-engine/generic"
)

// =============================================================================
// MEMBER SERVICE
// =============================================================================

// PreRegister creates a member record with the next MCDF registration number.
// Only FullName is required; the rest can be filled in before completion.
func (s *Service) PreRegister(ctx context.Context, draft Member, actor generic.Actor) (*Member, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	if draft.FullName == "" {
		return nil, generic.Invalid("full_name", "is required")
	}

	at := s.now()
	m := draft
	m.ID = 0
	m.Status = MemberPreRegistered
	m.IsComplete = false
	m.EligibilityStartDate = nil
	m.CashoutCount = 0
	m.LastCashoutDate = nil
	if m.RegistrationDate.IsZero() {
		m.RegistrationDate = at
	}
	m.RegistrationDate = generic.Date(m.RegistrationDate)
	m.CreatedAt = at
	m.UpdatedAt = at

	err := s.Store.WithTx(ctx, func(st Store) error {
		if m.PlanID != nil {
			if _, err := load(ctx, st.GetPlan, "contribution plan", *m.PlanID); err != nil {
				return err
			}
		}
		seq, err := st.NextValue(ctx, RegistrationSequence)
		if err != nil {
			return err
		}
		m.RegistrationNumber = RegistrationNumber(seq)
		return st.CreateMember(ctx, &m)
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("member pre-registered", "member_id", m.ID, "registration_number", m.RegistrationNumber, "actor", actor)
	return &m, nil
}

// MemberUpdate carries editable profile fields. Nil = unchanged.
type MemberUpdate struct {
	FullName    *string
	Phone       *string
	DateOfBirth *time.Time
	PlanID      *int64
	Bank        *BankAccount
}

// UpdateMemberProfile edits a member's details. Terminated members are frozen.
func (s *Service) UpdateMemberProfile(ctx context.Context, id int64, u MemberUpdate, actor generic.Actor) (*Member, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	var out *Member
	err := s.Store.WithTx(ctx, func(st Store) error {
		m, err := load(ctx, st.GetMember, memberEntity, id)
		if err != nil {
			return err
		}
		if err := generic.Guard(memberEntity, m.ID, "update", m.Status,
			MemberPreRegistered, MemberPending, MemberActive, MemberSuspended, MemberInactive); err != nil {
			return err
		}
		if u.FullName != nil && *u.FullName == "" {
			return generic.Invalid("full_name", "must not be empty")
		}
		if u.PlanID != nil {
			if _, err := load(ctx, st.GetPlan, "contribution plan", *u.PlanID); err != nil {
				return err
			}
		}

		if u.FullName != nil {
			m.FullName = *u.FullName
		}
		if u.Phone != nil {
			m.Phone = *u.Phone
		}
		if u.DateOfBirth != nil {
			dob := generic.Date(*u.DateOfBirth)
			m.DateOfBirth = &dob
		}
		if u.PlanID != nil {
			m.PlanID = u.PlanID
		}
		if u.Bank != nil {
			m.Bank = *u.Bank
		}
		m.UpdatedAt = s.now()
		if err := st.UpdateMember(ctx, m, m.Status); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetMember(ctx context.Context, id int64) (*Member, error) {
	return load(ctx, s.Store.GetMember, memberEntity, id)
}

func (s *Service) ListMembers(ctx context.Context, filter MemberFilter) ([]Member, error) {
	return s.Store.ListMembers(ctx, filter)
}

func (s *Service) CompleteRegistration(ctx context.Context, id int64, actor generic.Actor) (*Member, error) {
	return s.transitionMember(ctx, id, actor, "registration completed", (*Member).Complete, false)
}

// ApproveMember activates the member and opens their eligibility window if
// the contribution history already qualifies.
func (s *Service) ApproveMember(ctx context.Context, id int64, actor generic.Actor) (*Member, error) {
	return s.transitionMember(ctx, id, actor, "approved", (*Member).Approve, true)
}

func (s *Service) SuspendMember(ctx context.Context, id int64, actor generic.Actor) (*Member, error) {
	return s.transitionMember(ctx, id, actor, "suspended", (*Member).Suspend, true)
}

func (s *Service) DeactivateMember(ctx context.Context, id int64, actor generic.Actor) (*Member, error) {
	return s.transitionMember(ctx, id, actor, "deactivated", (*Member).Deactivate, true)
}

func (s *Service) ReactivateMember(ctx context.Context, id int64, actor generic.Actor) (*Member, error) {
	return s.transitionMember(ctx, id, actor, "reactivated", (*Member).Reactivate, true)
}

func (s *Service) TerminateMember(ctx context.Context, id int64, actor generic.Actor) (*Member, error) {
	return s.transitionMember(ctx, id, actor, "terminated", (*Member).Terminate, true)
}

func (s *Service) transitionMember(ctx context.Context, id int64, actor generic.Actor, event string,
	apply func(*Member, time.Time) error, recalc bool) (*Member, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	var out *Member
	err := s.Store.WithTx(ctx, func(st Store) error {
		m, err := load(ctx, st.GetMember, memberEntity, id)
		if err != nil {
			return err
		}
		prev := m.Status
		if err := apply(m, s.now()); err != nil {
			return err
		}
		if recalc {
			if err := s.refreshEligibility(ctx, st, m); err != nil {
				return err
			}
		}
		if err := st.UpdateMember(ctx, m, prev); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("member "+event, "member_id", id, "status", out.Status, "actor", actor)
	return out, nil
}
