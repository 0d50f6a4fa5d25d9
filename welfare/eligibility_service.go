package welfare

import (
	"context"
	"time"

	"github.com/mcdf/welfare-engine/generic"
)

// refreshEligibility recomputes the member's eligibility window and the
// coverage of their dependents. The caller persists the member.
func (s *Service) refreshEligibility(ctx context.Context, st Store, m *Member) error {
	asOf := s.now()
	since := LookbackStart(asOf, WindowLookbackMonths)
	recent, err := st.CountPaidContributions(ctx, m.ID, &since)
	if err != nil {
		return err
	}
	m.EligibilityStartDate = EligibilityStartDate(*m, recent)

	deps, err := st.ListDependents(ctx, m.ID)
	if err != nil {
		return err
	}
	healthEligible := m.IsHealthEligible(asOf)
	for i := range deps {
		d := &deps[i]
		eligible := DependentEligible(*d, healthEligible, asOf)
		if eligible == d.Eligible {
			continue
		}
		d.Eligible = eligible
		d.UpdatedAt = asOf
		if err := st.SaveDependent(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// RecalculateEligibility recounts the member's recent contributions and
// stores the resulting eligibility start date.
func (s *Service) RecalculateEligibility(ctx context.Context, memberID int64) (*Member, error) {
	var out *Member
	err := s.Store.WithTx(ctx, func(st Store) error {
		m, err := load(ctx, st.GetMember, memberEntity, memberID)
		if err != nil {
			return err
		}
		before := m.EligibilityStartDate
		if err := s.refreshEligibility(ctx, st, m); err != nil {
			return err
		}
		if sameDate(before, m.EligibilityStartDate) {
			out = m
			return nil
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

// ClaimEligibility evaluates whether the member could file a claim of the
// given type today.
func (s *Service) ClaimEligibility(ctx context.Context, memberID int64, ct ClaimType) (ClaimEligibility, error) {
	m, err := load(ctx, s.Store.GetMember, memberEntity, memberID)
	if err != nil {
		return ClaimEligibility{}, err
	}
	return s.claimEligibility(ctx, s.Store, m, ct)
}

func (s *Service) claimEligibility(ctx context.Context, st Store, m *Member, ct ClaimType) (ClaimEligibility, error) {
	paid, err := st.CountPaidContributions(ctx, m.ID, nil)
	if err != nil {
		return ClaimEligibility{}, err
	}
	return CheckClaimEligibility(*m, ct, paid, s.now()), nil
}

// LoanEligibility evaluates whether the member could apply for a loan today.
func (s *Service) LoanEligibility(ctx context.Context, memberID int64) (LoanEligibility, error) {
	m, err := load(ctx, s.Store.GetMember, memberEntity, memberID)
	if err != nil {
		return LoanEligibility{}, err
	}
	return s.loanEligibility(ctx, s.Store, m)
}

func (s *Service) loanEligibility(ctx context.Context, st Store, m *Member) (LoanEligibility, error) {
	since := LookbackStart(s.now(), LoanLookbackMonths)
	recent, err := st.CountPaidContributions(ctx, m.ID, &since)
	if err != nil {
		return LoanEligibility{}, err
	}
	open, err := st.CountOpenLoans(ctx, m.ID)
	if err != nil {
		return LoanEligibility{}, err
	}
	return CheckLoanEligibility(*m, recent, open), nil
}

// =============================================================================
// DEPENDENTS
// =============================================================================

// SaveDependent creates or updates a dependent. Eligibility is derived from
// the member on every save and overwrites whatever the caller sent.
func (s *Service) SaveDependent(ctx context.Context, d Dependent, actor generic.Actor) (*Dependent, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	at := s.now()
	d.DateOfBirth = generic.Date(d.DateOfBirth)

	err := s.Store.WithTx(ctx, func(st Store) error {
		m, err := load(ctx, st.GetMember, memberEntity, d.MemberID)
		if err != nil {
			return err
		}
		if d.ID != 0 {
			existing, err := load(ctx, st.GetDependent, "dependent", d.ID)
			if err != nil {
				return err
			}
			if existing.MemberID != d.MemberID {
				return generic.Invalid("member_id", "dependent %d belongs to member %d", d.ID, existing.MemberID)
			}
			d.CreatedAt = existing.CreatedAt
		} else {
			d.CreatedAt = at
		}
		d.Eligible = DependentEligible(d, m.IsHealthEligible(at), at)
		d.UpdatedAt = at
		return st.SaveDependent(ctx, &d)
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("dependent saved", "dependent_id", d.ID, "member_id", d.MemberID, "eligible", d.Eligible, "actor", actor)
	return &d, nil
}

func (s *Service) ListDependents(ctx context.Context, memberID int64) ([]Dependent, error) {
	if _, err := load(ctx, s.Store.GetMember, memberEntity, memberID); err != nil {
		return nil, err
	}
	return s.Store.ListDependents(ctx, memberID)
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return generic.SameDay(*a, *b)
}
