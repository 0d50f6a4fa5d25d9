package welfare

import (
	"context"
	"fmt"

	"github.com/mcdf/welfare-engine/generic"
)

// =============================================================================
// PROVIDERS
// =============================================================================

func (s *Service) CreateProvider(ctx context.Context, p HealthcareProvider, actor generic.Actor) (*HealthcareProvider, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.CreatedAt = s.now()
	if err := s.Store.CreateProvider(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) GetProvider(ctx context.Context, id int64) (*HealthcareProvider, error) {
	return load(ctx, s.Store.GetProvider, "provider", id)
}

func (s *Service) ListProviders(ctx context.Context) ([]HealthcareProvider, error) {
	return s.Store.ListProviders(ctx)
}

// =============================================================================
// CLAIMS
// =============================================================================

// SubmitClaim files a health claim. The member must pass the claim
// eligibility check for the claim type; when the patient is a dependent, the
// dependent must belong to the member and be covered. Every unmet condition
// is reported in one EligibilityError.
func (s *Service) SubmitClaim(ctx context.Context, draft ClaimDraft, actor generic.Actor) (*HealthClaim, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	at := s.now()
	c, err := NewClaim(draft, at)
	if err != nil {
		return nil, err
	}
	c.SubmittedBy = actor

	err = s.Store.WithTx(ctx, func(st Store) error {
		m, err := load(ctx, st.GetMember, memberEntity, c.MemberID)
		if err != nil {
			return err
		}
		provider, err := load(ctx, st.GetProvider, "provider", c.ProviderID)
		if err != nil {
			return err
		}

		check, err := s.claimEligibility(ctx, st, m, c.ClaimType)
		if err != nil {
			return err
		}
		issues := check.Issues
		if !provider.Active {
			issues = append(issues, fmt.Sprintf("provider %s is not active", provider.Name))
		}
		if c.DependentID != nil {
			d, err := load(ctx, st.GetDependent, "dependent", *c.DependentID)
			if err != nil {
				return err
			}
			switch {
			case d.MemberID != m.ID:
				issues = append(issues, fmt.Sprintf("dependent %d is not registered under member %d", d.ID, m.ID))
			case !d.Eligible:
				issues = append(issues, fmt.Sprintf("dependent %s is not covered", d.FullName))
			}
		}
		if len(issues) > 0 {
			return &generic.EligibilityError{Subject: fmt.Sprintf("%s claim for member %d", c.ClaimType, m.ID), Issues: issues}
		}

		if c.ClaimNumber, err = generic.NextMonthlyNumber(ctx, st, ClaimPrefix, at); err != nil {
			return err
		}
		return st.CreateClaim(ctx, &c)
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("claim submitted", "claim_id", c.ID, "claim_number", c.ClaimNumber, "member_id", c.MemberID,
		"billed", c.BilledAmount.StringFixed(2), "covered", c.CoveredAmount.StringFixed(2), "actor", actor)
	return &c, nil
}

func (s *Service) UpdateClaim(ctx context.Context, id int64, u ClaimUpdate, actor generic.Actor) (*HealthClaim, error) {
	return s.transitionClaim(ctx, id, actor, "updated", func(st Store, c *HealthClaim) error {
		return c.Apply(u, s.now())
	})
}

func (s *Service) ApproveClaim(ctx context.Context, id int64, actor generic.Actor, notes string) (*HealthClaim, error) {
	return s.transitionClaim(ctx, id, actor, "approved", func(st Store, c *HealthClaim) error {
		return c.Approve(actor, notes, s.now())
	})
}

func (s *Service) RejectClaim(ctx context.Context, id int64, actor generic.Actor, reason string) (*HealthClaim, error) {
	return s.transitionClaim(ctx, id, actor, "rejected", func(st Store, c *HealthClaim) error {
		return c.Reject(actor, reason, s.now())
	})
}

// PayClaim settles an approved claim; the fund pays out the covered amount.
func (s *Service) PayClaim(ctx context.Context, id int64, actor generic.Actor) (*HealthClaim, error) {
	return s.transitionClaim(ctx, id, actor, "paid", func(st Store, c *HealthClaim) error {
		at := s.now()
		if err := c.MarkPaid(actor, at); err != nil {
			return err
		}
		if !c.CoveredAmount.IsPositive() {
			return nil
		}
		memberID := c.MemberID
		return s.post(ctx, st, generic.Entry{
			Type:            generic.EntryOutflow,
			Source:          generic.SourceHealthClaim,
			Amount:          c.CoveredAmount,
			TransactionDate: at,
			MemberID:        &memberID,
			Reference:       c.ClaimNumber,
			Description:     fmt.Sprintf("%s claim payment", c.ClaimType),
			IdempotencyKey:  "health-claim-" + c.ClaimNumber,
			RecordedBy:      actor,
		})
	})
}

// AttachClaimDocument records a document reference on a submitted claim.
func (s *Service) AttachClaimDocument(ctx context.Context, claimID int64, d ClaimDocument, actor generic.Actor) (*ClaimDocument, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	var out ClaimDocument
	err := s.Store.WithTx(ctx, func(st Store) error {
		c, err := load(ctx, st.GetClaim, claimEntity, claimID)
		if err != nil {
			return err
		}
		doc, err := c.AttachDocument(d, actor, s.now())
		if err != nil {
			return err
		}
		if err := st.AddClaimDocument(ctx, &doc); err != nil {
			return err
		}
		out = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) transitionClaim(ctx context.Context, id int64, actor generic.Actor, event string,
	apply func(Store, *HealthClaim) error) (*HealthClaim, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	var out *HealthClaim
	err := s.Store.WithTx(ctx, func(st Store) error {
		c, err := load(ctx, st.GetClaim, claimEntity, id)
		if err != nil {
			return err
		}
		prev := c.Status
		if err := apply(st, c); err != nil {
			return err
		}
		if err := st.UpdateClaim(ctx, c, prev); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("claim "+event, "claim_id", id, "claim_number", out.ClaimNumber, "status", out.Status, "actor", actor)
	return out, nil
}

func (s *Service) GetClaim(ctx context.Context, id int64) (*HealthClaim, error) {
	return load(ctx, s.Store.GetClaim, claimEntity, id)
}

func (s *Service) ListClaims(ctx context.Context, filter ClaimFilter) ([]HealthClaim, error) {
	return s.Store.ListClaims(ctx, filter)
}
