package welfare

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcdf/welfare-engine/generic"
)

// =============================================================================
// PLANS
// =============================================================================

func (s *Service) CreatePlan(ctx context.Context, p ContributionPlan, actor generic.Actor) (*ContributionPlan, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Amount = generic.Money(p.Amount)
	p.CreatedAt = s.now()
	if err := s.Store.CreatePlan(ctx, &p); err != nil {
		return nil, err
	}
	s.log().Info("contribution plan created", "plan_id", p.ID, "frequency", p.Frequency, "amount", p.Amount.StringFixed(2), "actor", actor)
	return &p, nil
}

func (s *Service) GetPlan(ctx context.Context, id int64) (*ContributionPlan, error) {
	return load(ctx, s.Store.GetPlan, "contribution plan", id)
}

func (s *Service) ListPlans(ctx context.Context) ([]ContributionPlan, error) {
	return s.Store.ListPlans(ctx)
}

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

// ContributionInput describes a payment to record. Amount and period default
// from the member's plan when omitted.
type ContributionInput struct {
	MemberID    int64
	Amount      *decimal.Decimal
	PaymentDate time.Time
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Status      ContributionStatus
}

// RecordContribution stores a contribution with a fresh receipt number. A
// contribution recorded as paid posts its ledger inflows immediately.
func (s *Service) RecordContribution(ctx context.Context, in ContributionInput, actor generic.Actor) (*Contribution, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	if in.PaymentDate.IsZero() {
		return nil, generic.Invalid("payment_date", "is required")
	}
	if (in.PeriodStart == nil) != (in.PeriodEnd == nil) {
		return nil, generic.Invalid("period", "period_start and period_end must be given together")
	}

	at := s.now()
	var out *Contribution
	err := s.Store.WithTx(ctx, func(st Store) error {
		m, err := load(ctx, st.GetMember, memberEntity, in.MemberID)
		if err != nil {
			return err
		}
		if m.Status == MemberTerminated {
			return generic.Invalid("member_id", "member %d is terminated", m.ID)
		}

		c := Contribution{
			MemberID:    m.ID,
			PaymentDate: in.PaymentDate,
			Status:      in.Status,
			RecordedBy:  actor,
		}
		var plan *ContributionPlan
		if m.PlanID != nil {
			if plan, err = load(ctx, st.GetPlan, "contribution plan", *m.PlanID); err != nil {
				return err
			}
			c.PlanID = plan.ID
		}

		switch {
		case in.Amount != nil:
			c.Amount = *in.Amount
		case plan != nil:
			c.Amount = plan.Amount
		default:
			return generic.Invalid("amount", "is required when the member has no contribution plan")
		}
		if in.PeriodStart != nil {
			c.PeriodStart, c.PeriodEnd = *in.PeriodStart, *in.PeriodEnd
		} else {
			freq := generic.FrequencyMonthly
			if plan != nil {
				freq = plan.Frequency
			}
			p := freq.PeriodFor(in.PaymentDate)
			c.PeriodStart, c.PeriodEnd = p.Start, p.End
		}

		if err := c.Prepare(at); err != nil {
			return err
		}
		if c.ReceiptNumber, err = generic.NextMonthlyNumber(ctx, st, ReceiptPrefix, at); err != nil {
			return err
		}
		if err := st.CreateContribution(ctx, &c); err != nil {
			return err
		}
		if c.Status == ContributionPaid {
			if err := s.settleContribution(ctx, st, m, &c, actor); err != nil {
				return err
			}
		}
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("contribution recorded", "contribution_id", out.ID, "receipt", out.ReceiptNumber,
		"member_id", out.MemberID, "status", out.Status, "fine", out.FineAmount.StringFixed(2), "actor", actor)
	return out, nil
}

// settleContribution posts a paid contribution to the ledger and refreshes
// the member's eligibility window.
func (s *Service) settleContribution(ctx context.Context, st Store, m *Member, c *Contribution, actor generic.Actor) error {
	if err := s.post(ctx, st, c.ledgerEntries(actor)...); err != nil {
		return err
	}
	before := m.EligibilityStartDate
	if err := s.refreshEligibility(ctx, st, m); err != nil {
		return err
	}
	if sameDate(before, m.EligibilityStartDate) {
		return nil
	}
	m.UpdatedAt = s.now()
	return st.UpdateMember(ctx, m, m.Status)
}

// UpdateContribution edits a pending or overdue contribution.
func (s *Service) UpdateContribution(ctx context.Context, id int64, u ContributionUpdate, actor generic.Actor) (*Contribution, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	var out *Contribution
	err := s.Store.WithTx(ctx, func(st Store) error {
		c, err := load(ctx, st.GetContribution, "contribution", id)
		if err != nil {
			return err
		}
		if err := c.Apply(u, s.now()); err != nil {
			return err
		}
		if err := st.UpdateContribution(ctx, c, c.Status); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkContributionPaid records payment of a pending or overdue contribution.
func (s *Service) MarkContributionPaid(ctx context.Context, id int64, paymentDate *time.Time, actor generic.Actor) (*Contribution, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	var out *Contribution
	err := s.Store.WithTx(ctx, func(st Store) error {
		c, err := load(ctx, st.GetContribution, "contribution", id)
		if err != nil {
			return err
		}
		prev := c.Status
		if err := c.MarkPaid(paymentDate, s.now()); err != nil {
			return err
		}
		if err := st.UpdateContribution(ctx, c, prev); err != nil {
			return err
		}
		m, err := load(ctx, st.GetMember, memberEntity, c.MemberID)
		if err != nil {
			return err
		}
		if err := s.settleContribution(ctx, st, m, c, actor); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("contribution paid", "contribution_id", id, "receipt", out.ReceiptNumber, "total", out.Total().StringFixed(2), "actor", actor)
	return out, nil
}

func (s *Service) CancelContribution(ctx context.Context, id int64, actor generic.Actor) (*Contribution, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	var out *Contribution
	err := s.Store.WithTx(ctx, func(st Store) error {
		c, err := load(ctx, st.GetContribution, "contribution", id)
		if err != nil {
			return err
		}
		prev := c.Status
		if err := c.Cancel(s.now()); err != nil {
			return err
		}
		if err := st.UpdateContribution(ctx, c, prev); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("contribution cancelled", "contribution_id", id, "actor", actor)
	return out, nil
}

// MarkOverdueContributions flags every pending contribution whose period
// ended before asOf. Rows changed concurrently are skipped. Returns how many
// were flagged.
func (s *Service) MarkOverdueContributions(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.Store.ListContributions(ctx, ContributionFilter{
		Status:          ContributionPending,
		PeriodEndBefore: &asOf,
	})
	if err != nil {
		return 0, err
	}

	marked := 0
	for i := range due {
		c := due[i]
		err := s.Store.WithTx(ctx, func(st Store) error {
			if err := c.MarkOverdue(asOf); err != nil {
				return err
			}
			return st.UpdateContribution(ctx, &c, ContributionPending)
		})
		if generic.IsRetryable(err) || errors.Is(err, generic.ErrInvalidTransition) {
			continue
		}
		if err != nil {
			return marked, err
		}
		marked++
	}
	if marked > 0 {
		s.log().Info("contributions marked overdue", "count", marked, "as_of", generic.FormatDate(asOf))
	}
	return marked, nil
}

func (s *Service) GetContribution(ctx context.Context, id int64) (*Contribution, error) {
	return load(ctx, s.Store.GetContribution, "contribution", id)
}

func (s *Service) ListContributions(ctx context.Context, filter ContributionFilter) ([]Contribution, error) {
	return s.Store.ListContributions(ctx, filter)
}
