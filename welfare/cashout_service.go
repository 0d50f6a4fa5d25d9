package welfare

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcdf/welfare-engine/generic"
)

// EligibleCashout returns what the member could cash out today: the sum of
// their paid contributions and the fines paid on them.
func (s *Service) EligibleCashout(ctx context.Context, memberID int64) (decimal.Decimal, error) {
	if _, err := load(ctx, s.Store.GetMember, memberEntity, memberID); err != nil {
		return decimal.Zero, err
	}
	return cashoutEntitlement(ctx, s.Store, memberID)
}

func cashoutEntitlement(ctx context.Context, st Store, memberID int64) (decimal.Decimal, error) {
	paid, err := st.ListContributions(ctx, ContributionFilter{MemberID: &memberID, Status: ContributionPaid})
	if err != nil {
		return decimal.Zero, err
	}
	return EligibleCashoutAmount(paid), nil
}

// RequestCashout opens a cashout request. The member's bank details are
// copied onto the request.
func (s *Service) RequestCashout(ctx context.Context, memberID int64, amount decimal.Decimal, reason string, actor generic.Actor) (*CashoutRequest, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, generic.Invalid("requested_amount", "must be greater than zero")
	}

	var out *CashoutRequest
	err := s.Store.WithTx(ctx, func(st Store) error {
		m, err := load(ctx, st.GetMember, memberEntity, memberID)
		if err != nil {
			return err
		}
		open, err := st.HasOpenCashout(ctx, m.ID)
		if err != nil {
			return err
		}
		if open {
			return &generic.ConflictError{Message: fmt.Sprintf("member %d already has an open cashout request", m.ID)}
		}
		eligible, err := cashoutEntitlement(ctx, st, m.ID)
		if err != nil {
			return err
		}
		r, err := NewCashoutRequest(*m, amount, eligible, reason, s.now())
		if err != nil {
			return err
		}
		if err := st.CreateCashout(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("cashout requested", "cashout_id", out.ID, "member_id", memberID, "amount", out.RequestedAmount.StringFixed(2), "actor", actor)
	return out, nil
}

func (s *Service) VerifyCashout(ctx context.Context, id int64, actor generic.Actor, notes string) (*CashoutRequest, error) {
	return s.transitionCashout(ctx, id, actor, "verified", func(st Store, r *CashoutRequest, at time.Time) error {
		return r.Verify(actor, notes, at)
	})
}

// ApproveCashout approves a verified request, optionally for a different
// amount than requested.
func (s *Service) ApproveCashout(ctx context.Context, id int64, actor generic.Actor, amount *decimal.Decimal, notes string) (*CashoutRequest, error) {
	return s.transitionCashout(ctx, id, actor, "approved", func(st Store, r *CashoutRequest, at time.Time) error {
		return r.Approve(actor, amount, notes, at)
	})
}

// DisburseCashout pays the approved amount and updates the member's cashout
// history.
func (s *Service) DisburseCashout(ctx context.Context, id int64, actor generic.Actor, notes string) (*CashoutRequest, error) {
	return s.transitionCashout(ctx, id, actor, "disbursed", func(st Store, r *CashoutRequest, at time.Time) error {
		if err := r.Disburse(actor, notes, at); err != nil {
			return err
		}
		m, err := load(ctx, st.GetMember, memberEntity, r.MemberID)
		if err != nil {
			return err
		}
		m.RecordCashout(at)
		if err := st.UpdateMember(ctx, m, m.Status); err != nil {
			return err
		}
		memberID := r.MemberID
		return s.post(ctx, st, generic.Entry{
			Type:            generic.EntryOutflow,
			Source:          generic.SourceCashout,
			Amount:          r.PayoutAmount(),
			TransactionDate: at,
			MemberID:        &memberID,
			Reference:       fmt.Sprintf("CASHOUT-%d", r.ID),
			Description:     "cashout to " + r.Bank.BankName + " " + r.Bank.AccountNumber,
			IdempotencyKey:  fmt.Sprintf("cashout-%d", r.ID),
			RecordedBy:      actor,
		})
	})
}

func (s *Service) RejectCashout(ctx context.Context, id int64, actor generic.Actor, reason string) (*CashoutRequest, error) {
	return s.transitionCashout(ctx, id, actor, "rejected", func(st Store, r *CashoutRequest, at time.Time) error {
		return r.Reject(actor, reason, at)
	})
}

func (s *Service) transitionCashout(ctx context.Context, id int64, actor generic.Actor, event string,
	apply func(Store, *CashoutRequest, time.Time) error) (*CashoutRequest, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	var out *CashoutRequest
	err := s.Store.WithTx(ctx, func(st Store) error {
		r, err := load(ctx, st.GetCashout, cashoutEntity, id)
		if err != nil {
			return err
		}
		prev := r.Status
		if err := apply(st, r, s.now()); err != nil {
			return err
		}
		if err := st.UpdateCashout(ctx, r, prev); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("cashout "+event, "cashout_id", id, "status", out.Status, "actor", actor)
	return out, nil
}

func (s *Service) GetCashout(ctx context.Context, id int64) (*CashoutRequest, error) {
	return load(ctx, s.Store.GetCashout, cashoutEntity, id)
}

func (s *Service) ListCashouts(ctx context.Context, filter CashoutFilter) ([]CashoutRequest, error) {
	return s.Store.ListCashouts(ctx, filter)
}
