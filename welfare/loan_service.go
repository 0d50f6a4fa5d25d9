package welfare

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcdf/welfare-engine/generic"
)

// LoanApplication is what a member asks for.
type LoanApplication struct {
	MemberID          int64
	Amount            decimal.Decimal
	RepaymentMode     RepaymentMode
	InstallmentAmount *decimal.Decimal
	RepaymentPeriod   string
	Purpose           string
}

// ApplyForLoan creates a pending loan once the member passes every loan
// eligibility rule. All failed rules are returned together.
func (s *Service) ApplyForLoan(ctx context.Context, app LoanApplication, actor generic.Actor) (*Loan, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	if app.RepaymentMode == "" {
		app.RepaymentMode = RepaymentInstallments
	}
	at := s.now()
	l := Loan{
		MemberID:          app.MemberID,
		Amount:            generic.Money(app.Amount),
		RepaymentMode:     app.RepaymentMode,
		InstallmentAmount: app.InstallmentAmount,
		RepaymentPeriod:   app.RepaymentPeriod,
		Purpose:           app.Purpose,
		Status:            LoanPending,
		CreatedAt:         at,
		UpdatedAt:         at,
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	l.ApplyInstallment()

	err := s.Store.WithTx(ctx, func(st Store) error {
		m, err := load(ctx, st.GetMember, memberEntity, app.MemberID)
		if err != nil {
			return err
		}
		check, err := s.loanEligibility(ctx, st, m)
		if err != nil {
			return err
		}
		if err := check.Err(fmt.Sprintf("loan for member %d", m.ID)); err != nil {
			return err
		}
		return st.CreateLoan(ctx, &l)
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("loan applied", "loan_id", l.ID, "member_id", l.MemberID, "amount", l.Amount.StringFixed(2), "actor", actor)
	return &l, nil
}

func (s *Service) ApproveLoan(ctx context.Context, id int64, actor generic.Actor) (*Loan, error) {
	return s.transitionLoan(ctx, id, actor, "approved", func(st Store, l *Loan, at time.Time) error {
		return l.Approve(actor, at)
	})
}

// DisburseLoan pays the loan out of the fund and starts its term.
func (s *Service) DisburseLoan(ctx context.Context, id int64, actor generic.Actor) (*Loan, error) {
	return s.transitionLoan(ctx, id, actor, "disbursed", func(st Store, l *Loan, at time.Time) error {
		if err := l.Disburse(actor, at); err != nil {
			return err
		}
		memberID := l.MemberID
		return s.post(ctx, st, generic.Entry{
			Type:            generic.EntryOutflow,
			Source:          generic.SourceLoanDisbursement,
			Amount:          l.Amount,
			TransactionDate: at,
			MemberID:        &memberID,
			Reference:       fmt.Sprintf("LOAN-%d", l.ID),
			Description:     "loan disbursement",
			IdempotencyKey:  fmt.Sprintf("loan-disbursement-%d", l.ID),
			RecordedBy:      actor,
		})
	})
}

// MarkLoanRepaid closes a disbursed loan with nothing left outstanding.
func (s *Service) MarkLoanRepaid(ctx context.Context, id int64, actor generic.Actor) (*Loan, error) {
	return s.transitionLoan(ctx, id, actor, "repaid", func(st Store, l *Loan, at time.Time) error {
		return l.MarkRepaid(at)
	})
}

func (s *Service) MarkLoanDefaulted(ctx context.Context, id int64, actor generic.Actor) (*Loan, error) {
	return s.transitionLoan(ctx, id, actor, "defaulted", func(st Store, l *Loan, at time.Time) error {
		return l.MarkDefaulted(at)
	})
}

// RecordRepayment books a repayment against a disbursed loan. The loan
// closes as repaid when the outstanding balance reaches zero.
func (s *Service) RecordRepayment(ctx context.Context, loanID int64, r LoanRepayment, actor generic.Actor) (*Loan, error) {
	r.RecordedBy = actor
	return s.transitionLoan(ctx, loanID, actor, "repayment recorded", func(st Store, l *Loan, at time.Time) error {
		if _, err := l.AddRepayment(r, at); err != nil {
			return err
		}
		rep := &l.Repayments[len(l.Repayments)-1]
		if err := st.AddRepayment(ctx, rep); err != nil {
			return err
		}
		memberID := l.MemberID
		return s.post(ctx, st, generic.Entry{
			Type:            generic.EntryInflow,
			Source:          generic.SourceLoanRepayment,
			Amount:          rep.Amount,
			TransactionDate: rep.PaymentDate,
			MemberID:        &memberID,
			Reference:       fmt.Sprintf("LOAN-%d", l.ID),
			Description:     "loan repayment " + rep.Reference,
			IdempotencyKey:  fmt.Sprintf("loan-repayment-%d", rep.ID),
			RecordedBy:      actor,
		})
	})
}

func (s *Service) transitionLoan(ctx context.Context, id int64, actor generic.Actor, event string,
	apply func(Store, *Loan, time.Time) error) (*Loan, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	var out *Loan
	err := s.Store.WithTx(ctx, func(st Store) error {
		l, err := load(ctx, st.GetLoan, loanEntity, id)
		if err != nil {
			return err
		}
		prev := l.Status
		if err := apply(st, l, s.now()); err != nil {
			return err
		}
		if err := st.UpdateLoan(ctx, l, prev); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("loan "+event, "loan_id", id, "status", out.Status,
		"outstanding", out.OutstandingBalance().StringFixed(2), "actor", actor)
	return out, nil
}

func (s *Service) GetLoan(ctx context.Context, id int64) (*Loan, error) {
	return load(ctx, s.Store.GetLoan, loanEntity, id)
}

func (s *Service) ListLoans(ctx context.Context, filter LoanFilter) ([]Loan, error) {
	return s.Store.ListLoans(ctx, filter)
}

// OverdueLoans lists disbursed loans past their term with money still owed.
func (s *Service) OverdueLoans(ctx context.Context, asOf time.Time) ([]Loan, error) {
	loans, err := s.Store.ListLoans(ctx, LoanFilter{Status: LoanDisbursed})
	if err != nil {
		return nil, err
	}
	var overdue []Loan
	for _, l := range loans {
		if l.IsOverdue(asOf) {
			overdue = append(overdue, l)
		}
	}
	return overdue, nil
}
