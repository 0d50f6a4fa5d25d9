package welfare

import (
	"context"
	"fmt"
	"time"

	"github.com/mcdf/welfare-engine/generic"
)

// =============================================================================
// PROGRAMS
// =============================================================================

func (s *Service) CreateProgram(ctx context.Context, p Program, actor generic.Actor) (*Program, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	at := s.now()
	p.CreatedAt = at
	p.UpdatedAt = at
	if err := s.Store.CreateProgram(ctx, &p); err != nil {
		return nil, err
	}
	s.log().Info("program created", "program_id", p.ID, "capacity", p.Capacity, "actor", actor)
	return &p, nil
}

func (s *Service) GetProgram(ctx context.Context, id int64) (*Program, error) {
	return load(ctx, s.Store.GetProgram, "program", id)
}

func (s *Service) ListPrograms(ctx context.Context) ([]Program, error) {
	return s.Store.ListPrograms(ctx)
}

// Enroll signs a member up for a program. Unmet entry rules come back
// together as an EligibilityError; a full program or an existing enrollment
// is a conflict.
func (s *Service) Enroll(ctx context.Context, programID, memberID int64, actor generic.Actor) (*Enrollment, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	at := s.now()
	e := Enrollment{ProgramID: programID, MemberID: memberID, Status: EnrollmentEnrolled, EnrolledAt: at, UpdatedAt: at}

	err := s.Store.WithTx(ctx, func(st Store) error {
		p, err := load(ctx, st.GetProgram, "program", programID)
		if err != nil {
			return err
		}
		m, err := load(ctx, st.GetMember, memberEntity, memberID)
		if err != nil {
			return err
		}
		if !p.Active {
			return generic.Invalid("program_id", "program %s is not open for enrollment", p.Name)
		}
		paid, err := st.CountPaidContributions(ctx, m.ID, nil)
		if err != nil {
			return err
		}
		if issues := p.Rules.Check(*m, paid, at); len(issues) > 0 {
			return &generic.EligibilityError{Subject: fmt.Sprintf("enrollment in %s", p.Name), Issues: issues}
		}
		taken, err := st.CountEnrollments(ctx, p.ID)
		if err != nil {
			return err
		}
		if !p.HasRoom(taken) {
			return &generic.ConflictError{Message: fmt.Sprintf("program %s is full (%d of %d places taken)", p.Name, taken, p.Capacity)}
		}
		return st.CreateEnrollment(ctx, &e)
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("member enrolled", "enrollment_id", e.ID, "program_id", programID, "member_id", memberID, "actor", actor)
	return &e, nil
}

func (s *Service) CompleteEnrollment(ctx context.Context, id int64, actor generic.Actor) (*Enrollment, error) {
	return s.transitionEnrollment(ctx, id, actor, "completed", func(st Store, e *Enrollment, at time.Time) error {
		return e.Complete(at)
	})
}

func (s *Service) WithdrawEnrollment(ctx context.Context, id int64, actor generic.Actor) (*Enrollment, error) {
	return s.transitionEnrollment(ctx, id, actor, "withdrawn", func(st Store, e *Enrollment, at time.Time) error {
		return e.Withdraw(at)
	})
}

// IssueCertificate stamps a CRT number on a completed enrollment.
func (s *Service) IssueCertificate(ctx context.Context, id int64, actor generic.Actor) (*Enrollment, error) {
	return s.transitionEnrollment(ctx, id, actor, "certificate issued", func(st Store, e *Enrollment, at time.Time) error {
		if e.Status != EnrollmentCompleted || e.CertificateNumber != "" {
			return e.IssueCertificate("", at)
		}
		number, err := generic.NextMonthlyNumber(ctx, st, CertificatePrefix, at)
		if err != nil {
			return err
		}
		return e.IssueCertificate(number, at)
	})
}

func (s *Service) transitionEnrollment(ctx context.Context, id int64, actor generic.Actor, event string,
	apply func(Store, *Enrollment, time.Time) error) (*Enrollment, error) {
	if err := generic.RequireActor(actor); err != nil {
		return nil, err
	}
	var out *Enrollment
	err := s.Store.WithTx(ctx, func(st Store) error {
		e, err := load(ctx, st.GetEnrollment, enrollmentEntity, id)
		if err != nil {
			return err
		}
		prev := e.Status
		if err := apply(st, e, s.now()); err != nil {
			return err
		}
		if err := st.UpdateEnrollment(ctx, e, prev); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("enrollment "+event, "enrollment_id", id, "status", out.Status, "actor", actor)
	return out, nil
}

func (s *Service) ListEnrollments(ctx context.Context, programID int64) ([]Enrollment, error) {
	if _, err := load(ctx, s.Store.GetProgram, "program", programID); err != nil {
		return nil, err
	}
	return s.Store.ListEnrollments(ctx, programID)
}
