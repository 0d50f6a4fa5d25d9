package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/welfare"
)

// =============================================================================
// APPROVALS
// =============================================================================

const approvalColumns = `id, subject_type, subject_id, level, approver, status, comments, decided_at, created_at, updated_at`

func (c *conn) CreateApproval(ctx context.Context, a *welfare.Approval) error {
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO approvals (subject_type, subject_id, level, approver, status, comments, decided_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(a.Subject.Kind()), a.Subject.SubjectID(), int(a.Level), string(a.Approver), string(a.Status),
		nullString(a.Comments), nullTime(a.DecidedAt), formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert approval: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

func (c *conn) GetApproval(ctx context.Context, id int64) (*welfare.Approval, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+approvalColumns+" FROM approvals WHERE id = ?", id)
	a, err := scanApproval(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *conn) UpdateApproval(ctx context.Context, a *welfare.Approval, expected welfare.ApprovalStatus) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE approvals SET approver = ?, status = ?, comments = ?, decided_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`,
		string(a.Approver), string(a.Status), nullString(a.Comments), nullTime(a.DecidedAt), formatTime(a.UpdatedAt),
		a.ID, string(expected),
	)
	return checkGuarded(res, err, "approval", a.ID)
}

// ListApprovals returns a subject's approvals ordered by level.
func (c *conn) ListApprovals(ctx context.Context, subject welfare.Subject) ([]welfare.Approval, error) {
	rows, err := c.q.QueryContext(ctx,
		"SELECT "+approvalColumns+" FROM approvals WHERE subject_type = ? AND subject_id = ? ORDER BY level, id",
		string(subject.Kind()), subject.SubjectID())
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	var out []welfare.Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanApproval(row scanner) (welfare.Approval, error) {
	var a welfare.Approval
	var subjectType, approver, status, createdAt, updatedAt string
	var subjectID int64
	var level int
	var comments, decidedAt sql.NullString

	err := row.Scan(&a.ID, &subjectType, &subjectID, &level, &approver, &status, &comments, &decidedAt, &createdAt, &updatedAt)
	if err != nil {
		return welfare.Approval{}, err
	}
	if a.Subject, err = welfare.SubjectFrom(welfare.SubjectKind(subjectType), subjectID); err != nil {
		return welfare.Approval{}, fmt.Errorf("approval %d: %w", a.ID, err)
	}
	a.Level = welfare.ApprovalLevel(level)
	a.Approver = generic.Actor(approver)
	a.Status = welfare.ApprovalStatus(status)
	a.Comments = comments.String
	a.DecidedAt = timePtr(decidedAt)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}

// =============================================================================
// PROGRAMS
// =============================================================================

const programColumns = `id, name, description, capacity, eligibility_rules, start_date, end_date, active, created_at, updated_at`

func (c *conn) CreateProgram(ctx context.Context, p *welfare.Program) error {
	rules, err := json.Marshal(p.Rules)
	if err != nil {
		return fmt.Errorf("failed to encode eligibility rules: %w", err)
	}
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO programs (name, description, capacity, eligibility_rules, start_date, end_date, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.Name, nullString(p.Description), p.Capacity, string(rules), nullDate(p.StartDate), nullDate(p.EndDate),
		p.Active, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert program: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (c *conn) GetProgram(ctx context.Context, id int64) (*welfare.Program, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+programColumns+" FROM programs WHERE id = ?", id)
	p, err := scanProgram(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *conn) ListPrograms(ctx context.Context) ([]welfare.Program, error) {
	rows, err := c.q.QueryContext(ctx, "SELECT "+programColumns+" FROM programs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query programs: %w", err)
	}
	defer rows.Close()

	var out []welfare.Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// scanProgram reads the rule set back through the lenient parser, so rows
// written by older tooling with string-typed numbers still load.
func scanProgram(row scanner) (welfare.Program, error) {
	var p welfare.Program
	var createdAt, updatedAt string
	var description, rules, startDate, endDate sql.NullString

	err := row.Scan(&p.ID, &p.Name, &description, &p.Capacity, &rules, &startDate, &endDate, &p.Active, &createdAt, &updatedAt)
	if err != nil {
		return welfare.Program{}, err
	}
	if rules.Valid && rules.String != "" {
		var raw map[string]any
		if err := json.Unmarshal([]byte(rules.String), &raw); err != nil {
			return welfare.Program{}, fmt.Errorf("program %d: invalid eligibility rules: %w", p.ID, err)
		}
		if p.Rules, err = welfare.ParseEligibilityRules(raw); err != nil {
			return welfare.Program{}, fmt.Errorf("program %d: %w", p.ID, err)
		}
	}
	p.Description = description.String
	p.StartDate = datePtr(startDate)
	p.EndDate = datePtr(endDate)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// =============================================================================
// ENROLLMENTS
// =============================================================================

const enrollmentColumns = `id, program_id, member_id, status, enrolled_at, completed_at, withdrawn_at,
	certificate_number, certificate_issued_at, updated_at`

func (c *conn) CreateEnrollment(ctx context.Context, e *welfare.Enrollment) error {
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO program_enrollments (program_id, member_id, status, enrolled_at, completed_at, withdrawn_at,
			certificate_number, certificate_issued_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ProgramID, e.MemberID, string(e.Status), formatTime(e.EnrolledAt), nullTime(e.CompletedAt),
		nullTime(e.WithdrawnAt), nullString(e.CertificateNumber), nullTime(e.CertificateIssued), formatTime(e.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.ConflictError{Message: fmt.Sprintf("member %d is already enrolled in program %d", e.MemberID, e.ProgramID)}
		}
		return fmt.Errorf("failed to insert enrollment: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (c *conn) GetEnrollment(ctx context.Context, id int64) (*welfare.Enrollment, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+enrollmentColumns+" FROM program_enrollments WHERE id = ?", id)
	e, err := scanEnrollment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *conn) UpdateEnrollment(ctx context.Context, e *welfare.Enrollment, expected welfare.EnrollmentStatus) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE program_enrollments SET status = ?, completed_at = ?, withdrawn_at = ?,
			certificate_number = ?, certificate_issued_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`,
		string(e.Status), nullTime(e.CompletedAt), nullTime(e.WithdrawnAt),
		nullString(e.CertificateNumber), nullTime(e.CertificateIssued), formatTime(e.UpdatedAt),
		e.ID, string(expected),
	)
	return checkGuarded(res, err, "enrollment", e.ID)
}

func (c *conn) ListEnrollments(ctx context.Context, programID int64) ([]welfare.Enrollment, error) {
	rows, err := c.q.QueryContext(ctx,
		"SELECT "+enrollmentColumns+" FROM program_enrollments WHERE program_id = ? ORDER BY id", programID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	var out []welfare.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (c *conn) CountEnrollments(ctx context.Context, programID int64) (int, error) {
	var count int
	err := c.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM program_enrollments WHERE program_id = ? AND status IN (?, ?)",
		programID, string(welfare.EnrollmentEnrolled), string(welfare.EnrollmentCompleted),
	).Scan(&count)
	return count, err
}

func scanEnrollment(row scanner) (welfare.Enrollment, error) {
	var e welfare.Enrollment
	var status, enrolledAt, updatedAt string
	var completedAt, withdrawnAt, certificate, issuedAt sql.NullString

	err := row.Scan(&e.ID, &e.ProgramID, &e.MemberID, &status, &enrolledAt, &completedAt, &withdrawnAt,
		&certificate, &issuedAt, &updatedAt)
	if err != nil {
		return welfare.Enrollment{}, err
	}
	e.Status = welfare.EnrollmentStatus(status)
	e.EnrolledAt = parseTime(enrolledAt)
	e.CompletedAt = timePtr(completedAt)
	e.WithdrawnAt = timePtr(withdrawnAt)
	e.CertificateNumber = certificate.String
	e.CertificateIssued = timePtr(issuedAt)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
}
