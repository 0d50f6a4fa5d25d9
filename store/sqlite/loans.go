package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/welfare"
)

// =============================================================================
// LOANS
// =============================================================================

const loanColumns = `id, member_id, amount, repayment_mode, installment_amount, repayment_period, purpose,
	status, start_date, approved_by, approved_at, disbursed_by, disbursed_at, closed_at, created_at, updated_at`

func (c *conn) CreateLoan(ctx context.Context, l *welfare.Loan) error {
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO loans (member_id, amount, repayment_mode, installment_amount, repayment_period, purpose,
			status, start_date, approved_by, approved_at, disbursed_by, disbursed_at, closed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		l.MemberID, l.Amount.String(), string(l.RepaymentMode), nullDecimal(l.InstallmentAmount),
		nullString(l.RepaymentPeriod), nullString(l.Purpose), string(l.Status), nullDate(l.StartDate),
		nullString(string(l.ApprovedBy)), nullTime(l.ApprovedAt),
		nullString(string(l.DisbursedBy)), nullTime(l.DisbursedAt), nullTime(l.ClosedAt),
		formatTime(l.CreatedAt), formatTime(l.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert loan: %w", err)
	}
	l.ID, err = res.LastInsertId()
	return err
}

// GetLoan loads the loan with its repayments.
func (c *conn) GetLoan(ctx context.Context, id int64) (*welfare.Loan, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+loanColumns+" FROM loans WHERE id = ?", id)
	l, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if l.Repayments, err = c.loadRepayments(ctx, l.ID); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *conn) UpdateLoan(ctx context.Context, l *welfare.Loan, expected welfare.LoanStatus) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE loans SET installment_amount = ?, repayment_period = ?, purpose = ?, status = ?, start_date = ?,
			approved_by = ?, approved_at = ?, disbursed_by = ?, disbursed_at = ?, closed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`,
		nullDecimal(l.InstallmentAmount), nullString(l.RepaymentPeriod), nullString(l.Purpose),
		string(l.Status), nullDate(l.StartDate),
		nullString(string(l.ApprovedBy)), nullTime(l.ApprovedAt),
		nullString(string(l.DisbursedBy)), nullTime(l.DisbursedAt), nullTime(l.ClosedAt),
		formatTime(l.UpdatedAt),
		l.ID, string(expected),
	)
	return checkGuarded(res, err, "loan", l.ID)
}

// ListLoans loads matching loans with their repayments.
func (c *conn) ListLoans(ctx context.Context, filter welfare.LoanFilter) ([]welfare.Loan, error) {
	var w where
	if filter.MemberID != nil {
		w.add("member_id = ?", *filter.MemberID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}

	rows, err := c.q.QueryContext(ctx, "SELECT "+loanColumns+" FROM loans"+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	var loans []welfare.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		loans = append(loans, l)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// Rows must be closed first: the pool has a single connection.
	for i := range loans {
		if loans[i].Repayments, err = c.loadRepayments(ctx, loans[i].ID); err != nil {
			return nil, err
		}
	}
	return loans, nil
}

func (c *conn) CountOpenLoans(ctx context.Context, memberID int64) (int, error) {
	var count int
	err := c.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM loans WHERE member_id = ? AND status IN (?, ?)",
		memberID, string(welfare.LoanApproved), string(welfare.LoanDisbursed),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count loans: %w", err)
	}
	return count, nil
}

func (c *conn) AddRepayment(ctx context.Context, r *welfare.LoanRepayment) error {
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO loan_repayments (loan_id, amount, payment_date, reference, recorded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.LoanID, r.Amount.String(), generic.FormatDate(r.PaymentDate), nullString(r.Reference),
		string(r.RecordedBy), formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert repayment: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

func (c *conn) loadRepayments(ctx context.Context, loanID int64) ([]welfare.LoanRepayment, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, loan_id, amount, payment_date, reference, recorded_by, created_at
		FROM loan_repayments WHERE loan_id = ? ORDER BY payment_date, id
	`, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query repayments: %w", err)
	}
	defer rows.Close()

	var out []welfare.LoanRepayment
	for rows.Next() {
		var r welfare.LoanRepayment
		var amount, paymentDate, recordedBy, createdAt string
		var reference sql.NullString
		if err := rows.Scan(&r.ID, &r.LoanID, &amount, &paymentDate, &reference, &recordedBy, &createdAt); err != nil {
			return nil, err
		}
		r.Amount = generic.MustParseDecimal(amount)
		r.PaymentDate = parseDate(paymentDate)
		r.Reference = reference.String
		r.RecordedBy = generic.Actor(recordedBy)
		r.CreatedAt = parseTime(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanLoan(row scanner) (welfare.Loan, error) {
	var l welfare.Loan
	var amount, mode, status, createdAt, updatedAt string
	var installment, period, purpose, startDate, approvedBy, approvedAt, disbursedBy, disbursedAt, closedAt sql.NullString

	err := row.Scan(&l.ID, &l.MemberID, &amount, &mode, &installment, &period, &purpose,
		&status, &startDate, &approvedBy, &approvedAt, &disbursedBy, &disbursedAt, &closedAt, &createdAt, &updatedAt)
	if err != nil {
		return welfare.Loan{}, err
	}

	l.Amount = generic.MustParseDecimal(amount)
	l.RepaymentMode = welfare.RepaymentMode(mode)
	l.InstallmentAmount = decimalPtr(installment)
	l.RepaymentPeriod = period.String
	l.Purpose = purpose.String
	l.Status = welfare.LoanStatus(status)
	l.StartDate = datePtr(startDate)
	l.ApprovedBy = generic.Actor(approvedBy.String)
	l.ApprovedAt = timePtr(approvedAt)
	l.DisbursedBy = generic.Actor(disbursedBy.String)
	l.DisbursedAt = timePtr(disbursedAt)
	l.ClosedAt = timePtr(closedAt)
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)
	return l, nil
}
