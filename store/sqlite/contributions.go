package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/welfare"
)

// =============================================================================
// CONTRIBUTION PLANS
// =============================================================================

func (c *conn) CreatePlan(ctx context.Context, p *welfare.ContributionPlan) error {
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO contribution_plans (name, frequency, amount, active, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.Name, string(p.Frequency), p.Amount.String(), p.Active, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (c *conn) GetPlan(ctx context.Context, id int64) (*welfare.ContributionPlan, error) {
	row := c.q.QueryRowContext(ctx,
		"SELECT id, name, frequency, amount, active, created_at FROM contribution_plans WHERE id = ?", id)
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *conn) ListPlans(ctx context.Context) ([]welfare.ContributionPlan, error) {
	rows, err := c.q.QueryContext(ctx,
		"SELECT id, name, frequency, amount, active, created_at FROM contribution_plans ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []welfare.ContributionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func scanPlan(row scanner) (welfare.ContributionPlan, error) {
	var p welfare.ContributionPlan
	var frequency, amount, createdAt string
	if err := row.Scan(&p.ID, &p.Name, &frequency, &amount, &p.Active, &createdAt); err != nil {
		return welfare.ContributionPlan{}, err
	}
	p.Frequency = generic.Frequency(frequency)
	p.Amount = generic.MustParseDecimal(amount)
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

const contributionColumns = `id, member_id, plan_id, amount, fine_amount, payment_date, period_start,
	period_end, status, receipt_number, recorded_by, created_at, updated_at`

func (c *conn) CreateContribution(ctx context.Context, ct *welfare.Contribution) error {
	planID := ct.PlanID
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO contributions (member_id, plan_id, amount, fine_amount, payment_date, period_start,
			period_end, status, receipt_number, recorded_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ct.MemberID, nullID(&planID), ct.Amount.String(), ct.FineAmount.String(),
		generic.FormatDate(ct.PaymentDate), generic.FormatDate(ct.PeriodStart), generic.FormatDate(ct.PeriodEnd),
		string(ct.Status), ct.ReceiptNumber, string(ct.RecordedBy),
		formatTime(ct.CreatedAt), formatTime(ct.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.ConflictError{Message: fmt.Sprintf("receipt number %s is already taken", ct.ReceiptNumber)}
		}
		return fmt.Errorf("failed to insert contribution: %w", err)
	}
	ct.ID, err = res.LastInsertId()
	return err
}

func (c *conn) GetContribution(ctx context.Context, id int64) (*welfare.Contribution, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+contributionColumns+" FROM contributions WHERE id = ?", id)
	ct, err := scanContribution(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

func (c *conn) UpdateContribution(ctx context.Context, ct *welfare.Contribution, expected welfare.ContributionStatus) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE contributions SET amount = ?, fine_amount = ?, payment_date = ?, period_start = ?,
			period_end = ?, status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`,
		ct.Amount.String(), ct.FineAmount.String(), generic.FormatDate(ct.PaymentDate),
		generic.FormatDate(ct.PeriodStart), generic.FormatDate(ct.PeriodEnd),
		string(ct.Status), formatTime(ct.UpdatedAt),
		ct.ID, string(expected),
	)
	return checkGuarded(res, err, "contribution", ct.ID)
}

func (c *conn) ListContributions(ctx context.Context, filter welfare.ContributionFilter) ([]welfare.Contribution, error) {
	var w where
	if filter.MemberID != nil {
		w.add("member_id = ?", *filter.MemberID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if filter.PeriodEndBefore != nil {
		w.add("period_end < ?", generic.FormatDate(*filter.PeriodEndBefore))
	}

	rows, err := c.q.QueryContext(ctx,
		"SELECT "+contributionColumns+" FROM contributions"+w.String()+" ORDER BY payment_date, id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions: %w", err)
	}
	defer rows.Close()

	var out []welfare.Contribution
	for rows.Next() {
		ct, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (c *conn) CountPaidContributions(ctx context.Context, memberID int64, since *time.Time) (int, error) {
	query := "SELECT COUNT(*) FROM contributions WHERE member_id = ? AND status = ?"
	args := []any{memberID, string(welfare.ContributionPaid)}
	if since != nil {
		query += " AND payment_date >= ?"
		args = append(args, generic.FormatDate(*since))
	}
	var count int
	if err := c.q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count contributions: %w", err)
	}
	return count, nil
}

func scanContribution(row scanner) (welfare.Contribution, error) {
	var ct welfare.Contribution
	var planID sql.NullInt64
	var amount, fine, paymentDate, periodStart, periodEnd, status, recordedBy, createdAt, updatedAt string

	err := row.Scan(&ct.ID, &ct.MemberID, &planID, &amount, &fine, &paymentDate, &periodStart,
		&periodEnd, &status, &ct.ReceiptNumber, &recordedBy, &createdAt, &updatedAt)
	if err != nil {
		return welfare.Contribution{}, err
	}

	ct.PlanID = planID.Int64
	ct.Amount = generic.MustParseDecimal(amount)
	ct.FineAmount = generic.MustParseDecimal(fine)
	ct.PaymentDate = parseDate(paymentDate)
	ct.PeriodStart = parseDate(periodStart)
	ct.PeriodEnd = parseDate(periodEnd)
	ct.Status = welfare.ContributionStatus(status)
	ct.RecordedBy = generic.Actor(recordedBy)
	ct.CreatedAt = parseTime(createdAt)
	ct.UpdatedAt = parseTime(updatedAt)
	return ct, nil
}
