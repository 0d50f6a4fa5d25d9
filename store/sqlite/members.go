package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/welfare"
)

// =============================================================================
// MEMBERS
// =============================================================================

const memberColumns = `id, registration_number, full_name, phone, date_of_birth, plan_id, status,
	registration_date, eligibility_start_date, is_complete, cashout_count, last_cashout_date,
	bank_account_number, bank_account_name, bank_name, created_at, updated_at`

func (c *conn) CreateMember(ctx context.Context, m *welfare.Member) error {
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO members (registration_number, full_name, phone, date_of_birth, plan_id, status,
			registration_date, eligibility_start_date, is_complete, cashout_count, last_cashout_date,
			bank_account_number, bank_account_name, bank_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.RegistrationNumber, m.FullName, nullString(m.Phone), nullDate(m.DateOfBirth), nullID(m.PlanID),
		string(m.Status), generic.FormatDate(m.RegistrationDate), nullDate(m.EligibilityStartDate),
		m.IsComplete, m.CashoutCount, nullDate(m.LastCashoutDate),
		nullString(m.Bank.AccountNumber), nullString(m.Bank.AccountName), nullString(m.Bank.BankName),
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.ConflictError{Message: fmt.Sprintf("registration number %s is already taken", m.RegistrationNumber)}
		}
		return fmt.Errorf("failed to insert member: %w", err)
	}
	m.ID, err = res.LastInsertId()
	return err
}

func (c *conn) GetMember(ctx context.Context, id int64) (*welfare.Member, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM members WHERE id = ?", id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMember writes every mutable column if the row is still in expected.
func (c *conn) UpdateMember(ctx context.Context, m *welfare.Member, expected welfare.MemberStatus) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE members SET full_name = ?, phone = ?, date_of_birth = ?, plan_id = ?, status = ?,
			eligibility_start_date = ?, is_complete = ?, cashout_count = ?, last_cashout_date = ?,
			bank_account_number = ?, bank_account_name = ?, bank_name = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`,
		m.FullName, nullString(m.Phone), nullDate(m.DateOfBirth), nullID(m.PlanID), string(m.Status),
		nullDate(m.EligibilityStartDate), m.IsComplete, m.CashoutCount, nullDate(m.LastCashoutDate),
		nullString(m.Bank.AccountNumber), nullString(m.Bank.AccountName), nullString(m.Bank.BankName),
		formatTime(m.UpdatedAt),
		m.ID, string(expected),
	)
	return checkGuarded(res, err, "member", m.ID)
}

func (c *conn) ListMembers(ctx context.Context, filter welfare.MemberFilter) ([]welfare.Member, error) {
	var w where
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	rows, err := c.q.QueryContext(ctx, "SELECT "+memberColumns+" FROM members"+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []welfare.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func scanMember(row scanner) (welfare.Member, error) {
	var m welfare.Member
	var status, regDate, createdAt, updatedAt string
	var phone, dob, eligibleFrom, lastCashout, accNumber, accName, bankName sql.NullString
	var planID sql.NullInt64

	err := row.Scan(&m.ID, &m.RegistrationNumber, &m.FullName, &phone, &dob, &planID, &status,
		&regDate, &eligibleFrom, &m.IsComplete, &m.CashoutCount, &lastCashout,
		&accNumber, &accName, &bankName, &createdAt, &updatedAt)
	if err != nil {
		return welfare.Member{}, err
	}

	m.Phone = phone.String
	m.DateOfBirth = datePtr(dob)
	m.PlanID = idPtr(planID)
	m.Status = welfare.MemberStatus(status)
	m.RegistrationDate = parseDate(regDate)
	m.EligibilityStartDate = datePtr(eligibleFrom)
	m.LastCashoutDate = datePtr(lastCashout)
	m.Bank = welfare.BankAccount{AccountNumber: accNumber.String, AccountName: accName.String, BankName: bankName.String}
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return m, nil
}

// =============================================================================
// DEPENDENTS
// =============================================================================

const dependentColumns = `id, member_id, full_name, relationship, date_of_birth, eligible, created_at, updated_at`

// SaveDependent inserts when d.ID is zero and updates otherwise.
func (c *conn) SaveDependent(ctx context.Context, d *welfare.Dependent) error {
	if d.ID == 0 {
		res, err := c.q.ExecContext(ctx, `
			INSERT INTO dependents (member_id, full_name, relationship, date_of_birth, eligible, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, d.MemberID, d.FullName, string(d.Relationship), generic.FormatDate(d.DateOfBirth), d.Eligible,
			formatTime(d.CreatedAt), formatTime(d.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert dependent: %w", err)
		}
		d.ID, err = res.LastInsertId()
		return err
	}

	res, err := c.q.ExecContext(ctx, `
		UPDATE dependents SET full_name = ?, relationship = ?, date_of_birth = ?, eligible = ?, updated_at = ?
		WHERE id = ? AND member_id = ?
	`, d.FullName, string(d.Relationship), generic.FormatDate(d.DateOfBirth), d.Eligible, formatTime(d.UpdatedAt),
		d.ID, d.MemberID)
	if err != nil {
		return fmt.Errorf("failed to update dependent %d: %w", d.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.NotFound("dependent", d.ID)
	}
	return nil
}

func (c *conn) GetDependent(ctx context.Context, id int64) (*welfare.Dependent, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+dependentColumns+" FROM dependents WHERE id = ?", id)
	d, err := scanDependent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *conn) ListDependents(ctx context.Context, memberID int64) ([]welfare.Dependent, error) {
	rows, err := c.q.QueryContext(ctx, "SELECT "+dependentColumns+" FROM dependents WHERE member_id = ? ORDER BY id", memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependents: %w", err)
	}
	defer rows.Close()

	var deps []welfare.Dependent
	for rows.Next() {
		d, err := scanDependent(rows)
		if err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

func scanDependent(row scanner) (welfare.Dependent, error) {
	var d welfare.Dependent
	var relationship, dob, createdAt, updatedAt string
	if err := row.Scan(&d.ID, &d.MemberID, &d.FullName, &relationship, &dob, &d.Eligible, &createdAt, &updatedAt); err != nil {
		return welfare.Dependent{}, err
	}
	d.Relationship = welfare.Relationship(relationship)
	d.DateOfBirth = parseDate(dob)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return d, nil
}
