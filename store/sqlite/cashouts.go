package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/welfare"
)

// =============================================================================
// CASHOUT REQUESTS
// =============================================================================

const cashoutColumns = `id, member_id, requested_amount, approved_amount, status, reason,
	bank_account_number, bank_account_name, bank_name,
	verified_by, verified_at, verified_notes,
	approved_by, approved_at, approved_notes,
	disbursed_by, disbursed_at, disbursed_notes,
	rejected_by, rejected_at, rejected_notes,
	created_at, updated_at`

// stampColumns flattens an optional stage stamp into by/at/notes columns.
func stampColumns(st *welfare.StageStamp) (sql.NullString, sql.NullString, sql.NullString) {
	if st == nil {
		return sql.NullString{}, sql.NullString{}, sql.NullString{}
	}
	at := st.At
	return nullString(string(st.By)), nullTime(&at), nullString(st.Notes)
}

func stampFrom(by, at, notes sql.NullString) *welfare.StageStamp {
	if !at.Valid {
		return nil
	}
	return &welfare.StageStamp{By: generic.Actor(by.String), At: parseTime(at.String), Notes: notes.String}
}

func (c *conn) CreateCashout(ctx context.Context, r *welfare.CashoutRequest) error {
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO cashout_requests (member_id, requested_amount, approved_amount, status, reason,
			bank_account_number, bank_account_name, bank_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.MemberID, r.RequestedAmount.String(), nullDecimal(r.ApprovedAmount), string(r.Status), nullString(r.Reason),
		nullString(r.Bank.AccountNumber), nullString(r.Bank.AccountName), nullString(r.Bank.BankName),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.ConflictError{Message: fmt.Sprintf("member %d already has an open cashout request", r.MemberID)}
		}
		return fmt.Errorf("failed to insert cashout request: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

func (c *conn) GetCashout(ctx context.Context, id int64) (*welfare.CashoutRequest, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+cashoutColumns+" FROM cashout_requests WHERE id = ?", id)
	r, err := scanCashout(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *conn) UpdateCashout(ctx context.Context, r *welfare.CashoutRequest, expected welfare.CashoutStatus) error {
	vBy, vAt, vNotes := stampColumns(r.Verified)
	aBy, aAt, aNotes := stampColumns(r.Approved)
	dBy, dAt, dNotes := stampColumns(r.Disbursed)
	rBy, rAt, rNotes := stampColumns(r.Rejected)

	res, err := c.q.ExecContext(ctx, `
		UPDATE cashout_requests SET approved_amount = ?, status = ?,
			verified_by = ?, verified_at = ?, verified_notes = ?,
			approved_by = ?, approved_at = ?, approved_notes = ?,
			disbursed_by = ?, disbursed_at = ?, disbursed_notes = ?,
			rejected_by = ?, rejected_at = ?, rejected_notes = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`,
		nullDecimal(r.ApprovedAmount), string(r.Status),
		vBy, vAt, vNotes, aBy, aAt, aNotes, dBy, dAt, dNotes, rBy, rAt, rNotes,
		formatTime(r.UpdatedAt),
		r.ID, string(expected),
	)
	return checkGuarded(res, err, "cashout request", r.ID)
}

func (c *conn) ListCashouts(ctx context.Context, filter welfare.CashoutFilter) ([]welfare.CashoutRequest, error) {
	var w where
	if filter.MemberID != nil {
		w.add("member_id = ?", *filter.MemberID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	rows, err := c.q.QueryContext(ctx, "SELECT "+cashoutColumns+" FROM cashout_requests"+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cashout requests: %w", err)
	}
	defer rows.Close()

	var out []welfare.CashoutRequest
	for rows.Next() {
		r, err := scanCashout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *conn) HasOpenCashout(ctx context.Context, memberID int64) (bool, error) {
	var count int
	err := c.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cashout_requests WHERE member_id = ? AND status IN (?, ?, ?)",
		memberID, string(welfare.CashoutPending), string(welfare.CashoutVerified), string(welfare.CashoutApproved),
	).Scan(&count)
	return count > 0, err
}

func scanCashout(row scanner) (welfare.CashoutRequest, error) {
	var r welfare.CashoutRequest
	var requested, status, createdAt, updatedAt string
	var approved, reason, accNumber, accName, bankName sql.NullString
	var vBy, vAt, vNotes, aBy, aAt, aNotes, dBy, dAt, dNotes, rBy, rAt, rNotes sql.NullString

	err := row.Scan(&r.ID, &r.MemberID, &requested, &approved, &status, &reason,
		&accNumber, &accName, &bankName,
		&vBy, &vAt, &vNotes, &aBy, &aAt, &aNotes, &dBy, &dAt, &dNotes, &rBy, &rAt, &rNotes,
		&createdAt, &updatedAt)
	if err != nil {
		return welfare.CashoutRequest{}, err
	}

	r.RequestedAmount = generic.MustParseDecimal(requested)
	r.ApprovedAmount = decimalPtr(approved)
	r.Status = welfare.CashoutStatus(status)
	r.Reason = reason.String
	r.Bank = welfare.BankAccount{AccountNumber: accNumber.String, AccountName: accName.String, BankName: bankName.String}
	r.Verified = stampFrom(vBy, vAt, vNotes)
	r.Approved = stampFrom(aBy, aAt, aNotes)
	r.Disbursed = stampFrom(dBy, dAt, dNotes)
	r.Rejected = stampFrom(rBy, rAt, rNotes)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return r, nil
}
