package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcdf/welfare-engine/generic"
)

// =============================================================================
// LEDGER STORE (generic.LedgerStore interface)
// =============================================================================

const entryColumns = `id, entry_type, source, amount, transaction_date, member_id, reference,
	description, idempotency_key, reversal_of, recorded_by, created_at`

// AppendEntry adds an entry to the ledger.
func (c *conn) AppendEntry(ctx context.Context, e generic.Entry) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(e.ID),
		string(e.Type),
		e.Source,
		e.Amount.String(),
		generic.FormatDate(e.TransactionDate),
		nullID(e.MemberID),
		nullString(e.Reference),
		nullString(e.Description),
		nullString(e.IdempotencyKey),
		nullString(string(e.ReversalOf)),
		string(e.RecordedBy),
		formatTime(e.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// EntryExists checks if an idempotency key exists.
func (c *conn) EntryExists(ctx context.Context, idempotencyKey string) (bool, error) {
	var count int
	err := c.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ledger_entries WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)
	return count > 0, err
}

func (c *conn) GetEntry(ctx context.Context, id generic.EntryID) (*generic.Entry, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM ledger_entries WHERE id = ?", string(id))
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// LoadEntries returns matching entries ordered by transaction date, then
// creation.
func (c *conn) LoadEntries(ctx context.Context, filter generic.EntryFilter) ([]generic.Entry, error) {
	var w where
	if filter.From != nil {
		w.add("transaction_date >= ?", generic.FormatDate(*filter.From))
	}
	if filter.To != nil {
		w.add("transaction_date <= ?", generic.FormatDate(*filter.To))
	}
	if filter.MemberID != nil {
		w.add("member_id = ?", *filter.MemberID)
	}
	if filter.Type != "" {
		w.add("entry_type = ?", string(filter.Type))
	}
	if filter.Source != "" {
		w.add("source = ?", filter.Source)
	}

	rows, err := c.q.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries"+w.String()+
			" ORDER BY transaction_date ASC, created_at ASC, rowid ASC",
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []generic.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row scanner) (generic.Entry, error) {
	var e generic.Entry
	var id, entryType, amount, txDate, recordedBy, createdAt string
	var memberID sql.NullInt64
	var reference, description, idemKey, reversalOf sql.NullString

	err := row.Scan(&id, &entryType, &e.Source, &amount, &txDate, &memberID, &reference,
		&description, &idemKey, &reversalOf, &recordedBy, &createdAt)
	if err != nil {
		return generic.Entry{}, err
	}

	e.ID = generic.EntryID(id)
	e.Type = generic.EntryType(entryType)
	e.Amount = generic.MustParseDecimal(amount)
	e.TransactionDate = parseDate(txDate)
	e.MemberID = idPtr(memberID)
	e.Reference = reference.String
	e.Description = description.String
	e.IdempotencyKey = idemKey.String
	e.ReversalOf = generic.EntryID(reversalOf.String)
	e.RecordedBy = generic.Actor(recordedBy)
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}
