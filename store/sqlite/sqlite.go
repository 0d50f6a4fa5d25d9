/*
Package sqlite provides a SQLite-backed implementation of welfare.TxStore.

PURPOSE:
  Persists members, contributions, loans, claims, cashouts, approvals,
  programs and the fund ledger. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  generic.LedgerStore: Append-only fund ledger
  generic.Sequencer:   Atomic named counters
  welfare.TxStore:     Everything the workflows read and write

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on ledger_entries
  - Triggers abort any UPDATE or DELETE that reaches the table anyway
  - Corrections via reversal entries only

STATUS GUARDS:
  Every Update* runs `UPDATE ... WHERE id = ? AND status = ?` with the
  status the caller loaded. Zero rows affected means another writer moved
  the row first and the call fails with generic.ErrConcurrentModification.

SEQUENCES:
  INSERT ... ON CONFLICT DO UPDATE SET value = value + 1 RETURNING value.
  One statement, so two callers never receive the same number.

UNIQUENESS:
  idx_cashout_one_open:      one pending/verified/approved cashout per member
  program_enrollments UNIQUE: one enrollment per member per program
  Violations surface as generic.ErrConflict.

CONCURRENCY:
  The pool is limited to one connection. Writes serialize, and a ":memory:"
  database is shared by every call instead of one database per connection.
  Inside WithTx, use only the Store passed to fn; the outer Store would wait
  for the connection the transaction holds.

USAGE:
  store, err := sqlite.New("./data/welfare.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := welfare.NewService(store, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - welfare/store.go: Interface definitions
  - generic/store/memory.go: In-memory ledger for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/welfare"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn implements welfare.Store over a queryer.
type conn struct {
	q queryer
}

// Store implements welfare.TxStore using SQLite.
type Store struct {
	*conn
	db *sql.DB
}

var _ welfare.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000"
	if dbPath != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{conn: &conn{q: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx executes fn within a database transaction. fn's error rolls
// everything back, ledger entries included.
func (s *Store) WithTx(ctx context.Context, fn func(welfare.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&conn{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Fund ledger (append-only)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		entry_type TEXT NOT NULL CHECK (entry_type IN ('inflow', 'outflow')),
		source TEXT NOT NULL,
		amount TEXT NOT NULL,
		transaction_date TEXT NOT NULL,
		member_id INTEGER,
		reference TEXT,
		description TEXT,
		idempotency_key TEXT UNIQUE,
		reversal_of TEXT,
		recorded_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_date
		ON ledger_entries(transaction_date);
	CREATE INDEX IF NOT EXISTS idx_ledger_member
		ON ledger_entries(member_id) WHERE member_id IS NOT NULL;

	CREATE TRIGGER IF NOT EXISTS ledger_entries_no_update
		BEFORE UPDATE ON ledger_entries
	BEGIN
		SELECT RAISE(ABORT, 'ledger entries are append-only');
	END;

	CREATE TRIGGER IF NOT EXISTS ledger_entries_no_delete
		BEFORE DELETE ON ledger_entries
	BEGIN
		SELECT RAISE(ABORT, 'ledger entries are append-only');
	END;

	-- Named counters for receipt/claim/registration/certificate numbers
	CREATE TABLE IF NOT EXISTS sequences (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contribution_plans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		frequency TEXT NOT NULL,
		amount TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		registration_number TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		phone TEXT,
		date_of_birth TEXT,
		plan_id INTEGER REFERENCES contribution_plans(id),
		status TEXT NOT NULL,
		registration_date TEXT NOT NULL,
		eligibility_start_date TEXT,
		is_complete BOOLEAN NOT NULL DEFAULT FALSE,
		cashout_count INTEGER NOT NULL DEFAULT 0,
		last_cashout_date TEXT,
		bank_account_number TEXT,
		bank_account_name TEXT,
		bank_name TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_members_status ON members(status);

	CREATE TABLE IF NOT EXISTS dependents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		member_id INTEGER NOT NULL REFERENCES members(id),
		full_name TEXT NOT NULL,
		relationship TEXT NOT NULL,
		date_of_birth TEXT NOT NULL,
		eligible BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dependents_member ON dependents(member_id);

	CREATE TABLE IF NOT EXISTS contributions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		member_id INTEGER NOT NULL REFERENCES members(id),
		plan_id INTEGER REFERENCES contribution_plans(id),
		amount TEXT NOT NULL,
		fine_amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL,
		receipt_number TEXT NOT NULL UNIQUE,
		recorded_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Eligibility counts (hot path)
	CREATE INDEX IF NOT EXISTS idx_contributions_member_status_date
		ON contributions(member_id, status, payment_date);
	CREATE INDEX IF NOT EXISTS idx_contributions_status_period_end
		ON contributions(status, period_end);

	CREATE TABLE IF NOT EXISTS loans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		member_id INTEGER NOT NULL REFERENCES members(id),
		amount TEXT NOT NULL,
		repayment_mode TEXT NOT NULL,
		installment_amount TEXT,
		repayment_period TEXT,
		purpose TEXT,
		status TEXT NOT NULL,
		start_date TEXT,
		approved_by TEXT,
		approved_at TEXT,
		disbursed_by TEXT,
		disbursed_at TEXT,
		closed_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_loans_member_status ON loans(member_id, status);

	CREATE TABLE IF NOT EXISTS loan_repayments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		loan_id INTEGER NOT NULL REFERENCES loans(id),
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		reference TEXT,
		recorded_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_repayments_loan ON loan_repayments(loan_id);

	CREATE TABLE IF NOT EXISTS healthcare_providers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		address TEXT,
		phone TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS health_claims (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		claim_number TEXT NOT NULL UNIQUE,
		member_id INTEGER NOT NULL REFERENCES members(id),
		dependent_id INTEGER REFERENCES dependents(id),
		provider_id INTEGER NOT NULL REFERENCES healthcare_providers(id),
		claim_type TEXT NOT NULL,
		treatment_date TEXT NOT NULL,
		diagnosis TEXT,
		billed_amount TEXT NOT NULL,
		coverage_percent TEXT NOT NULL,
		covered_amount TEXT NOT NULL,
		copay_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		submitted_by TEXT NOT NULL,
		reviewed_by TEXT,
		reviewed_at TEXT,
		review_notes TEXT,
		paid_by TEXT,
		paid_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_claims_member ON health_claims(member_id);
	CREATE INDEX IF NOT EXISTS idx_claims_status ON health_claims(status);

	CREATE TABLE IF NOT EXISTS claim_documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		claim_id INTEGER NOT NULL REFERENCES health_claims(id),
		file_path TEXT NOT NULL,
		doc_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		mime_type TEXT NOT NULL,
		uploaded_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_claim_documents_claim ON claim_documents(claim_id);

	CREATE TABLE IF NOT EXISTS cashout_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		member_id INTEGER NOT NULL REFERENCES members(id),
		requested_amount TEXT NOT NULL,
		approved_amount TEXT,
		status TEXT NOT NULL,
		reason TEXT,
		bank_account_number TEXT,
		bank_account_name TEXT,
		bank_name TEXT,
		verified_by TEXT, verified_at TEXT, verified_notes TEXT,
		approved_by TEXT, approved_at TEXT, approved_notes TEXT,
		disbursed_by TEXT, disbursed_at TEXT, disbursed_notes TEXT,
		rejected_by TEXT, rejected_at TEXT, rejected_notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: at most one open request per member
	CREATE UNIQUE INDEX IF NOT EXISTS idx_cashout_one_open
		ON cashout_requests(member_id)
		WHERE status IN ('pending', 'verified', 'approved');

	CREATE TABLE IF NOT EXISTS approvals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_type TEXT NOT NULL CHECK (subject_type IN ('loan', 'claim', 'registration')),
		subject_id INTEGER NOT NULL,
		level INTEGER NOT NULL CHECK (level BETWEEN 1 AND 3),
		approver TEXT NOT NULL,
		status TEXT NOT NULL,
		comments TEXT,
		decided_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_approvals_subject ON approvals(subject_type, subject_id);

	CREATE TABLE IF NOT EXISTS programs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		capacity INTEGER NOT NULL DEFAULT 0,
		eligibility_rules TEXT,
		start_date TEXT,
		end_date TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS program_enrollments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		program_id INTEGER NOT NULL REFERENCES programs(id),
		member_id INTEGER NOT NULL REFERENCES members(id),
		status TEXT NOT NULL,
		enrolled_at TEXT NOT NULL,
		completed_at TEXT,
		withdrawn_at TEXT,
		certificate_number TEXT UNIQUE,
		certificate_issued_at TEXT,
		updated_at TEXT NOT NULL,
		UNIQUE(program_id, member_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SEQUENCES (generic.Sequencer)
// =============================================================================

// NextValue increments and returns the named counter in one statement.
func (c *conn) NextValue(ctx context.Context, name string) (int64, error) {
	var value int64
	err := c.q.QueryRowContext(ctx, `
		INSERT INTO sequences (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
		RETURNING value
	`, name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", name, err)
	}
	return value, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseDate(s string) time.Time {
	t, _ := generic.ParseDate(s)
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: generic.FormatDate(*t), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil || *id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func datePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseDate(ns.String)
	return &t
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	id := n.Int64
	return &id
}

func decimalPtr(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid {
		return nil
	}
	d := generic.MustParseDecimal(ns.String)
	return &d
}

// checkGuarded maps a status-guarded UPDATE that touched no rows to
// ErrConcurrentModification.
func checkGuarded(res sql.Result, err error, entity string, id int64) error {
	if err != nil {
		return fmt.Errorf("failed to update %s %d: %w", entity, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, generic.ErrConcurrentModification)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// where joins optional conditions into a WHERE clause.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
