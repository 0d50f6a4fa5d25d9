/*
store.go - Persistence interfaces for the ledger and number sequences

PURPOSE:
  Defines the interface between the fund engine and the database.
  Different implementations can use SQLite, PostgreSQL, or in-memory storage.

KEY INTERFACES:
  LedgerStore: Append-only ledger persistence (append, load, exists)
  Sequencer:   Atomic named counters for receipt/claim/registration numbers

APPEND-ONLY CONTRACT:
  LedgerStore exposes AppendEntry and reads only:
  - NO UpdateEntry() or DeleteEntry() methods exist

IDEMPOTENCY:
  An entry may carry an idempotency key. If the key already exists, the
  write is rejected. This prevents double-posting a disbursement from a
  retried request.

SEQUENCES:
  "Find the last number and add one" races under concurrent creation.
  Sequencer.NextValue must be atomic: two callers never get the same value
  for the same name.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Higher-level interface using LedgerStore
  - sequence.go: Number formats built on Sequencer
*/
package generic

import "context"

// LedgerStore handles persistence of ledger entries.
// IMPORTANT: LedgerStore is APPEND-ONLY. No Update, No Delete. Ever.
type LedgerStore interface {
	// AppendEntry persists an entry. Returns ErrDuplicateIdempotencyKey if
	// the key exists.
	AppendEntry(ctx context.Context, e Entry) error

	// EntryExists checks if an idempotency key already exists.
	EntryExists(ctx context.Context, idempotencyKey string) (bool, error)

	// GetEntry returns nil, nil when the entry does not exist.
	GetEntry(ctx context.Context, id EntryID) (*Entry, error)

	// LoadEntries returns matching entries ordered by transaction date, then
	// creation time.
	LoadEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)
}

// Sequencer hands out strictly increasing values per name, starting at 1.
type Sequencer interface {
	NextValue(ctx context.Context, name string) (int64, error)
}
