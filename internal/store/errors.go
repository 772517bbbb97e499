package store

import "errors"

// Sentinel errors returned by store methods. Callers should use [errors.Is]
// to match against these values.
var (
	// ErrBackendUnavailable is returned (wrapped) when the durable backend
	// cannot be reached: connection failures, retryable PostgreSQL codes or
	// a failed ping. The fallback store reacts to it by switching to memory.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrEmptyOwner is returned when a store method is called without an
	// owner; records cannot be keyed without one.
	ErrEmptyOwner = errors.New("empty owner")

	// ErrLocalStateNotFound is returned by the client store when no cursor
	// row exists for the requested user.
	ErrLocalStateNotFound = errors.New("local sync state not found")
)

// Low-level database operation errors. These are returned (or wrapped) by
// store methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails.
	ErrScanningRows = errors.New("failed to scan delta rows")
)
