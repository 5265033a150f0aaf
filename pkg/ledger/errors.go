package ledger

import "errors"

// Sentinel errors for ledger operations, per spec 7.
var (
	// ErrIO covers failures opening, locking, reading or writing the
	// backing file.
	ErrIO = errors.New("ledger: io error")

	// ErrTamperSuspected is returned by VerifyChain, and from Append once
	// a prior VerifyChain call has latched it, whenever the stored
	// hash-chain does not reconstruct. The ledger is fail-closed: once
	// suspected, a Ledger refuses further Append calls until reopened
	// against a trusted file.
	ErrTamperSuspected = errors.New("ledger: tamper suspected, hash chain broken")

	// ErrLocked is returned by Open when another process already holds
	// the advisory write lock on the ledger file.
	ErrLocked = errors.New("ledger: file locked by another writer")

	// ErrClosed is returned by any operation on a Ledger after Close has
	// been called.
	ErrClosed = errors.New("ledger: already closed")

	// ErrNotFound names a lookup past the end of the recorded events.
	// No function in this package returns it.
	ErrNotFound = errors.New("ledger: event not found")
)
