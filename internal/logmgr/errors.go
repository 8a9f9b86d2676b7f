package logmgr

import "errors"

// Error kinds surfaced by the log manager. ErrMalformedRecord is
// defined in record.go alongside the codec it belongs to.
var (
	// ErrStorageUnavailable is returned when the storage engine's
	// PageWrite fails during Undo (from Abort or from Recover's undo
	// pass). A PageWrite failure during Redo is reported instead by
	// Recover returning false with a nil error. The caller's policy is
	// to retry recovery from the persisted log, which is idempotent.
	ErrStorageUnavailable = errors.New("logmgr: storage engine unavailable")

	// ErrLSNNotFound is returned when a chain walk (ToUndo, checkpoint
	// resume) references an LSN that does not appear in the log being
	// scanned. The original implementation this package is modeled on
	// relies on C++ map-default-insert semantics here, which have no
	// Go equivalent; this package surfaces the condition as an error
	// instead of fabricating a zero-value record.
	ErrLSNNotFound = errors.New("logmgr: LSN not found in log")

	// ErrContractViolation is returned if a ToUndo LSN resolves to a
	// record whose kind is neither UPDATE nor CLR. This should never
	// happen; treat it as a fatal assertion failure, not a condition
	// to recover from.
	ErrContractViolation = errors.New("logmgr: contract violation: undo target is not UPDATE or CLR")
)
