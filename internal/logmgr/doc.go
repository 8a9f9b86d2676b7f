// Package logmgr implements the ARIES write-ahead log manager: the
// log record model, the in-memory transaction and dirty-page tables,
// the log tail, the forward operations (write, commit, abort,
// checkpoint, page_flushed), and the three-pass recovery engine
// (analyze, redo, undo).
//
// The package never performs disk I/O itself. It is bound to a
// StorageEngine (see manager.go) that owns LSN allocation, persists
// log bytes and the master record, and applies page writes. This
// mirrors the ARIES division of labor: the log manager is the
// protocol, the storage engine is the disk.
//
// LogManager is single-writer: one mutex guards every forward
// operation and the whole of recovery, so callers never observe a
// table or tail in a half-updated state.
package logmgr
