package logmgr

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// StorageEngine is the external collaborator the log manager is bound
// to. It owns page storage, assigns LSNs, persists log bytes, and
// persists the master record. The log manager treats it as an opaque
// dependency: see internal/storageengine for a reference
// implementation.
type StorageEngine interface {
	// NextLSN allocates and returns the next monotonically increasing
	// LSN. Side-effect free otherwise.
	NextLSN() LSN

	// UpdateLog durably appends one serialized log record line.
	UpdateLog(line string) error

	// GetLog returns the entire persisted log as a newline-separated
	// sequence of serialized records.
	GetLog() (string, error)

	// StoreMaster durably records lsn as the master (checkpoint) pointer.
	StoreMaster(lsn LSN) error

	// GetMaster returns the stored master pointer, or NullLSN if none.
	GetMaster() (LSN, error)

	// PageWrite applies bytes at offset on page and sets its PageLSN
	// to newPageLSN. It returns false to signal failure.
	PageWrite(page PageID, offset uint32, bytes []byte, newPageLSN LSN) bool

	// GetLSN returns the PageLSN of page as currently buffered.
	GetLSN(page PageID) LSN
}

// ErrNoStorageEngine is returned when an operation is attempted before
// SetStorageEngine has been called.
var ErrNoStorageEngine = errors.New("logmgr: no storage engine bound")

// LogManager is the ARIES log manager: it owns the log tail and the
// transaction/dirty-page tables, and implements the forward
// operations and the recovery engine described in package logmgr's
// doc comment.
//
// LogManager is single-writer with respect to its own state: write,
// commit, abort, checkpoint, page_flushed, and recovery all take the
// same mutex. Callers must serialize their own invocations beyond
// that; the log manager provides no finer-grained locking.
type LogManager struct {
	mu sync.Mutex

	se StorageEngine

	txTable    *TransactionTable
	dirtyTable *DirtyPageTable
	tail       *LogTail

	log zerolog.Logger
}

// New creates a LogManager with empty tables and no bound storage
// engine. Call SetStorageEngine before issuing any operation.
func New(logger zerolog.Logger) *LogManager {
	return &LogManager{
		txTable:    NewTransactionTable(),
		dirtyTable: NewDirtyPageTable(),
		tail:       newLogTail(),
		log:        logger,
	}
}

// SetStorageEngine binds se as the log manager's storage engine. The
// engine is held as a plain reference; it must outlive the manager.
func (lm *LogManager) SetStorageEngine(se StorageEngine) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.se = se
	lm.tail.se = se
}

// TransactionTableSnapshot returns a deep copy of the current
// transaction table, for inspection tooling.
func (lm *LogManager) TransactionTableSnapshot() map[TxID]TxTableEntry {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.txTable.Snapshot()
}

// DirtyPageTableSnapshot returns a deep copy of the current
// dirty-page table, for inspection tooling.
func (lm *LogManager) DirtyPageTableSnapshot() map[PageID]LSN {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.dirtyTable.Snapshot()
}

// TailLen returns the number of records still buffered in the log
// tail, for inspection tooling.
func (lm *LogManager) TailLen() int {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.tail.len()
}

// FlushTail forces every record still buffered in the log tail to the
// storage engine. Forward operations flush only at their own
// durability points (commit, checkpoint, page_flushed); callers
// tearing the manager down invoke this so trailing records, such as
// the END after a commit or the CLRs written by recovery, are not
// lost with the process.
func (lm *LogManager) FlushTail() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.se == nil {
		return ErrNoStorageEngine
	}
	n := lm.tail.len()
	if n == 0 {
		return nil
	}
	return lm.tail.flush(lm.tail.records[n-1].LSN)
}
