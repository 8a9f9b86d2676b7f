package logmgr

import "strings"

// Write records a page update on behalf of tx and returns its LSN.
// If tx has no transaction table entry yet, one is created with
// status TxUnderway and PrevLSN NullLSN; otherwise PrevLSN is tx's
// current last_lsn. The page is entered into the dirty-page table if
// it is not already present, with rec_lsn equal to this record's LSN.
func (lm *LogManager) Write(tx TxID, page PageID, offset uint32, before, after []byte) (LSN, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.se == nil {
		return NullLSN, ErrNoStorageEngine
	}

	prev := NullLSN
	if lm.txTable.Has(tx) {
		prev = lm.txTable.LastLSN(tx)
	} else {
		lm.txTable.Insert(tx, NullLSN, TxUnderway)
	}

	curr := lm.se.NextLSN()
	lm.txTable.SetLastLSN(tx, curr)
	lm.dirtyTable.InsertIfAbsent(page, curr)
	lm.tail.append(NewUpdateRecord(curr, prev, tx, page, offset, before, after))

	lm.log.Debug().Int64("tx", int64(tx)).Int64("lsn", int64(curr)).Uint64("page", uint64(page)).Msg("write")
	return curr, nil
}

// Commit appends a COMMIT record for tx, forces the log through that
// record, then appends and forgets the matching END record. It is a
// no-op if tx has no entry or is not TxUnderway.
func (lm *LogManager) Commit(tx TxID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.se == nil {
		return ErrNoStorageEngine
	}
	status, ok := lm.txTable.Status(tx)
	if !ok || status != TxUnderway {
		return nil
	}

	curr := lm.se.NextLSN()
	lm.tail.append(NewCommitRecord(curr, lm.txTable.LastLSN(tx), tx))
	lm.txTable.SetStatus(tx, TxCommitted)
	lm.txTable.SetLastLSN(tx, curr)

	if err := lm.tail.flush(curr); err != nil {
		return err
	}

	next := lm.se.NextLSN()
	lm.tail.append(NewEndRecord(next, curr, tx))
	lm.txTable.Remove(tx)

	lm.log.Info().Int64("tx", int64(tx)).Msg("commit")
	return nil
}

// Abort appends an ABORT record for tx and rolls tx's updates back via
// Undo, restricted to tx and seeded from tx's last_lsn as of just
// before the ABORT record (the ABORT record itself carries nothing to
// undo). The logical log Undo walks is the persisted log followed by
// the entire current tail, including the ABORT record just appended.
//
// If tx has no table entry, the chain head is rebuilt from the logical
// log: a caller may abort a transaction whose records are durable but
// whose entry was lost with a previous process. A transaction whose
// last record is COMMIT or END cannot be aborted and the call is a
// no-op. If no record for tx exists at all, Abort ends the transaction
// itself instead of calling Undo, mirroring the PrevLSN == NullLSN
// branch Undo would otherwise take on the first step.
//
// See DESIGN.md for why Abort does not also self-clean up after a
// successful Undo: it relies on Undo reaching the end of tx's chain
// to append END and remove tx from the table.
func (lm *LogManager) Abort(tx TxID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.se == nil {
		return ErrNoStorageEngine
	}

	persisted, err := lm.readPersistedRecords()
	if err != nil {
		return err
	}

	prev := lm.txTable.LastLSN(tx)
	if prev == NullLSN {
		if last, ok := lastRecordForTx(persisted, lm.tail.records, tx); ok {
			switch last.Kind {
			case KindCommit, KindEnd:
				return nil
			case KindAbort:
				prev = last.PrevLSN
			default:
				prev = last.LSN
			}
			if prev != NullLSN {
				lm.txTable.Insert(tx, prev, TxUnderway)
			}
		}
	}
	curr := lm.se.NextLSN()
	lm.tail.append(NewAbortRecord(curr, prev, tx))
	lm.txTable.SetLastLSN(tx, curr)

	lm.log.Info().Int64("tx", int64(tx)).Msg("abort")

	if prev == NullLSN {
		lm.endTransaction(tx, curr)
		return nil
	}

	logical := make([]Record, 0, len(persisted)+lm.tail.len())
	logical = append(logical, persisted...)
	logical = append(logical, lm.tail.records...)

	return lm.undo(logical, tx, prev)
}

// Checkpoint takes a fuzzy checkpoint: it brackets a snapshot of the
// transaction and dirty-page tables between BEGIN_CKPT and END_CKPT
// records, forces the log through END_CKPT, and stores the BEGIN_CKPT
// LSN as the new master record. Pages and transactions may continue to
// change concurrently with other callers serialized behind the same
// mutex; the snapshot is only a lower bound for where Analyze must
// resume.
func (lm *LogManager) Checkpoint() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.se == nil {
		return ErrNoStorageEngine
	}

	begin := lm.se.NextLSN()
	lm.tail.append(NewBeginCkptRecord(begin))

	txSnap := lm.txTable.Snapshot()
	dirtySnap := lm.dirtyTable.Snapshot()

	end := lm.se.NextLSN()
	lm.tail.append(NewEndCkptRecord(end, begin, txSnap, dirtySnap))

	if err := lm.tail.flush(end); err != nil {
		return err
	}
	if err := lm.se.StoreMaster(begin); err != nil {
		return err
	}

	lm.log.Info().Int64("begin_ckpt", int64(begin)).Msg("checkpoint")
	return nil
}

// PageFlushed notifies the log manager that page is now durable on
// disk with its current PageLSN. The log is forced through that LSN
// (the write-ahead invariant) and the page is cleared from the
// dirty-page table.
func (lm *LogManager) PageFlushed(page PageID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.se == nil {
		return ErrNoStorageEngine
	}

	pageLSN := lm.se.GetLSN(page)
	if err := lm.tail.flush(pageLSN); err != nil {
		return err
	}
	lm.dirtyTable.Remove(page)
	return nil
}

// lastRecordForTx returns tx's most recent record across the persisted
// log and the tail, newest first.
func lastRecordForTx(persisted, tail []Record, tx TxID) (Record, bool) {
	for i := len(tail) - 1; i >= 0; i-- {
		if tail[i].TxID == tx {
			return tail[i], true
		}
	}
	for i := len(persisted) - 1; i >= 0; i-- {
		if persisted[i].TxID == tx {
			return persisted[i], true
		}
	}
	return Record{}, false
}

// readPersistedRecords fetches and parses the storage engine's
// durable log, oldest first. An empty log is not an error.
func (lm *LogManager) readPersistedRecords() ([]Record, error) {
	raw, err := lm.se.GetLog()
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	lines := strings.Split(raw, "\n")
	out := make([]Record, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		r, err := Parse(line)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
