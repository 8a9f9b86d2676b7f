package logmgr

// Recover runs the three-pass ARIES recovery protocol against the
// storage engine's persisted log: Analyze reconstructs the
// transaction and dirty-page tables as of the crash, Redo replays
// every update whose effect might not be on disk, and Undo rolls back
// every transaction left TxUnderway. It returns false without running
// Undo if Redo reports a storage failure; the caller's only recourse
// is to retry once the storage engine is healthy, since Redo is
// idempotent and safe to repeat from the same persisted log.
func (lm *LogManager) Recover() (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.se == nil {
		return false, ErrNoStorageEngine
	}

	log, err := lm.readPersistedRecords()
	if err != nil {
		return false, err
	}

	if err := lm.analyze(log); err != nil {
		return false, err
	}

	ok, err := lm.redo(log)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := lm.undo(log, NullTx, NullLSN); err != nil {
		return false, err
	}
	return true, nil
}

// analyze reconstructs the transaction table and dirty-page table by
// scanning log forward from the last checkpoint (or from the start of
// the log, if no master record is stored). It mutates lm.txTable and
// lm.dirtyTable in place; callers run it against an otherwise-fresh
// LogManager.
func (lm *LogManager) analyze(log []Record) error {
	start := 0

	beginLSN, err := lm.se.GetMaster()
	if err != nil {
		return err
	}
	if beginLSN != NullLSN {
		idx, ok := indexOfLSN(log, beginLSN)
		if !ok {
			return ErrLSNNotFound
		}
		ckptIdx := idx + 1
		if ckptIdx >= len(log) || log[ckptIdx].Kind != KindEndCkpt {
			return ErrMalformedRecord
		}
		lm.txTable.LoadSnapshot(log[ckptIdx].TxSnapshot)
		lm.dirtyTable.LoadSnapshot(log[ckptIdx].DirtySnapshot)
		start = ckptIdx + 1
	}

	for _, r := range log[start:] {
		switch r.Kind {
		case KindEnd:
			lm.txTable.Remove(r.TxID)
		case KindUpdate:
			lm.txTable.SetLastLSNOrInsert(r.TxID, r.LSN, TxUnderway)
			lm.dirtyTable.InsertIfAbsent(r.PageID, r.LSN)
		case KindCLR:
			lm.txTable.SetLastLSNOrInsert(r.TxID, r.LSN, TxUnderway)
			lm.dirtyTable.InsertIfAbsent(r.PageID, r.LSN)
		case KindAbort:
			lm.txTable.SetLastLSNOrInsert(r.TxID, r.LSN, TxUnderway)
		case KindCommit:
			lm.txTable.SetLastLSNOrInsert(r.TxID, r.LSN, TxCommitted)
		case KindBeginCkpt, KindEndCkpt:
			// No table effect outside the master-record jump above.
		}
	}
	return nil
}

// redo replays every UPDATE/CLR whose page was dirty at or before its
// LSN and whose on-disk PageLSN is still behind it, starting from the
// smallest rec_lsn in the dirty-page table. If the dirty-page table is
// empty there is nothing to redo; scanning from the start of the log
// is still necessary so that COMMIT records can be closed out with a
// matching END. It returns false if the storage engine rejects a
// page write.
func (lm *LogManager) redo(log []Record) (bool, error) {
	start := 0
	if minLSN, ok := lm.dirtyTable.MinRecLSN(); ok {
		start = indexOfFirstLSNAtLeast(log, minLSN)
	}

	for _, r := range log[start:] {
		switch r.Kind {
		case KindCommit:
			if lm.txTable.Has(r.TxID) {
				next := lm.se.NextLSN()
				lm.tail.append(NewEndRecord(next, r.LSN, r.TxID))
				lm.txTable.Remove(r.TxID)
			}
			continue
		case KindUpdate, KindCLR:
			// Fall through to the shared redo-eligibility check below.
		default:
			continue
		}

		if !lm.dirtyTable.Has(r.PageID) {
			continue
		}
		if lm.dirtyTable.RecLSN(r.PageID) > r.LSN {
			continue
		}
		if lm.se.GetLSN(r.PageID) >= r.LSN {
			continue
		}
		if !lm.se.PageWrite(r.PageID, r.Offset, r.AfterImage, r.LSN) {
			return false, nil
		}
	}
	return true, nil
}

// undo rolls back every update belonging to the transactions it
// targets: if tx is NullTx, every TxUnderway transaction in the
// current table, seeded from each one's own last_lsn; otherwise tx
// alone, seeded from singleSeed (the caller passes the LSN of tx's
// last record *before* any ABORT record was appended, since an ABORT
// record itself carries nothing to undo; see Abort in forward.go). It
// walks the ToUndo set from largest LSN to smallest, writing a CLR for
// each UPDATE it undoes and chasing UndoNextLSN across CLRs, until
// every chain reaches PrevLSN/UndoNextLSN == NullLSN, at which point it
// appends END and removes the transaction from the table.
func (lm *LogManager) undo(log []Record, tx TxID, singleSeed LSN) error {
	toUndo := newLSNSet()

	if tx == NullTx {
		for _, t := range lm.txTable.Underway() {
			if lsn := lm.txTable.LastLSN(t); lsn != NullLSN {
				toUndo.add(lsn)
			}
		}
	} else if singleSeed != NullLSN {
		toUndo.add(singleSeed)
	}

	for !toUndo.empty() {
		lsn := toUndo.popMax()

		idx, ok := indexOfLSN(log, lsn)
		if !ok {
			return ErrLSNNotFound
		}
		r := log[idx]

		switch r.Kind {
		case KindUpdate:
			curr := lm.se.NextLSN()
			prev := lm.txTable.LastLSN(r.TxID)
			lm.txTable.SetLastLSNOrInsert(r.TxID, curr, TxUnderway)
			lm.tail.append(NewCLRRecord(curr, prev, r.TxID, r.PageID, r.Offset, r.BeforeImage, r.PrevLSN))
			lm.dirtyTable.LowerTo(r.PageID, r.LSN)

			if !lm.se.PageWrite(r.PageID, r.Offset, r.BeforeImage, curr) {
				return ErrStorageUnavailable
			}

			if r.PrevLSN != NullLSN {
				toUndo.add(r.PrevLSN)
			} else {
				lm.endTransaction(r.TxID, curr)
			}
		case KindCLR:
			if r.UndoNextLSN != NullLSN {
				toUndo.add(r.UndoNextLSN)
			} else {
				lm.endTransaction(r.TxID, lm.txTable.LastLSN(r.TxID))
			}
		default:
			return ErrContractViolation
		}
	}
	return nil
}

// endTransaction appends an END record chained off prev and removes
// tx from the transaction table.
func (lm *LogManager) endTransaction(tx TxID, prev LSN) {
	curr := lm.se.NextLSN()
	lm.tail.append(NewEndRecord(curr, prev, tx))
	lm.txTable.Remove(tx)
}

// indexOfLSN returns the position of the record with the given LSN in
// log, scanning forward.
func indexOfLSN(log []Record, lsn LSN) (int, bool) {
	for i, r := range log {
		if r.LSN == lsn {
			return i, true
		}
	}
	return 0, false
}

// indexOfFirstLSNAtLeast returns the position of the first record whose
// LSN is >= lsn, or len(log) if every record in the log predates it.
// redo uses this instead of indexOfLSN's exact match: min_rec_lsn names
// the oldest update a dirty page might still be missing, not a
// guaranteed log position, so redo must degrade to starting from the
// first surviving LSN at or after it rather than fail recovery outright
// when that exact LSN was itself truncated away.
func indexOfFirstLSNAtLeast(log []Record, lsn LSN) int {
	for i, r := range log {
		if r.LSN >= lsn {
			return i
		}
	}
	return len(log)
}

// lsnSet is ToUndo: a set of pending LSNs with max-first extraction,
// matching the original algorithm's greatest-LSN-first undo order.
type lsnSet struct {
	m map[LSN]struct{}
}

func newLSNSet() *lsnSet {
	return &lsnSet{m: make(map[LSN]struct{})}
}

func (s *lsnSet) add(lsn LSN) {
	s.m[lsn] = struct{}{}
}

func (s *lsnSet) empty() bool {
	return len(s.m) == 0
}

func (s *lsnSet) popMax() LSN {
	max := NullLSN
	first := true
	for lsn := range s.m {
		if first || lsn > max {
			max = lsn
			first = false
		}
	}
	delete(s.m, max)
	return max
}
