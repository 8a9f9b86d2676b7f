package logmgr

import "testing"

func TestAnalyzeWithoutCheckpointScansWholeLog(t *testing.T) {
	lm, se := newTestManager()
	log := []Record{
		NewUpdateRecord(0, NullLSN, 1, 7, 0, []byte("a"), []byte("b")),
		NewCommitRecord(1, 0, 1),
		NewEndRecord(2, 1, 1),
		NewUpdateRecord(3, NullLSN, 2, 8, 0, []byte("c"), []byte("d")),
	}
	se.master = NullLSN

	if err := lm.analyze(log); err != nil {
		t.Fatalf("analyze() error = %v", err)
	}

	tt := lm.TransactionTableSnapshot()
	if _, ok := tt[1]; ok {
		t.Fatalf("tx 1 should have been removed by its END record: %+v", tt)
	}
	entry, ok := tt[2]
	if !ok || entry.Status != TxUnderway || entry.LastLSN != 3 {
		t.Fatalf("tx 2 entry = %+v, ok=%v, want {LastLSN:3 Status:TxUnderway}", entry, ok)
	}

	dt := lm.DirtyPageTableSnapshot()
	if rec, ok := dt[7]; !ok || rec != 0 {
		t.Fatalf("dirty page 7 rec_lsn = (%v, %v), want (0, true): a log with no checkpoint is scanned from its first record", rec, ok)
	}
	if rec, ok := dt[8]; !ok || rec != 3 {
		t.Fatalf("dirty page 8 rec_lsn = (%v, %v), want (3, true)", rec, ok)
	}
}

func TestAnalyzeResumesFromCheckpointSnapshot(t *testing.T) {
	lm, se := newTestManager()
	log := []Record{
		NewUpdateRecord(0, NullLSN, 1, 7, 0, []byte("a"), []byte("b")),
		NewBeginCkptRecord(1),
		NewEndCkptRecord(2, 1,
			map[TxID]TxTableEntry{1: {LastLSN: 0, Status: TxUnderway}},
			map[PageID]LSN{7: 0},
		),
		NewUpdateRecord(3, 0, 1, 7, 1, []byte("c"), []byte("d")),
	}
	se.master = 1

	if err := lm.analyze(log); err != nil {
		t.Fatalf("analyze() error = %v", err)
	}

	tt := lm.TransactionTableSnapshot()
	if entry := tt[1]; entry.LastLSN != 3 || entry.Status != TxUnderway {
		t.Fatalf("tx 1 entry = %+v, want {LastLSN:3 Status:TxUnderway}", entry)
	}
}

func TestRedoReappliesUncommittedDiskImage(t *testing.T) {
	lm, se := newTestManager()
	log := []Record{
		NewUpdateRecord(0, NullLSN, 1, 7, 0, nil, []byte("after")),
	}
	lm.dirtyTable.InsertIfAbsent(7, 0)

	ok, err := lm.redo(log)
	if err != nil || !ok {
		t.Fatalf("redo() = (%v, %v), want (true, nil)", ok, err)
	}
	if got := se.pageContent(7, 0); string(got) != "after" {
		t.Fatalf("page content = %q, want %q", got, "after")
	}
}

func TestRedoSkipsAlreadyDurablePage(t *testing.T) {
	lm, se := newTestManager()
	log := []Record{
		NewUpdateRecord(0, NullLSN, 1, 7, 0, nil, []byte("after")),
	}
	lm.dirtyTable.InsertIfAbsent(7, 0)
	se.pages[7] = &fakePage{lsn: 5, bytes: map[uint32][]byte{0: []byte("already-durable")}}

	ok, err := lm.redo(log)
	if err != nil || !ok {
		t.Fatalf("redo() = (%v, %v), want (true, nil)", ok, err)
	}
	if got := se.pageContent(7, 0); string(got) != "already-durable" {
		t.Fatalf("page content = %q, want unchanged %q", got, "already-durable")
	}
}

func TestRedoClosesCommittedTransactions(t *testing.T) {
	lm, _ := newTestManager()
	log := []Record{
		NewUpdateRecord(0, NullLSN, 1, 7, 0, nil, []byte("after")),
		NewCommitRecord(1, 0, 1),
	}
	lm.dirtyTable.InsertIfAbsent(7, 0)
	lm.txTable.Insert(1, 1, TxCommitted)

	ok, err := lm.redo(log)
	if err != nil || !ok {
		t.Fatalf("redo() = (%v, %v), want (true, nil)", ok, err)
	}
	if lm.TailLen() != 1 {
		t.Fatalf("TailLen() = %d, want 1 (the synthesized END record)", lm.TailLen())
	}
	if _, ok := lm.TransactionTableSnapshot()[1]; ok {
		t.Fatal("tx 1 should have been removed once redo closed out its commit")
	}
}
