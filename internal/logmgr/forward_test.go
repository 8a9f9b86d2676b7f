package logmgr

import (
	"testing"

	"github.com/rs/zerolog"
)

func newTestManager() (*LogManager, *fakeStorageEngine) {
	lm := New(zerolog.Nop())
	se := newFakeStorageEngine()
	lm.SetStorageEngine(se)
	return lm, se
}

func TestWriteCreatesTxAndDirtyEntry(t *testing.T) {
	lm, _ := newTestManager()

	lsn, err := lm.Write(1, 7, 0, []byte("old"), []byte("new"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	tt := lm.TransactionTableSnapshot()
	entry, ok := tt[1]
	if !ok || entry.LastLSN != lsn || entry.Status != TxUnderway {
		t.Fatalf("transaction table entry = %+v, ok=%v, want LastLSN=%v Status=TxUnderway", entry, ok, lsn)
	}

	dt := lm.DirtyPageTableSnapshot()
	if rec, ok := dt[7]; !ok || rec != lsn {
		t.Fatalf("dirty page table entry for page 7 = (%v, %v), want (%v, true)", rec, ok, lsn)
	}
}

func TestWriteChainsPrevLSN(t *testing.T) {
	lm, _ := newTestManager()

	first, err := lm.Write(1, 7, 0, nil, []byte("a"))
	if err != nil {
		t.Fatalf("first Write() error = %v", err)
	}
	second, err := lm.Write(1, 7, 1, nil, []byte("b"))
	if err != nil {
		t.Fatalf("second Write() error = %v", err)
	}

	if lm.tail.records[1].PrevLSN != first {
		t.Fatalf("second record PrevLSN = %v, want %v", lm.tail.records[1].PrevLSN, first)
	}
	if second <= first {
		t.Fatalf("second LSN %v not greater than first LSN %v", second, first)
	}
}

func TestDirtyPageTableDoesNotLowerOnSecondWrite(t *testing.T) {
	lm, _ := newTestManager()

	first, _ := lm.Write(1, 7, 0, nil, []byte("a"))
	lm.Write(1, 7, 1, nil, []byte("b"))

	dt := lm.DirtyPageTableSnapshot()
	if dt[7] != first {
		t.Fatalf("dirty page rec_lsn = %v, want %v (first dirtying LSN)", dt[7], first)
	}
}

func TestCommitAppendsCommitThenEndAndRemovesTx(t *testing.T) {
	lm, se := newTestManager()

	lm.Write(1, 7, 0, nil, []byte("a"))
	if err := lm.Commit(1); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if lm.TailLen() != 1 {
		t.Fatalf("TailLen() = %d, want 1 (commit flushes through COMMIT, appends END after)", lm.TailLen())
	}

	tt := lm.TransactionTableSnapshot()
	if _, ok := tt[1]; ok {
		t.Fatalf("transaction table still has tx 1 after commit: %+v", tt)
	}

	log, err := se.GetLog()
	if err != nil {
		t.Fatalf("GetLog() error = %v", err)
	}
	if log == "" {
		t.Fatal("persisted log is empty after Commit")
	}
}

func TestCommitNoOpWhenTxAbsent(t *testing.T) {
	lm, se := newTestManager()

	if err := lm.Commit(99); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if lm.TailLen() != 0 {
		t.Fatalf("TailLen() = %d, want 0 for a no-op commit", lm.TailLen())
	}
	if log, _ := se.GetLog(); log != "" {
		t.Fatalf("persisted log = %q, want empty", log)
	}
}

func TestCheckpointStoresMasterAndFlushes(t *testing.T) {
	lm, se := newTestManager()

	lm.Write(1, 7, 0, nil, []byte("a"))
	if err := lm.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}

	if lm.TailLen() != 0 {
		t.Fatalf("TailLen() = %d, want 0 after checkpoint flush", lm.TailLen())
	}
	if se.master == NullLSN {
		t.Fatal("StoreMaster was never called")
	}
}

func TestPageFlushedClearsDirtyEntryAndFlushesLog(t *testing.T) {
	lm, se := newTestManager()

	lsn, _ := lm.Write(1, 7, 0, nil, []byte("a"))
	se.pages[7] = &fakePage{lsn: lsn, bytes: map[uint32][]byte{}}

	if err := lm.PageFlushed(7); err != nil {
		t.Fatalf("PageFlushed() error = %v", err)
	}

	dt := lm.DirtyPageTableSnapshot()
	if _, ok := dt[7]; ok {
		t.Fatalf("dirty page table still has page 7 after PageFlushed: %+v", dt)
	}
	if lm.TailLen() != 0 {
		t.Fatalf("TailLen() = %d, want 0 after PageFlushed forces the log", lm.TailLen())
	}
}

func TestAbortUndoesWritesAndRestoresBeforeImages(t *testing.T) {
	lm, se := newTestManager()

	lm.Write(1, 7, 0, []byte("orig-a"), []byte("new-a"))
	lm.Write(1, 7, 1, []byte("orig-b"), []byte("new-b"))

	if err := lm.Abort(1); err != nil {
		t.Fatalf("Abort() error = %v", err)
	}

	if got := se.pageContent(7, 0); string(got) != "orig-a" {
		t.Fatalf("page content at offset 0 = %q, want %q", got, "orig-a")
	}
	if got := se.pageContent(7, 1); string(got) != "orig-b" {
		t.Fatalf("page content at offset 1 = %q, want %q", got, "orig-b")
	}

	tt := lm.TransactionTableSnapshot()
	if _, ok := tt[1]; ok {
		t.Fatalf("transaction table still has tx 1 after its abort chain reached NullLSN: %+v", tt)
	}
}

func TestAbortRebuildsChainFromPersistedLog(t *testing.T) {
	lm, se := newTestManager()

	lm.Write(1, 7, 0, []byte("orig"), []byte("new"))
	if err := lm.tail.flush(lm.tail.records[len(lm.tail.records)-1].LSN); err != nil {
		t.Fatalf("flush: %v", err)
	}

	// A fresh manager over the same engine has lost the table entry but
	// not the durable chain; Abort must rebuild the chain head from the
	// log rather than write an END over an uncompensated update.
	fresh := New(zerolog.Nop())
	fresh.SetStorageEngine(se)
	if err := fresh.Abort(1); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	if got := se.pageContent(7, 0); string(got) != "orig" {
		t.Fatalf("page content = %q, want %q", got, "orig")
	}
	if _, ok := fresh.TransactionTableSnapshot()[1]; ok {
		t.Fatal("transaction table still has tx 1 after abort")
	}
}

func TestAbortNoOpAfterCommitRecord(t *testing.T) {
	lm, se := newTestManager()

	lm.Write(1, 7, 0, []byte("orig"), []byte("new"))
	if err := lm.Commit(1); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	fresh := New(zerolog.Nop())
	fresh.SetStorageEngine(se)
	before := len(se.lines)
	if err := fresh.Abort(1); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if fresh.TailLen() != 0 || len(se.lines) != before {
		t.Fatal("aborting a committed transaction must not write any record")
	}
}
