package storage

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ariesdb/logmgr/internal/logmgr"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(DefaultEngineOptions().WithDataDir(t.TempDir()).WithBufferPoolSize(4))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestNextLSNMonotonic(t *testing.T) {
	e := openTestEngine(t)
	var prev logmgr.LSN = -1
	for i := 0; i < 5; i++ {
		lsn := e.NextLSN()
		if lsn <= prev {
			t.Fatalf("NextLSN() = %d, want > %d", lsn, prev)
		}
		prev = lsn
	}
}

func TestUpdateLogAndGetLogRoundTrip(t *testing.T) {
	e := openTestEngine(t)

	if err := e.UpdateLog("line-one"); err != nil {
		t.Fatalf("UpdateLog: %v", err)
	}
	if err := e.UpdateLog("line-two"); err != nil {
		t.Fatalf("UpdateLog: %v", err)
	}

	got, err := e.GetLog()
	if err != nil {
		t.Fatalf("GetLog: %v", err)
	}
	want := "line-one\nline-two"
	if got != want {
		t.Fatalf("GetLog() = %q, want %q", got, want)
	}
}

func TestGetLogEmpty(t *testing.T) {
	e := openTestEngine(t)
	got, err := e.GetLog()
	if err != nil {
		t.Fatalf("GetLog: %v", err)
	}
	if got != "" {
		t.Fatalf("GetLog() = %q, want empty", got)
	}
}

func TestMasterRecordRoundTrip(t *testing.T) {
	e := openTestEngine(t)

	lsn, err := e.GetMaster()
	if err != nil {
		t.Fatalf("GetMaster: %v", err)
	}
	if lsn != logmgr.NullLSN {
		t.Fatalf("GetMaster() before any Store = %d, want NullLSN", lsn)
	}

	if err := e.StoreMaster(42); err != nil {
		t.Fatalf("StoreMaster: %v", err)
	}
	lsn, err = e.GetMaster()
	if err != nil {
		t.Fatalf("GetMaster: %v", err)
	}
	if lsn != 42 {
		t.Fatalf("GetMaster() = %d, want 42", lsn)
	}
}

func TestPageWriteAndGetLSN(t *testing.T) {
	e := openTestEngine(t)

	if lsn := e.GetLSN(7); lsn != logmgr.NullLSN {
		t.Fatalf("GetLSN(unseen page) = %d, want NullLSN", lsn)
	}

	if ok := e.PageWrite(7, 10, []byte("hello"), 5); !ok {
		t.Fatal("PageWrite returned false")
	}
	if lsn := e.GetLSN(7); lsn != 5 {
		t.Fatalf("GetLSN(7) = %d, want 5", lsn)
	}

	p, err := e.loadPageLocked(7)
	if err != nil {
		t.Fatalf("loadPageLocked: %v", err)
	}
	if string(p.Data[10:15]) != "hello" {
		t.Fatalf("page data = %q, want hello", p.Data[10:15])
	}
}

func TestPageWriteRejectsOutOfBoundsOffset(t *testing.T) {
	e := openTestEngine(t)
	if ok := e.PageWrite(3, uint32(PageSize), []byte("x"), 1); ok {
		t.Fatal("PageWrite with out-of-bounds offset should fail")
	}
}

func TestFlushDirtyPagesPersistsToDisk(t *testing.T) {
	e := openTestEngine(t)

	if ok := e.PageWrite(2, 0, []byte("persisted"), 1); !ok {
		t.Fatal("PageWrite returned false")
	}
	if err := e.FlushDirtyPages(context.Background()); err != nil {
		t.Fatalf("FlushDirtyPages: %v", err)
	}

	onDisk, err := e.pages.ReadPage(2)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if string(onDisk.Data[0:9]) != "persisted" {
		t.Fatalf("on-disk data = %q, want persisted", onDisk.Data[0:9])
	}
	if onDisk.Header.PageLSN != 1 {
		t.Fatalf("on-disk PageLSN = %d, want 1", onDisk.Header.PageLSN)
	}
}

func TestEngineSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(DefaultEngineOptions().WithDataDir(dir))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := e.UpdateLog("UPDATE|0|1|..."); err != nil {
		t.Fatalf("UpdateLog: %v", err)
	}
	if err := e.StoreMaster(0); err != nil {
		t.Fatalf("StoreMaster: %v", err)
	}
	firstNext := e.NextLSN()
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e2, err := Open(DefaultEngineOptions().WithDataDir(dir))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer e2.Close()

	log, err := e2.GetLog()
	if err != nil {
		t.Fatalf("GetLog after reopen: %v", err)
	}
	if log != "UPDATE|0|1|..." {
		t.Fatalf("GetLog after reopen = %q", log)
	}
	master, err := e2.GetMaster()
	if err != nil {
		t.Fatalf("GetMaster after reopen: %v", err)
	}
	if master != 0 {
		t.Fatalf("GetMaster after reopen = %d, want 0", master)
	}
	if got := e2.NextLSN(); got <= firstNext {
		t.Fatalf("NextLSN after reopen = %d, want > %d (resumed from persisted log length)", got, firstNext)
	}
}

func TestFlushDirtyPagesNotifiesBoundLogManager(t *testing.T) {
	e := openTestEngine(t)

	lm := logmgr.New(zerolog.Nop())
	lm.SetStorageEngine(e)
	e.BindLogManager(lm)

	if _, err := lm.Write(1, 4, 0, []byte{0}, []byte{9}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if ok := e.PageWrite(4, 0, []byte{9}, 0); !ok {
		t.Fatal("PageWrite returned false")
	}

	if _, tracked := lm.DirtyPageTableSnapshot()[4]; !tracked {
		t.Fatal("page 4 should be in the dirty-page table before flush")
	}

	if err := e.FlushDirtyPages(context.Background()); err != nil {
		t.Fatalf("FlushDirtyPages: %v", err)
	}

	if _, tracked := lm.DirtyPageTableSnapshot()[4]; tracked {
		t.Fatal("PageFlushed should have cleared page 4 from the dirty-page table")
	}
}

func TestBufferPoolNeverEvictsDirtyPageAutomatically(t *testing.T) {
	e := openTestEngine(t)

	for i := logmgr.PageID(1); i <= 4; i++ {
		if ok := e.PageWrite(i, 0, []byte{byte(i)}, logmgr.LSN(i)); !ok {
			t.Fatalf("PageWrite(%d) returned false", i)
		}
	}

	// The pool's capacity is 4 and every cached page is now dirty; one
	// more unseen page must fail to evict room rather than silently
	// writing a dirty page back without going through LogManager.
	if ok := e.PageWrite(5, 0, []byte{5}, 5); ok {
		t.Fatal("PageWrite should fail when every cached page is dirty and the pool is full")
	}
}

func TestLogManagerEndToEndAgainstEngine(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(DefaultEngineOptions().WithDataDir(dir))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	lm := logmgr.New(zerolog.Nop())
	lm.SetStorageEngine(e)

	lsn1, err := lm.Write(1, 9, 0, []byte{0}, []byte{1})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if lsn1 != 0 {
		t.Fatalf("first LSN = %d, want 0", lsn1)
	}
	if err := lm.Commit(1); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e2, err := Open(DefaultEngineOptions().WithDataDir(dir))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer e2.Close()

	lm2 := logmgr.New(zerolog.Nop())
	lm2.SetStorageEngine(e2)
	ok, err := lm2.Recover()
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if !ok {
		t.Fatal("Recover returned false")
	}

	if lsn := e2.GetLSN(9); lsn != lsn1 {
		t.Fatalf("GetLSN(9) after recovery = %d, want %d", lsn, lsn1)
	}
}
