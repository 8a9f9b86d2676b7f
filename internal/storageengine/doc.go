// Package storage is the reference StorageEngine a logmgr.LogManager
// binds to: it allocates LSNs and owns the three durable artifacts the
// log manager depends on: the append-only log, the master record,
// and the page file recovery applies writes to.
//
// # Layout
//
// Engine keeps three files under its DataDir:
//
//	wal.log    the persisted log, one serialized record per line
//	pages.db   a PageManager-managed page file: a 24-byte header
//	           (PageID, type, item count, free space, checksum,
//	           PageLSN) followed by a fixed-size data region per page
//	master     the LSN of the most recent BEGIN_CKPT record, read on
//	           startup to bound how far back Analyze needs to scan
//
// A BufferPool fronts pages.db with LRU eviction so Redo and Undo,
// which tend to revisit the same small set of dirty pages, do not pay
// a disk read on every PageWrite.
//
// # Usage
//
//	engine, err := storage.Open(storage.DefaultEngineOptions().
//	    WithDataDir("/var/lib/ariesdb"))
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	lm := logmgr.New(logger)
//	lm.SetStorageEngine(engine)
//
//	if _, err := lm.Recover(); err != nil {
//	    return err
//	}
//
// # Checkpointing
//
// CheckpointScheduler pairs Engine.FlushDirtyPages with
// LogManager.Checkpoint on a timer:
//
//	sched := storage.NewCheckpointScheduler(lm, engine, 5*time.Minute)
//	sched.Start(ctx)
//	defer sched.Stop()
//
// # Logging and the WAL invariant
//
// Engine.SetLogger attaches a logging.Logger for close and flush
// events. Engine.BindLogManager attaches the LogManager whose
// PageFlushed bookkeeping the buffer pool's flush notifier calls into
// before every explicit flush (FlushDirtyPages, Close), so a dirty
// page is never written back without the dirty-page table learning
// about it first. Automatic eviction under memory pressure never picks
// a dirty page, for the same reason.
package storage
