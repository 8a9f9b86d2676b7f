// Package storage provides the on-disk storage engine that binds to a
// logmgr.LogManager.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ariesdb/logmgr/internal/logging"
	"github.com/ariesdb/logmgr/internal/logmgr"
)

// logFileName, pageFileName, and masterFileName are the fixed names
// Engine gives its three on-disk files under DataDir.
const (
	logFileName    = "wal.log"
	pageFileName   = "pages.db"
	masterFileName = "master"
)

// ErrEngineClosed is returned by Engine methods once Close has run.
var ErrEngineClosed = errors.New("storage: engine is closed")

// Engine is the reference logmgr.StorageEngine: it allocates LSNs,
// persists the log and master record as flat files under DataDir, and
// applies Redo/Undo page writes through a PageManager-backed page file
// fronted by an LRU buffer pool. It never interprets log records
// itself (that's LogManager's job); it only stores bytes and pages.
type Engine struct {
	mu sync.Mutex

	opts   EngineOptions
	pages  *PageManager
	buffer *BufferPool

	logPath    string
	masterPath string
	logFile    *os.File

	nextLSN int64
	closed  bool

	log logging.Logger
	lm  *logmgr.LogManager
}

var _ logmgr.StorageEngine = (*Engine)(nil)

// Open opens or creates the engine's on-disk files under opts.DataDir.
func Open(opts EngineOptions) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}

	e := &Engine{
		opts:       opts,
		buffer:     NewBufferPool(opts.BufferPoolSize, opts.PageSize),
		logPath:    filepath.Join(opts.DataDir, logFileName),
		masterPath: filepath.Join(opts.DataDir, masterFileName),
		log:        logging.NewNop(),
	}
	e.buffer.SetFlushCallback(e.flushBufferedPage)
	e.buffer.SetFlushNotifier(e.notifyPageFlush)

	pages, err := OpenPageManager(filepath.Join(opts.DataDir, pageFileName), Options{
		PageSize:     opts.PageSize,
		InitialPages: opts.InitialPages,
		CreateIfNew:  opts.CreateIfNotExists,
		ReadOnly:     opts.ReadOnly,
		SyncOnWrite:  opts.SyncOnWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: open page file: %w", err)
	}
	e.pages = pages

	logFile, err := os.OpenFile(e.logPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		pages.Close()
		return nil, fmt.Errorf("storage: open log file: %w", err)
	}
	e.logFile = logFile

	persisted, err := e.readLogLocked()
	if err != nil {
		logFile.Close()
		pages.Close()
		return nil, err
	}
	e.nextLSN = int64(len(persisted))
	e.log.Info("storage engine opened", "data_dir", opts.DataDir, "next_lsn", e.nextLSN)

	return e, nil
}

// SetLogger attaches a structured logger used for close and flush
// events. The default is a no-op logger; Open logs its own "opened"
// event before any logger can be attached, so that event always goes
// to the no-op logger.
func (e *Engine) SetLogger(log logging.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = log
}

// BindLogManager attaches the LogManager that owns this engine's WAL
// invariant. Once bound, every page write-back, all of which go through
// an explicit FlushDirtyPages/Close, calls lm.PageFlushed first, so the
// dirty-page table never loses track of a page that actually made it to
// disk. Automatic eviction never writes a page back: it only discards
// clean pages.
func (e *Engine) BindLogManager(lm *logmgr.LogManager) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lm = lm
}

// notifyPageFlush is the BufferPool's flush notifier: it tells the
// bound LogManager that page has reached durable storage at its
// current PageLSN, before the page's bytes are actually written back.
func (e *Engine) notifyPageFlush(id PageID) error {
	e.mu.Lock()
	lm := e.lm
	e.mu.Unlock()
	if lm == nil {
		return nil
	}
	return lm.PageFlushed(logmgr.PageID(id))
}

// NextLSN allocates and returns the next monotonically increasing LSN.
func (e *Engine) NextLSN() logmgr.LSN {
	e.mu.Lock()
	defer e.mu.Unlock()
	lsn := e.nextLSN
	e.nextLSN++
	return logmgr.LSN(lsn)
}

// UpdateLog durably appends one serialized log record line.
func (e *Engine) UpdateLog(line string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	if _, err := e.logFile.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("storage: append log record: %w", err)
	}

	return e.logFile.Sync()
}

// GetLog returns the entire persisted log as a newline-separated
// sequence of serialized records.
func (e *Engine) GetLog() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return "", ErrEngineClosed
	}

	lines, err := e.readLogLocked()
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// readLogLocked re-reads the log file from the start and returns its
// records as individual lines, in persisted order. Callers must hold e.mu.
func (e *Engine) readLogLocked() ([]string, error) {
	f, err := os.Open(e.logPath)
	if err != nil {
		return nil, fmt.Errorf("storage: read log: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("storage: read log: %w", err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

// StoreMaster durably records lsn as the master (checkpoint) pointer.
func (e *Engine) StoreMaster(lsn logmgr.LSN) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	tmp := e.masterPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatInt(int64(lsn), 10)), 0o644); err != nil {
		return fmt.Errorf("storage: store master record: %w", err)
	}
	return os.Rename(tmp, e.masterPath)
}

// GetMaster returns the stored master pointer, or NullLSN if none.
func (e *Engine) GetMaster() (logmgr.LSN, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return logmgr.NullLSN, ErrEngineClosed
	}

	data, err := os.ReadFile(e.masterPath)
	if errors.Is(err, os.ErrNotExist) {
		return logmgr.NullLSN, nil
	}
	if err != nil {
		return logmgr.NullLSN, fmt.Errorf("storage: read master record: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return logmgr.NullLSN, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return logmgr.NullLSN, fmt.Errorf("storage: parse master record: %w", err)
	}
	return logmgr.LSN(n), nil
}

// PageWrite applies bytes at offset on page and sets its PageLSN to
// newPageLSN. It returns false to signal failure, per the ARIES
// convention of treating a storage fault during Redo as a condition
// recovery should simply retry against the persisted log.
func (e *Engine) PageWrite(page logmgr.PageID, offset uint32, data []byte, newPageLSN logmgr.LSN) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}

	id := PageID(page)
	p, err := e.loadPageLocked(id)
	if err != nil {
		return false
	}
	if int(offset)+len(data) > len(p.Data) {
		return false
	}

	copy(p.Data[offset:], data)
	p.Header.PageLSN = int64(newPageLSN)

	raw, err := p.Serialize()
	if err != nil {
		return false
	}
	if _, err := e.buffer.Put(id, raw); err != nil {
		return false
	}
	if err := e.buffer.MarkDirty(id); err != nil {
		return false
	}

	if e.opts.SyncOnWrite {
		if err := e.pages.WritePage(p); err != nil {
			return false
		}
	}
	return true
}

// GetLSN returns the PageLSN of page as currently buffered.
func (e *Engine) GetLSN(page logmgr.PageID) logmgr.LSN {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return logmgr.NullLSN
	}

	p, err := e.loadPageLocked(PageID(page))
	if err != nil {
		return logmgr.NullLSN
	}
	return logmgr.LSN(p.Header.PageLSN)
}

// loadPageLocked returns page id, preferring the buffer pool over disk.
// Callers must hold e.mu.
func (e *Engine) loadPageLocked(id PageID) (*Page, error) {
	if bp, ok := e.buffer.Get(id); ok {
		p := &Page{}
		if err := p.Deserialize(bp.Data()); err != nil {
			return nil, err
		}
		return p, nil
	}

	p, err := e.pages.EnsurePage(id)
	if err != nil {
		return nil, err
	}
	raw, err := p.Serialize()
	if err != nil {
		return nil, err
	}
	if _, err := e.buffer.Put(id, raw); err != nil {
		return nil, err
	}
	return p, nil
}

// flushBufferedPage is the BufferPool flush callback: it writes a
// page's cached bytes back to the page file.
func (e *Engine) flushBufferedPage(id PageID, data []byte) error {
	p := &Page{}
	if err := p.Deserialize(data); err != nil {
		return err
	}
	return e.pages.WritePage(p)
}

// FlushDirtyPages writes every dirty buffered page to the page file
// concurrently and fsyncs the page file once all writes land. Callers
// typically run this just before LogManager.Checkpoint, so that the
// master record it stores points at a log position from which Redo
// has as little work as possible left to do; ARIES checkpoints remain
// correct without this, since Redo only relies on PageLSN comparisons.
func (e *Engine) FlushDirtyPages(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	dirty := e.buffer.GetDirtyPageIDs()
	e.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, id := range dirty {
		id := id
		g.Go(func() error {
			return e.buffer.FlushPage(id)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("storage: flush dirty pages: %w", err)
	}
	e.log.Debug("flushed dirty pages", "count", len(dirty))

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pages.Sync()
}

// Close flushes every dirty page and the page file header, then closes
// all open files. It does not erase the log or master record: those
// remain for the next Open's Recover to replay.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	// FlushAll runs its flush notifier, which calls back into
	// LogManager.PageFlushed, which in turn calls Engine.GetLSN and
	// UpdateLog, so the engine must still be open and e.mu free while
	// this runs.
	if err := e.buffer.FlushAll(); err != nil {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		e.logFile.Close()
		e.pages.Close()
		return fmt.Errorf("storage: flush buffer pool: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.log.Info("storage engine closed")
	if err := e.pages.Close(); err != nil {
		e.logFile.Close()
		return fmt.Errorf("storage: close page file: %w", err)
	}
	return e.logFile.Close()
}

// EngineStats reports the current size of the storage engine's on-disk
// and in-memory state, for inspection tooling.
type EngineStats struct {
	TotalPages uint64
	FreePages  uint64
	BufferSize int
	DirtyPages int
	NextLSN    int64
	MasterLSN  logmgr.LSN
}

// Stats returns a point-in-time snapshot of engine statistics.
func (e *Engine) Stats() (EngineStats, error) {
	master, err := e.GetMaster()
	if err != nil {
		return EngineStats{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	pmStats := e.pages.Stats()
	return EngineStats{
		TotalPages: pmStats.TotalPages,
		FreePages:  pmStats.FreePages,
		BufferSize: e.buffer.Size(),
		DirtyPages: e.buffer.DirtyPageCount(),
		NextLSN:    e.nextLSN,
		MasterLSN:  master,
	}, nil
}
