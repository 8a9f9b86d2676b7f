package logmgr

import "maps"

// TxStatus is the status of a transaction table entry.
type TxStatus uint8

const (
	// TxUnderway means the transaction is in progress or aborting.
	TxUnderway TxStatus = iota
	// TxCommitted means the transaction committed and is awaiting END.
	TxCommitted
)

// String returns the on-the-wire discriminator for the status.
func (s TxStatus) String() string {
	if s == TxCommitted {
		return "C"
	}
	return "U"
}

func statusFromString(s string) (TxStatus, bool) {
	switch s {
	case "U":
		return TxUnderway, true
	case "C":
		return TxCommitted, true
	default:
		return 0, false
	}
}

// TransactionTable maps txid to the LSN of its most recent record and
// its status. An entry exists iff the transaction has at least one
// durable or in-flight record and has not yet produced an END.
type TransactionTable struct {
	entries map[TxID]TxTableEntry
}

// NewTransactionTable returns an empty transaction table.
func NewTransactionTable() *TransactionTable {
	return &TransactionTable{entries: make(map[TxID]TxTableEntry)}
}

// LastLSN returns the last LSN recorded for tx, or NullLSN if tx has
// no entry.
func (t *TransactionTable) LastLSN(tx TxID) LSN {
	if e, ok := t.entries[tx]; ok {
		return e.LastLSN
	}
	return NullLSN
}

// Status returns the status of tx and whether an entry exists.
func (t *TransactionTable) Status(tx TxID) (TxStatus, bool) {
	e, ok := t.entries[tx]
	return e.Status, ok
}

// Has reports whether tx has an entry.
func (t *TransactionTable) Has(tx TxID) bool {
	_, ok := t.entries[tx]
	return ok
}

// Insert creates a new entry for tx with the given status and LSN. It
// overwrites any existing entry; callers check Has first where the
// distinction matters.
func (t *TransactionTable) Insert(tx TxID, lastLSN LSN, status TxStatus) {
	t.entries[tx] = TxTableEntry{LastLSN: lastLSN, Status: status}
}

// SetLastLSN updates the last LSN for tx. It is a no-op if tx has no
// entry: set_last_lsn never implicitly creates entries.
func (t *TransactionTable) SetLastLSN(tx TxID, lsn LSN) {
	if e, ok := t.entries[tx]; ok {
		e.LastLSN = lsn
		t.entries[tx] = e
	}
}

// SetLastLSNOrInsert updates the last LSN and status for tx, creating
// the entry if it does not already exist. This is the rule Analyze
// uses: a transaction's first record observed during the forward scan
// both creates and populates its table row.
func (t *TransactionTable) SetLastLSNOrInsert(tx TxID, lsn LSN, status TxStatus) {
	t.entries[tx] = TxTableEntry{LastLSN: lsn, Status: status}
}

// SetStatus updates the status for tx. It is a no-op if tx has no entry.
func (t *TransactionTable) SetStatus(tx TxID, status TxStatus) {
	if e, ok := t.entries[tx]; ok {
		e.Status = status
		t.entries[tx] = e
	}
}

// Remove deletes tx's entry, if any.
func (t *TransactionTable) Remove(tx TxID) {
	delete(t.entries, tx)
}

// Underway returns the txids currently in TxUnderway status.
func (t *TransactionTable) Underway() []TxID {
	var out []TxID
	for tx, e := range t.entries {
		if e.Status == TxUnderway {
			out = append(out, tx)
		}
	}
	return out
}

// Snapshot returns a deep copy of the table, suitable for embedding
// in an END_CKPT record.
func (t *TransactionTable) Snapshot() map[TxID]TxTableEntry {
	return maps.Clone(t.entries)
}

// LoadSnapshot replaces the table's contents with a deep copy of snap.
func (t *TransactionTable) LoadSnapshot(snap map[TxID]TxTableEntry) {
	t.entries = maps.Clone(snap)
	if t.entries == nil {
		t.entries = make(map[TxID]TxTableEntry)
	}
}

// DirtyPageTable maps page_id to rec_lsn: the LSN of the first record
// that dirtied the page since it was last clean on disk.
type DirtyPageTable struct {
	entries map[PageID]LSN
}

// NewDirtyPageTable returns an empty dirty-page table.
func NewDirtyPageTable() *DirtyPageTable {
	return &DirtyPageTable{entries: make(map[PageID]LSN)}
}

// Has reports whether page has an entry.
func (d *DirtyPageTable) Has(page PageID) bool {
	_, ok := d.entries[page]
	return ok
}

// RecLSN returns the rec_lsn for page, or NullLSN if page is clean.
func (d *DirtyPageTable) RecLSN(page PageID) LSN {
	if lsn, ok := d.entries[page]; ok {
		return lsn
	}
	return NullLSN
}

// InsertIfAbsent records page as dirty at lsn if it has no entry yet.
// It never lowers an existing rec_lsn.
func (d *DirtyPageTable) InsertIfAbsent(page PageID, lsn LSN) {
	if _, ok := d.entries[page]; !ok {
		d.entries[page] = lsn
	}
}

// LowerTo sets page's rec_lsn to lsn if it has no entry or its current
// entry is greater than lsn. This is the monotonic-lowering rule Undo
// uses when a before-image re-dirties an earlier LSN.
func (d *DirtyPageTable) LowerTo(page PageID, lsn LSN) {
	if cur, ok := d.entries[page]; !ok || cur > lsn {
		d.entries[page] = lsn
	}
}

// Remove deletes page's entry, called once the storage engine reports
// the page has been flushed.
func (d *DirtyPageTable) Remove(page PageID) {
	delete(d.entries, page)
}

// MinRecLSN returns the smallest rec_lsn across all entries and
// whether the table is non-empty.
func (d *DirtyPageTable) MinRecLSN() (LSN, bool) {
	first := true
	var min LSN
	for _, lsn := range d.entries {
		if first || lsn < min {
			min = lsn
			first = false
		}
	}
	return min, !first
}

// Snapshot returns a deep copy of the table, suitable for embedding in
// an END_CKPT record.
func (d *DirtyPageTable) Snapshot() map[PageID]LSN {
	return maps.Clone(d.entries)
}

// LoadSnapshot replaces the table's contents with a deep copy of snap.
func (d *DirtyPageTable) LoadSnapshot(snap map[PageID]LSN) {
	d.entries = maps.Clone(snap)
	if d.entries == nil {
		d.entries = make(map[PageID]LSN)
	}
}
