package logmgr

import (
	"encoding/base64"
	"errors"
	"slices"
	"strconv"
	"strings"
)

// LSN is a Log Sequence Number: a monotonically increasing identifier
// assigned by the storage engine. NullLSN means "none".
type LSN int64

// NullLSN denotes the absence of an LSN.
const NullLSN LSN = -1

// TxID is an opaque transaction identifier supplied by the caller.
// NullTx denotes "no transaction" and is used for checkpoint records.
type TxID int64

// NullTx denotes the absence of a transaction.
const NullTx TxID = -1

// PageID identifies a page owned by the storage engine.
type PageID uint64

// Kind tags the variant a Record carries.
type Kind uint8

const (
	// KindUpdate is a transactional page update.
	KindUpdate Kind = iota
	// KindCLR is a Compensation Log Record: the undo of a prior update.
	KindCLR
	// KindCommit marks a transaction's intent to commit.
	KindCommit
	// KindAbort marks a transaction entering rollback.
	KindAbort
	// KindEnd marks a transaction as fully terminated.
	KindEnd
	// KindBeginCkpt opens a fuzzy checkpoint.
	KindBeginCkpt
	// KindEndCkpt closes a fuzzy checkpoint with a table snapshot.
	KindEndCkpt
)

// String returns the on-the-wire discriminator for the kind. It is
// also the first field of the serialized line.
func (k Kind) String() string {
	switch k {
	case KindUpdate:
		return "UPDATE"
	case KindCLR:
		return "CLR"
	case KindCommit:
		return "COMMIT"
	case KindAbort:
		return "ABORT"
	case KindEnd:
		return "END"
	case KindBeginCkpt:
		return "BEGIN_CKPT"
	case KindEndCkpt:
		return "END_CKPT"
	default:
		return "UNKNOWN"
	}
}

func kindFromString(s string) (Kind, bool) {
	switch s {
	case "UPDATE":
		return KindUpdate, true
	case "CLR":
		return KindCLR, true
	case "COMMIT":
		return KindCommit, true
	case "ABORT":
		return KindAbort, true
	case "END":
		return KindEnd, true
	case "BEGIN_CKPT":
		return KindBeginCkpt, true
	case "END_CKPT":
		return KindEndCkpt, true
	default:
		return 0, false
	}
}

// TxTableEntry is the checkpoint-time snapshot of one transaction
// table row (see TransactionTable in tables.go).
type TxTableEntry struct {
	LastLSN LSN
	Status  TxStatus
}

// Record is every log entry kind, represented as a tagged variant so
// that dispatch happens on Kind rather than on a type assertion. All
// fields are plain values: a Record is immutable after construction
// and needs no manual lifecycle.
type Record struct {
	LSN     LSN
	PrevLSN LSN
	TxID    TxID
	Kind    Kind

	// UPDATE / CLR fields.
	PageID      PageID
	Offset      uint32
	BeforeImage []byte // UPDATE only
	AfterImage  []byte // UPDATE, CLR
	UndoNextLSN LSN    // CLR only

	// END_CKPT fields: deep-copied snapshots, see tables.go.
	TxSnapshot    map[TxID]TxTableEntry
	DirtySnapshot map[PageID]LSN
}

// NewUpdateRecord constructs an UPDATE record.
func NewUpdateRecord(lsn, prev LSN, tx TxID, page PageID, offset uint32, before, after []byte) Record {
	return Record{
		LSN: lsn, PrevLSN: prev, TxID: tx, Kind: KindUpdate,
		PageID: page, Offset: offset, BeforeImage: before, AfterImage: after,
	}
}

// NewCLRRecord constructs a compensation log record for the undo of a
// prior UPDATE. AfterImage carries the before-image being restored.
func NewCLRRecord(lsn, prev LSN, tx TxID, page PageID, offset uint32, restored []byte, undoNext LSN) Record {
	return Record{
		LSN: lsn, PrevLSN: prev, TxID: tx, Kind: KindCLR,
		PageID: page, Offset: offset, AfterImage: restored, UndoNextLSN: undoNext,
	}
}

// NewCommitRecord constructs a COMMIT record.
func NewCommitRecord(lsn, prev LSN, tx TxID) Record {
	return Record{LSN: lsn, PrevLSN: prev, TxID: tx, Kind: KindCommit}
}

// NewAbortRecord constructs an ABORT record.
func NewAbortRecord(lsn, prev LSN, tx TxID) Record {
	return Record{LSN: lsn, PrevLSN: prev, TxID: tx, Kind: KindAbort}
}

// NewEndRecord constructs an END record.
func NewEndRecord(lsn, prev LSN, tx TxID) Record {
	return Record{LSN: lsn, PrevLSN: prev, TxID: tx, Kind: KindEnd}
}

// NewBeginCkptRecord constructs a BEGIN_CKPT record.
func NewBeginCkptRecord(lsn LSN) Record {
	return Record{LSN: lsn, PrevLSN: NullLSN, TxID: NullTx, Kind: KindBeginCkpt}
}

// NewEndCkptRecord constructs an END_CKPT record carrying the table
// snapshots taken at checkpoint time.
func NewEndCkptRecord(lsn, prev LSN, tx map[TxID]TxTableEntry, dirty map[PageID]LSN) Record {
	return Record{
		LSN: lsn, PrevLSN: prev, TxID: NullTx, Kind: KindEndCkpt,
		TxSnapshot: tx, DirtySnapshot: dirty,
	}
}

// IsRedoable reports whether the record kind is replayed during Redo.
func (r Record) IsRedoable() bool {
	return r.Kind == KindUpdate || r.Kind == KindCLR
}

// ErrMalformedRecord is returned when a log line cannot be parsed:
// an unknown kind discriminator or a missing/invalid field.
var ErrMalformedRecord = errors.New("logmgr: malformed record")

const fieldSep = "|"

// Serialize produces the canonical textual encoding of r: one line,
// containing no embedded newlines, fields separated by "|". Byte
// fields are base64-encoded so that arbitrary before/after images
// never introduce a stray separator or newline into the line.
func (r Record) Serialize() (string, error) {
	var b strings.Builder
	b.WriteString(r.Kind.String())
	b.WriteString(fieldSep)
	b.WriteString(strconv.FormatInt(int64(r.LSN), 10))
	b.WriteString(fieldSep)
	b.WriteString(strconv.FormatInt(int64(r.PrevLSN), 10))
	b.WriteString(fieldSep)
	b.WriteString(strconv.FormatInt(int64(r.TxID), 10))

	switch r.Kind {
	case KindUpdate:
		writeField(&b, strconv.FormatUint(uint64(r.PageID), 10))
		writeField(&b, strconv.FormatUint(uint64(r.Offset), 10))
		writeField(&b, base64.StdEncoding.EncodeToString(r.BeforeImage))
		writeField(&b, base64.StdEncoding.EncodeToString(r.AfterImage))
	case KindCLR:
		writeField(&b, strconv.FormatUint(uint64(r.PageID), 10))
		writeField(&b, strconv.FormatUint(uint64(r.Offset), 10))
		writeField(&b, base64.StdEncoding.EncodeToString(r.AfterImage))
		writeField(&b, strconv.FormatInt(int64(r.UndoNextLSN), 10))
	case KindCommit, KindAbort, KindEnd, KindBeginCkpt:
		// No extra fields.
	case KindEndCkpt:
		writeField(&b, encodeTxSnapshot(r.TxSnapshot))
		writeField(&b, encodeDirtySnapshot(r.DirtySnapshot))
	default:
		return "", ErrMalformedRecord
	}

	return b.String(), nil
}

func writeField(b *strings.Builder, s string) {
	b.WriteString(fieldSep)
	b.WriteString(s)
}

// Parse is the exact inverse of Serialize: parse(serialize(r)) == r
// and serialize(parse(s)) == s for any record r and valid line s.
func Parse(line string) (Record, error) {
	fields := strings.Split(line, fieldSep)
	if len(fields) < 4 {
		return Record{}, ErrMalformedRecord
	}

	kind, ok := kindFromString(fields[0])
	if !ok {
		return Record{}, ErrMalformedRecord
	}
	lsn, err := parseLSN(fields[1])
	if err != nil {
		return Record{}, err
	}
	prev, err := parseLSN(fields[2])
	if err != nil {
		return Record{}, err
	}
	tx, err := parseTxID(fields[3])
	if err != nil {
		return Record{}, err
	}

	r := Record{LSN: lsn, PrevLSN: prev, TxID: tx, Kind: kind}

	switch kind {
	case KindUpdate:
		if len(fields) != 8 {
			return Record{}, ErrMalformedRecord
		}
		pageID, err := strconv.ParseUint(fields[4], 10, 64)
		if err != nil {
			return Record{}, ErrMalformedRecord
		}
		offset, err := strconv.ParseUint(fields[5], 10, 32)
		if err != nil {
			return Record{}, ErrMalformedRecord
		}
		before, err := base64.StdEncoding.DecodeString(fields[6])
		if err != nil {
			return Record{}, ErrMalformedRecord
		}
		after, err := base64.StdEncoding.DecodeString(fields[7])
		if err != nil {
			return Record{}, ErrMalformedRecord
		}
		r.PageID = PageID(pageID)
		r.Offset = uint32(offset)
		r.BeforeImage = nonEmpty(before)
		r.AfterImage = nonEmpty(after)
	case KindCLR:
		if len(fields) != 8 {
			return Record{}, ErrMalformedRecord
		}
		pageID, err := strconv.ParseUint(fields[4], 10, 64)
		if err != nil {
			return Record{}, ErrMalformedRecord
		}
		offset, err := strconv.ParseUint(fields[5], 10, 32)
		if err != nil {
			return Record{}, ErrMalformedRecord
		}
		after, err := base64.StdEncoding.DecodeString(fields[6])
		if err != nil {
			return Record{}, ErrMalformedRecord
		}
		undoNext, err := parseLSN(fields[7])
		if err != nil {
			return Record{}, err
		}
		r.PageID = PageID(pageID)
		r.Offset = uint32(offset)
		r.AfterImage = nonEmpty(after)
		r.UndoNextLSN = undoNext
	case KindCommit, KindAbort, KindEnd, KindBeginCkpt:
		if len(fields) != 4 {
			return Record{}, ErrMalformedRecord
		}
	case KindEndCkpt:
		if len(fields) != 6 {
			return Record{}, ErrMalformedRecord
		}
		txSnap, err := decodeTxSnapshot(fields[4])
		if err != nil {
			return Record{}, err
		}
		dirtySnap, err := decodeDirtySnapshot(fields[5])
		if err != nil {
			return Record{}, err
		}
		r.TxSnapshot = txSnap
		r.DirtySnapshot = dirtySnap
	default:
		return Record{}, ErrMalformedRecord
	}

	return r, nil
}

func nonEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func parseLSN(s string) (LSN, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrMalformedRecord
	}
	return LSN(v), nil
}

func parseTxID(s string) (TxID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrMalformedRecord
	}
	return TxID(v), nil
}

// encodeTxSnapshot and encodeDirtySnapshot pack a checkpoint snapshot
// into one base64 field each, as "txid,lastLSN,status;..." so that the
// whole record still fits in the pipe-delimited, newline-free line.
// Entries are emitted in key order so the encoding is canonical and
// serialize(parse(s)) == s holds.
func encodeTxSnapshot(m map[TxID]TxTableEntry) string {
	keys := make([]TxID, 0, len(m))
	for tx := range m {
		keys = append(keys, tx)
	}
	slices.Sort(keys)

	var b strings.Builder
	for i, tx := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		e := m[tx]
		b.WriteString(strconv.FormatInt(int64(tx), 10))
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(int64(e.LastLSN), 10))
		b.WriteByte(',')
		b.WriteString(e.Status.String())
	}
	return base64.StdEncoding.EncodeToString([]byte(b.String()))
}

func decodeTxSnapshot(field string) (map[TxID]TxTableEntry, error) {
	raw, err := base64.StdEncoding.DecodeString(field)
	if err != nil {
		return nil, ErrMalformedRecord
	}
	out := make(map[TxID]TxTableEntry)
	s := string(raw)
	if s == "" {
		return out, nil
	}
	for _, entry := range strings.Split(s, ";") {
		parts := strings.Split(entry, ",")
		if len(parts) != 3 {
			return nil, ErrMalformedRecord
		}
		tx, err := parseTxID(parts[0])
		if err != nil {
			return nil, err
		}
		lastLSN, err := parseLSN(parts[1])
		if err != nil {
			return nil, err
		}
		status, ok := statusFromString(parts[2])
		if !ok {
			return nil, ErrMalformedRecord
		}
		out[tx] = TxTableEntry{LastLSN: lastLSN, Status: status}
	}
	return out, nil
}

func encodeDirtySnapshot(m map[PageID]LSN) string {
	keys := make([]PageID, 0, len(m))
	for page := range m {
		keys = append(keys, page)
	}
	slices.Sort(keys)

	var b strings.Builder
	for i, page := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.FormatUint(uint64(page), 10))
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(int64(m[page]), 10))
	}
	return base64.StdEncoding.EncodeToString([]byte(b.String()))
}

func decodeDirtySnapshot(field string) (map[PageID]LSN, error) {
	raw, err := base64.StdEncoding.DecodeString(field)
	if err != nil {
		return nil, ErrMalformedRecord
	}
	out := make(map[PageID]LSN)
	s := string(raw)
	if s == "" {
		return out, nil
	}
	for _, entry := range strings.Split(s, ";") {
		parts := strings.Split(entry, ",")
		if len(parts) != 2 {
			return nil, ErrMalformedRecord
		}
		pageID, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return nil, ErrMalformedRecord
		}
		lsn, err := parseLSN(parts[1])
		if err != nil {
			return nil, err
		}
		out[PageID(pageID)] = lsn
	}
	return out, nil
}
