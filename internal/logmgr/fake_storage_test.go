package logmgr

import "strings"

// fakeStorageEngine is a minimal in-memory StorageEngine double used
// across this package's tests. It is not a reference implementation;
// see internal/storageengine for that.
type fakeStorageEngine struct {
	lsn    LSN
	lines  []string
	master LSN
	pages  map[PageID]*fakePage

	failPageWrite map[PageID]bool
}

type fakePage struct {
	lsn   LSN
	bytes map[uint32][]byte
}

func newFakeStorageEngine() *fakeStorageEngine {
	return &fakeStorageEngine{
		master: NullLSN,
		pages:  make(map[PageID]*fakePage),
	}
}

func (f *fakeStorageEngine) NextLSN() LSN {
	l := f.lsn
	f.lsn++
	return l
}

func (f *fakeStorageEngine) UpdateLog(line string) error {
	f.lines = append(f.lines, line)
	return nil
}

func (f *fakeStorageEngine) GetLog() (string, error) {
	return strings.Join(f.lines, "\n"), nil
}

func (f *fakeStorageEngine) StoreMaster(lsn LSN) error {
	f.master = lsn
	return nil
}

func (f *fakeStorageEngine) GetMaster() (LSN, error) {
	return f.master, nil
}

func (f *fakeStorageEngine) PageWrite(page PageID, offset uint32, bytes []byte, newPageLSN LSN) bool {
	if f.failPageWrite[page] {
		return false
	}
	p := f.pages[page]
	if p == nil {
		p = &fakePage{lsn: NullLSN, bytes: make(map[uint32][]byte)}
		f.pages[page] = p
	}
	cp := make([]byte, len(bytes))
	copy(cp, bytes)
	p.bytes[offset] = cp
	p.lsn = newPageLSN
	return true
}

func (f *fakeStorageEngine) GetLSN(page PageID) LSN {
	if p, ok := f.pages[page]; ok {
		return p.lsn
	}
	return NullLSN
}

func (f *fakeStorageEngine) pageContent(page PageID, offset uint32) []byte {
	p := f.pages[page]
	if p == nil {
		return nil
	}
	return p.bytes[offset]
}
