// Package storage is the on-disk storage engine bound to a logmgr.LogManager.
package storage

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// PageSize is the default page size in bytes.
const PageSize = 4096

// PageHeaderSize is the size of the page header in bytes.
const PageHeaderSize = 24

// PageType distinguishes a page the PageManager has handed out from one
// sitting on its free list. The engine has no index or overflow
// structures of its own; every page it manages is addressed directly
// by the PageID a log record carries.
type PageType uint8

const (
	// PageTypeFree indicates a page on the free list, available for
	// PageManager.AllocatePage to hand out.
	PageTypeFree PageType = iota
	// PageTypeData indicates a page holding caller-written bytes.
	PageTypeData
)

// String returns the string representation of a PageType.
func (pt PageType) String() string {
	switch pt {
	case PageTypeFree:
		return "Free"
	case PageTypeData:
		return "Data"
	default:
		return "Unknown"
	}
}

// PageID represents a unique identifier for a page.
type PageID uint64

// PageHeader represents the header of each page (first 24 bytes).
// Layout:
//   - Bytes 0-7:   PageID (uint64)
//   - Byte 8:      PageType (uint8)
//   - Byte 9:      Reserved
//   - Bytes 10-11: ItemCount (uint16): entries written by the free
//     list serializer when this page stores free-list bookkeeping
//   - Bytes 12-13: FreeSpace (uint16)
//   - Bytes 14-15: Checksum (uint16)
//   - Bytes 16-23: PageLSN (int64): the LSN of the last update applied
//     to this page, compared against a log record's LSN during Redo to
//     decide whether the update is already reflected on disk.
type PageHeader struct {
	PageID    PageID   // This page's ID
	PageType  PageType // Data or Free
	Reserved  uint8
	ItemCount uint16 // Number of entries in page (free-list pages only)
	FreeSpace uint16 // Bytes of free space
	Checksum  uint16 // CRC16 of page content
	PageLSN   int64  // LSN of the last update durably applied to this page
}

// Errors for page operations.
var (
	ErrInvalidPageSize = errors.New("invalid page size")
	ErrInvalidChecksum = errors.New("page checksum mismatch")
)

// NullPageLSN marks a page that has never been written by Redo/Undo.
const NullPageLSN int64 = -1

// NewPageHeader creates a new PageHeader with the given parameters.
func NewPageHeader(pageID PageID, pageType PageType) *PageHeader {
	return &PageHeader{
		PageID:    pageID,
		PageType:  pageType,
		ItemCount: 0,
		FreeSpace: PageSize - PageHeaderSize,
		Checksum:  0,
		PageLSN:   NullPageLSN,
	}
}

// Serialize writes the PageHeader to a byte slice.
// The slice must be at least PageHeaderSize bytes.
func (h *PageHeader) Serialize(buf []byte) error {
	if len(buf) < PageHeaderSize {
		return ErrInvalidPageSize
	}

	binary.LittleEndian.PutUint64(buf[0:8], uint64(h.PageID))
	buf[8] = byte(h.PageType)
	buf[9] = h.Reserved
	binary.LittleEndian.PutUint16(buf[10:12], h.ItemCount)
	binary.LittleEndian.PutUint16(buf[12:14], h.FreeSpace)
	binary.LittleEndian.PutUint16(buf[14:16], h.Checksum)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.PageLSN))

	return nil
}

// Deserialize reads the PageHeader from a byte slice.
// The slice must be at least PageHeaderSize bytes.
func (h *PageHeader) Deserialize(buf []byte) error {
	if len(buf) < PageHeaderSize {
		return ErrInvalidPageSize
	}

	h.PageID = PageID(binary.LittleEndian.Uint64(buf[0:8]))
	h.PageType = PageType(buf[8])
	h.Reserved = buf[9]
	h.ItemCount = binary.LittleEndian.Uint16(buf[10:12])
	h.FreeSpace = binary.LittleEndian.Uint16(buf[12:14])
	h.Checksum = binary.LittleEndian.Uint16(buf[14:16])
	h.PageLSN = int64(binary.LittleEndian.Uint64(buf[16:24]))

	return nil
}

// Page represents a complete page in the database.
type Page struct {
	Header PageHeader
	Data   []byte // Page data excluding header
}

// NewPage creates a new page with the given ID and type.
func NewPage(pageID PageID, pageType PageType) *Page {
	return &Page{
		Header: PageHeader{
			PageID:    pageID,
			PageType:  pageType,
			ItemCount: 0,
			FreeSpace: PageSize - PageHeaderSize,
			Checksum:  0,
			PageLSN:   NullPageLSN,
		},
		Data: make([]byte, PageSize-PageHeaderSize),
	}
}

// Serialize writes the entire page to a byte slice.
// Returns a new byte slice of PageSize bytes.
func (p *Page) Serialize() ([]byte, error) {
	buf := make([]byte, PageSize)

	// Calculate checksum before serializing header
	p.Header.Checksum = p.CalculateChecksum()

	if err := p.Header.Serialize(buf[:PageHeaderSize]); err != nil {
		return nil, err
	}

	copy(buf[PageHeaderSize:], p.Data)

	return buf, nil
}

// SerializeTo writes the entire page to an existing byte slice.
// The slice must be at least PageSize bytes.
func (p *Page) SerializeTo(buf []byte) error {
	if len(buf) < PageSize {
		return ErrInvalidPageSize
	}

	// Calculate checksum before serializing header
	p.Header.Checksum = p.CalculateChecksum()

	if err := p.Header.Serialize(buf[:PageHeaderSize]); err != nil {
		return err
	}

	copy(buf[PageHeaderSize:], p.Data)

	return nil
}

// Deserialize reads the entire page from a byte slice.
// The slice must be at least PageSize bytes.
func (p *Page) Deserialize(buf []byte) error {
	if len(buf) < PageSize {
		return ErrInvalidPageSize
	}

	if err := p.Header.Deserialize(buf[:PageHeaderSize]); err != nil {
		return err
	}

	if p.Data == nil || len(p.Data) < PageSize-PageHeaderSize {
		p.Data = make([]byte, PageSize-PageHeaderSize)
	}

	copy(p.Data, buf[PageHeaderSize:PageSize])

	return nil
}

// CalculateChecksum computes the CRC16 checksum of the page data.
// Uses CRC32 internally and truncates to 16 bits for the page header.
func (p *Page) CalculateChecksum() uint16 {
	// Use CRC32 and truncate to 16 bits
	crc := crc32.ChecksumIEEE(p.Data)
	return uint16(crc & 0xFFFF)
}

// ValidateChecksum verifies the page checksum matches the stored value.
func (p *Page) ValidateChecksum() bool {
	return p.Header.Checksum == p.CalculateChecksum()
}

// DeserializeAndValidate reads the page and validates its checksum.
func (p *Page) DeserializeAndValidate(buf []byte) error {
	if err := p.Deserialize(buf); err != nil {
		return err
	}

	if !p.ValidateChecksum() {
		return ErrInvalidChecksum
	}

	return nil
}
