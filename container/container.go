// Package container defines the on-disk binary format produced by the
// assembler and consumed by the interpreter: the magic header, the data
// table layout, and the code-base addressing convention.
package container

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the fixed three-byte identifier at the start of every
// container file.
var Magic = [3]byte{'B', 'B', 'X'}

const (
	// MagicSize is the width of the magic identifier.
	MagicSize = len(Magic)

	// CountFieldSize is the width of the data_entry_count field.
	CountFieldSize = 1

	// SizeFieldSize is the width of the data_table_size field.
	SizeFieldSize = 4

	// FixedHeaderSize is the magic plus the count byte plus the size field.
	FixedHeaderSize = MagicSize + CountFieldSize + SizeFieldSize
)

// Header is the fixed-size preamble of a container file.
type Header struct {
	DataEntryCount uint8
	DataTableSize  uint32
}

// WriteHeader writes the magic and header fields to w.
func WriteHeader(w io.Writer, h Header) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if _, err := w.Write([]byte{h.DataEntryCount}); err != nil {
		return fmt.Errorf("write data entry count: %w", err)
	}
	var sizeBuf [SizeFieldSize]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], h.DataTableSize)
	if _, err := w.Write(sizeBuf[:]); err != nil {
		return fmt.Errorf("write data table size: %w", err)
	}
	return nil
}

// ErrBadMagic is returned when a container's leading bytes do not match Magic.
var ErrBadMagic = fmt.Errorf("bad magic: expected %q", string(Magic[:]))

// ReadHeader parses the fixed header from the front of data and returns the
// decoded Header. The header always occupies FixedHeaderSize bytes.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < FixedHeaderSize {
		return Header{}, fmt.Errorf("truncated header: need %d bytes, got %d", FixedHeaderSize, len(data))
	}
	if data[0] != Magic[0] || data[1] != Magic[1] || data[2] != Magic[2] {
		return Header{}, ErrBadMagic
	}
	h := Header{
		DataEntryCount: data[MagicSize],
		DataTableSize:  binary.LittleEndian.Uint32(data[MagicSize+CountFieldSize:]),
	}
	return h, nil
}

// CodeBase returns the absolute offset of the first code byte given the
// size of the data table.
func CodeBase(dataTableSize uint32) uint32 {
	return uint32(FixedHeaderSize) + dataTableSize
}
