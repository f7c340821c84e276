package asmx

import (
	"encoding/binary"
	"strconv"
)

// DataTable accumulates the %data section's STR/BYTE/WORD/DWORD/QWORD
// entries into one contiguous byte blob. Offsets recorded here are
// relative to the start of the data table itself; the interpreter adds
// the fixed header size to locate a value inside the loaded container.
type DataTable struct {
	bytes   []byte
	offsets map[string]uint32
	defAt   map[string]Position
	count   int
}

func newDataTable() *DataTable {
	return &DataTable{offsets: make(map[string]uint32), defAt: make(map[string]Position)}
}

func (dt *DataTable) define(name string, value []byte, pos Position) error {
	if prev, exists := dt.defAt[name]; exists {
		return newErr(pos, ErrorDuplicateData, "", "data symbol %q already defined at %s", name, prev)
	}
	if dt.count >= 255 {
		return newErr(pos, ErrorTooManyLabels, "", "too many data entries (max 255)")
	}
	dt.offsets[name] = uint32(len(dt.bytes))
	dt.defAt[name] = pos
	dt.bytes = append(dt.bytes, value...)
	dt.count++
	return nil
}

// DefineString stores value zero-terminated, matching STR's original
// null-terminated string representation.
func (dt *DataTable) DefineString(name, value string, pos Position) error {
	return dt.define(name, append([]byte(value), 0), pos)
}

// DefineInt stores a little-endian integer of the given byte width
// (1, 2, 4, or 8) for the BYTE/WORD/DWORD/QWORD directives.
func (dt *DataTable) DefineInt(name string, width int, literal string, pos Position) error {
	n, err := strconv.ParseInt(literal, 0, 64)
	if err != nil {
		return newErr(pos, ErrorSyntax, "", "invalid integer literal %q: %v", literal, err)
	}
	buf := make([]byte, width)
	switch width {
	case 1:
		buf[0] = byte(n)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(n))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(n))
	case 8:
		binary.LittleEndian.PutUint64(buf, uint64(n))
	}
	return dt.define(name, buf, pos)
}

func (dt *DataTable) Get(name string, pos Position) (uint32, error) {
	off, ok := dt.offsets[name]
	if !ok {
		return 0, newErr(pos, ErrorUndefinedData, "", "undefined data symbol %q", name)
	}
	return off, nil
}

func (dt *DataTable) Size() uint32 {
	return uint32(len(dt.bytes))
}

func (dt *DataTable) EntryCount() int {
	return dt.count
}

func (dt *DataTable) Bytes() []byte {
	return dt.bytes
}
