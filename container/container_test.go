package container

import (
	"bytes"
	"testing"
)

func TestWriteReadHeaderRoundTrip(t *testing.T) {
	cases := []Header{
		{DataEntryCount: 0, DataTableSize: 0},
		{DataEntryCount: 3, DataTableSize: 42},
		{DataEntryCount: 255, DataTableSize: 0xFFFFFFFF},
	}
	for _, h := range cases {
		var buf bytes.Buffer
		if err := WriteHeader(&buf, h); err != nil {
			t.Fatalf("WriteHeader: %v", err)
		}
		if buf.Len() != FixedHeaderSize {
			t.Fatalf("wrote %d bytes, want %d", buf.Len(), FixedHeaderSize)
		}
		got, err := ReadHeader(buf.Bytes())
		if err != nil {
			t.Fatalf("ReadHeader: %v", err)
		}
		if got != h {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
		}
	}
}

func TestReadHeaderBadMagic(t *testing.T) {
	data := []byte{'X', 'X', 'X', 0, 0, 0, 0, 0}
	if _, err := ReadHeader(data); err != ErrBadMagic {
		t.Fatalf("got %v, want ErrBadMagic", err)
	}
}

func TestReadHeaderTruncated(t *testing.T) {
	data := []byte{'B', 'B'}
	if _, err := ReadHeader(data); err == nil {
		t.Fatal("expected an error for a truncated header")
	}
}

func TestCodeBase(t *testing.T) {
	if got := CodeBase(0); got != uint32(FixedHeaderSize) {
		t.Errorf("CodeBase(0) = %d, want %d", got, FixedHeaderSize)
	}
	if got := CodeBase(100); got != uint32(FixedHeaderSize)+100 {
		t.Errorf("CodeBase(100) = %d, want %d", got, uint32(FixedHeaderSize)+100)
	}
}
