package interp

import (
	"bytes"
	"testing"

	"github.com/kestrelvm/bbx/container"
	"github.com/kestrelvm/bbx/isa"
)

// minimalContainer builds a valid, header-correct container whose only
// instruction is HALT, for tests that only need a VM to poke at
// directly rather than to execute a real program.
func minimalContainer(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := container.WriteHeader(&buf, container.Header{DataEntryCount: 0, DataTableSize: 0}); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if err := isa.Encode(&buf, isa.Instruction{Op: isa.OpHalt}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return buf.Bytes()
}

func newTestVM(t *testing.T) *VM {
	t.Helper()
	vm, err := LoadBytes(minimalContainer(t), Options{
		Registers: 8, FileDescriptors: 4, StackInitialCapacity: 4, StackGrowthFactor: 1.5, MaxCallDepth: 16,
	})
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	return vm
}

func TestLoadBytesRejectsBadMagic(t *testing.T) {
	if _, err := LoadBytes([]byte{'X', 'X', 'X', 0, 0, 0, 0, 0}, DefaultOptions()); err == nil {
		t.Fatal("expected an error for bad magic")
	}
}

func TestLoadBytesRejectsTruncatedDataTable(t *testing.T) {
	var buf bytes.Buffer
	container.WriteHeader(&buf, container.Header{DataEntryCount: 1, DataTableSize: 100}) //nolint:errcheck
	if _, err := LoadBytes(buf.Bytes(), DefaultOptions()); err == nil {
		t.Fatal("expected an error for a declared data table longer than the file")
	}
}

func TestLoadBytesAppliesOptionDefaults(t *testing.T) {
	vm, err := LoadBytes(minimalContainer(t), Options{})
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if len(vm.registers) != DefaultOptions().Registers {
		t.Errorf("registers = %d, want default %d", len(vm.registers), DefaultOptions().Registers)
	}
	if vm.capacity() != DefaultOptions().StackInitialCapacity {
		t.Errorf("capacity = %d, want default %d", vm.capacity(), DefaultOptions().StackInitialCapacity)
	}
}

func TestPushGrowsCapacityAndPopReturnsLIFO(t *testing.T) {
	vm := newTestVM(t) // capacity 4
	for i := int64(0); i < 6; i++ {
		vm.push(i)
	}
	if vm.capacity() < 6 {
		t.Fatalf("capacity = %d, want >= 6 after 6 pushes", vm.capacity())
	}
	for i := int64(5); i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if v != i {
			t.Fatalf("pop() = %d, want %d", v, i)
		}
	}
}

func TestPopUnderflowFaults(t *testing.T) {
	vm := newTestVM(t)
	if _, err := vm.pop(); err == nil {
		t.Fatal("expected a stack-underflow fault on an empty stack")
	}
}

func TestAllocGrowResizeFree(t *testing.T) {
	vm := newTestVM(t) // capacity 4
	vm.alloc(2)
	if vm.capacity() != 4 {
		t.Errorf("alloc(2) should never shrink capacity 4, got %d", vm.capacity())
	}
	vm.alloc(10)
	if vm.capacity() != 10 {
		t.Errorf("alloc(10) = capacity %d, want 10", vm.capacity())
	}
	if err := vm.grow(5); err != nil || vm.capacity() != 15 {
		t.Errorf("grow(5): capacity=%d err=%v, want 15 nil", vm.capacity(), err)
	}
	if err := vm.resize(3); err != nil || vm.capacity() != 3 {
		t.Errorf("resize(3): capacity=%d err=%v, want 3 nil", vm.capacity(), err)
	}
	if err := vm.free(1); err != nil || vm.capacity() != 2 {
		t.Errorf("free(1): capacity=%d err=%v, want 2 nil", vm.capacity(), err)
	}
	if err := vm.free(10); err == nil {
		t.Error("free(10) should fault: cannot free more than the current capacity")
	}
}

func TestResizeClampsStackPointer(t *testing.T) {
	vm := newTestVM(t)
	vm.push(1)
	vm.push(2)
	vm.push(3)
	if err := vm.resize(1); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if vm.sp != 1 {
		t.Errorf("sp = %d after resize(1), want 1", vm.sp)
	}
}

func TestCmpAndFlagsTrue(t *testing.T) {
	vm := newTestVM(t)
	// CMP ra, rb: diff = r[rb] - r[ra]. flags==1 only when strictly
	// greater (rb > ra); this is the polarity JL/JGE key off.
	vm.registers[0] = 1 // ra
	vm.registers[1] = 3 // rb
	vm.cmp(0, 1)
	if !vm.flagsTrue() {
		t.Error("expected flags true when rb > ra")
	}

	vm.registers[0] = 3
	vm.registers[1] = 3
	vm.cmp(0, 1)
	if vm.flagsTrue() {
		t.Error("expected flags false on equality")
	}

	vm.registers[0] = 5
	vm.registers[1] = 3
	vm.cmp(0, 1)
	if vm.flagsTrue() {
		t.Error("expected flags false when rb < ra")
	}
}

func TestStrRefTagRoundTrip(t *testing.T) {
	ref := decodeStrRef(encodeStackRef(1234))
	if !ref.OnStack || ref.Offset != 1234 {
		t.Errorf("decodeStrRef(encodeStackRef(1234)) = %+v", ref)
	}
	dataRef := decodeStrRef(int64(42))
	if dataRef.OnStack || dataRef.Offset != 42 {
		t.Errorf("decodeStrRef(42) = %+v, want a data-table ref with offset 42", dataRef)
	}
}

func TestFrameSlotWithNoActiveFrame(t *testing.T) {
	vm := newTestVM(t)
	idx, err := vm.frameSlot(isa.OpLoadVarImm, 0)
	if err != nil || idx != 0 {
		t.Errorf("frameSlot with no call frame: idx=%d err=%v, want 0 nil (base 0)", idx, err)
	}
}

func TestFrameSlotBoundsCheckedAgainstActiveFrame(t *testing.T) {
	vm := newTestVM(t)
	vm.calls = append(vm.calls, Frame{ReturnPC: 0, Base: 1, SlotCount: 2})
	if _, err := vm.frameSlot(isa.OpLoadVarImm, 5); err == nil {
		t.Error("expected an out-of-range fault for a slot beyond SlotCount")
	}
	idx, err := vm.frameSlot(isa.OpLoadVarImm, 1)
	if err != nil || idx != 2 {
		t.Errorf("frameSlot(1) = %d, %v, want 2 nil (base 1 + slot 1)", idx, err)
	}
}

func TestRollRandRespectsRange(t *testing.T) {
	vm := newTestVM(t)
	for i := 0; i < 50; i++ {
		v, err := vm.rollRand(-5, 5)
		if err != nil {
			t.Fatalf("rollRand: %v", err)
		}
		if v < -5 || v > 5 {
			t.Fatalf("rollRand(-5,5) = %d, out of range", v)
		}
	}
}

func TestRollRandSwapsInvertedRange(t *testing.T) {
	vm := newTestVM(t)
	v, err := vm.rollRand(10, 0)
	if err != nil {
		t.Fatalf("rollRand: %v", err)
	}
	if v < 0 || v > 10 {
		t.Fatalf("rollRand(10,0) = %d, want in [0,10] after swap", v)
	}
}

func TestFopenReopenClosesPreviousHandle(t *testing.T) {
	vm := newTestVM(t)
	dir := t.TempDir()
	a := dir + "/a.txt"
	b := dir + "/b.txt"

	if err := vm.fopen(isa.FOpenWrite, 0, a); err != nil {
		t.Fatalf("fopen a: %v", err)
	}
	firstHandle := vm.fds[0].f
	if err := vm.fopen(isa.FOpenWrite, 0, b); err != nil {
		t.Fatalf("fopen b: %v", err)
	}
	if vm.fds[0].f == firstHandle {
		t.Error("reopening fd 0 should install a new handle")
	}
	// The first handle must already be closed; writing through it should fail.
	if _, err := firstHandle.WriteString("x"); err == nil {
		t.Error("the previous handle should have been closed by the implicit reopen")
	}
	vm.closeAllFiles()
}

func TestFreadEOFReturnsNegativeOne(t *testing.T) {
	vm := newTestVM(t)
	dir := t.TempDir()
	path := dir + "/empty.txt"
	if err := vm.fopen(isa.FOpenRead, 0, path+".missing"); err == nil {
		t.Fatal("expected fopen of a nonexistent read-mode file to fail")
	}
	if err := vm.fopen(isa.FOpenWrite, 0, path); err != nil {
		t.Fatalf("fopen write: %v", err)
	}
	if err := vm.fclose(0); err != nil {
		t.Fatalf("fclose: %v", err)
	}
	if err := vm.fopen(isa.FOpenRead, 0, path); err != nil {
		t.Fatalf("fopen read: %v", err)
	}
	v, err := vm.fread(0)
	if err != nil {
		t.Fatalf("fread: %v", err)
	}
	if v != -1 {
		t.Errorf("fread on an empty file = %d, want -1", v)
	}
	vm.closeAllFiles()
}

func TestValidRegAndFD(t *testing.T) {
	vm := newTestVM(t)
	if !vm.validReg(0) || vm.validReg(-1) || vm.validReg(len(vm.registers)) {
		t.Error("validReg bounds check failed")
	}
	if !vm.validFD(0) || vm.validFD(-1) || vm.validFD(len(vm.fds)) {
		t.Error("validFD bounds check failed")
	}
}

func TestFlagsRegIsLastRegister(t *testing.T) {
	vm := newTestVM(t)
	if vm.flagsReg() != len(vm.registers)-1 {
		t.Errorf("flagsReg() = %d, want %d", vm.flagsReg(), len(vm.registers)-1)
	}
}
