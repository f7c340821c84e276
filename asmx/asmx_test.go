package asmx_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kestrelvm/bbx/asmx"
	"github.com/kestrelvm/bbx/container"
	"github.com/kestrelvm/bbx/interp"
)

func testOptions() asmx.Options {
	return asmx.Options{Registers: 16, FileDescriptors: 16, MaxMacroDepth: 32, MaxLabels: 1024}
}

func assembleFile(t *testing.T, name string) []byte {
	t.Helper()
	path := filepath.Join("..", "testdata", name)
	src, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	var out bytes.Buffer
	if err := asmx.Assemble(name, bytes.NewReader(src), &out, testOptions()); err != nil {
		t.Fatalf("Assemble(%s): %v", name, err)
	}
	return out.Bytes()
}

// run assembles name and executes it, returning captured stdout and the
// process exit code.
func run(t *testing.T, name string) (string, int) {
	t.Helper()
	bin := assembleFile(t, name)

	vm, err := interp.LoadBytes(bin, interp.DefaultOptions())
	if err != nil {
		t.Fatalf("LoadBytes(%s): %v", name, err)
	}
	var stdout bytes.Buffer
	vm.SetStdout(&stdout)
	vm.SetStdin(strings.NewReader(""))

	code, err := vm.Run()
	if err != nil {
		t.Fatalf("Run(%s): %v", name, err)
	}
	return stdout.String(), code
}

func TestEndToEndHello(t *testing.T) {
	out, code := run(t, "hello.bbx")
	if out != "hi\n" || code != 0 {
		t.Errorf("hello.bbx: stdout=%q code=%d, want %q 0", out, code, "hi\n")
	}
}

func TestEndToEndArithmetic(t *testing.T) {
	out, code := run(t, "arithmetic.bbx")
	if out != "7" || code != 0 {
		t.Errorf("arithmetic.bbx: stdout=%q code=%d, want %q 0", out, code, "7")
	}
}

func TestEndToEndLoop(t *testing.T) {
	out, code := run(t, "loop.bbx")
	if out != "0\n1\n2\n" || code != 0 {
		t.Errorf("loop.bbx: stdout=%q code=%d, want %q 0", out, code, "0\n1\n2\n")
	}
}

func TestEndToEndStringData(t *testing.T) {
	out, code := run(t, "string_data.bbx")
	if out != "abc" || code != 0 {
		t.Errorf("string_data.bbx: stdout=%q code=%d, want %q 0", out, code, "abc")
	}
}

func TestEndToEndCallFrame(t *testing.T) {
	out, code := run(t, "call_frame.bbx")
	if out != "42" || code != 0 {
		t.Errorf("call_frame.bbx: stdout=%q code=%d, want %q 0", out, code, "42")
	}
}

func TestEndToEndMacroHygiene(t *testing.T) {
	out, code := run(t, "macro_hygiene.bbx")
	if out != "01" || code != 0 {
		t.Errorf("macro_hygiene.bbx: stdout=%q code=%d, want %q 0", out, code, "01")
	}
}

func TestAssembleProducesValidContainerHeader(t *testing.T) {
	bin := assembleFile(t, "string_data.bbx")
	hdr, err := container.ReadHeader(bin)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if hdr.DataEntryCount != 1 {
		t.Errorf("DataEntryCount = %d, want 1 (one STR entry)", hdr.DataEntryCount)
	}
	if hdr.DataTableSize == 0 {
		t.Error("DataTableSize should be non-zero for a program with a string literal")
	}
}

func TestAssembleRejectsMissingAsmHeader(t *testing.T) {
	var out bytes.Buffer
	err := asmx.Assemble("bad.bbx", strings.NewReader("%main\n.start:\nHALT\n"), &out, testOptions())
	if err == nil {
		t.Fatal("expected an error for a file missing the %asm header")
	}
}

func TestAssembleRejectsUndefinedLabel(t *testing.T) {
	src := "%asm\n%main\n.start:\nJMP nowhere\n"
	var out bytes.Buffer
	err := asmx.Assemble("bad.bbx", strings.NewReader(src), &out, testOptions())
	if err == nil {
		t.Fatal("expected an error for a jump to an undefined label")
	}
}

func TestAssembleRejectsDuplicateLabel(t *testing.T) {
	src := "%asm\n%main\n.start:\nHALT\n.start:\nHALT\n"
	var out bytes.Buffer
	err := asmx.Assemble("bad.bbx", strings.NewReader(src), &out, testOptions())
	if err == nil {
		t.Fatal("expected an error for a duplicate label")
	}
}

func TestAssembleRejectsUnknownMnemonic(t *testing.T) {
	src := "%asm\n%main\n.start:\nFROBNICATE R0\n"
	var out bytes.Buffer
	err := asmx.Assemble("bad.bbx", strings.NewReader(src), &out, testOptions())
	if err == nil {
		t.Fatal("expected an error for an unknown mnemonic")
	}
}

func TestAssembleIsCaseInsensitive(t *testing.T) {
	src := "%ASM\n%Main\n.start:\nmov r0, 5\nprintreg R0\nhalt\n"
	var out bytes.Buffer
	if err := asmx.Assemble("ci.bbx", strings.NewReader(src), &out, testOptions()); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	vm, err := interp.LoadBytes(out.Bytes(), interp.DefaultOptions())
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	var stdout bytes.Buffer
	vm.SetStdout(&stdout)
	if _, err := vm.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stdout.String() != "5" {
		t.Errorf("stdout = %q, want %q", stdout.String(), "5")
	}
}
