package interp

import (
	"os"

	"github.com/kestrelvm/bbx/isa"
)

// fopen implements FOPEN: reopening an occupied slot implicitly closes
// the previous handle, matching the FD table's stated invariant.
func (vm *VM) fopen(mode isa.FOpenMode, fd int, name string) error {
	if vm.fds[fd].f != nil {
		vm.fds[fd].f.Close()
		vm.fds[fd] = fileSlot{}
	}

	var flag int
	switch mode {
	case isa.FOpenRead:
		flag = os.O_RDONLY
	case isa.FOpenWrite:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case isa.FOpenAppend:
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default:
		return fault(vm.pc, isa.OpFopen, "invalid FOPEN mode %d", mode)
	}

	f, err := os.OpenFile(name, flag, 0644) // #nosec G304 -- guest-program-controlled path, by design
	if err != nil {
		return fault(vm.pc, isa.OpFopen, "open %q: %v", name, err)
	}
	vm.fds[fd] = fileSlot{f: f, mode: byte(mode)}
	return nil
}

func (vm *VM) fclose(fd int) error {
	if vm.fds[fd].f == nil {
		return fault(vm.pc, isa.OpFclose, "file descriptor %d is not open", fd)
	}
	err := vm.fds[fd].f.Close()
	vm.fds[fd] = fileSlot{}
	if err != nil {
		return fault(vm.pc, isa.OpFclose, "close: %v", err)
	}
	return nil
}

// fread reads one byte, returning -1 (not an error) at end of file.
func (vm *VM) fread(fd int) (int64, error) {
	if vm.fds[fd].f == nil {
		return 0, fault(vm.pc, isa.OpFread, "file descriptor %d is not open", fd)
	}
	var buf [1]byte
	n, err := vm.fds[fd].f.Read(buf[:])
	if n == 0 {
		return -1, nil
	}
	if err != nil {
		return 0, fault(vm.pc, isa.OpFread, "read: %v", err)
	}
	return int64(buf[0]), nil
}

func (vm *VM) fwrite(fd int, b byte) error {
	if vm.fds[fd].f == nil {
		return fault(vm.pc, isa.OpFwriteReg, "file descriptor %d is not open", fd)
	}
	if _, err := vm.fds[fd].f.Write([]byte{b}); err != nil {
		return fault(vm.pc, isa.OpFwriteReg, "write: %v", err)
	}
	return nil
}

func (vm *VM) fseek(fd int, offset int64) error {
	if vm.fds[fd].f == nil {
		return fault(vm.pc, isa.OpFseekReg, "file descriptor %d is not open", fd)
	}
	if _, err := vm.fds[fd].f.Seek(offset, os.SEEK_SET); err != nil {
		return fault(vm.pc, isa.OpFseekReg, "seek: %v", err)
	}
	return nil
}

// closeAllFiles closes every still-open FD slot; called on interpreter
// exit regardless of how the program terminated.
func (vm *VM) closeAllFiles() {
	for i := range vm.fds {
		if vm.fds[i].f != nil {
			vm.fds[i].f.Close()
			vm.fds[i] = fileSlot{}
		}
	}
}
