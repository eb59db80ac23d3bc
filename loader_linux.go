//go:build linux && amd64
// +build linux,amd64

package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MapError reports a failed fixed-address anonymous mapping.
type MapError struct {
	Addr Addr
	Size int
	Err  error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("mapping %d bytes at %v failed: %v", e.Size, e.Addr, e.Err)
}

// ProtectError reports a failed protection change.
type ProtectError struct {
	Addr Addr
	Size int
	Err  error
}

func (e *ProtectError) Error() string {
	return fmt.Sprintf("protecting %d bytes at %v failed: %v", e.Size, e.Addr, e.Err)
}

// RelocationError reports a relocation type the loader does not apply.
type RelocationError struct {
	Type RelType
}

func (e *RelocationError) Error() string {
	return fmt.Sprintf("unsupported relocation type %v", e.Type)
}

// Loader owns the anonymous mappings a guest image was realised into. The
// mappings must stay alive across Jump, which never returns, so a loader that
// reaches Jump leaks them on purpose. release exists for tests.
type Loader struct {
	mappings [][]byte
}

// mapFixed creates a writable anonymous private mapping of size bytes at
// exactly addr. MAP_FIXED_NOREPLACE makes a collision with an existing
// mapping fail instead of silently relocating; on kernels that ignore the
// flag the address check below catches the same case.
func (l *Loader) mapFixed(addr Addr, size int) ([]byte, error) {
	ret, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		addr.Uintptr(),
		uintptr(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_FIXED_NOREPLACE,
		^uintptr(0), // fd = -1
		0,
	)
	if errno != 0 {
		return nil, &MapError{Addr: addr, Size: size, Err: errno}
	}
	if ret != addr.Uintptr() {
		_, _, _ = unix.Syscall(unix.SYS_MUNMAP, ret, uintptr(size), 0)
		return nil, &MapError{Addr: addr, Size: size, Err: fmt.Errorf("kernel placed mapping at 0x%x", ret)}
	}
	mem := unsafe.Slice((*byte)(unsafe.Pointer(ret)), size)
	l.mappings = append(l.mappings, mem)
	return mem, nil
}

// release unmaps everything. Only tests call this; the normal path jumps into
// guest code and never comes back.
func (l *Loader) release() {
	for _, mem := range l.mappings {
		_ = unix.Munmap(mem)
	}
	l.mappings = nil
}

// protFlags translates ELF segment flags to mmap protection bits. The two
// vocabularies happen to differ in bit order, hence an explicit table.
func protFlags(f SegmentFlags) int {
	prot := unix.PROT_NONE
	if f&FlagRead != 0 {
		prot |= unix.PROT_READ
	}
	if f&FlagWrite != 0 {
		prot |= unix.PROT_WRITE
	}
	if f&FlagExecute != 0 {
		prot |= unix.PROT_EXEC
	}
	return prot
}

// Load realises every Load segment of f at base+vaddr: map writable pages,
// copy the file image, patch relocations, then tighten the protection to the
// segment flags. The order is fixed; patching has to happen while the pages
// are still writable.
func (l *Loader) Load(f *File, base Addr) error {
	if f.Machine != MachineX86_64 {
		return fmt.Errorf("cannot load %v executables on x86_64", f.Machine)
	}
	if f.Type != TypeExec && f.Type != TypeDyn {
		return fmt.Errorf("cannot load a file of type %v", f.Type)
	}

	relas, err := f.ReadRelaEntries()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not read relocations, assuming none: %v\n", err)
		relas = nil
	}

	for _, ph := range f.ProgHeaders {
		if ph.Type != SegmentLoad || ph.MemSz == 0 {
			continue
		}
		if err := l.loadSegment(ph, relas, base); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadSegment(ph *ProgramHeader, relas []RelaEntry, base Addr) error {
	segStart, segEnd := ph.MemRange()

	start := segStart + base
	alignedStart := alignLo(start)
	padding := start - alignedStart
	size := (Addr(ph.MemSz) + padding).Int()

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "mapping [%v..%v) %v at %v (padding 0x%x)\n",
			segStart, segEnd, ph.Flags, alignedStart, padding.Uint64())
	}

	mem, err := l.mapFixed(alignedStart, size)
	if err != nil {
		return err
	}

	// Fresh anonymous pages are zero, so only the file image needs copying;
	// the FileSz..MemSz tail is the segment's BSS.
	copy(mem[padding.Int():], ph.Data)

	applied := 0
	for _, reloc := range relas {
		if reloc.Offset < segStart || reloc.Offset >= segEnd {
			continue
		}
		if reloc.Type != RelRelative {
			return &RelocationError{Type: reloc.Type}
		}
		dst := padding + (reloc.Offset - segStart)
		binary.LittleEndian.PutUint64(mem[dst.Int():], uint64(int64(base.Uint64())+reloc.Addend))
		applied++
	}
	if applied > 0 && VerboseMode {
		fmt.Fprintf(os.Stderr, "applied %d relocations in [%v..%v)\n", applied, segStart, segEnd)
	}

	if err := unix.Mprotect(mem, protFlags(ph.Flags)); err != nil {
		return &ProtectError{Addr: alignedStart, Size: size, Err: err}
	}
	return nil
}

// Jump transfers control to base+entry and does not return. The target is
// called with no arguments and no stack frame beyond Go's own, so only guests
// that terminate themselves through an exit syscall without reading
// argv/envp behave.
func (l *Loader) Jump(f *File, base Addr) {
	entry := f.Entry + base
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "jumping to entry point %v\n", entry)
	}
	code := entry.Uintptr()
	fp := unsafe.Pointer(&code)
	fn := *(*func())(unsafe.Pointer(&fp))
	fn()
}

// LoadAndJump maps f at base and transfers control. It returns only on error.
func LoadAndJump(f *File, base Addr) error {
	var l Loader
	if err := l.Load(f, base); err != nil {
		return err
	}
	l.Jump(f, base)
	return nil
}
