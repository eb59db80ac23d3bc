package main

import (
	"bytes"
	"encoding/binary"
)

// Helpers to assemble synthetic ELF64 images in memory for tests. Layout:
// ELF header, then the program header table, then each segment's file data in
// declaration order.

type testSegment struct {
	typ   SegmentType
	flags SegmentFlags
	vaddr uint64
	data  []byte
	memsz uint64 // 0 means len(data)
}

type testELF struct {
	typ      Type
	machine  uint16
	entry    uint64
	segments []testSegment
}

func (e *testELF) bytes() []byte {
	le := binary.LittleEndian
	phnum := len(e.segments)
	phoff := elfHeaderSize
	dataOff := phoff + phnum*progHeaderSize

	machine := e.machine
	if machine == 0 {
		machine = MachineX86_64.Raw()
	}

	var buf bytes.Buffer
	w16 := func(v uint16) { _ = binary.Write(&buf, le, v) }
	w32 := func(v uint32) { _ = binary.Write(&buf, le, v) }
	w64 := func(v uint64) { _ = binary.Write(&buf, le, v) }

	// e_ident
	buf.Write([]byte{0x7F, 'E', 'L', 'F', 2, 1, 1, 0})
	buf.Write(make([]byte, 8))

	w16(e.typ.Raw())
	w16(machine)
	w32(1) // version (bis)
	w64(e.entry)
	w64(uint64(phoff))
	w64(0) // no section headers
	w32(0) // flags
	w16(elfHeaderSize)
	w16(progHeaderSize)
	w16(uint16(phnum))
	w16(0) // section header entry size
	w16(0) // section header count
	w16(0) // section name table index

	off := dataOff
	for _, seg := range e.segments {
		memsz := seg.memsz
		if memsz == 0 {
			memsz = uint64(len(seg.data))
		}
		w32(uint32(seg.typ))
		w32(uint32(seg.flags))
		w64(uint64(off))
		w64(seg.vaddr)
		w64(seg.vaddr)
		w64(uint64(len(seg.data)))
		w64(memsz)
		w64(pageSize)
		off += len(seg.data)
	}

	for _, seg := range e.segments {
		buf.Write(seg.data)
	}
	return buf.Bytes()
}

// minimalExec is a one-segment executable whose text is exit(0) via syscall.
func minimalExec() *testELF {
	return &testELF{
		typ:   TypeExec,
		entry: 0x1000,
		segments: []testSegment{
			{
				typ:   SegmentLoad,
				flags: FlagRead | FlagExecute,
				vaddr: 0x1000,
				data: []byte{
					0xB8, 0x3C, 0x00, 0x00, 0x00, // mov eax, 60
					0x31, 0xFF, // xor edi, edi
					0x0F, 0x05, // syscall
				},
			},
		},
	}
}

// relaDyn builds a Dyn image with one Rela entry of the given type, pointing
// at slot 0x1080 with addend 0x1234. The table itself lives at 0x1040 inside
// the Load segment.
func relaDyn(relType RelType) *testELF {
	le := binary.LittleEndian

	load := make([]byte, 0x100)
	// exit(0), same as minimalExec
	copy(load, []byte{0xB8, 0x3C, 0x00, 0x00, 0x00, 0x31, 0xFF, 0x0F, 0x05})
	// one rela entry at vaddr 0x1040
	le.PutUint64(load[0x40:], 0x1080)                    // r_offset
	le.PutUint64(load[0x48:], uint64(relType)&0xFFFFFFFF) // r_info: sym 0
	le.PutUint64(load[0x50:], 0x1234)                    // r_addend

	var dyn bytes.Buffer
	wtag := func(tag DynamicTag, value uint64) {
		_ = binary.Write(&dyn, le, uint64(tag))
		_ = binary.Write(&dyn, le, value)
	}
	wtag(DtRela, 0x1040)
	wtag(DtRelaSz, relaEntrySize)
	wtag(DtRelaEnt, relaEntrySize)
	wtag(DtNull, 0)

	return &testELF{
		typ:   TypeDyn,
		entry: 0x1000,
		segments: []testSegment{
			{typ: SegmentLoad, flags: FlagRead | FlagWrite, vaddr: 0x1000, data: load},
			{typ: SegmentDynamic, flags: FlagRead, vaddr: 0x2000, data: dyn.Bytes()},
		},
	}
}
