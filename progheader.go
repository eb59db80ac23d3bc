package main

import (
	"fmt"
	"strings"
)

// SegmentType is the p_type of a program header. The set is open: values we
// have no name for survive as their raw number.
type SegmentType uint32

const (
	SegmentNull    SegmentType = 0
	SegmentLoad    SegmentType = 1
	SegmentDynamic SegmentType = 2
	SegmentInterp  SegmentType = 3
	SegmentNote    SegmentType = 4
	SegmentShLib   SegmentType = 5
	SegmentPhdr    SegmentType = 6
	SegmentTls     SegmentType = 7
)

func (t SegmentType) String() string {
	switch t {
	case SegmentNull:
		return "null"
	case SegmentLoad:
		return "load"
	case SegmentDynamic:
		return "dynamic"
	case SegmentInterp:
		return "interp"
	case SegmentNote:
		return "note"
	case SegmentShLib:
		return "shlib"
	case SegmentPhdr:
		return "phdr"
	case SegmentTls:
		return "tls"
	default:
		return fmt.Sprintf("unknown(0x%x)", uint32(t))
	}
}

// SegmentFlags is the p_flags bit set.
type SegmentFlags uint32

const (
	FlagExecute SegmentFlags = 1
	FlagWrite   SegmentFlags = 2
	FlagRead    SegmentFlags = 4
)

func (f SegmentFlags) String() string {
	var sb strings.Builder
	for _, p := range []struct {
		flag SegmentFlags
		c    byte
	}{{FlagRead, 'r'}, {FlagWrite, 'w'}, {FlagExecute, 'x'}} {
		if f&p.flag != 0 {
			sb.WriteByte(p.c)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// DynamicTag is the d_tag of a dynamic table entry. Open set.
type DynamicTag uint64

const (
	DtNull     DynamicTag = 0
	DtNeeded   DynamicTag = 1
	DtPltRelSz DynamicTag = 2
	DtPltGot   DynamicTag = 3
	DtHash     DynamicTag = 4
	DtStrTab   DynamicTag = 5
	DtSymTab   DynamicTag = 6
	DtRela     DynamicTag = 7
	DtRelaSz   DynamicTag = 8
	DtRelaEnt  DynamicTag = 9
	DtStrSz    DynamicTag = 10
	DtSymEnt   DynamicTag = 11
	DtInit     DynamicTag = 12
	DtFini     DynamicTag = 13
)

func (t DynamicTag) String() string {
	switch t {
	case DtNull:
		return "null"
	case DtNeeded:
		return "needed"
	case DtPltRelSz:
		return "pltrelsz"
	case DtPltGot:
		return "pltgot"
	case DtHash:
		return "hash"
	case DtStrTab:
		return "strtab"
	case DtSymTab:
		return "symtab"
	case DtRela:
		return "rela"
	case DtRelaSz:
		return "relasz"
	case DtRelaEnt:
		return "relaent"
	case DtStrSz:
		return "strsz"
	case DtSymEnt:
		return "syment"
	case DtInit:
		return "init"
	case DtFini:
		return "fini"
	default:
		return fmt.Sprintf("unknown(0x%x)", uint64(t))
	}
}

// DynamicEntry is one (tag, value) pair from a PT_DYNAMIC segment.
type DynamicEntry struct {
	Tag   DynamicTag
	Value Addr
}

// ProgramHeader describes one segment. Data borrows the file bytes of the
// segment; when FileSz < MemSz the missing tail is implicitly zero (BSS).
type ProgramHeader struct {
	Type   SegmentType
	Flags  SegmentFlags
	Off    uint64
	VAddr  Addr
	PAddr  Addr
	FileSz uint64
	MemSz  uint64
	Align  uint64
	Data   []byte

	// Dynamic holds the decoded (tag, value) table for PT_DYNAMIC segments,
	// nil for everything else.
	Dynamic []DynamicEntry
}

// MemRange returns the half-open [VAddr, VAddr+MemSz) memory range.
func (ph *ProgramHeader) MemRange() (start, end Addr) {
	return ph.VAddr, ph.VAddr + Addr(ph.MemSz)
}

func (ph *ProgramHeader) String() string {
	start, end := ph.MemRange()
	return fmt.Sprintf("%-8s %s file [0x%06x..0x%06x) mem [%v..%v) align 0x%x",
		ph.Type, ph.Flags, ph.Off, ph.Off+ph.FileSz, start, end, ph.Align)
}

// DynamicValue returns the value of the first entry with the given tag.
func (ph *ProgramHeader) DynamicValue(tag DynamicTag) (Addr, bool) {
	for _, e := range ph.Dynamic {
		if e.Tag == tag {
			return e.Value, true
		}
	}
	return 0, false
}

func parseProgHeaders(d *decoder, f *File) error {
	if f.PhNum == 0 {
		return nil
	}
	if uint64(f.PhEntSize) < progHeaderSize {
		return d.errAt("Program header entry size", d.offset(), "entry size %d below ELF64 minimum %d", f.PhEntSize, progHeaderSize)
	}
	for i := 0; i < int(f.PhNum); i++ {
		ctx := fmt.Sprintf("Program header %d", i)
		if err := d.seek(ctx, int(f.PhOff)+i*int(f.PhEntSize)); err != nil {
			return err
		}
		ph, err := parseProgHeader(d, ctx)
		if err != nil {
			return err
		}
		f.ProgHeaders = append(f.ProgHeaders, ph)
	}
	return nil
}

func parseProgHeader(d *decoder, ctx string) (*ProgramHeader, error) {
	ph := &ProgramHeader{}

	rawType, err := d.u32(ctx + ": Type")
	if err != nil {
		return nil, err
	}
	ph.Type = SegmentType(rawType)

	rawFlags, err := d.u32(ctx + ": Flags")
	if err != nil {
		return nil, err
	}
	ph.Flags = SegmentFlags(rawFlags)

	if ph.Off, err = d.u64(ctx + ": Offset"); err != nil {
		return nil, err
	}
	if ph.VAddr, err = d.addr(ctx + ": Virtual address"); err != nil {
		return nil, err
	}
	if ph.PAddr, err = d.addr(ctx + ": Physical address"); err != nil {
		return nil, err
	}
	if ph.FileSz, err = d.u64(ctx + ": File size"); err != nil {
		return nil, err
	}
	if ph.MemSz, err = d.u64(ctx + ": Memory size"); err != nil {
		return nil, err
	}
	if ph.Align, err = d.u64(ctx + ": Alignment"); err != nil {
		return nil, err
	}

	if ph.Data, err = d.sub(ctx+": Data", ph.Off, ph.FileSz); err != nil {
		return nil, err
	}

	if ph.Type == SegmentDynamic {
		if ph.Dynamic, err = parseDynamicTable(ph.Data, ctx); err != nil {
			return nil, err
		}
	}

	return ph, nil
}

// parseDynamicTable decodes (tag, value) pairs until the terminating DT_NULL.
func parseDynamicTable(data []byte, ctx string) ([]DynamicEntry, error) {
	d := newDecoder(data)
	var entries []DynamicEntry
	for {
		tag, err := d.u64(ctx + ": Dynamic tag")
		if err != nil {
			return nil, err
		}
		value, err := d.addr(ctx + ": Dynamic value")
		if err != nil {
			return nil, err
		}
		entries = append(entries, DynamicEntry{Tag: DynamicTag(tag), Value: value})
		if DynamicTag(tag) == DtNull {
			return entries, nil
		}
	}
}
