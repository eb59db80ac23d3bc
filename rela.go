package main

import "fmt"

// RelType is the relocation type, the low 32 bits of r_info. Open set; only
// R_X86_64_RELATIVE is ever applied.
type RelType uint32

const RelRelative RelType = 8

func (t RelType) String() string {
	switch t {
	case RelRelative:
		return "relative"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// RelaEntry is one relocation record with an explicit addend.
type RelaEntry struct {
	Offset Addr
	Type   RelType
	Sym    uint32
	Addend int64
}

func (r RelaEntry) String() string {
	return fmt.Sprintf("%s @ %v sym %d addend 0x%x", r.Type, r.Offset, r.Sym, r.Addend)
}

// ReadRelaEntries extracts the Rela table described by the dynamic segment.
// A file without a dynamic segment, or without the Rela/RelaSz tags, simply
// has no relocations. Callers are expected to treat a non-nil error as
// "relocations unknown, assume none" — a missing or unreadable table is not
// fatal, a malformed entry inside the table is the caller's call.
func (f *File) ReadRelaEntries() ([]RelaEntry, error) {
	var dyn *ProgramHeader
	for _, ph := range f.ProgHeaders {
		if ph.Type == SegmentDynamic {
			dyn = ph
			break
		}
	}
	if dyn == nil {
		return nil, nil
	}

	relaAddr, ok := dyn.DynamicValue(DtRela)
	if !ok {
		return nil, nil
	}
	relaSz, ok := dyn.DynamicValue(DtRelaSz)
	if !ok {
		return nil, nil
	}
	if entSz, ok := dyn.DynamicValue(DtRelaEnt); ok && entSz != relaEntrySize {
		return nil, fmt.Errorf("rela entry size %d, expected %d", entSz.Uint64(), relaEntrySize)
	}

	// The table lives at a virtual address; translate through the segment
	// that covers it to reach the file bytes.
	seg := f.SegmentAt(relaAddr)
	if seg == nil {
		return nil, fmt.Errorf("rela table at %v not covered by any Load segment", relaAddr)
	}
	tblOff := relaAddr - seg.VAddr
	tblEnd := tblOff + relaSz
	if tblEnd < tblOff || tblEnd.Uint64() > uint64(len(seg.Data)) {
		return nil, fmt.Errorf("rela table at %v size 0x%x outside segment data of %d bytes", tblOff, relaSz.Uint64(), len(seg.Data))
	}

	d := newDecoder(seg.Data[tblOff.Int():tblEnd.Int()])
	n := relaSz.Uint64() / relaEntrySize
	entries := make([]RelaEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		ctx := fmt.Sprintf("Rela entry %d", i)
		offset, err := d.addr(ctx + ": Offset")
		if err != nil {
			return nil, err
		}
		info, err := d.u64(ctx + ": Info")
		if err != nil {
			return nil, err
		}
		addend, err := d.u64(ctx + ": Addend")
		if err != nil {
			return nil, err
		}
		entries = append(entries, RelaEntry{
			Offset: offset,
			Type:   RelType(info & 0xFFFFFFFF),
			Sym:    uint32(info >> 32),
			Addend: int64(addend),
		})
	}
	return entries, nil
}
