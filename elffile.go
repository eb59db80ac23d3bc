package main

import "fmt"

// Type is the ELF file kind, from the e_type header field.
type Type uint16

const (
	TypeNone Type = 0
	TypeRel  Type = 1
	TypeExec Type = 2
	TypeDyn  Type = 3
	TypeCore Type = 4
)

// TypeFromRaw converts a raw e_type value. The set is closed: unknown values
// are rejected at parse time.
func TypeFromRaw(v uint16) (Type, bool) {
	switch t := Type(v); t {
	case TypeNone, TypeRel, TypeExec, TypeDyn, TypeCore:
		return t, true
	}
	return 0, false
}

func (t Type) Raw() uint16 {
	return uint16(t)
}

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeRel:
		return "rel"
	case TypeExec:
		return "exec"
	case TypeDyn:
		return "dyn"
	case TypeCore:
		return "core"
	default:
		return fmt.Sprintf("unknown(0x%x)", uint16(t))
	}
}

// Machine is the target architecture, from the e_machine header field.
type Machine uint16

const (
	MachineX86    Machine = 0x03
	MachineX86_64 Machine = 0x3E
)

func MachineFromRaw(v uint16) (Machine, bool) {
	switch m := Machine(v); m {
	case MachineX86, MachineX86_64:
		return m, true
	}
	return 0, false
}

func (m Machine) Raw() uint16 {
	return uint16(m)
}

func (m Machine) String() string {
	switch m {
	case MachineX86:
		return "x86"
	case MachineX86_64:
		return "x86_64"
	default:
		return fmt.Sprintf("unknown(0x%x)", uint16(m))
	}
}

// EntryPointError reports an entry point that is not covered by any Load
// segment, which no runnable executable should exhibit.
type EntryPointError struct {
	Entry Addr
}

func (e *EntryPointError) Error() string {
	return fmt.Sprintf("entry point %v not inside any Load segment", e.Entry)
}

// File is the parsed, immutable view of one ELF64 image. Segment data slices
// borrow from the buffer given to ParseFile; the buffer must outlive the File.
type File struct {
	Type        Type
	Machine     Machine
	Entry       Addr
	ProgHeaders []*ProgramHeader

	// Raw header geometry, kept around for the summary dump.
	PhOff     uint64
	ShOff     uint64
	Flags     uint32
	EhSize    uint16
	PhEntSize uint16
	PhNum     uint16
	ShEntSize uint16
	ShNum     uint16
	ShStrNdx  uint16
}

var elfMagic = []byte{0x7F, 'E', 'L', 'F'}

// ParseFile decodes the ELF header and program headers of b. It fails fast on
// the first malformed field, with a ParseError carrying the field label and
// byte offset. Only little-endian ELF64 for System V or Linux is accepted.
func ParseFile(b []byte) (*File, error) {
	d := newDecoder(b)

	if err := d.tag("Magic", elfMagic...); err != nil {
		return nil, err
	}
	if err := d.tag("Class", 2); err != nil {
		return nil, err
	}
	if err := d.tag("Endianness", 1); err != nil {
		return nil, err
	}
	if err := d.tag("Version", 1); err != nil {
		return nil, err
	}
	osABI, err := d.u8("OS ABI")
	if err != nil {
		return nil, err
	}
	if osABI != 0 && osABI != 3 {
		return nil, d.errAt("OS ABI", d.offset()-1, "unsupported OS/ABI 0x%02x (want System V or Linux)", osABI)
	}
	if err := d.skip("Padding", 8); err != nil {
		return nil, err
	}

	f := &File{}

	rawType, err := d.u16("Type")
	if err != nil {
		return nil, err
	}
	t, ok := TypeFromRaw(rawType)
	if !ok {
		return nil, d.errAt("Type", d.offset()-2, "unknown file type 0x%x", rawType)
	}
	f.Type = t

	rawMachine, err := d.u16("Machine")
	if err != nil {
		return nil, err
	}
	m, ok := MachineFromRaw(rawMachine)
	if !ok {
		return nil, d.errAt("Machine", d.offset()-2, "unknown machine 0x%x", rawMachine)
	}
	f.Machine = m

	verBis, err := d.u32("Version (bis)")
	if err != nil {
		return nil, err
	}
	if verBis != 1 {
		return nil, d.errAt("Version (bis)", d.offset()-4, "expected 1, found %d", verBis)
	}

	if f.Entry, err = d.addr("Entry point"); err != nil {
		return nil, err
	}
	if f.PhOff, err = d.u64("Program header offset"); err != nil {
		return nil, err
	}
	if f.ShOff, err = d.u64("Section header offset"); err != nil {
		return nil, err
	}
	if f.Flags, err = d.u32("Flags"); err != nil {
		return nil, err
	}
	if f.EhSize, err = d.u16("Header size"); err != nil {
		return nil, err
	}
	if f.PhEntSize, err = d.u16("Program header entry size"); err != nil {
		return nil, err
	}
	if f.PhNum, err = d.u16("Program header count"); err != nil {
		return nil, err
	}
	if f.ShEntSize, err = d.u16("Section header entry size"); err != nil {
		return nil, err
	}
	if f.ShNum, err = d.u16("Section header count"); err != nil {
		return nil, err
	}
	if f.ShStrNdx, err = d.u16("Section name table index"); err != nil {
		return nil, err
	}

	if err := parseProgHeaders(d, f); err != nil {
		return nil, err
	}

	if seg := f.SegmentAt(f.Entry); seg == nil {
		return nil, &EntryPointError{Entry: f.Entry}
	}

	return f, nil
}

// SegmentAt returns the Load segment whose memory range contains addr, or nil.
func (f *File) SegmentAt(addr Addr) *ProgramHeader {
	for _, ph := range f.ProgHeaders {
		if ph.Type != SegmentLoad {
			continue
		}
		start, end := ph.MemRange()
		if addr >= start && addr < end {
			return ph
		}
	}
	return nil
}
