package main

import "testing"

// TestAddrFormatting verifies the fixed 8-hex-digit rendering.
func TestAddrFormatting(t *testing.T) {
	cases := []struct {
		addr Addr
		want string
	}{
		{0, "00000000"},
		{0x1000, "00001000"},
		{0x401234, "00401234"},
		{0x123456789A, "123456789a"},
	}
	for _, c := range cases {
		if got := c.addr.String(); got != c.want {
			t.Errorf("Addr(%#x).String() = %q, want %q", c.addr.Uint64(), got, c.want)
		}
	}
}

// TestAddrConversions verifies the raw conversion round trip.
func TestAddrConversions(t *testing.T) {
	a := Addr(0x400000)
	if a.Uint64() != 0x400000 {
		t.Errorf("Uint64() = %#x", a.Uint64())
	}
	if a.Uintptr() != 0x400000 {
		t.Errorf("Uintptr() = %#x", a.Uintptr())
	}
	if a.Int() != 0x400000 {
		t.Errorf("Int() = %#x", a.Int())
	}
	if Addr(a.Uint64()) != a {
		t.Error("round trip through Uint64 lost the value")
	}
}

// TestAddrArithmetic verifies that sums and differences stay addresses.
func TestAddrArithmetic(t *testing.T) {
	base := Addr(0x400000)
	vaddr := Addr(0x1234)
	if base+vaddr != 0x401234 {
		t.Errorf("base+vaddr = %v", base+vaddr)
	}
	if (base+vaddr)-base != vaddr {
		t.Errorf("difference = %v", (base+vaddr)-base)
	}
}

// TestAlignLo verifies page rounding.
func TestAlignLo(t *testing.T) {
	cases := []struct {
		in, want Addr
	}{
		{0x401234, 0x401000},
		{0x401000, 0x401000},
		{0xFFF, 0},
		{0, 0},
	}
	for _, c := range cases {
		if got := alignLo(c.in); got != c.want {
			t.Errorf("alignLo(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
