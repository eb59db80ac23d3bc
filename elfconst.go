package main

const (
	// ELF structure sizes
	elfHeaderSize  = 64 // ELF64 header size
	progHeaderSize = 56 // Program header entry size (ELF64)
	relaEntrySize  = 24 // Rela entry size (ELF64)

	// Memory layout
	defaultBase = 0x400000 // Virtual base address added to every guest vaddr
	pageSize    = 0x1000   // 4KB page alignment
)
