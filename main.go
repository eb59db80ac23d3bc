package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/xyproto/env/v2"
)

// A tiny userland ELF64 loader for x86_64 Linux: parse, map, relocate, jump.

const versionString = "elk 1.0.0"

// VerboseMode enables debug output on stderr
var VerboseMode bool

func usage() {
	fmt.Fprintf(os.Stderr, "usage: elk [options] FILE\n\n")
	fmt.Fprintf(os.Stderr, "Runs an ELF64 x86_64 executable inside this process.\n\n")
	flag.PrintDefaults()
}

func main() {
	verbose := flag.Bool("v", false, "verbose output")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println(versionString)
		return
	}
	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	VerboseMode = *verbose || env.Bool("ELK_VERBOSE")

	path := flag.Arg(0)
	input, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "elk: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Analyzing %s...\n", path)
	f, err := ParseFile(input)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			fmt.Fprintln(os.Stderr, "Parsing failed:")
			fmt.Fprintln(os.Stderr, pe.Diagnostic())
		} else {
			fmt.Fprintf(os.Stderr, "elk: %s: %v\n", path, err)
		}
		os.Exit(1)
	}

	printSummary(f)

	// Cosmetic disassembly of the entry segment. ELK_NDISASM= disables,
	// ELK_NDISASM=<name> overrides the binary name.
	if ndisasm := env.Str("ELK_NDISASM", "ndisasm"); ndisasm != "" {
		if seg := f.SegmentAt(f.Entry); seg != nil {
			fmt.Printf("Disassembling %s...\n", path)
			if err := disassemble(ndisasm, seg.Data, seg.VAddr); err != nil && VerboseMode {
				fmt.Fprintf(os.Stderr, "skipping disassembly: %v\n", err)
			}
		}
	}

	base := Addr(defaultBase)
	fmt.Printf("Loading with base address @ 0x%x\n", base.Uint64())

	if !env.Bool("ELK_NO_PAUSE") {
		pause("jmp")
	}
	if err := LoadAndJump(f, base); err != nil {
		fmt.Fprintf(os.Stderr, "elk: %v\n", err)
		os.Exit(1)
	}
}

func printSummary(f *File) {
	fmt.Printf("type %v, machine %v, entry point %v\n", f.Type, f.Machine, f.Entry)
	fmt.Println("program headers:")
	for _, ph := range f.ProgHeaders {
		fmt.Printf("  %v\n", ph)
	}
	if !VerboseMode {
		return
	}
	for i, ph := range f.ProgHeaders {
		if ph.Dynamic == nil {
			continue
		}
		fmt.Printf("dynamic entries (segment %d):\n", i)
		for _, e := range ph.Dynamic {
			fmt.Printf("  %-10v %v\n", e.Tag, e.Value)
		}
	}
	relas, err := f.ReadRelaEntries()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not read relocations: %v\n", err)
		return
	}
	if len(relas) > 0 {
		fmt.Println("relocations:")
		for _, r := range relas {
			fmt.Printf("  %v\n", r)
		}
	}
}

// pause waits for Enter, but only when stdin is a terminal; a piped or
// redirected stdin would block forever.
func pause(reason string) {
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return
	}
	fmt.Printf("Press Enter to %s...\n", reason)
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
}
