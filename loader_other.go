//go:build !linux || !amd64
// +build !linux !amd64

package main

import "fmt"

// Loader is only functional on linux/amd64, where guest code can actually be
// mapped and run. Other platforms still get the parser and the summary dump.
type Loader struct{}

func (l *Loader) Load(f *File, base Addr) error {
	return fmt.Errorf("loading ELF images requires linux/amd64")
}

func (l *Loader) Jump(f *File, base Addr) {}

func (l *Loader) release() {}

func LoadAndJump(f *File, base Addr) error {
	return fmt.Errorf("loading ELF images requires linux/amd64")
}
