package main

import (
	"fmt"
	"os/exec"
)

// disassemble pipes code through ndisasm for a cosmetic listing. Everything
// about this is best-effort; a missing binary or a failed run must not stop
// the load.
func disassemble(ndisasm string, code []byte, origin Addr) error {
	if _, err := exec.LookPath(ndisasm); err != nil {
		return fmt.Errorf("%s not found: %v", ndisasm, err)
	}

	cmd := exec.Command(ndisasm, "-b", "64", "-o", fmt.Sprintf("0x%x", origin.Uint64()), "-")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	go func() {
		_, _ = stdin.Write(code)
		_ = stdin.Close()
	}()

	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("%s failed: %v", ndisasm, err)
	}
	fmt.Print(string(out))
	return nil
}
