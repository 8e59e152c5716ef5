//go:build !windows

package core

import (
	"os"
	"syscall"
)

// isProcessAlive reports whether a PID names a live process. Signal 0
// probes existence without delivering anything.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
