//go:build !windows && !linux && !darwin && !freebsd && !netbsd && !openbsd

package utils

import (
	"errors"
	"os"
)

// TerminateProcess 默认实现，直接Kill
func TerminateProcess(process *os.Process) error {
	if err := process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// IsProcessRunning 默认实现，无法判断时视为未运行
func IsProcessRunning(pid int) (bool, error) {
	return false, nil
}
