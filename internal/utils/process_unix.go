//go:build linux || darwin || freebsd || netbsd || openbsd

package utils

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// TerminateProcess 向进程发送SIGTERM，不等待退出；进程已被回收时视为成功
func TerminateProcess(process *os.Process) error {
	if err := process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("failed to send SIGTERM to process with PID %d: %w", process.Pid, err)
	}
	return nil
}

// IsProcessRunning 检查进程是否正在运行
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, err
	}
	// 发送signal 0来检查进程是否存在
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return false, nil
	}
	return true, nil
}
