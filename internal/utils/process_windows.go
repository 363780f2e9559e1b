//go:build windows

package utils

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/windows"
)

// GetExitCodeProcess返回该值表示进程仍在运行
const stillActive = 259

/**
 * TerminateProcess 使用taskkill强制结束进程及其子进程
 * @description
 * - 进程已退出时视为成功，避免误杀复用了PID的其他进程
 */
func TerminateProcess(process *os.Process) error {
	running, err := IsProcessRunning(process.Pid)
	if err == nil && !running {
		return nil
	}
	cmd := exec.Command("taskkill", "/pid", strconv.Itoa(process.Pid), "/f", "/t")
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	if out, err := cmd.CombinedOutput(); err != nil {
		// taskkill失败时退回到结束主进程
		if kerr := process.Kill(); kerr == nil || errors.Is(kerr, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("taskkill PID %d failed: %w (%s)", process.Pid, err, out)
	}
	return nil
}

// IsProcessRunning 通过GetExitCodeProcess判断进程是否仍在运行
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		// 无法打开句柄通常表示进程不存在
		return false, nil
	}
	defer windows.CloseHandle(handle)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false, fmt.Errorf("failed to get exit code for process with PID %d: %w", pid, err)
	}
	return exitCode == stillActive, nil
}
