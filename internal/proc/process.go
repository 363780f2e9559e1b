package proc

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"frp-manager/internal/logger"
	"frp-manager/internal/utils"
)

// Process is the control handle of a spawned OS process.
type Process interface {
	Pid() int
	// Stdout and Stderr reach EOF once the process has exited and Wait returned.
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until the process exits and returns its exit code.
	// A process killed by a signal reports -1.
	Wait() (int, error)
	// Terminate requests termination without waiting for the exit.
	// A process that has already exited is not an error.
	Terminate() error
}

// Launcher starts processes. Tests replace it with a fake.
type Launcher interface {
	Spawn(path string, args []string, dir string) (Process, error)
}

// ExecLauncher spawns real OS processes with os/exec.
type ExecLauncher struct{}

func NewExecLauncher() *ExecLauncher {
	return &ExecLauncher{}
}

/**
 * Spawn 启动进程
 * @param {string} path - 可执行文件
 * @param {[]string} args - 命令参数
 * @param {string} dir - 工作目录，为空则继承当前目录
 * @returns {Process} 进程句柄
 * @description
 * - stdout/stderr通过管道转交给调用者读取
 * - 调用者必须持续读取两个输出流，否则子进程写满管道后会阻塞
 */
func (l *ExecLauncher) Spawn(path string, args []string, dir string) (Process, error) {
	cmd := exec.Command(path, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW
	// 子进程派生的孙进程可能继承输出管道，避免Wait无限等待
	cmd.WaitDelay = 2 * time.Second

	logger.Debugf("Executing command: %s %v (dir: %s)", path, args, dir)
	if err := cmd.Start(); err != nil {
		outW.Close()
		errW.Close()
		return nil, fmt.Errorf("start %s: %w", path, err)
	}
	return &execProcess{
		cmd:    cmd,
		stdout: outR,
		stderr: errR,
		outW:   outW,
		errW:   errW,
	}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout *io.PipeReader
	stderr *io.PipeReader
	outW   *io.PipeWriter
	errW   *io.PipeWriter

	waitOnce sync.Once
	exitCode int
	waitErr  error
}

func (p *execProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }

func (p *execProcess) Wait() (int, error) {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		p.outW.Close()
		p.errW.Close()

		var exitErr *exec.ExitError
		switch {
		case err == nil:
			p.exitCode = 0
		case errors.As(err, &exitErr):
			p.exitCode = exitErr.ExitCode()
		case errors.Is(err, exec.ErrWaitDelay):
			p.exitCode = p.cmd.ProcessState.ExitCode()
		default:
			p.exitCode = -1
			p.waitErr = err
		}
	})
	return p.exitCode, p.waitErr
}

// Terminate 通过持有的进程句柄发信号，进程已被Wait回收时返回nil
func (p *execProcess) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	return utils.TerminateProcess(p.cmd.Process)
}
