//go:build unix

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"gitlab.com/coderunner.net/internal/core/ports/primary"
	"gitlab.com/coderunner.net/internal/domain"
)

// unit is one running program: its process group, scratch dir and optional cgroup.
type unit struct {
	cmd    *exec.Cmd
	pgid   int
	dir    string
	cgroup *cgroup
	logger primary.Logger

	releaseOnce sync.Once
	releaseErr  error
}

func (u *unit) Wait() (domain.ExitInfo, error) {
	err := u.cmd.Wait()
	state := u.cmd.ProcessState
	if state == nil {
		return domain.ExitInfo{}, fmt.Errorf("wait: %w", err)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) {
		return domain.ExitInfo{}, fmt.Errorf("wait: %w", err)
	}

	info := domain.ExitInfo{
		ExitCode: state.ExitCode(),
		CPUTime:  state.UserTime() + state.SystemTime(),
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		sig := ws.Signal()
		info.ExitCode = 128 + int(sig)
		info.Signal = unix.SignalName(sig)
		if info.Signal == "" {
			info.Signal = sig.String()
		}
		info.LimitExceeded = sig == syscall.SIGXCPU || sig == syscall.SIGXFSZ
	}
	if ru, ok := state.SysUsage().(*syscall.Rusage); ok {
		info.MemoryBytes = maxRSSBytes(ru)
	}

	if u.cgroup != nil {
		if oom, err := u.cgroup.oomKilled(); err == nil && oom {
			info.LimitExceeded = true
		}
		if peak, cpu, err := u.cgroup.usage(); err == nil {
			if peak > 0 {
				info.MemoryBytes = peak
			}
			if cpu > 0 {
				info.CPUTime = cpu
			}
		}
	}
	return info, nil
}

// Terminate kills every process in the unit with a signal user code cannot catch.
func (u *unit) Terminate() error {
	var errs []error
	if u.cgroup != nil {
		if err := u.cgroup.kill(); err != nil {
			errs = append(errs, err)
		}
	}
	if u.pgid > 0 {
		if err := unix.Kill(-u.pgid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			errs = append(errs, fmt.Errorf("kill group %d: %w", u.pgid, err))
		}
	}
	return errors.Join(errs...)
}

// Release kills any survivors and removes the scratch dir and cgroup.
func (u *unit) Release() error {
	u.releaseOnce.Do(func() {
		var errs []error
		if err := u.Terminate(); err != nil {
			errs = append(errs, err)
		}
		if u.cgroup != nil {
			if err := u.cgroup.remove(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := os.RemoveAll(u.dir); err != nil {
			errs = append(errs, fmt.Errorf("remove scratch dir: %w", err))
		}
		u.releaseErr = errors.Join(errs...)
	})
	return u.releaseErr
}
