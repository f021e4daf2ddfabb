package docker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/araddon/dateparse"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/errdefs"
	"golang.org/x/sys/unix"

	"gitlab.com/coderunner.net/internal/core/ports/primary"
	"gitlab.com/coderunner.net/internal/domain"
)

type unit struct {
	cli      dockerAPI
	id       string
	dir      string
	attach   types.HijackedResponse
	copyDone chan struct{}
	grace    time.Duration
	logger   primary.Logger

	killed      atomic.Bool
	releaseOnce sync.Once
	releaseErr  error
}

func (u *unit) Wait() (domain.ExitInfo, error) {
	statusCh, errCh := u.cli.ContainerWait(context.Background(), u.id, container.WaitConditionNotRunning)
	var status container.WaitResponse
	select {
	case status = <-statusCh:
	case err := <-errCh:
		return domain.ExitInfo{}, fmt.Errorf("wait container: %w", err)
	}

	select {
	case <-u.copyDone:
	case <-time.After(u.grace):
		u.logger.Warn("Output stream did not close", "container", u.id)
	}

	info := domain.ExitInfo{ExitCode: int(status.StatusCode)}
	if info.ExitCode > 128 && info.ExitCode < 128+65 {
		info.Signal = unix.SignalName(syscall.Signal(info.ExitCode - 128))
	}
	if u.killed.Load() {
		info.Signal = "SIGKILL"
	}

	ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
	defer cancel()
	inspect, err := u.cli.ContainerInspect(ctx, u.id)
	if err != nil {
		u.logger.Warn("Failed to inspect container", "container", u.id, "error", err)
		return info, nil
	}
	if inspect.ContainerJSONBase == nil || inspect.State == nil {
		return info, nil
	}
	info.LimitExceeded = inspect.State.OOMKilled
	started, errStart := dateparse.ParseAny(inspect.State.StartedAt)
	finished, errFinish := dateparse.ParseAny(inspect.State.FinishedAt)
	if errStart == nil && errFinish == nil && finished.After(started) {
		info.Runtime = finished.Sub(started)
	}
	return info, nil
}

func (u *unit) Terminate() error {
	if u.id == "" {
		return nil
	}
	u.killed.Store(true)
	ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
	defer cancel()
	err := u.cli.ContainerKill(ctx, u.id, "KILL")
	if err == nil || errdefs.IsNotFound(err) || errdefs.IsConflict(err) {
		return nil
	}
	return fmt.Errorf("kill container %s: %w", u.id, err)
}

// Release force-removes the container, which also kills anything still running in it.
func (u *unit) Release() error {
	u.releaseOnce.Do(func() {
		var errs []error
		if u.attach.Conn != nil {
			u.attach.Close()
		}
		if u.id != "" {
			ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
			err := u.cli.ContainerRemove(ctx, u.id, container.RemoveOptions{Force: true})
			cancel()
			if err != nil && !errdefs.IsNotFound(err) {
				errs = append(errs, fmt.Errorf("remove container %s: %w", u.id, err))
			}
		}
		if err := os.RemoveAll(u.dir); err != nil {
			errs = append(errs, fmt.Errorf("remove scratch dir: %w", err))
		}
		u.releaseErr = errors.Join(errs...)
	})
	return u.releaseErr
}
