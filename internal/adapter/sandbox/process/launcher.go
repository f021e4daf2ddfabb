//go:build unix

package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"gitlab.com/coderunner.net/internal/core/ports/primary"
	"gitlab.com/coderunner.net/internal/core/ports/secondary"
	"gitlab.com/coderunner.net/internal/domain"
)

var _ secondary.Launcher = (*Launcher)(nil)

const (
	// maxFileBlocks caps any single file the program writes, in 512-byte blocks.
	maxFileBlocks = 32768
	sandboxPath   = "/usr/local/bin:/usr/bin:/bin"
)

// rlimitScript applies the ceilings inside the child before exec'ing the
// interpreter, so they are in force from the first instruction. The CPU soft
// limit sits one second below the hard one so the kernel raises SIGXCPU
// before SIGKILL.
const rlimitScript = `set -e
if [ -n "$CR_AS_KB" ]; then ulimit -v "$CR_AS_KB"; fi
ulimit -S -t "$CR_CPU_SOFT"
ulimit -H -t "$CR_CPU_HARD"
ulimit -f "$CR_FSIZE"
unset CR_AS_KB CR_CPU_SOFT CR_CPU_HARD CR_FSIZE
exec "$@"`

type Options struct {
	// ScratchRoot is where per-job directories are created.
	ScratchRoot string
	// CgroupRoot is a delegated cgroup v2 directory. Empty disables cgroups.
	CgroupRoot     string
	IsolateNetwork bool
	KillGrace      time.Duration
}

// Launcher runs programs as host processes in their own process group.
type Launcher struct {
	opts   Options
	logger primary.Logger
}

func NewLauncher(opts Options, logger primary.Logger) *Launcher {
	if opts.ScratchRoot == "" {
		opts.ScratchRoot = os.TempDir()
	}
	if opts.KillGrace <= 0 {
		opts.KillGrace = 2 * time.Second
	}
	return &Launcher{opts: opts, logger: logger}
}

func (l *Launcher) Name() string { return "process" }

func (l *Launcher) Launch(ctx context.Context, spec domain.LaunchSpec, stdout, stderr io.Writer) (secondary.ExecutionUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	argv := spec.Language.Argv("")
	if len(argv) == 0 {
		return nil, fmt.Errorf("language %q has no command", spec.Language.ID)
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("interpreter unavailable: %w", err)
	}

	dir := filepath.Join(l.opts.ScratchRoot, "job-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	u := &unit{dir: dir, logger: l.logger}

	source := filepath.Join(dir, spec.Language.SourceFileName())
	if err := os.WriteFile(source, []byte(spec.Code), 0o600); err != nil {
		_ = u.Release()
		return nil, fmt.Errorf("write source: %w", err)
	}

	if l.opts.CgroupRoot != "" {
		cg, err := newCgroup(l.opts.CgroupRoot, filepath.Base(dir), spec.Limits)
		if err != nil {
			_ = u.Release()
			return nil, fmt.Errorf("create cgroup: %w", err)
		}
		u.cgroup = cg
	}

	args := append([]string{"-c", rlimitScript, "sh"}, spec.Language.Argv(source)...)
	cmd := exec.Command("/bin/sh", args...)
	cmd.Dir = dir
	cmd.Env = environment(dir, spec)
	cmd.Stdin = nil
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = l.opts.KillGrace
	cmd.SysProcAttr = sysProcAttr(u.cgroup, l.opts.IsolateNetwork)

	if err := cmd.Start(); err != nil {
		_ = u.Release()
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}
	u.cmd = cmd
	u.pgid = cmd.Process.Pid

	l.logger.Debug("Execution unit started",
		"jobId", spec.JobID,
		"pid", cmd.Process.Pid,
		"dir", dir,
		"limits", spec.Limits.String())
	return u, nil
}

func environment(dir string, spec domain.LaunchSpec) []string {
	cpu := spec.Limits.CPUSeconds()
	env := []string{
		"PATH=" + sandboxPath + ":" + os.Getenv("PATH"),
		"HOME=" + dir,
		"TMPDIR=" + dir,
		"LANG=C.UTF-8",
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONUNBUFFERED=1",
		"CR_CPU_SOFT=" + strconv.Itoa(cpu),
		"CR_CPU_HARD=" + strconv.Itoa(cpu+1),
		"CR_FSIZE=" + strconv.Itoa(maxFileBlocks),
	}
	if !spec.Language.UnboundedAddressSpace {
		env = append(env, "CR_AS_KB="+strconv.FormatInt(spec.Limits.MemoryBytes()/1024, 10))
	}
	return env
}
