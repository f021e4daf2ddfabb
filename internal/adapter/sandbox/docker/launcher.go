package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"gitlab.com/coderunner.net/internal/core/ports/primary"
	"gitlab.com/coderunner.net/internal/core/ports/secondary"
	"gitlab.com/coderunner.net/internal/domain"
)

var _ secondary.Launcher = (*Launcher)(nil)

const (
	workspace    = "/workspace"
	sandboxUser  = "65534:65534"
	pidsLimit    = int64(64)
	tmpfsOptions = "rw,noexec,nosuid,size=16m"
	apiTimeout   = 30 * time.Second
)

// dockerAPI is the part of the engine API the launcher uses.
type dockerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerAttach(ctx context.Context, container string, options container.AttachOptions) (types.HijackedResponse, error)
	ContainerStart(ctx context.Context, container string, options container.StartOptions) error
	ContainerWait(ctx context.Context, container string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerInspect(ctx context.Context, container string) (types.ContainerJSON, error)
	ContainerKill(ctx context.Context, container, signal string) error
	ContainerRemove(ctx context.Context, container string, options container.RemoveOptions) error
	ImageInspectWithRaw(ctx context.Context, image string) (types.ImageInspect, []byte, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
}

type Options struct {
	ScratchRoot string
	KillGrace   time.Duration
}

// Launcher runs each program in a throwaway container with no network,
// a read-only root filesystem and the workspace mounted read-only.
type Launcher struct {
	cli    dockerAPI
	opts   Options
	logger primary.Logger
}

// NewClient connects to the engine configured by DOCKER_HOST and friends.
func NewClient() (*client.Client, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

func NewLauncher(cli dockerAPI, opts Options, logger primary.Logger) *Launcher {
	if opts.ScratchRoot == "" {
		opts.ScratchRoot = os.TempDir()
	}
	if opts.KillGrace <= 0 {
		opts.KillGrace = 2 * time.Second
	}
	return &Launcher{cli: cli, opts: opts, logger: logger}
}

func (l *Launcher) Name() string { return "docker" }

// EnsureImages pulls every language image that is not present locally.
func (l *Launcher) EnsureImages(ctx context.Context, languages []domain.LanguageConfig) error {
	for _, lang := range languages {
		if lang.Image == "" {
			continue
		}
		if _, _, err := l.cli.ImageInspectWithRaw(ctx, lang.Image); err == nil {
			continue
		} else if !errdefs.IsNotFound(err) {
			return fmt.Errorf("inspect image %s: %w", lang.Image, err)
		}
		l.logger.Info("Pulling image", "image", lang.Image, "language", lang.ID)
		out, err := l.cli.ImagePull(ctx, lang.Image, image.PullOptions{})
		if err != nil {
			return fmt.Errorf("pull image %s: %w", lang.Image, err)
		}
		// the pull is cancelled if the progress stream is closed early
		_, err = io.Copy(io.Discard, out)
		out.Close()
		if err != nil {
			return fmt.Errorf("pull image %s: %w", lang.Image, err)
		}
	}
	return nil
}

func (l *Launcher) Launch(ctx context.Context, spec domain.LaunchSpec, stdout, stderr io.Writer) (secondary.ExecutionUnit, error) {
	if spec.Language.Image == "" {
		return nil, fmt.Errorf("language %q has no container image", spec.Language.ID)
	}

	dir := filepath.Join(l.opts.ScratchRoot, "job-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	u := &unit{cli: l.cli, dir: dir, logger: l.logger, copyDone: make(chan struct{})}

	// the sandbox user is not the owner, so the mount must be world readable
	source := filepath.Join(dir, spec.Language.SourceFileName())
	if err := os.WriteFile(source, []byte(spec.Code), 0o644); err != nil {
		_ = u.Release()
		return nil, fmt.Errorf("write source: %w", err)
	}
	if err := os.Chmod(dir, 0o755); err != nil {
		_ = u.Release()
		return nil, fmt.Errorf("chmod scratch dir: %w", err)
	}

	cfg, hostCfg := containerConfig(dir, spec)
	created, err := l.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "coderunner-"+filepath.Base(dir))
	if err != nil {
		_ = u.Release()
		return nil, fmt.Errorf("create container: %w", err)
	}
	u.id = created.ID

	attach, err := l.cli.ContainerAttach(ctx, u.id, container.AttachOptions{Stream: true, Stdout: true, Stderr: true})
	if err != nil {
		_ = u.Release()
		return nil, fmt.Errorf("attach container: %w", err)
	}
	u.attach = attach
	go func() {
		defer close(u.copyDone)
		if _, err := stdcopy.StdCopy(stdout, stderr, attach.Reader); err != nil {
			l.logger.Debug("Output stream ended", "container", u.id, "error", err)
		}
	}()

	if err := l.cli.ContainerStart(ctx, u.id, container.StartOptions{}); err != nil {
		_ = u.Release()
		return nil, fmt.Errorf("start container: %w", err)
	}
	u.grace = l.opts.KillGrace

	l.logger.Debug("Container started",
		"jobId", spec.JobID,
		"container", u.id,
		"image", spec.Language.Image,
		"limits", spec.Limits.String())
	return u, nil
}

func containerConfig(dir string, spec domain.LaunchSpec) (*container.Config, *container.HostConfig) {
	sourcePath := workspace + "/" + spec.Language.SourceFileName()
	pids := pidsLimit
	cfg := &container.Config{
		Image:           spec.Language.Image,
		Cmd:             spec.Language.Argv(sourcePath),
		WorkingDir:      workspace,
		User:            sandboxUser,
		Env:             []string{"HOME=/tmp", "LANG=C.UTF-8", "PYTHONDONTWRITEBYTECODE=1", "PYTHONUNBUFFERED=1"},
		NetworkDisabled: true,
		AttachStdout:    true,
		AttachStderr:    true,
		Labels:          map[string]string{"coderunner.job": spec.JobID},
	}
	hostCfg := &container.HostConfig{
		Binds:          []string{dir + ":" + workspace + ":ro"},
		NetworkMode:    "none",
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		ReadonlyRootfs: true,
		Tmpfs:          map[string]string{"/tmp": tmpfsOptions},
		Resources: container.Resources{
			Memory:     spec.Limits.MemoryBytes(),
			MemorySwap: spec.Limits.MemoryBytes(),
			NanoCPUs:   int64(spec.Limits.CPU * 1e9),
			PidsLimit:  &pids,
		},
	}
	return cfg, hostCfg
}
