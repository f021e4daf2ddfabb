//go:build unix && !linux

package process

import (
	"errors"
	"time"

	"gitlab.com/coderunner.net/internal/domain"
)

type cgroup struct{}

func newCgroup(_, _ string, _ domain.Limits) (*cgroup, error) {
	return nil, errors.New("cgroups require linux")
}

func (c *cgroup) kill() error { return nil }
func (c *cgroup) oomKilled() (bool, error) { return false, nil }
func (c *cgroup) usage() (int64, time.Duration, error) { return 0, 0, nil }
func (c *cgroup) remove() error { return nil }
