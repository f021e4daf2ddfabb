package process

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"gitlab.com/coderunner.net/internal/domain"
)

const (
	cpuPeriodMicros = 100000
	maxPids         = 64
)

// cgroup is a per-job cgroup v2 leaf. The child is placed into it at clone
// time through CLONE_INTO_CGROUP, so limits hold before user code runs.
type cgroup struct {
	path string
	dir  *os.File
}

func newCgroup(root, name string, limits domain.Limits) (*cgroup, error) {
	path := filepath.Join(root, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, err
	}
	cg := &cgroup{path: path}

	quota := int(limits.CPU * cpuPeriodMicros)
	if quota < 1000 {
		quota = 1000
	}
	settings := []struct {
		file     string
		value    string
		optional bool
	}{
		{"memory.max", strconv.FormatInt(limits.MemoryBytes(), 10), false},
		{"memory.swap.max", "0", true},
		{"cpu.max", fmt.Sprintf("%d %d", quota, cpuPeriodMicros), false},
		{"pids.max", strconv.Itoa(maxPids), false},
	}
	for _, s := range settings {
		err := cg.write(s.file, s.value)
		if err != nil && !(s.optional && errors.Is(err, fs.ErrNotExist)) {
			_ = cg.remove()
			return nil, err
		}
	}

	dir, err := os.Open(path)
	if err != nil {
		_ = cg.remove()
		return nil, err
	}
	cg.dir = dir
	return cg, nil
}

func (c *cgroup) fd() int {
	return int(c.dir.Fd())
}

func (c *cgroup) write(file, value string) error {
	if err := os.WriteFile(filepath.Join(c.path, file), []byte(value), 0o644); err != nil {
		return fmt.Errorf("set %s: %w", file, err)
	}
	return nil
}

// kill uses cgroup.kill when the kernel has it (5.14+) and falls back to
// signalling every listed pid.
func (c *cgroup) kill() error {
	err := c.write("cgroup.kill", "1")
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	raw, err := os.ReadFile(filepath.Join(c.path, "cgroup.procs"))
	if err != nil {
		return err
	}
	for _, field := range strings.Fields(string(raw)) {
		pid, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		_ = unix.Kill(pid, unix.SIGKILL)
	}
	return nil
}

func (c *cgroup) oomKilled() (bool, error) {
	values, err := c.keyed("memory.events")
	if err != nil {
		return false, err
	}
	return values["oom_kill"] > 0, nil
}

// usage returns peak memory in bytes and total CPU time.
func (c *cgroup) usage() (int64, time.Duration, error) {
	var peak int64
	if raw, err := os.ReadFile(filepath.Join(c.path, "memory.peak")); err == nil {
		peak, _ = strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	}
	stat, err := c.keyed("cpu.stat")
	if err != nil {
		return peak, 0, err
	}
	return peak, time.Duration(stat["usage_usec"]) * time.Microsecond, nil
}

func (c *cgroup) keyed(file string) (map[string]int64, error) {
	raw, err := os.ReadFile(filepath.Join(c.path, file))
	if err != nil {
		return nil, err
	}
	values := map[string]int64{}
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			continue
		}
		if v, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
			values[fields[0]] = v
		}
	}
	return values, sc.Err()
}

// remove deletes the leaf once the kernel has finished tearing down its
// processes; rmdir reports EBUSY until then.
func (c *cgroup) remove() error {
	if c.dir != nil {
		_ = c.dir.Close()
		c.dir = nil
	}
	var err error
	for i := 0; i < 20; i++ {
		err = os.Remove(c.path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if !errors.Is(err, syscall.EBUSY) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("remove cgroup %s: %w", c.path, err)
}
