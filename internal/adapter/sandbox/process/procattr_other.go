//go:build unix && !linux

package process

import "syscall"

func sysProcAttr(_ *cgroup, _ bool) *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
