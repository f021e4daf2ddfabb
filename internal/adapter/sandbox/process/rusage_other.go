//go:build unix && !linux

package process

import "syscall"

func maxRSSBytes(ru *syscall.Rusage) int64 {
	return int64(ru.Maxrss)
}
