package process

import "syscall"

// Linux reports ru_maxrss in kilobytes.
func maxRSSBytes(ru *syscall.Rusage) int64 {
	return int64(ru.Maxrss) * 1024
}
