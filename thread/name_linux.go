//go:build linux

package thread

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// setOSThreadName names the calling OS thread (comm, 15 byte limit). Best
// effort; the name shows up in /proc/<pid>/task and debuggers.
func setOSThreadName(name string) {
	if len(name) > 15 {
		name = name[:15]
	}
	buf, err := unix.BytePtrFromString(name)
	if err != nil {
		return
	}
	_ = unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(buf)), 0, 0, 0)
}
