//go:build !linux

package thread

// Thread naming is only wired up on linux.
func setOSThreadName(string) {}
