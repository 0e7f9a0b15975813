// Package fdutil closes inherited file descriptors before exec'ing a
// target process, the Go equivalent of libbsd's closefrom(3).
package fdutil

import (
	"math"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// CloseFrom closes every open file descriptor numbered lowfd or above,
// preferring the close_range(2) syscall and falling back to scanning
// /proc/self/fd when it's unavailable (old kernel, no /proc). Mirrors
// closefrom(3)'s fast-path/fallback structure: try the cheap kernel
// primitive first, then fall back to directory enumeration.
func CloseFrom(lowfd int) error {
	if lowfd < 0 {
		lowfd = 0
	}

	if err := unix.CloseRange(uint(lowfd), math.MaxUint32, 0); err == nil {
		return nil
	}

	return closeFromProcfs(lowfd)
}

// closeFromProcfs enumerates /proc/self/fd and closes every listed fd at
// or above lowfd. The listing also names the directory handle os.ReadDir
// itself used, which is already closed by then; closing that number again
// fails with EBADF, and close errors are ignored.
func closeFromProcfs(lowfd int) error {
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		return err
	}

	for _, e := range entries {
		fd, err := strconv.Atoi(e.Name())
		if err != nil || fd < lowfd {
			continue
		}
		unix.Close(fd)
	}
	return nil
}
