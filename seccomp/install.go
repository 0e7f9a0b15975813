package seccomp

import (
	"unsafe"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// SECCOMP_RET_* action values (<linux/seccomp.h>), shifted/masked per the
// kernel's SECCOMP_RET_ACTION_FULL convention for RET_ERRNO's low 16 bits.
const (
	retKill  = 0x00000000
	retErrno = 0x00050000 // SECCOMP_RET_ERRNO | 0
	retAllow = 0x7fff0000
)

// Install assembles the ID-spoofing filter and installs it as the
// process's seccomp filter. It requires PR_SET_NO_NEW_PRIVS already set
// (or CAP_SYS_ADMIN), per seccomp(2).
//
// It tries seccomp(SECCOMP_SET_MODE_FILTER, SECCOMP_FILTER_FLAG_SPEC_ALLOW)
// first and falls back to prctl(PR_SET_SECCOMP) only when that returns
// EINVAL (for example a kernel that does not know the flag). Any other
// error, including ENOSYS, is returned as is.
func Install() error {
	raw, err := bpf.Assemble(Program())
	if err != nil {
		return err
	}

	filter := make([]unix.SockFilter, len(raw))
	for i, ri := range raw {
		filter[i] = unix.SockFilter{Code: ri.Op, Jt: ri.Jt, Jf: ri.Jf, K: ri.K}
	}

	prog := unix.SockFprog{
		Len:    uint16(len(filter)),
		Filter: &filter[0],
	}

	_, _, errno := unix.Syscall(unix.SYS_SECCOMP,
		unix.SECCOMP_SET_MODE_FILTER, unix.SECCOMP_FILTER_FLAG_SPEC_ALLOW, uintptr(unsafe.Pointer(&prog)))
	if errno == unix.EINVAL {
		return unix.Prctl(unix.PR_SET_SECCOMP, unix.SECCOMP_MODE_FILTER, uintptr(unsafe.Pointer(&prog)), 0, 0)
	}
	if errno != 0 {
		return errno
	}
	return nil
}
