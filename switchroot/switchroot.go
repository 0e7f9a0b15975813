// Package switchroot implements the pivot_root dance that moves a
// privileged helper's root filesystem into a freshly mounted rootfs and
// drops the process into it, the way enroot-switchroot does.
package switchroot

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/NVIDIA/enroot/capability"
)

// Switch pivots the calling process's root into rootfs: opens both the
// current root and rootfs as O_PATH directories, calls pivot_root,
// detaches the old root (after making it slave-recursive so the detach
// doesn't propagate into any shared mount elsewhere), and chroots into
// the new root. CLONE_NEWCGROUP is attempted last and its EINVAL
// (pre-4.6 kernel) is not an error.
func Switch(rootfs string) error {
	b, err := capability.Raise(capability.CAP_SYS_ADMIN)
	if err != nil {
		return errors.Wrap(err, "raise CAP_SYS_ADMIN")
	}
	defer b.Release()

	oldroot, err := unix.Open("/", unix.O_PATH|unix.O_DIRECTORY, 0)
	if err != nil {
		return errors.Wrap(err, "open /")
	}
	defer unix.Close(oldroot)

	newroot, err := unix.Open(rootfs, unix.O_PATH|unix.O_DIRECTORY, 0)
	if err != nil {
		return errors.Wrapf(err, "open %s", rootfs)
	}
	defer unix.Close(newroot)

	if err := unix.Fchdir(newroot); err != nil {
		return errors.Wrap(err, "fchdir newroot")
	}
	if err := unix.PivotRoot(".", "."); err != nil {
		return errors.Wrap(err, "pivot_root")
	}
	if err := unix.Fchdir(oldroot); err != nil {
		return errors.Wrap(err, "fchdir oldroot")
	}

	if err := unix.Mount("", ".", "", unix.MS_SLAVE|unix.MS_REC, ""); err != nil {
		return errors.Wrap(err, "make old root slave-recursive")
	}
	if err := unix.Unmount(".", unix.MNT_DETACH); err != nil {
		return errors.Wrap(err, "detach old root")
	}

	if err := unix.Fchdir(newroot); err != nil {
		return errors.Wrap(err, "fchdir newroot")
	}
	if err := unix.Chroot("."); err != nil {
		return errors.Wrap(err, "chroot")
	}

	if err := unix.Unshare(unix.CLONE_NEWCGROUP); err != nil && err != unix.EINVAL {
		return errors.Wrap(err, "unshare(CLONE_NEWCGROUP)")
	}

	return nil
}
