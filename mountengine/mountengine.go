// Package mountengine executes fstab.Entry values: auto-creating mount
// targets, folding in kernel-mandated flags for bind/remount inside a
// user namespace, and issuing the mount/remount/propagation syscalls in
// the order the kernel requires.
//
// Grounded on mount.OptionsToFlags for the flag-bit vocabulary and
// utils.GetFsName's use of unix.Statfs for filesystem introspection,
// generalized here from name lookup to flag folding.
package mountengine

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/NVIDIA/enroot/capability"
	"github.com/NVIDIA/enroot/chroot"
	"github.com/NVIDIA/enroot/fstab"
)

// Execute runs one mount entry rooted at rootDir, per the mount engine's
// per-entry sequence: detach, flag cleanup, userns flag folding, mount,
// optional remount, and propagation.
func Execute(rootDir string, e fstab.Entry) error {
	target, err := chroot.Resolve(rootDir, e.Target)
	if err != nil {
		return err
	}

	b, err := capability.Raise(capability.CAP_SYS_ADMIN)
	if err != nil {
		return err
	}
	defer b.Release()

	if e.XDetach {
		return unix.Unmount(target, unix.MNT_DETACH)
	}

	if e.XCreate != "" {
		if err := ensureTarget(e.Source, target, e.XCreate, e.Flags&unix.MS_BIND != 0); err != nil {
			return err
		}
	}

	flags := e.Flags
	if flags&unix.MS_BIND == 0 {
		flags &^= unix.MS_REC
	}

	isBind := flags&unix.MS_BIND != 0
	isRemount := flags&unix.MS_REMOUNT != 0
	if isBind || isRemount {
		if inUserNamespace() {
			statTarget := e.Source
			if isRemount {
				statTarget = target
			}
			if extra, err := statvfsFlags(statTarget); err == nil {
				flags |= extra
			}
		}
	}

	mountFlags := flags &^ fstab.PropagationMask
	if err := unix.Mount(e.Source, target, e.Fstype, mountFlags, e.Data); err != nil {
		return err
	}

	extraBits := flags &^ (unix.MS_BIND | unix.MS_REC)
	if isBind && !isRemount && (extraBits != 0 || e.Data != "") {
		remountFlags := (flags &^ fstab.PropagationMask) | unix.MS_REMOUNT
		if err := unix.Mount("", target, "", remountFlags, e.Data); err != nil {
			return err
		}
	}

	if propFlags := flags & fstab.PropagationMask; propFlags != 0 {
		f := propFlags
		if flags&unix.MS_REC != 0 {
			f |= unix.MS_REC
		}
		if err := unix.Mount("", target, "", f, ""); err != nil {
			return err
		}
	}

	return nil
}

// ensureTarget implements x-create=file|dir|auto: under auto, a bind
// mount's target mirrors the source's file type; any other mount gets a
// directory. Parent directories are created with mode 0755, EEXIST
// ignored.
func ensureTarget(source, target, xcreate string, isBind bool) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil && !os.IsExist(err) {
		return err
	}

	wantFile := xcreate == "file"
	if xcreate == "auto" {
		wantFile = false
		if isBind {
			fi, err := os.Stat(source)
			if err != nil {
				return err
			}
			wantFile = fi.Mode().IsRegular()
		}
	}

	if wantFile {
		f, err := os.OpenFile(target, os.O_CREATE, 0644)
		if err != nil {
			return err
		}
		return f.Close()
	}

	if err := os.Mkdir(target, 0755); err != nil && !os.IsExist(err) {
		return err
	}
	return nil
}

// inUserNamespace reports whether the calling process is confined to a
// user namespace with the kernel's full-identity-map-plus-deny-setgroups
// shape: uid_map and gid_map each exactly "0 0 4294967295" and setgroups
// "deny". The single-entry "<inside> <outside> 1" maps that nssetup
// writes do not have this shape.
func inUserNamespace() bool {
	uidMap, err := os.ReadFile("/proc/self/uid_map")
	if err != nil || !isFullIdentityMap(string(uidMap)) {
		return false
	}
	gidMap, err := os.ReadFile("/proc/self/gid_map")
	if err != nil || !isFullIdentityMap(string(gidMap)) {
		return false
	}
	setgroups, err := os.ReadFile("/proc/self/setgroups")
	if err != nil || strings.TrimSpace(string(setgroups)) != "deny" {
		return false
	}
	return true
}

func isFullIdentityMap(s string) bool {
	fields := strings.Fields(s)
	return len(fields) == 3 && fields[0] == "0" && fields[1] == "0" && fields[2] == "4294967295"
}

// statvfsFlags queries statvfs(path) and returns the MS_* bits the kernel
// requires be explicitly re-specified across a bind/remount taken inside
// a user namespace, instead of silently inherited from the source mount.
func statvfsFlags(path string) (uintptr, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}

	var flags uintptr
	f := st.Flags
	if f&unix.ST_RDONLY != 0 {
		flags |= unix.MS_RDONLY
	}
	if f&unix.ST_NOSUID != 0 {
		flags |= unix.MS_NOSUID
	}
	if f&unix.ST_NODEV != 0 {
		flags |= unix.MS_NODEV
	}
	if f&unix.ST_NOEXEC != 0 {
		flags |= unix.MS_NOEXEC
	}
	switch {
	case f&unix.ST_NOATIME != 0:
		flags |= unix.MS_NOATIME
	case f&unix.ST_RELATIME != 0:
		flags |= unix.MS_RELATIME
	default:
		flags |= unix.MS_STRICTATIME
	}
	return flags, nil
}
