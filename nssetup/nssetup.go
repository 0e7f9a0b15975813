// Package nssetup implements the namespace-creation sequence shared by
// the unshare and nsenter helpers: user/mount namespace unshare, uid/gid
// map population, ambient capability propagation, and seccomp install.
package nssetup

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/NVIDIA/enroot/capability"
	"github.com/NVIDIA/enroot/idmap"
	"github.com/NVIDIA/enroot/seccomp"
)

// Options selects which namespaces to create and how ids are mapped.
type Options struct {
	User      bool
	Mount     bool
	RemapRoot bool
}

// Create unshares the namespaces Options selects, in the order the
// kernel requires: user namespace first (so the calling process owns
// the id maps it's about to write), then mount. Ambient capabilities
// and the seccomp filter are wired in only for a plain (non-remapped)
// user namespace, matching enroot's rootless ID-spoofing behavior.
func Create(opts Options) error {
	if opts.User {
		if err := unix.Unshare(unix.CLONE_NEWUSER); err != nil {
			return errors.Wrap(err, "unshare(CLONE_NEWUSER)")
		}
		if err := writeIdentityMaps(opts.RemapRoot); err != nil {
			return err
		}
	}

	if opts.Mount {
		if err := unix.Unshare(unix.CLONE_NEWNS); err != nil {
			return errors.Wrap(err, "unshare(CLONE_NEWNS)")
		}
	}

	if opts.User && !opts.RemapRoot {
		if err := raiseAmbientCapabilities(); err != nil {
			return err
		}
		if err := seccomp.Install(); err != nil {
			return errors.Wrap(err, "seccomp install")
		}
	}

	return nil
}

// writeIdentityMaps writes the single-entry "<inside> <outside> 1"
// uid_map/gid_map enroot's unshare/nsenter helpers use: remap-root maps
// container id 0 to the real id, otherwise the real id maps to itself.
func writeIdentityMaps(remapRoot bool) error {
	realUID := uint32(unix.Getuid())
	realGID := uint32(unix.Getgid())

	insideUID, insideGID := realUID, realGID
	if remapRoot {
		insideUID, insideGID = 0, 0
	}

	uid := []idmap.Mapping{{ContainerID: insideUID, HostID: realUID, Size: 1}}
	gid := []idmap.Mapping{{ContainerID: insideGID, HostID: realGID, Size: 1}}

	return idmap.Write(os.Getpid(), uid, gid)
}

// raiseAmbientCapabilities copies the effective set into inheritable,
// then raises every inheritable capability into the ambient set so it
// survives the following execve. EINVAL (PR_CAP_AMBIENT unsupported)
// is reported with guidance to fall back to --remap-root instead.
func raiseAmbientCapabilities() error {
	caps, err := capability.Load()
	if err != nil {
		return errors.Wrap(err, "load capabilities")
	}

	caps.Clear(capability.INHERITABLE)
	for _, c := range capability.List() {
		if caps.Get(capability.EFFECTIVE, c) {
			caps.Set(capability.INHERITABLE, c)
			caps.Set(capability.AMBIENT, c)
		}
	}

	if err := caps.Apply(capability.CAPS); err != nil {
		return errors.Wrap(err, "apply inheritable capabilities")
	}
	if err := caps.Apply(capability.AMBS); err != nil {
		if err == unix.EINVAL {
			return errors.New("ambient capabilities unsupported by this kernel; use --remap-root instead")
		}
		return errors.Wrap(err, "apply ambient capabilities")
	}
	return nil
}
