// Package overlay translates an AUFS-whiteout-marked directory tree into
// its overlayfs equivalent in place: AUFS's ".wh." and ".wh..wh..opq"
// marker files become overlayfs's char-device whiteouts and
// trusted.overlay.opaque xattrs.
//
// Grounded on idShiftUtils.ShiftIdsWithChown's godirwalk-based tree walk
// (Callback/ErrorCallback/Unsorted shape) and overlayUtils.GetMountOpt's
// use of golang-set for option-set bookkeeping, adapted here to track
// which directories are pending an opaque xattr between the marker being
// seen and that directory being left.
package overlay

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	mapset "github.com/deckarep/golang-set"
	"github.com/karrick/godirwalk"
	"golang.org/x/sys/unix"

	"github.com/NVIDIA/enroot/capability"
)

const (
	opaqueMarker  = ".wh..wh..opq"
	reservedPrefix = ".wh..wh."
	whiteoutPrefix = ".wh."
)

// kind classifies a basename under the AUFS whiteout convention.
type kind int

const (
	kindNone kind = iota
	kindOpaque
	kindReservedUnsupported
	kindWhiteout
)

func classify(base string) kind {
	switch {
	case base == opaqueMarker:
		return kindOpaque
	case strings.HasPrefix(base, reservedPrefix):
		return kindReservedUnsupported
	case strings.HasPrefix(base, whiteoutPrefix):
		return kindWhiteout
	default:
		return kindNone
	}
}

// Translate walks root depth-first, physical (no symlink follow), not
// crossing into other mounts, translating every AUFS whiteout it finds.
func Translate(root string) error {
	rootDev, err := deviceOf(root)
	if err != nil {
		return err
	}

	pendingOpaque := mapset.NewSet()

	return godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path != root {
				if dev, err := deviceOf(path); err == nil && dev != rootDev {
					return filepath.SkipDir
				}
			}

			base := filepath.Base(path)
			switch classify(base) {
			case kindOpaque:
				if err := os.Remove(path); err != nil {
					return err
				}
				pendingOpaque.Add(filepath.Dir(path))

			case kindReservedUnsupported:
				return fmt.Errorf("unsupported aufs whiteout marker: %s", path)

			case kindWhiteout:
				if err := os.Remove(path); err != nil {
					return err
				}
				sibling := filepath.Join(filepath.Dir(path), strings.TrimPrefix(base, whiteoutPrefix))
				if err := mknodWhiteout(sibling); err != nil {
					return err
				}
			}

			return nil
		},

		// The opaque xattr is applied here, on leaving the directory that
		// contained the marker, not the directory containing the marker
		// file's own parent-of-parent — i.e. exactly when godirwalk has
		// finished every entry under this directory.
		PostChildrenCallback: func(path string, de *godirwalk.Dirent) error {
			if pendingOpaque.Contains(path) {
				pendingOpaque.Remove(path)
				return setOpaqueXattr(path)
			}
			return nil
		},

		Unsorted: true,
	})
}

func deviceOf(path string) (uint64, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return 0, err
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("overlay: cannot stat %s", path)
	}
	return uint64(st.Dev), nil
}

// mknodWhiteout creates an overlayfs whiteout: a character device with
// major/minor 0,0.
func mknodWhiteout(path string) error {
	b, err := capability.Raise(capability.CAP_MKNOD)
	if err != nil {
		return err
	}
	defer b.Release()

	return unix.Mknod(path, unix.S_IFCHR|0600, int(unix.Mkdev(0, 0)))
}

// setOpaqueXattr marks dir opaque the way overlayfs expects.
func setOpaqueXattr(dir string) error {
	b, err := capability.Raise(capability.CAP_SYS_ADMIN)
	if err != nil {
		return err
	}
	defer b.Release()

	return unix.Setxattr(dir, "trusted.overlay.opaque", []byte("y"), unix.XATTR_CREATE)
}
