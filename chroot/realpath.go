// Package chroot resolves paths the way the kernel would resolve them
// rooted at an arbitrary directory instead of "/", without ever following
// an absolute symlink target outside that root.
//
// The walk is grounded on the symlink-loop bookkeeping in
// pathres.procPathAccess (MAXSYMLINKS, per-component stat), adapted here
// to a file-descriptor-based walk (openat/readlinkat relative to a
// directory fd) instead of repeated os.Stat/os.Readlink on path strings,
// so that a component can never be swapped out from under the resolver
// between the check and the open.
package chroot

import (
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// maxSymlinks bounds symlink recursion, mirroring the kernel's own
// MAXSYMLINKS limit (and pathres.symlinkMax).
const maxSymlinks = 40

const maxPathLen = 4096

// Resolve implements realpathat(root, p): it resolves p as if root were
// "/". The result contains no ".." component and no unresolved symlink.
// Components under a path prefix that does not exist on disk are kept
// track of (and permitted) via an internal noent-depth counter, so that a
// later ".." cancels them out correctly instead of escaping into real
// directories above where the nonexistent prefix started.
//
// Returns syscall.EXDEV if resolution would walk above root, and
// syscall.ELOOP if symlink recursion exceeds maxSymlinks.
func Resolve(root, p string) (string, error) {
	if len(p)+1 > maxPathLen {
		return "", syscall.ENAMETOOLONG
	}

	realRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	realRoot = filepath.Clean(realRoot)
	if resolved, err := filepath.EvalSymlinks(realRoot); err == nil {
		realRoot = resolved
	}

	rootFd, err := unix.Open(realRoot, unix.O_PATH|unix.O_DIRECTORY, 0)
	if err != nil {
		return "", err
	}
	defer unix.Close(rootFd)

	curFd, err := dup(rootFd)
	if err != nil {
		return "", err
	}
	defer func() {
		if curFd >= 0 {
			unix.Close(curFd)
		}
	}()

	r := &resolver{rootFd: rootFd, curFd: curFd}
	if err := r.run(p); err != nil {
		return "", err
	}
	curFd = -1 // r.run owns and has already closed/transferred r.curFd

	joined := strings.Join(r.resolved, "/")
	switch {
	case realRoot == "/":
		return "/" + joined, nil
	case joined == "":
		return realRoot, nil
	default:
		return realRoot + "/" + joined, nil
	}
}

type resolver struct {
	rootFd     int
	curFd      int
	resolved   []string
	noentDepth int
	linkDepth  int
}

func dup(fd int) (int, error) {
	return unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
}

func splitComponents(p string) []string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	out = append(out, parts...)
	return out
}

func (r *resolver) run(p string) error {
	queue := splitComponents(p)

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]

		switch {
		case c == "" || c == ".":
			continue
		case c == "..":
			if err := r.up(); err != nil {
				return err
			}
		default:
			linkTarget, err := r.step(c)
			if err != nil {
				return err
			}
			if linkTarget == "" {
				continue
			}

			r.linkDepth++
			if r.linkDepth > maxSymlinks {
				return syscall.ELOOP
			}

			if strings.HasPrefix(linkTarget, "/") {
				if err := r.resetToRoot(); err != nil {
					return err
				}
			}

			queue = append(splitComponents(linkTarget), queue...)
		}
	}

	unix.Close(r.curFd)
	r.curFd = -1
	return nil
}

// up handles a ".." component.
func (r *resolver) up() error {
	if r.noentDepth > 0 {
		r.noentDepth--
		if len(r.resolved) > 0 {
			r.resolved = r.resolved[:len(r.resolved)-1]
		}
		return nil
	}

	if len(r.resolved) == 0 {
		return syscall.EXDEV
	}

	r.resolved = r.resolved[:len(r.resolved)-1]

	parentFd, err := unix.Openat(r.curFd, "..", unix.O_PATH|unix.O_NOFOLLOW|unix.O_DIRECTORY, 0)
	if err != nil {
		return err
	}
	unix.Close(r.curFd)
	r.curFd = parentFd
	return nil
}

// step handles a plain (non "." / "..") component. It returns the symlink
// target when c resolves to a symlink, or "" otherwise.
func (r *resolver) step(c string) (string, error) {
	// Components below a prefix we already know does not exist are
	// appended without touching the filesystem: the parent directory we'd
	// need to readlinkat/openat against doesn't exist, so curFd (the last
	// real ancestor) is not the right directory to check against.
	if r.noentDepth > 0 {
		r.resolved = append(r.resolved, c)
		r.noentDepth++
		return "", nil
	}

	buf := make([]byte, maxPathLen)
	n, err := unix.Readlinkat(r.curFd, c, buf)
	switch {
	case err == unix.EINVAL:
		// Not a symlink: reopen the fd via this component.
		newFd, oerr := unix.Openat(r.curFd, c, unix.O_PATH|unix.O_NOFOLLOW, 0)
		if oerr != nil {
			if oerr == unix.ENOENT {
				r.noentDepth++
				r.resolved = append(r.resolved, c)
				return "", nil
			}
			return "", oerr
		}
		unix.Close(r.curFd)
		r.curFd = newFd
		r.resolved = append(r.resolved, c)
		return "", nil

	case err == unix.ENOENT:
		r.noentDepth++
		r.resolved = append(r.resolved, c)
		return "", nil

	case err != nil:
		return "", err

	default:
		return string(buf[:n]), nil
	}
}

// resetToRoot re-points curFd at root and discards the resolved path built
// so far, as required when an absolute symlink is encountered.
func (r *resolver) resetToRoot() error {
	newFd, err := dup(r.rootFd)
	if err != nil {
		return err
	}
	unix.Close(r.curFd)
	r.curFd = newFd
	r.resolved = r.resolved[:0]
	r.noentDepth = 0
	return nil
}
