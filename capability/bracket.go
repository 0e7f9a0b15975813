package capability

import "golang.org/x/sys/unix"

// Bracket raises a single capability into the effective set for the
// duration of one privileged syscall and restores the prior effective set
// when released. Every mount(2)/umount(2)/setns(2)/setxattr(2)/mknod(2)
// call site in this module is wrapped in a Bracket instead of mutating a
// file-static capability snapshot, so the raise/lower pairing is enforced
// by the type instead of by convention.
type Bracket struct {
	caps Capabilities
	cp   Cap
}

// Raise brings cp into the effective set and returns a Bracket whose
// Release restores the effective set to what it was before the raise.
func Raise(cp Cap) (*Bracket, error) {
	caps, err := Load()
	if err != nil {
		return nil, err
	}

	if caps.Get(EFFECTIVE, cp) {
		// Already effective (e.g. running as uid 0 outside a user
		// namespace); nothing to raise or later lower.
		return &Bracket{caps: nil, cp: cp}, nil
	}

	caps.Set(EFFECTIVE, cp)
	if err := caps.Apply(CAPS); err != nil {
		return nil, err
	}

	return &Bracket{caps: caps, cp: cp}, nil
}

// Release lowers the capability raised by Raise back out of the effective
// set. It is a no-op if the capability was already effective at Raise
// time.
func (b *Bracket) Release() error {
	if b == nil || b.caps == nil {
		return nil
	}

	b.caps.Unset(EFFECTIVE, b.cp)
	return b.caps.Apply(CAPS)
}

// LastCap reads /proc/sys/kernel/cap_last_cap, the highest capability bit
// the running kernel supports.
func LastCap() (Cap, error) {
	initOnce.Do(initialize)
	if err := initLastCap(); err != nil {
		return 0, err
	}
	return capLastCap, nil
}

// DropPrivileges implements the final privilege-drop sequence shared by
// every helper: set PR_SET_NO_NEW_PRIVS, drop every capability in the
// bounding set 0..=lastCap (ignoring EPERM for capabilities already
// absent), then clear permitted/effective/inheritable. After it returns,
// the process can never regain a capability through exec(2), even of a
// file with capabilities set.
func DropPrivileges(lastCap Cap) error {
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return err
	}

	if unix.Geteuid() != 0 {
		for _, cp := range List() {
			if cp > lastCap {
				continue
			}
			if err := unix.Prctl(unix.PR_CAPBSET_DROP, uintptr(cp), 0, 0, 0); err != nil {
				if err == unix.EPERM || err == unix.EINVAL {
					continue
				}
				return err
			}
		}
	}

	caps, err := Load()
	if err != nil {
		return err
	}
	caps.Clear(CAPS)
	return caps.Apply(CAPS)
}
