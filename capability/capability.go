// Copyright (c) 2013, Suryandaru Triandana <syndtr@gmail.com>
// All rights reserved.
//
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package capability provides utilities for manipulating a process's POSIX
// capability sets and the small raise/lower brackets the rest of this
// module uses to keep a privileged helper's effective set minimal.
package capability

type CapType uint

func (c CapType) String() string {
	switch c {
	case EFFECTIVE:
		return "effective"
	case PERMITTED:
		return "permitted"
	case INHERITABLE:
		return "inheritable"
	case BOUNDING:
		return "bounding"
	case CAPS:
		return "caps"
	case AMBIENT:
		return "ambient"
	}
	return "unknown"
}

const (
	EFFECTIVE CapType = 1 << iota
	PERMITTED
	INHERITABLE
	BOUNDING
	AMBIENT

	CAPS   = EFFECTIVE | PERMITTED | INHERITABLE
	BOUNDS = BOUNDING
	AMBS   = AMBIENT
)

//go:generate go run enumgen/gen.go
type Cap int

// POSIX-draft defined capabilities and Linux extensions, as defined in
// include/uapi/linux/capability.h. Only the subset this module's helpers
// rely on carries a doc comment; the rest exist so Cap.String and
// the bounding-set drop loop in DropPrivileges can walk every bit.
const (
	CAP_CHOWN = Cap(0)
	// CAP_DAC_OVERRIDE bypasses file read/write/execute permission checks;
	// needed to create mount targets and bind-mount into arbitrary rootfs
	// trees regardless of their on-disk ownership.
	CAP_DAC_OVERRIDE = Cap(1)
	// CAP_DAC_READ_SEARCH bypasses directory read/search checks; needed by
	// the chroot-safe path resolver and the whiteout tree walker.
	CAP_DAC_READ_SEARCH  = Cap(2)
	CAP_FOWNER           = Cap(3)
	CAP_FSETID           = Cap(4)
	CAP_KILL             = Cap(5)
	CAP_SETGID           = Cap(6)
	CAP_SETUID           = Cap(7)
	CAP_SETPCAP          = Cap(8)
	CAP_LINUX_IMMUTABLE  = Cap(9)
	CAP_NET_BIND_SERVICE = Cap(10)
	CAP_NET_BROADCAST    = Cap(11)
	CAP_NET_ADMIN        = Cap(12)
	CAP_NET_RAW          = Cap(13)
	CAP_IPC_LOCK         = Cap(14)
	CAP_IPC_OWNER        = Cap(15)
	CAP_SYS_MODULE       = Cap(16)
	CAP_SYS_RAWIO        = Cap(17)
	CAP_SYS_CHROOT       = Cap(18)
	CAP_SYS_PTRACE       = Cap(19)
	CAP_SYS_PACCT        = Cap(20)
	// CAP_SYS_ADMIN covers mount(2)/umount(2)/setns(2)/setxattr(2); the
	// mount engine, the root switcher, nsenter's namespace join, and the
	// whiteout translator all bracket it around their privileged syscalls.
	CAP_SYS_ADMIN      = Cap(21)
	CAP_SYS_BOOT       = Cap(22)
	CAP_SYS_NICE       = Cap(23)
	CAP_SYS_RESOURCE   = Cap(24)
	CAP_SYS_TIME       = Cap(25)
	CAP_SYS_TTY_CONFIG = Cap(26)
	// CAP_MKNOD is bracketed by the whiteout translator around every
	// mknod(2) it issues to create an overlayfs character-device whiteout.
	CAP_MKNOD              = Cap(27)
	CAP_LEASE              = Cap(28)
	CAP_AUDIT_WRITE        = Cap(29)
	CAP_AUDIT_CONTROL      = Cap(30)
	CAP_SETFCAP            = Cap(31)
	CAP_MAC_OVERRIDE       = Cap(32)
	CAP_MAC_ADMIN          = Cap(33)
	CAP_SYSLOG             = Cap(34)
	CAP_WAKE_ALARM         = Cap(35)
	CAP_BLOCK_SUSPEND      = Cap(36)
	CAP_AUDIT_READ         = Cap(37)
	CAP_PERFMON            = Cap(38)
	CAP_BPF                = Cap(39)
	CAP_CHECKPOINT_RESTORE = Cap(40)
)

func (c Cap) String() string {
	switch c {
	case CAP_CHOWN:
		return "chown"
	case CAP_DAC_OVERRIDE:
		return "dac_override"
	case CAP_DAC_READ_SEARCH:
		return "dac_read_search"
	case CAP_FOWNER:
		return "fowner"
	case CAP_FSETID:
		return "fsetid"
	case CAP_KILL:
		return "kill"
	case CAP_SETGID:
		return "setgid"
	case CAP_SETUID:
		return "setuid"
	case CAP_SETPCAP:
		return "setpcap"
	case CAP_LINUX_IMMUTABLE:
		return "linux_immutable"
	case CAP_NET_BIND_SERVICE:
		return "net_bind_service"
	case CAP_NET_BROADCAST:
		return "net_broadcast"
	case CAP_NET_ADMIN:
		return "net_admin"
	case CAP_NET_RAW:
		return "net_raw"
	case CAP_IPC_LOCK:
		return "ipc_lock"
	case CAP_IPC_OWNER:
		return "ipc_owner"
	case CAP_SYS_MODULE:
		return "sys_module"
	case CAP_SYS_RAWIO:
		return "sys_rawio"
	case CAP_SYS_CHROOT:
		return "sys_chroot"
	case CAP_SYS_PTRACE:
		return "sys_ptrace"
	case CAP_SYS_PACCT:
		return "sys_pacct"
	case CAP_SYS_ADMIN:
		return "sys_admin"
	case CAP_SYS_BOOT:
		return "sys_boot"
	case CAP_SYS_NICE:
		return "sys_nice"
	case CAP_SYS_RESOURCE:
		return "sys_resource"
	case CAP_SYS_TIME:
		return "sys_time"
	case CAP_SYS_TTY_CONFIG:
		return "sys_tty_config"
	case CAP_MKNOD:
		return "mknod"
	case CAP_LEASE:
		return "lease"
	case CAP_AUDIT_WRITE:
		return "audit_write"
	case CAP_AUDIT_CONTROL:
		return "audit_control"
	case CAP_SETFCAP:
		return "setfcap"
	case CAP_MAC_OVERRIDE:
		return "mac_override"
	case CAP_MAC_ADMIN:
		return "mac_admin"
	case CAP_SYSLOG:
		return "syslog"
	case CAP_WAKE_ALARM:
		return "wake_alarm"
	case CAP_BLOCK_SUSPEND:
		return "block_suspend"
	case CAP_AUDIT_READ:
		return "audit_read"
	case CAP_PERFMON:
		return "perfmon"
	case CAP_BPF:
		return "bpf"
	case CAP_CHECKPOINT_RESTORE:
		return "checkpoint_restore"
	}
	return "unknown"
}

// List returns every capability this package knows about, in ascending
// bit order. DropPrivileges walks it to clear the bounding set.
func List() []Cap {
	return []Cap{
		CAP_CHOWN, CAP_DAC_OVERRIDE, CAP_DAC_READ_SEARCH, CAP_FOWNER,
		CAP_FSETID, CAP_KILL, CAP_SETGID, CAP_SETUID, CAP_SETPCAP,
		CAP_LINUX_IMMUTABLE, CAP_NET_BIND_SERVICE, CAP_NET_BROADCAST,
		CAP_NET_ADMIN, CAP_NET_RAW, CAP_IPC_LOCK, CAP_IPC_OWNER,
		CAP_SYS_MODULE, CAP_SYS_RAWIO, CAP_SYS_CHROOT, CAP_SYS_PTRACE,
		CAP_SYS_PACCT, CAP_SYS_ADMIN, CAP_SYS_BOOT, CAP_SYS_NICE,
		CAP_SYS_RESOURCE, CAP_SYS_TIME, CAP_SYS_TTY_CONFIG, CAP_MKNOD,
		CAP_LEASE, CAP_AUDIT_WRITE, CAP_AUDIT_CONTROL, CAP_SETFCAP,
		CAP_MAC_OVERRIDE, CAP_MAC_ADMIN, CAP_SYSLOG, CAP_WAKE_ALARM,
		CAP_BLOCK_SUSPEND, CAP_AUDIT_READ, CAP_PERFMON, CAP_BPF,
		CAP_CHECKPOINT_RESTORE,
	}
}

// Capabilities is a snapshot of a process's three capability bitsets
// (effective, permitted, inheritable) plus the bounding and ambient sets.
type Capabilities interface {
	// Get reports whether cp is present in the given set.
	Get(which CapType, cp Cap) bool

	// Empty reports whether every bit of the given set is zero.
	Empty(which CapType) bool

	// Set raises the given capabilities in the given sets (OR'ed together).
	Set(which CapType, caps ...Cap)

	// Unset lowers the given capabilities in the given sets.
	Unset(which CapType, caps ...Cap)

	// Clear zeroes every bit of the given kind (CAPS, BOUNDS or AMBS).
	Clear(kind CapType)

	// Load reads the current capability state, discarding pending changes.
	Load() error

	// Apply commits pending changes for the given kind to the kernel.
	Apply(kind CapType) error
}

// Load returns the current process's capability snapshot.
func Load() (Capabilities, error) {
	c, err := newPid(0)
	if err != nil {
		return nil, err
	}
	if err := c.Load(); err != nil {
		return nil, err
	}
	return c, nil
}
