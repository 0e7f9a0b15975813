// Copyright (c) 2013, Suryandaru Triandana <syndtr@gmail.com>
// All rights reserved.
//
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package capability

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

var errUnknownVers = errors.New("unknown capability version")

const (
	linuxCapVer2 = 0x20071026
	linuxCapVer3 = 0x20080522
)

var (
	capVers    uint32
	capLastCap Cap

	// CAP_LAST_CAP is the highest valid capability of the running kernel,
	// read once from /proc/sys/kernel/cap_last_cap.
	CAP_LAST_CAP = Cap(63)

	capUpperMask uint32 = ^uint32(0)

	initOnce sync.Once
)

type capHeader struct {
	version uint32
	pid     int32
}

type capData struct {
	effective   uint32
	permissible uint32
	inheritable uint32
}

func capget(hdr *capHeader, data *capData) error {
	_, _, e := unix.Syscall(unix.SYS_CAPGET, uintptr(unsafe.Pointer(hdr)), uintptr(unsafe.Pointer(data)), 0)
	if e != 0 {
		return e
	}
	return nil
}

func capset(hdr *capHeader, data *capData) error {
	_, _, e := unix.Syscall(unix.SYS_CAPSET, uintptr(unsafe.Pointer(hdr)), uintptr(unsafe.Pointer(data)), 0)
	if e != 0 {
		return e
	}
	return nil
}

func initialize() {
	var hdr capHeader
	capget(&hdr, nil)
	capVers = hdr.version

	if err := initLastCap(); err == nil {
		CAP_LAST_CAP = capLastCap
		if capLastCap > 31 {
			capUpperMask = (uint32(1) << (uint(capLastCap) - 31)) - 1
		} else {
			capUpperMask = 0
		}
	}
}

// initLastCap reads /proc/sys/kernel/cap_last_cap, the kernel's authority
// on the highest capability bit it knows about. DropPrivileges uses this
// to bound the CAP_BSET_DROP loop instead of hard-coding CAP_LAST_CAP.
func initLastCap() error {
	if capLastCap != 0 {
		return nil
	}

	data, err := os.ReadFile("/proc/sys/kernel/cap_last_cap")
	if err != nil {
		return err
	}

	var v int
	if _, err := fmt.Sscanf(string(data), "%d", &v); err != nil {
		return err
	}
	capLastCap = Cap(v)
	return nil
}

func newPid(pid int) (Capabilities, error) {
	initOnce.Do(initialize)

	switch capVers {
	case linuxCapVer2, linuxCapVer3:
		p := &capsV3{}
		p.hdr.version = capVers
		p.hdr.pid = int32(pid)
		return p, nil
	default:
		return nil, errUnknownVers
	}
}

type capsV3 struct {
	hdr     capHeader
	data    [2]capData
	bounds  [2]uint32
	ambient [2]uint32
}

func idx(what Cap) (uint, Cap) {
	if what > 31 {
		return uint(what) >> 5, what % 32
	}
	return 0, what
}

func (c *capsV3) Get(which CapType, what Cap) bool {
	i, what := idx(what)

	switch which {
	case EFFECTIVE:
		return (1<<uint(what))&c.data[i].effective != 0
	case PERMITTED:
		return (1<<uint(what))&c.data[i].permissible != 0
	case INHERITABLE:
		return (1<<uint(what))&c.data[i].inheritable != 0
	case BOUNDING:
		return (1<<uint(what))&c.bounds[i] != 0
	case AMBIENT:
		return (1<<uint(what))&c.ambient[i] != 0
	}
	return false
}

func (c *capsV3) getData(which CapType, dest []uint32) {
	switch which {
	case EFFECTIVE:
		dest[0], dest[1] = c.data[0].effective, c.data[1].effective
	case PERMITTED:
		dest[0], dest[1] = c.data[0].permissible, c.data[1].permissible
	case INHERITABLE:
		dest[0], dest[1] = c.data[0].inheritable, c.data[1].inheritable
	case BOUNDING:
		dest[0], dest[1] = c.bounds[0], c.bounds[1]
	case AMBIENT:
		dest[0], dest[1] = c.ambient[0], c.ambient[1]
	}
}

func (c *capsV3) Empty(which CapType) bool {
	var data [2]uint32
	c.getData(which, data[:])
	return data[0] == 0 && data[1] == 0
}

func (c *capsV3) Set(which CapType, caps ...Cap) {
	for _, what := range caps {
		i, what := idx(what)

		if which&EFFECTIVE != 0 {
			c.data[i].effective |= 1 << uint(what)
		}
		if which&PERMITTED != 0 {
			c.data[i].permissible |= 1 << uint(what)
		}
		if which&INHERITABLE != 0 {
			c.data[i].inheritable |= 1 << uint(what)
		}
		if which&BOUNDING != 0 {
			c.bounds[i] |= 1 << uint(what)
		}
		if which&AMBIENT != 0 {
			c.ambient[i] |= 1 << uint(what)
		}
	}
}

func (c *capsV3) Unset(which CapType, caps ...Cap) {
	for _, what := range caps {
		i, what := idx(what)

		if which&EFFECTIVE != 0 {
			c.data[i].effective &^= 1 << uint(what)
		}
		if which&PERMITTED != 0 {
			c.data[i].permissible &^= 1 << uint(what)
		}
		if which&INHERITABLE != 0 {
			c.data[i].inheritable &^= 1 << uint(what)
		}
		if which&BOUNDING != 0 {
			c.bounds[i] &^= 1 << uint(what)
		}
		if which&AMBIENT != 0 {
			c.ambient[i] &^= 1 << uint(what)
		}
	}
}

func (c *capsV3) Clear(kind CapType) {
	if kind&EFFECTIVE != 0 {
		c.data[0].effective, c.data[1].effective = 0, 0
	}
	if kind&PERMITTED != 0 {
		c.data[0].permissible, c.data[1].permissible = 0, 0
	}
	if kind&INHERITABLE != 0 {
		c.data[0].inheritable, c.data[1].inheritable = 0, 0
	}
	if kind&BOUNDS != 0 {
		c.bounds[0], c.bounds[1] = 0, 0
	}
	if kind&AMBS != 0 {
		c.ambient[0], c.ambient[1] = 0, 0
	}
}

func (c *capsV3) Load() error {
	return capget(&c.hdr, &c.data[0])
}

func (c *capsV3) Apply(kind CapType) error {
	if kind&BOUNDS != 0 {
		var data [2]capData
		if err := capget(&c.hdr, &data[0]); err != nil {
			return err
		}
		if (1<<uint(CAP_SETPCAP))&data[0].effective != 0 {
			for i := Cap(0); i <= CAP_LAST_CAP; i++ {
				if c.Get(BOUNDING, i) {
					continue
				}
				if err := unix.Prctl(unix.PR_CAPBSET_DROP, uintptr(i), 0, 0, 0); err != nil {
					if err == unix.EINVAL {
						continue
					}
					return err
				}
			}
		}
	}

	if kind&CAPS != 0 {
		if err := capset(&c.hdr, &c.data[0]); err != nil {
			return err
		}
	}

	if kind&AMBS != 0 {
		for i := Cap(0); i <= CAP_LAST_CAP; i++ {
			action := uintptr(unix.PR_CAP_AMBIENT_LOWER)
			if c.Get(AMBIENT, i) {
				action = uintptr(unix.PR_CAP_AMBIENT_RAISE)
			}
			if err := unix.Prctl(unix.PR_CAP_AMBIENT, action, uintptr(i), 0, 0); err != nil && err != unix.EINVAL {
				return err
			}
		}
	}

	return nil
}
