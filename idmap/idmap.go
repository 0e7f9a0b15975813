// Package idmap writes the uid_map, gid_map and setgroups files of a user
// namespace, in the order the kernel requires: setgroups must be disabled
// before gid_map can be written by an unprivileged writer, and gid_map
// before uid_map is not required by the kernel but is kept here to match
// the order the helpers always use it in.
//
// Grounded on linuxUtils.CreateUsernsProcess's writeMapping, generalized
// from its single fixed container/host/size triple to the repeated,
// possibly multi-range mapping a full ID map requires.
package idmap

import (
	"fmt"
	"os"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/pkg/errors"
)

// Policy selects which identity the container's root user is mapped to.
type Policy int

const (
	// RemapRoot maps container uid/gid 0 to an unprivileged host id and a
	// single-id range (the classic rootless remap).
	RemapRoot Policy = iota
	// RealID maps the container's root to the invoking user's real uid/gid,
	// with no further range: the container sees its own identity.
	RealID
)

// Mapping is one uid_map/gid_map line: map Size consecutive container ids
// starting at ContainerID to host ids starting at HostID.
type Mapping = specs.LinuxIDMapping

// Build returns the uid and gid mappings for policy, given the real
// (outside-namespace) uid/gid of the invoking user and the subordinate id
// range available to them (from /etc/subuid, /etc/subgid).
func Build(policy Policy, realUID, realGID uint32, subUID, subGID Mapping) (uid, gid []Mapping) {
	switch policy {
	case RealID:
		return []Mapping{{ContainerID: 0, HostID: realUID, Size: 1}},
			[]Mapping{{ContainerID: 0, HostID: realGID, Size: 1}}
	default: // RemapRoot
		return []Mapping{
				{ContainerID: 0, HostID: realUID, Size: 1},
				{ContainerID: 1, HostID: subUID.HostID, Size: subUID.Size},
			}, []Mapping{
				{ContainerID: 0, HostID: realGID, Size: 1},
				{ContainerID: 1, HostID: subGID.HostID, Size: subGID.Size},
			}
	}
}

// Write applies uid and gid mappings to the process pid's user namespace.
// It writes in the required order: setgroups=deny, then gid_map, then
// uid_map. setgroups must be written first: the kernel refuses an
// unprivileged write to gid_map while setgroups is still "allow".
func Write(pid int, uid, gid []Mapping) error {
	if err := denySetgroups(pid); err != nil {
		return err
	}
	if err := writeMapFile(pid, "gid_map", gid); err != nil {
		return err
	}
	if err := writeMapFile(pid, "uid_map", uid); err != nil {
		return err
	}
	return nil
}

func denySetgroups(pid int) error {
	path := fmt.Sprintf("/proc/%d/setgroups", pid)
	err := os.WriteFile(path, []byte("deny"), 0200)
	if os.IsNotExist(err) {
		// Kernels without setgroups-control (pre-3.19) have no such file;
		// gid_map writes are unrestricted there.
		return nil
	}
	return errors.Wrap(err, "setgroups")
}

func writeMapFile(pid int, name string, mappings []Mapping) error {
	if len(mappings) == 0 {
		return nil
	}

	var buf []byte
	for _, m := range mappings {
		buf = append(buf, []byte(fmt.Sprintf("%d %d %d\n", m.ContainerID, m.HostID, m.Size))...)
	}

	path := fmt.Sprintf("/proc/%d/%s", pid, name)
	if err := os.WriteFile(path, buf, 0600); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	return nil
}
