package idmap

import "testing"

func TestBuildRealID(t *testing.T) {
	uid, gid := Build(RealID, 1000, 1000, Mapping{}, Mapping{})
	if len(uid) != 1 || uid[0].HostID != 1000 || uid[0].Size != 1 {
		t.Fatalf("uid = %+v", uid)
	}
	if len(gid) != 1 || gid[0].HostID != 1000 {
		t.Fatalf("gid = %+v", gid)
	}
}

func TestBuildRemapRoot(t *testing.T) {
	sub := Mapping{ContainerID: 1, HostID: 100000, Size: 65536}
	uid, gid := Build(RemapRoot, 1000, 1000, sub, sub)
	if len(uid) != 2 || uid[1].HostID != 100000 || uid[1].Size != 65536 {
		t.Fatalf("uid = %+v", uid)
	}
	if uid[0].ContainerID != 0 || uid[0].HostID != 1000 {
		t.Fatalf("uid[0] = %+v", uid[0])
	}
	if len(gid) != 2 {
		t.Fatalf("gid = %+v", gid)
	}
}
