package fstab

import (
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

func TestOptionsRoundTrip(t *testing.T) {
	cases := []string{
		"ro",
		"noexec,nosuid,nodev",
		"rbind",
		"rprivate",
		"ro,foo=bar,baz",
	}
	for _, s := range cases {
		o := ParseOptions(s)
		again := ParseOptions(Serialize(o.Flags, o.Data))
		if again.Flags != o.Flags || again.Data != o.Data {
			t.Errorf("round trip %q: got flags=%#x data=%q, want flags=%#x data=%q",
				s, again.Flags, again.Data, o.Flags, o.Data)
		}
	}
}

func TestParseOptionsExtensions(t *testing.T) {
	o := ParseOptions("ro,x-create=dir,nofail,silent,x-detach")
	if o.Flags&unix.MS_RDONLY == 0 {
		t.Error("expected MS_RDONLY set")
	}
	if o.XCreate != "dir" {
		t.Errorf("XCreate = %q, want dir", o.XCreate)
	}
	if !o.NoFail || !o.Silent {
		t.Error("expected NoFail and Silent set")
	}
	if !o.XDetach {
		t.Error("expected XDetach set")
	}
}

func TestExpandSourceAlone(t *testing.T) {
	entries, err := ParseReader(strings.NewReader("/data\n"), NoPassFilter)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Source != "/data" || e.Target != "/data" || e.Fstype != "none" {
		t.Errorf("got %+v", e)
	}
	if e.Flags&unix.MS_BIND == 0 || e.Flags&unix.MS_REC == 0 {
		t.Error("expected rbind flags")
	}
	if e.XCreate != "auto" {
		t.Errorf("XCreate = %q, want auto", e.XCreate)
	}
}

func TestExpandSourceDest(t *testing.T) {
	entries, err := ParseReader(strings.NewReader("/data /mnt/data\n"), NoPassFilter)
	if err != nil {
		t.Fatal(err)
	}
	e := entries[0]
	if e.Target != "/mnt/data" {
		t.Errorf("Target = %q, want /mnt/data", e.Target)
	}
}

func TestExpandSourceOptions(t *testing.T) {
	entries, err := ParseReader(strings.NewReader("/data ro,nosuid\n"), NoPassFilter)
	if err != nil {
		t.Fatal(err)
	}
	e := entries[0]
	if e.Source != "/data" || e.Target != "/data" {
		t.Errorf("got %+v", e)
	}
	if e.Flags&unix.MS_RDONLY == 0 {
		t.Error("expected MS_RDONLY")
	}
}

func TestExpandTmpfsDest(t *testing.T) {
	entries, err := ParseReader(strings.NewReader("tmpfs /tmp\n"), NoPassFilter)
	if err != nil {
		t.Fatal(err)
	}
	e := entries[0]
	if e.Fstype != "tmpfs" || e.Target != "/tmp" {
		t.Errorf("got %+v", e)
	}
}

func TestExpandThreeFieldOptsVsType(t *testing.T) {
	entries, err := ParseReader(strings.NewReader(
		"/data /mnt ro\n"+
			"proc /proc proc\n"), NoPassFilter)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Fstype != "none" {
		t.Errorf("entries[0].Fstype = %q, want none (ro should parse as OPTS)", entries[0].Fstype)
	}
	if entries[1].Fstype != "proc" {
		t.Errorf("entries[1].Fstype = %q, want proc (literal fstype passthrough)", entries[1].Fstype)
	}
}

func TestPassDefaultsToFreq(t *testing.T) {
	entries, err := ParseReader(strings.NewReader("/a /b none defaults 2\n"), NoPassFilter)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Pass != 2 {
		t.Errorf("Pass = %d, want 2 (defaulted from freq)", entries[0].Pass)
	}
}

func TestPassFilter(t *testing.T) {
	data := "/a /b none defaults 0 1\n/c /d none defaults 0 2\n"
	entries, err := ParseReader(strings.NewReader(data), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Source != "/a" {
		t.Fatalf("got %+v, want only /a entry", entries)
	}
}

func TestCommentsAndBlankLinesSkipped(t *testing.T) {
	data := "# a comment\n\n/a /b none defaults\n"
	entries, err := ParseReader(strings.NewReader(data), NoPassFilter)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
}

func TestEntryStringRoundTrip(t *testing.T) {
	entries, err := ParseReader(strings.NewReader("/a /b none ro,nosuid,x-create=dir 0 0\n"), NoPassFilter)
	if err != nil {
		t.Fatal(err)
	}
	again, err := parseLine(strings.Fields(entries[0].String()), 1)
	if err != nil {
		t.Fatal(err)
	}
	if again.Flags != entries[0].Flags || again.XCreate != entries[0].XCreate {
		t.Errorf("String() round trip mismatch: got %+v, want %+v", again, entries[0])
	}
}
