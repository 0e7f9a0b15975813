package mountengine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsFullIdentityMap(t *testing.T) {
	cases := map[string]bool{
		"0          0 4294967295\n": true,
		"0 0 4294967295":            true,
		"0 0 65536":                 false,
		"":                          false,
	}
	for s, want := range cases {
		if got := isFullIdentityMap(s); got != want {
			t.Errorf("isFullIdentityMap(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestEnsureTargetAutoDirectoryForNonBind(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "mnt", "data")

	if err := ensureTarget("", target, "auto", false); err != nil {
		t.Fatalf("ensureTarget() = %v", err)
	}
	fi, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat target: %v", err)
	}
	if !fi.IsDir() {
		t.Fatal("expected target to be a directory")
	}
}

func TestEnsureTargetAutoMirrorsBindSourceFile(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "src.conf")
	if err := os.WriteFile(source, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(root, "dst.conf")

	if err := ensureTarget(source, target, "auto", true); err != nil {
		t.Fatalf("ensureTarget() = %v", err)
	}
	fi, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat target: %v", err)
	}
	if !fi.Mode().IsRegular() {
		t.Fatal("expected target to be a regular file")
	}
}

func TestEnsureTargetExplicitDirIgnoresExisting(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "already")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatal(err)
	}

	if err := ensureTarget("", target, "dir", false); err != nil {
		t.Fatalf("ensureTarget() on existing dir = %v, want nil (EEXIST ignored)", err)
	}
}
