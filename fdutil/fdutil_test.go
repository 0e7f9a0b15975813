package fdutil

import (
	"os"
	"testing"
)

// TestCloseFromHighLowfd exercises CloseFrom with a lowfd far above any
// fd this test process could plausibly hold open, so the call is a
// verified no-op regardless of which backend (close_range or procfs
// scan) services it.
func TestCloseFromHighLowfd(t *testing.T) {
	if err := CloseFrom(1 << 20); err != nil {
		t.Fatalf("CloseFrom() = %v", err)
	}
}

func TestCloseFromProcfsSkipsBelowLowfd(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "fd")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := closeFromProcfs(int(f.Fd()) + 1); err != nil {
		t.Fatalf("closeFromProcfs() = %v", err)
	}
	if _, err := f.Stat(); err != nil {
		t.Fatalf("fd below lowfd was closed: %v", err)
	}
}
