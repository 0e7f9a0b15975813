package pidfd

import (
	"os"
	"testing"
)

func TestGuardStillAliveForCurrentProcess(t *testing.T) {
	g, err := OpenGuard(os.Getpid())
	if err != nil {
		t.Skipf("pidfd_open unavailable: %v", err)
	}
	if !g.StillAlive() {
		t.Error("StillAlive() = false for the running test process")
	}
}
