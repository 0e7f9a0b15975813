package mountengine

import (
	"errors"
	"testing"

	"github.com/NVIDIA/enroot/fstab"
)

func TestRunStopsOnFatalError(t *testing.T) {
	var ran []string
	r := &Runner{
		Exec: func(rootDir string, e fstab.Entry) error {
			ran = append(ran, e.Target)
			if e.Target == "/b" {
				return errors.New("boom")
			}
			return nil
		},
	}

	entries := []fstab.Entry{
		{Target: "/a"},
		{Target: "/b"},
		{Target: "/c"},
	}

	err := r.Run(entries)
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("Run() err = %v, want *ExecError", err)
	}
	if execErr.Entry.Target != "/b" {
		t.Fatalf("ExecError.Entry.Target = %q, want /b", execErr.Entry.Target)
	}
	if len(ran) != 2 {
		t.Fatalf("ran %v, want exactly [/a /b] (stop before /c)", ran)
	}
}

func TestRunContinuesPastNoFail(t *testing.T) {
	var ran []string
	r := &Runner{
		Exec: func(rootDir string, e fstab.Entry) error {
			ran = append(ran, e.Target)
			if e.Target == "/b" {
				return errors.New("boom")
			}
			return nil
		},
	}

	nofail := fstab.Entry{Target: "/b"}
	nofail.NoFail = true

	entries := []fstab.Entry{
		{Target: "/a"},
		nofail,
		{Target: "/c"},
	}

	if err := r.Run(entries); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if len(ran) != 3 {
		t.Fatalf("ran %v, want all three entries", ran)
	}
}

func TestRunWarnSuppressedBySilent(t *testing.T) {
	var warned bool
	e := fstab.Entry{Target: "/a"}
	e.NoFail = true
	e.Silent = true

	r := &Runner{
		Exec: func(rootDir string, e fstab.Entry) error { return errors.New("boom") },
		Warn: func(e fstab.Entry, err error) { warned = true },
	}

	if err := r.Run([]fstab.Entry{e}); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if warned {
		t.Fatal("expected Silent to suppress warning")
	}
}

func TestRunWarnForcedByLoud(t *testing.T) {
	var warned bool
	e := fstab.Entry{Target: "/a"}
	e.NoFail = true
	e.Silent = true
	e.Loud = true

	r := &Runner{
		Exec: func(rootDir string, e fstab.Entry) error { return errors.New("boom") },
		Warn: func(e fstab.Entry, err error) { warned = true },
	}

	if err := r.Run([]fstab.Entry{e}); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if !warned {
		t.Fatal("expected Loud to force a warning even with Silent set")
	}
}
