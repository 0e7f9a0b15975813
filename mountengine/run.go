package mountengine

import (
	"fmt"

	"github.com/NVIDIA/enroot/fstab"
)

// ExecError is returned by Run for the first entry whose failure was
// fatal (its Entry.NoFail was false).
type ExecError struct {
	Entry fstab.Entry
	Err   error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Entry.Fstype, e.Entry.Target, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Runner executes a batch of entries against RootDir, applying each
// entry's failure policy (nofail/silent/loud). Exec defaults to Execute;
// tests substitute a fake to exercise the policy logic without syscalls.
type Runner struct {
	RootDir string
	Exec    func(rootDir string, e fstab.Entry) error
	Warn    func(e fstab.Entry, err error)
}

// Run executes every entry in order. It stops and returns an *ExecError
// at the first entry whose failure is fatal (NoFail unset); entries with
// NoFail set have their error reported via Warn (when not Silent, or
// when Loud) and execution continues.
func (r *Runner) Run(entries []fstab.Entry) error {
	exec := r.Exec
	if exec == nil {
		exec = Execute
	}

	for _, e := range entries {
		err := exec(r.RootDir, e)
		if err == nil {
			continue
		}

		if r.Warn != nil && (e.Loud || !e.Silent) {
			r.Warn(e, err)
		}

		if !e.NoFail {
			return &ExecError{Entry: e, Err: err}
		}
	}

	return nil
}
