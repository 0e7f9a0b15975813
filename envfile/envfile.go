// Package envfile loads a switchroot --env FILE: a newline-separated
// list of KEY=VALUE assignments that replaces the process environment
// wholesale, mirroring enroot-switchroot's load_environment/clearenv.
package envfile

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Load reads path, validates each line as a KEY=VALUE assignment, and
// returns the resulting environment as a map. Invalid lines (no '=',
// a key that isn't [A-Za-z_][A-Za-z0-9_]*) are silently skipped, the
// same way enroot-switchroot's envvar_valid gate does.
func Load(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load environment: %s", path)
	}

	env := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := splitAssignment(line)
		if !ok {
			continue
		}
		env[key] = value
	}
	return env, nil
}

// Apply replaces the process environment with env, the Go equivalent
// of clearenv() followed by putenv() per surviving line.
func Apply(env map[string]string) error {
	os.Clearenv()
	for k, v := range env {
		if err := os.Setenv(k, v); err != nil {
			return errors.Wrapf(err, "failed to set %s", k)
		}
	}
	return nil
}

func splitAssignment(line string) (key, value string, ok bool) {
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return "", "", false
	}
	key = line[:idx]
	value = line[idx+1:]
	if !validName(key) {
		return "", "", false
	}
	return key, value, true
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
