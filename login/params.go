// Package login implements the init/login sequence switchroot runs
// before exec'ing the target shell: reading login.defs-style parameter
// files, looking up passwd entries, and building the session environment
// and final argv.
//
// Grounded on linuxUtils.GetDistroPath's afero-backed, package-level
// appFs pattern for filesystem testability, and its KEY=VALUE line
// parsing (quote/escape handling) generalized here to login.defs's
// whitespace-or-equals-separated, comment-and-continuation-aware format.
package login

import (
	"bufio"
	"strings"

	"github.com/spf13/afero"
)

// appFs is swappable in tests via afero.NewMemMapFs(), the same pattern
// linuxUtils uses for its own package-level appFs.
var appFs afero.Fs = afero.NewOsFs()

// Params is a login.defs/locale.conf-style parameter map: KEY -> VALUE,
// last occurrence of a key wins.
type Params map[string]string

// ParseParams reads a login.defs or locale.conf style file at path: one
// KEY VALUE or KEY=VALUE pair per logical line, '#' starts a comment to
// end of line, a trailing '\' continues the logical line, blank lines
// and unparseable lines are skipped.
func ParseParams(path string) (Params, error) {
	f, err := appFs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	params := Params{}
	scanner := bufio.NewScanner(f)

	var pending string
	for scanner.Scan() {
		line := scanner.Text()
		if pending != "" {
			line = pending + line
			pending = ""
		}
		if strings.HasSuffix(line, `\`) {
			pending = strings.TrimSuffix(line, `\`)
			continue
		}

		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, ok := splitParam(line)
		if !ok {
			continue
		}
		params[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if pending != "" {
		if key, value, ok := splitParam(strings.TrimSpace(pending)); ok {
			params[key] = value
		}
	}

	return params, nil
}

// splitParam splits "KEY VALUE" or "KEY=VALUE" into key and value,
// trimming a single pair of surrounding quotes from value.
func splitParam(line string) (key, value string, ok bool) {
	sep := strings.IndexAny(line, " \t=")
	if sep < 0 {
		return line, "", true
	}
	key = line[:sep]
	value = strings.TrimSpace(line[sep+1:])
	value = strings.TrimPrefix(value, "=")
	value = strings.TrimSpace(value)
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}
	return key, value, key != ""
}

// Get returns p[key], or def if key is absent or empty.
func (p Params) Get(key, def string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return def
}
