package login

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const (
	defaultLoginDefs  = "/etc/login.defs"
	defaultNologin    = "/etc/nologin"
	defaultLocaleConf = "/etc/locale.conf"
	defaultSUPath     = "/sbin:/bin:/usr/sbin:/usr/bin" // ENV_SUPATH default (_PATH_STDPATH)
	defaultUserPath   = "/bin:/usr/bin"                 // ENV_PATH default (_PATH_DEFPATH)
)

// localeVars are the only variable names a locale.conf entry is allowed
// to set; anything else in that file is ignored.
var localeVars = map[string]bool{
	"LANG": true, "LC_ALL": true, "LC_CTYPE": true, "LC_NUMERIC": true,
	"LC_TIME": true, "LC_COLLATE": true, "LC_MONETARY": true,
	"LC_MESSAGES": true, "LC_PAPER": true, "LC_NAME": true,
	"LC_ADDRESS": true, "LC_TELEPHONE": true, "LC_MEASUREMENT": true,
	"LC_IDENTIFICATION": true,
}

// Session is the result of the login subroutine.
type Session struct {
	Env   map[string]string
	Umask uint32
	// RLimitFsize is nil when ULIMIT is unset (leave the current limit).
	RLimitFsize  *uint64
	HomeDir      string
	HomeDirFatal bool // DEFAULT_HOME unset: a chdir($HOME) failure is fatal, not a warning.

	// NologinMessage is non-empty when the session should print this
	// message and exit 0 instead of proceeding.
	NologinMessage string
}

// BuildSession runs the init/login subroutine (§4.5.1): it reads
// login.defs, looks up the effective and mapped uid's passwd entries, and
// assembles the environment, umask, and resource limit the caller should
// apply before exec'ing the shell. Every lookup failure along the way is
// silently ignored, never fatal: the session is always built best-effort.
// No lastlog, utmp or wtmp record is written here.
func BuildSession(effUID uint32, baseEnv map[string]string) *Session {
	defs, _ := ParseParams(defaultLoginDefs)

	sess := &Session{Env: map[string]string{}}
	for k, v := range baseEnv {
		sess.Env[k] = v
	}

	mappedUID, _ := readMappedUID(effUID)

	nologinPath := defs.Get("NOLOGINS_FILE", defaultNologin)
	if effUID != 0 {
		if data, err := afero.ReadFile(appFs, nologinPath); err == nil {
			sess.NologinMessage = string(data)
			return sess
		}
	}

	effEntry, errEff := LookupUID("/etc/passwd", effUID)
	mappedEntry, errMapped := LookupUID("/etc/passwd", mappedUID)

	sess.Env["TERM"] = "dumb"
	if errEff == nil {
		setIfAbsent(sess.Env, "HOME", effEntry.Home)
		setIfAbsent(sess.Env, "SHELL", effEntry.Shell)
		setIfAbsent(sess.Env, "USER", effEntry.Name)
	}
	if errMapped == nil {
		sess.Env["LOGNAME"] = mappedEntry.Name
	}

	if effUID == 0 {
		sess.Env["PATH"] = defs.Get("ENV_SUPATH", defaultSUPath)
	} else {
		sess.Env["PATH"] = defs.Get("ENV_PATH", defaultUserPath)
	}

	if mailDir := defs.Get("MAIL_DIR", ""); mailDir != "" && errEff == nil {
		sess.Env["MAIL"] = filepath.Join(mailDir, effEntry.Name)
	} else if mailFile := defs.Get("MAIL_FILE", ""); mailFile != "" {
		sess.Env["MAIL"] = mailFile
	}

	if tz := defs.Get("ENV_TZ", ""); tz != "" {
		if strings.HasPrefix(tz, "/") {
			if data, err := os.ReadFile(tz); err == nil {
				if line := firstLine(string(data)); line != "" {
					sess.Env["TZ"] = line
				}
			}
		} else {
			sess.Env["TZ"] = tz
		}
	}

	if locale, err := ParseParams(defaultLocaleConf); err == nil {
		for k, v := range locale {
			if localeVars[k] {
				sess.Env[k] = v
			}
		}
	}

	sess.Umask = resolveUmask(defs, errEff == nil, effEntry)

	if ulimit := defs.Get("ULIMIT", ""); ulimit != "" {
		if v, err := strconv.ParseInt(ulimit, 10, 64); err == nil {
			if v < 0 {
				inf := ^uint64(0)
				sess.RLimitFsize = &inf
			} else {
				bytes := uint64(v) * 512
				sess.RLimitFsize = &bytes
			}
		}
	}

	sess.HomeDir = sess.Env["HOME"]
	sess.HomeDirFatal = defs.Get("DEFAULT_HOME", "") == ""

	return sess
}

func resolveUmask(defs Params, haveEffEntry bool, effEntry *PasswdEntry) uint32 {
	umask := uint32(0022)
	if um := defs.Get("UMASK", ""); um != "" {
		if parsed, err := strconv.ParseUint(um, 8, 32); err == nil {
			umask = uint32(parsed)
		}
	}

	// User-private-groups quirk: if the user's primary group shares their
	// username, the umask's group-deny bits are meaningless (the "group"
	// is just them), so open the group permissions back up.
	if defs.Get("USERGROUPS_ENAB", "no") == "yes" && haveEffEntry {
		if name, err := lookupGroupName(effEntry.GID); err == nil && name == effEntry.Name {
			umask &^= 0070
		}
	}
	return umask
}

func setIfAbsent(env map[string]string, key, val string) {
	if _, ok := env[key]; !ok && val != "" {
		env[key] = val
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// readMappedUID finds the host-side identity that effUID maps to, by
// scanning /proc/self/uid_map for the range containing it.
func readMappedUID(effUID uint32) (uint32, error) {
	data, err := os.ReadFile("/proc/self/uid_map")
	if err != nil {
		return effUID, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		containerID, err1 := strconv.ParseUint(fields[0], 10, 32)
		hostID, err2 := strconv.ParseUint(fields[1], 10, 32)
		size, err3 := strconv.ParseUint(fields[2], 10, 32)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		if uint64(effUID) >= containerID && uint64(effUID) < containerID+size {
			return uint32(hostID + (uint64(effUID) - containerID)), nil
		}
	}
	return effUID, fmt.Errorf("login: uid %d not found in uid_map", effUID)
}

func lookupGroupName(gid uint32) (string, error) {
	f, err := appFs.Open("/etc/group")
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ":")
		if len(fields) < 3 {
			continue
		}
		g, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil || uint32(g) != gid {
			continue
		}
		return fields[0], nil
	}
	return "", fmt.Errorf("login: no group for gid %d", gid)
}
