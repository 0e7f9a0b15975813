package login

import (
	"os"
	"path/filepath"
	"strings"
)

// ChooseShell picks FAKE_SHELL (if executable), else $SHELL (if
// executable), else /bin/sh.
func ChooseShell(defs Params, env map[string]string) string {
	if fake := defs.Get("FAKE_SHELL", ""); fake != "" && isExecutableFile(fake) {
		return fake
	}
	if sh := env["SHELL"]; sh != "" && isExecutableFile(sh) {
		return sh
	}
	return "/bin/sh"
}

func isExecutableFile(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	return fi.Mode()&0111 != 0
}

// BuildArgv constructs the exec argv for the chosen shell (or the
// command directly, in the shell-script-form branch). login controls
// whether argv[0] is prefixed with "-". command is the optional user
// command and its arguments.
func BuildArgv(shell string, login bool, command []string) []string {
	arg0 := filepath.Base(shell)
	if login {
		arg0 = "-" + arg0
	}

	switch {
	case fileExists("/etc/rc"):
		return []string{arg0, "/etc/rc"}

	case len(command) > 0 && joinedHasSpace(command):
		argv := []string{arg0, "-c", strings.Join(command, " "), filepath.Base(shell)}
		return append(argv, command[1:]...)

	case len(command) > 0 && !isExecutableFile(command[0]):
		argv := []string{arg0, "-c", `exec "$@"`, filepath.Base(shell)}
		return append(argv, command...)

	case len(command) > 0:
		return command

	default:
		return []string{arg0}
	}
}

func joinedHasSpace(command []string) bool {
	for _, a := range command {
		if strings.ContainsRune(a, ' ') {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// MOTDFiles splits the colon-separated MOTD_FILE list, skipping the
// MOTD print entirely when a HUSHLOGIN_FILE is present.
func MOTDFiles(defs Params) []string {
	if hush := defs.Get("HUSHLOGIN_FILE", ""); hush != "" && fileExists(hush) {
		return nil
	}
	motd := defs.Get("MOTD_FILE", "")
	if motd == "" {
		return nil
	}
	return strings.Split(motd, ":")
}
