package login

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func withMemFs(t *testing.T, files map[string]string) func() {
	t.Helper()
	mem := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(mem, path, []byte(content), 0644); err != nil {
			t.Fatalf("seeding %s: %v", path, err)
		}
	}
	old := appFs
	appFs = mem
	return func() { appFs = old }
}

func TestParseParamsBasic(t *testing.T) {
	defer withMemFs(t, map[string]string{
		"/etc/login.defs": "UMASK 022\n# comment\nENV_PATH=/bin:/usr/bin\nMAIL_DIR /var/mail\n",
	})()

	p, err := ParseParams("/etc/login.defs")
	if err != nil {
		t.Fatalf("ParseParams() = %v", err)
	}
	if p.Get("UMASK", "") != "022" {
		t.Errorf("UMASK = %q", p.Get("UMASK", ""))
	}
	if p.Get("ENV_PATH", "") != "/bin:/usr/bin" {
		t.Errorf("ENV_PATH = %q", p.Get("ENV_PATH", ""))
	}
	if p.Get("MAIL_DIR", "") != "/var/mail" {
		t.Errorf("MAIL_DIR = %q", p.Get("MAIL_DIR", ""))
	}
}

func TestParseParamsContinuation(t *testing.T) {
	defer withMemFs(t, map[string]string{
		"/etc/login.defs": "ENV_PATH /bin:\\\n/usr/bin\n",
	})()

	p, err := ParseParams("/etc/login.defs")
	if err != nil {
		t.Fatalf("ParseParams() = %v", err)
	}
	if got := p.Get("ENV_PATH", ""); got != "/bin:/usr/bin" {
		t.Errorf("ENV_PATH = %q", got)
	}
}

func TestLookupUID(t *testing.T) {
	defer withMemFs(t, map[string]string{
		"/etc/passwd": "root:x:0:0:root:/root:/bin/bash\nuser:x:1000:1000:User:/home/user:/bin/sh\n",
	})()

	e, err := LookupUID("/etc/passwd", 1000)
	if err != nil {
		t.Fatalf("LookupUID() = %v", err)
	}
	if e.Name != "user" || e.Home != "/home/user" || e.Shell != "/bin/sh" {
		t.Errorf("unexpected entry: %+v", e)
	}

	if _, err := LookupUID("/etc/passwd", 42); err == nil {
		t.Error("expected error for missing uid")
	}
}

func TestBuildSessionSetsEnvFromPasswd(t *testing.T) {
	defer withMemFs(t, map[string]string{
		"/etc/login.defs": "ENV_PATH /bin:/usr/bin\n",
		"/etc/passwd":      "root:x:0:0:root:/root:/bin/bash\n",
	})()

	sess := BuildSession(0, map[string]string{})
	if sess.NologinMessage != "" {
		t.Fatalf("unexpected nologin message: %q", sess.NologinMessage)
	}
	if sess.Env["HOME"] != "/root" {
		t.Errorf("HOME = %q", sess.Env["HOME"])
	}
	if sess.Env["SHELL"] != "/bin/bash" {
		t.Errorf("SHELL = %q", sess.Env["SHELL"])
	}
	if sess.Env["TERM"] != "dumb" {
		t.Errorf("TERM = %q", sess.Env["TERM"])
	}
	if sess.Env["PATH"] != "/sbin:/bin:/usr/sbin:/usr/bin" {
		t.Errorf("PATH = %q", sess.Env["PATH"])
	}
}

func TestBuildSessionKeepsExistingHome(t *testing.T) {
	defer withMemFs(t, map[string]string{
		"/etc/passwd": "root:x:0:0:root:/root:/bin/bash\n",
	})()

	sess := BuildSession(0, map[string]string{"HOME": "/custom"})
	if sess.Env["HOME"] != "/custom" {
		t.Errorf("HOME = %q, want unchanged", sess.Env["HOME"])
	}
}

func TestBuildSessionNologin(t *testing.T) {
	defer withMemFs(t, map[string]string{
		"/etc/nologin": "no logins right now\n",
		"/etc/passwd":  "user:x:1000:1000:User:/home/user:/bin/sh\n",
	})()

	sess := BuildSession(1000, map[string]string{})
	if !strings.Contains(sess.NologinMessage, "no logins") {
		t.Errorf("NologinMessage = %q", sess.NologinMessage)
	}
}

func TestChooseShellFallsBackToBinSh(t *testing.T) {
	defs := Params{}
	if got := ChooseShell(defs, map[string]string{}); got != "/bin/sh" {
		t.Errorf("ChooseShell() = %q, want /bin/sh", got)
	}
}

func TestBuildArgvNoCommandLogin(t *testing.T) {
	argv := BuildArgv("/bin/sh", true, nil)
	if len(argv) != 1 || argv[0] != "-sh" {
		t.Errorf("BuildArgv() = %v", argv)
	}
}

func TestBuildArgvCommandWithSpace(t *testing.T) {
	argv := BuildArgv("/bin/sh", false, []string{"echo hello"})
	if argv[0] != "sh" || argv[1] != "-c" || argv[2] != "echo hello" {
		t.Errorf("BuildArgv() = %v", argv)
	}
}
