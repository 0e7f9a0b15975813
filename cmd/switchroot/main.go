// Command switchroot pivots into a prepared root filesystem, drops
// privileges, optionally runs the init/login subroutine, and execs the
// target shell or command.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"
	"golang.org/x/sys/unix"

	"github.com/NVIDIA/enroot/capability"
	"github.com/NVIDIA/enroot/cliutil"
	"github.com/NVIDIA/enroot/envfile"
	"github.com/NVIDIA/enroot/fdutil"
	"github.com/NVIDIA/enroot/login"
	"github.com/NVIDIA/enroot/switchroot"
)

const prog = "switchroot"

func main() {
	app := cli.NewApp()
	app.Name = prog
	app.Usage = "pivot into a rootfs and exec the container's init"
	app.UsageText = fmt.Sprintf("%s [--login] [--env FILE] ROOTFS [COMMAND [ARG...]]", prog)
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "login", Usage: "run the init/login subroutine before exec"},
		cli.StringFlag{Name: "env", Usage: "replace the environment from this KEY=VAL file before anything else"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		cliutil.FatalErr(prog, "failed", err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		cliutil.Fatalf(prog, "missing ROOTFS argument")
	}
	args := []string(c.Args())
	rootfs := args[0]
	command := args[1:]

	if envPath := c.String("env"); envPath != "" {
		env, err := envfile.Load(envPath)
		if err != nil {
			cliutil.FatalErr(prog, "failed to load environment", err)
		}
		if err := envfile.Apply(env); err != nil {
			cliutil.FatalErr(prog, "failed to apply environment", err)
		}
	}

	lastCap, err := capability.LastCap()
	if err != nil {
		cliutil.FatalErr(prog, "failed to read cap_last_cap", err)
	}

	if err := switchroot.Switch(rootfs); err != nil {
		cliutil.FatalErr(prog, "switch_root failed", err)
	}

	if err := capability.DropPrivileges(lastCap); err != nil {
		cliutil.FatalErr(prog, "failed to drop privileges", err)
	}

	if err := fdutil.CloseFrom(3); err != nil {
		cliutil.Warnf(prog, "failed to close inherited file descriptors: %v", err)
	}

	env := mapFromEnviron(os.Environ())
	defs := login.Params{}

	if c.Bool("login") {
		sess := login.BuildSession(uint32(unix.Geteuid()), env)
		if sess.NologinMessage != "" {
			fmt.Print(sess.NologinMessage)
			os.Exit(0)
		}
		env = sess.Env
		unix.Umask(int(sess.Umask))
		if sess.RLimitFsize != nil {
			rlim := unix.Rlimit{Cur: *sess.RLimitFsize, Max: *sess.RLimitFsize}
			if err := unix.Setrlimit(unix.RLIMIT_FSIZE, &rlim); err != nil {
				cliutil.Warnf(prog, "failed to set RLIMIT_FSIZE: %v", err)
			}
		}
		if err := os.Chdir(sess.HomeDir); err != nil {
			if sess.HomeDirFatal {
				cliutil.FatalErr(prog, "failed to chdir to $HOME", err)
			}
			cliutil.Warnf(prog, "failed to chdir to $HOME: %v", err)
		}
		if loaded, err := login.ParseParams("/etc/login.defs"); err == nil {
			defs = loaded
		}
	}

	shell := login.ChooseShell(defs, env)
	argv := login.BuildArgv(shell, c.Bool("login"), command)

	if c.Bool("login") && len(command) == 0 {
		printMOTD(defs)
	}

	envv := make([]string, 0, len(env))
	for k, v := range env {
		envv = append(envv, k+"="+v)
	}

	if err := unix.Exec(shell, argv, envv); err != nil {
		cliutil.FatalErr(prog, "exec failed", err)
	}
	return nil
}

func mapFromEnviron(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}

func printMOTD(defs login.Params) {
	for _, path := range login.MOTDFiles(defs) {
		data, err := os.ReadFile(path)
		if err == nil {
			os.Stdout.Write(data)
		}
	}
}
