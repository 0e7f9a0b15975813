// Command nsenter joins (or creates) a set of namespaces, optionally
// loads an environment file and changes directory, then execs a command.
package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/sys/unix"

	"github.com/NVIDIA/enroot/capability"
	"github.com/NVIDIA/enroot/cliutil"
	"github.com/NVIDIA/enroot/envfile"
	"github.com/NVIDIA/enroot/fdutil"
	"github.com/NVIDIA/enroot/nssetup"
	"github.com/NVIDIA/enroot/pidfd"
)

const prog = "nsenter"

func main() {
	app := cli.NewApp()
	app.Name = prog
	app.Usage = "enter or create namespaces and exec a command inside them"
	app.UsageText = fmt.Sprintf("%s [--target PID] [--user] [--mount] [--remap-root] [--envfile FILE] [--workdir DIR] CMD [ARG...]", prog)
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "target", Usage: "PID of the namespaces to join, instead of creating new ones"},
		cli.BoolFlag{Name: "user", Usage: "join or create a user namespace"},
		cli.BoolFlag{Name: "mount", Usage: "join or create a mount namespace"},
		cli.BoolFlag{Name: "remap-root", Usage: "map container root to the real uid/gid instead of spoofing it"},
		cli.StringFlag{Name: "envfile", Usage: "replace the environment from this KEY=VAL file"},
		cli.StringFlag{Name: "workdir", Usage: "chdir here before exec"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		cliutil.FatalErr(prog, "failed", err)
	}
}

// nsFiles lists the /proc/<pid>/ns entries to join, in the order §4.3
// requires: user, mnt, cgroup.
var nsFiles = []struct {
	name string
	flag int
}{
	{"user", unix.CLONE_NEWUSER},
	{"mnt", unix.CLONE_NEWNS},
	{"cgroup", unix.CLONE_NEWCGROUP},
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		cliutil.Fatalf(prog, "missing command")
	}
	argv := []string(c.Args())

	if target := c.Int("target"); target > 0 {
		if err := joinTarget(target, c.Bool("user"), c.Bool("mount")); err != nil {
			cliutil.FatalErr(prog, "failed to join namespaces", err)
		}
	} else {
		opts := nssetup.Options{
			User:      c.Bool("user"),
			Mount:     c.Bool("mount"),
			RemapRoot: c.Bool("remap-root"),
		}
		if err := nssetup.Create(opts); err != nil {
			cliutil.FatalErr(prog, "namespace setup failed", err)
		}
	}

	envv := os.Environ()
	if f := c.String("envfile"); f != "" {
		loaded, err := envfile.Load(f)
		if err != nil {
			cliutil.FatalErr(prog, "failed to load environment", err)
		}
		envv = envv[:0]
		for k, v := range loaded {
			envv = append(envv, k+"="+v)
		}
	}

	if dir := c.String("workdir"); dir != "" {
		if err := os.Chdir(dir); err != nil {
			cliutil.FatalErr(prog, "chdir failed", err)
		}
	}

	if err := fdutil.CloseFrom(3); err != nil {
		logrus.WithError(err).Warn("failed to close inherited file descriptors")
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		cliutil.FatalErr(prog, "command not found", err)
	}

	if err := unix.Exec(path, argv, envv); err != nil {
		cliutil.FatalErr(prog, "exec failed", err)
	}
	return nil
}

// joinTarget opens /proc/<pid>/ns/{user,mnt,cgroup} in order and calls
// setns on each that the caller asked to join (cgroup is always joined
// when present; a missing cgroup ns file is not an error on pre-4.6
// kernels).
func joinTarget(pid int, wantUser, wantMount bool) error {
	guard, err := pidfd.OpenGuard(pid)
	if err != nil {
		return fmt.Errorf("open pidfd for %d: %w", pid, err)
	}

	b, err := capability.Raise(capability.CAP_SYS_ADMIN)
	if err != nil {
		return fmt.Errorf("raise CAP_SYS_ADMIN: %w", err)
	}
	defer b.Release()

	for _, ns := range nsFiles {
		want := true
		switch ns.flag {
		case unix.CLONE_NEWUSER:
			want = wantUser
		case unix.CLONE_NEWNS:
			want = wantMount
		}
		if !want {
			continue
		}

		path := fmt.Sprintf("/proc/%d/ns/%s", pid, ns.name)
		fd, err := unix.Open(path, unix.O_RDONLY, 0)
		if err != nil {
			if os.IsNotExist(err) && ns.name == "cgroup" {
				continue
			}
			return fmt.Errorf("open %s: %w", path, err)
		}
		err = unix.Setns(fd, ns.flag)
		unix.Close(fd)
		if err != nil {
			return fmt.Errorf("setns %s: %w", ns.name, err)
		}
	}

	if !guard.StillAlive() {
		return fmt.Errorf("pid %d exited during namespace join (pid reused)", pid)
	}
	return nil
}
