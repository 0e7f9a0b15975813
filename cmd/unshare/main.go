// Command unshare creates a user and/or mount namespace, sets up ambient
// capabilities or the ID-spoofing seccomp filter, and execs the given
// command inside it.
package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/sys/unix"

	"github.com/NVIDIA/enroot/cliutil"
	"github.com/NVIDIA/enroot/nssetup"
)

const prog = "unshare"

func main() {
	app := cli.NewApp()
	app.Name = prog
	app.Usage = "create namespaces and exec a command inside them"
	app.UsageText = fmt.Sprintf("%s [--user] [--mount] [--remap-root] CMD [ARG...]", prog)
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "user", Usage: "create a new user namespace"},
		cli.BoolFlag{Name: "mount", Usage: "create a new mount namespace"},
		cli.BoolFlag{Name: "remap-root", Usage: "map container root to the real uid/gid instead of spoofing it"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		cliutil.FatalErr(prog, "failed", err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		cliutil.Fatalf(prog, "missing command")
	}
	argv := c.Args()

	opts := nssetup.Options{
		User:      c.Bool("user"),
		Mount:     c.Bool("mount"),
		RemapRoot: c.Bool("remap-root"),
	}

	if err := nssetup.Create(opts); err != nil {
		cliutil.FatalErr(prog, "namespace setup failed", err)
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		cliutil.FatalErr(prog, "command not found", err)
	}

	logrus.WithField("argv", []string(argv)).Debug("exec")
	if err := unix.Exec(path, []string(argv), os.Environ()); err != nil {
		cliutil.FatalErr(prog, "exec failed", err)
	}
	return nil
}
