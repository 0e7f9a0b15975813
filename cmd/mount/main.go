// Command mount reads one or more fstab-style files and performs the
// mounts they describe under a target root.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/NVIDIA/enroot/cliutil"
	"github.com/NVIDIA/enroot/fstab"
	"github.com/NVIDIA/enroot/mountengine"
)

const prog = "mount"

func main() {
	app := cli.NewApp()
	app.Name = prog
	app.Usage = "mount the entries described by one or more fstab files"
	app.UsageText = fmt.Sprintf("%s [--root DIR] [--pass N] FSTAB... | -", prog)
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "root", Value: "/", Usage: "root directory mount targets are resolved under"},
		cli.IntFlag{Name: "pass", Value: fstab.NoPassFilter, Usage: "only run entries whose pass number matches"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		cliutil.FatalErr(prog, "failed", err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		cliutil.Fatalf(prog, "missing FSTAB argument")
	}

	var entries []fstab.Entry
	for _, path := range c.Args() {
		parsed, err := fstab.ParseFile(path, c.Int("pass"))
		if err != nil {
			cliutil.FatalErr(prog, fmt.Sprintf("failed to parse %s", path), err)
		}
		entries = append(entries, parsed...)
	}

	runner := &mountengine.Runner{
		RootDir: c.String("root"),
		Warn: func(e fstab.Entry, err error) {
			cliutil.Warnf(prog, "%s on %s: %v", e.Source, e.Target, err)
		},
	}

	if err := runner.Run(entries); err != nil {
		cliutil.FatalErr(prog, "mount failed", err)
	}
	return nil
}
