// Command aufs2ovlfs translates an AUFS layer directory's whiteout
// markers into overlayfs whiteouts and opaque-directory xattrs in place.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/NVIDIA/enroot/cliutil"
	"github.com/NVIDIA/enroot/overlay"
)

const prog = "aufs2ovlfs"

func main() {
	app := cli.NewApp()
	app.Name = prog
	app.Usage = "translate AUFS whiteouts in DIR to overlayfs whiteouts"
	app.UsageText = fmt.Sprintf("%s DIR", prog)
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		cliutil.FatalErr(prog, "failed", err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		cliutil.Fatalf(prog, "expected exactly one DIR argument")
	}

	if err := overlay.Translate(c.Args().Get(0)); err != nil {
		cliutil.FatalErr(prog, "translation failed", err)
	}
	return nil
}
