// Command build_postings consumes a sorted occurrence stream and writes
// postings.bin: one positional postings block per distinct word.
package main

import (
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/jamharah/jamharah/internal/occurrence"
	"github.com/jamharah/jamharah/internal/postings"
)

func main() {
	app := &cli.App{
		Name:      "build_postings",
		Usage:     "build postings.bin from a sorted occurrence stream",
		ArgsUsage: "<occurrences.sorted.tmp> <postings.bin>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "zstd",
				Usage: "store each postings block as its own zstd frame",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		klog.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: build_postings <occurrences.sorted.tmp> <postings.bin>", 1)
	}
	sortedPath := c.Args().Get(0)
	postingsPath := c.Args().Get(1)

	mode := postings.Plain
	if c.Bool("zstd") {
		mode = postings.Zstd
	}

	startedAt := time.Now()
	defer func() { klog.Infof("build_postings finished in %s", time.Since(startedAt)) }()

	in, err := os.Open(sortedPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer in.Close()
	reader := occurrence.NewReader(in)

	next := func() (uint64, uint32, uint32, bool, error) {
		t, ok, err := reader.Next()
		if err != nil || !ok {
			return 0, 0, 0, false, err
		}
		return t.WordHash, t.PageID, t.Position, true, nil
	}

	w, err := postings.NewWriter(postingsPath, mode)
	if err != nil {
		return cli.Exit(err, 1)
	}

	blocks, err := postings.Build(next, w)
	if err != nil {
		w.Close()
		return cli.Exit(err, 1)
	}
	if err := w.Close(); err != nil {
		return cli.Exit(err, 1)
	}
	klog.Infof("wrote %d word blocks to %s", len(blocks), postingsPath)
	return nil
}
