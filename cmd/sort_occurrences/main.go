// Command sort_occurrences runs the external merge sort over a raw
// occurrence stream, producing one in (word_hash, page_id, position)
// ascending order for the postings builder to consume.
package main

import (
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"k8s.io/klog/v2"

	"github.com/jamharah/jamharah/internal/extsort"
	"github.com/jamharah/jamharah/internal/occurrence"
)

func main() {
	app := &cli.App{
		Name:      "sort_occurrences",
		Usage:     "externally sort a raw occurrence stream into word_hash order",
		ArgsUsage: "<in> <out>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "tmp-dir",
				Usage: "directory for spilled sort runs",
				Value: os.TempDir(),
			},
			&cli.IntFlag{
				Name:  "run-bytes",
				Usage: "in-core run size bound, in bytes",
				Value: extsort.DefaultRunBytes,
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "show a spinner on standard error while the spill-and-merge runs",
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
		return cli.Exit("usage: sort_occurrences <in> <out>", 1)
	}
	inPath := c.Args().Get(0)
	outPath := c.Args().Get(1)
	tmpDir := c.String("tmp-dir")
	runBytes := c.Int("run-bytes")

	startedAt := time.Now()
	defer func() { klog.Infof("sort_occurrences finished in %s", time.Since(startedAt)) }()

	in, err := os.Open(inPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer in.Close()

	if info, err := in.Stat(); err == nil {
		klog.Infof("sorting %s of raw occurrences (run size %s)", humanize.Bytes(uint64(info.Size())), humanize.Bytes(uint64(runBytes)))
	}

	out, err := os.Create(outPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer out.Close()

	reader := occurrence.NewReader(in)

	var progress *mpb.Progress
	var bar *mpb.Bar
	if c.Bool("progress") {
		progress = mpb.New(mpb.WithWidth(64))
		bar = progress.AddBar(0,
			mpb.PrependDecorators(decor.Name("spilling and merging runs")),
			mpb.AppendDecorators(decor.Elapsed(decor.ET_STYLE_GO, 0)),
			mpb.BarFillerClearOnComplete(),
		)
		bar.SetTotal(-1, false)
	}

	sortErr := extsort.Sort(reader, out, tmpDir, runBytes)

	if bar != nil {
		bar.SetTotal(-1, true)
		progress.Wait()
	}
	if sortErr != nil {
		return cli.Exit(sortErr, 1)
	}
	if info, err := out.Stat(); err == nil {
		klog.Infof("external sort complete: wrote %s", humanize.Bytes(uint64(info.Size())))
	} else {
		klog.Info("external sort complete")
	}
	return nil
}
