// Command build_occurrences tokenizes every page in a built text store and
// emits the raw (word_hash, page_id, position) occurrence stream the
// external sort stage consumes.
package main

import (
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"k8s.io/klog/v2"

	"github.com/jamharah/jamharah/internal/bookindex"
	"github.com/jamharah/jamharah/internal/occurrence"
	"github.com/jamharah/jamharah/internal/textstore"
)

func main() {
	app := &cli.App{
		Name:      "build_occurrences",
		Usage:     "tokenize books.bin pages and emit the raw occurrence stream",
		ArgsUsage: "<books.bin> <pages.idx> <occurrences.tmp>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "show a page-loading progress bar on standard error",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		klog.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 3 {
		return cli.Exit("usage: build_occurrences <books.bin> <pages.idx> <occurrences.tmp>", 1)
	}
	booksPath := c.Args().Get(0)
	pagesPath := c.Args().Get(1)
	outPath := c.Args().Get(2)

	startedAt := time.Now()
	defer func() { klog.Infof("build_occurrences finished in %s", time.Since(startedAt)) }()

	books, err := textstore.Open(booksPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer books.Close()

	pagesIdx, err := bookindex.OpenPages(pagesPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer pagesIdx.Close()

	entries, err := pagesIdx.All()
	if err != nil {
		return cli.Exit(err, 1)
	}

	var bar *mpb.Bar
	var progress *mpb.Progress
	if c.Bool("progress") {
		progress = mpb.New(mpb.WithWidth(64))
		bar = progress.AddBar(int64(len(entries)),
			mpb.PrependDecorators(decor.Name("loading pages")),
			mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
		)
	}

	pages := make([]occurrence.Page, len(entries))
	var totalBytes uint64
	for i, e := range entries {
		text, err := books.ReadLocator(e.Locator())
		if err != nil {
			return cli.Exit(err, 1)
		}
		pages[i] = occurrence.Page{PageID: e.PageID, Text: text}
		totalBytes += uint64(len(text))
		if bar != nil {
			bar.Increment()
		}
	}
	if progress != nil {
		progress.Wait()
	}
	klog.Infof("loaded %s pages (%s of page text)", humanize.Comma(int64(len(pages))), humanize.Bytes(totalBytes))

	w, err := occurrence.NewWriter(outPath)
	if err != nil {
		return cli.Exit(err, 1)
	}

	workerCount := occurrence.WorkerCount(len(pages), threadsOverride())
	klog.Infof("emitting occurrences for %s pages with %d workers", humanize.Comma(int64(len(pages))), workerCount)
	if err := occurrence.Emit(pages, w, workerCount, occurrence.HashSeed); err != nil {
		w.Close()
		return cli.Exit(err, 1)
	}
	if err := w.Close(); err != nil {
		return cli.Exit(err, 1)
	}
	klog.Info("occurrence emission complete")
	return nil
}

// threadsOverride reads JH_OCC_THREADS, returning 0 (meaning "auto-detect")
// if unset or not a positive integer.
func threadsOverride() int {
	v := os.Getenv("JH_OCC_THREADS")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		klog.Warningf("ignoring invalid JH_OCC_THREADS=%q", v)
		return 0
	}
	return n
}
