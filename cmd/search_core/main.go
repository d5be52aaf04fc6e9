// Command search_core reads a query from standard input and prints ranked
// hits against one or more (words.idx, postings.bin) category pairs. With a
// single pair it prints "page_id score" lines; with multiple pairs it
// prints "category_index page_id" lines in category order.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/jamharah/jamharah/internal/dictionary"
	"github.com/jamharah/jamharah/internal/jherr"
	"github.com/jamharah/jamharah/internal/postings"
	"github.com/jamharah/jamharah/internal/query"
)

func main() {
	app := &cli.App{
		Name:      "search_core",
		Usage:     "rank pages matching a query against one or more (words.idx, postings.bin) pairs",
		ArgsUsage: "<words.idx> <postings.bin> [<words.idx> <postings.bin>...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "cache-size",
				Usage: "dictionary lookup cache size, in entries",
				Value: 4096,
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		klog.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 || c.NArg()%2 != 0 {
		return cli.Exit(fmt.Errorf("%w: expected an even number of <words.idx> <postings.bin> paths", jherr.UsageError), 1)
	}

	var dictPaths []string
	var dicts []*dictionary.Reader
	var pfiles []*postings.File
	defer func() {
		for _, d := range dicts {
			d.Close()
		}
		for _, p := range pfiles {
			p.Close()
		}
	}()

	for i := 0; i < c.NArg(); i += 2 {
		dictPath := c.Args().Get(i)
		postingsPath := c.Args().Get(i + 1)
		d, err := dictionary.Open(dictPath)
		if err != nil {
			return cli.Exit(err, 1)
		}
		dicts = append(dicts, d)
		p, err := postings.Open(postingsPath)
		if err != nil {
			return cli.Exit(err, 1)
		}
		pfiles = append(pfiles, p)
		dictPaths = append(dictPaths, dictPath)
	}

	cache, err := query.NewLookupCache(c.Int("cache-size"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := runQuery(cache, dictPaths, dicts, pfiles, line); err != nil {
			return cli.Exit(err, 1)
		}
	}
	if err := scanner.Err(); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func runQuery(cache *query.LookupCache, dictPaths []string, dicts []*dictionary.Reader, pfiles []*postings.File, line string) error {
	if len(dicts) == 1 {
		hits, err := query.Search(cache, dictPaths[0], dicts[0], pfiles[0], line)
		if err != nil {
			return err
		}
		for _, h := range hits {
			fmt.Printf("%d %g\n", h.PageID, h.Score)
		}
		return nil
	}

	categories := make([]query.Category, len(dicts))
	for i := range dicts {
		categories[i] = query.Category{Dictionary: dicts[i], Postings: pfiles[i]}
	}
	results, err := query.MultiCategory(cache, dictPaths, categories, line)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("%d %d\n", r.CategoryIndex, r.Hit.PageID)
	}
	return nil
}
