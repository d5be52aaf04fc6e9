// Command build_words_index builds words.idx by walking a sorted
// occurrence stream and an already-built postings.bin in lockstep: both
// advance through the same word_hash-ordered sequence of words, so each
// occurrence group's hash and triple count pairs directly with the next
// block the walker yields.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/jamharah/jamharah/internal/dictionary"
	"github.com/jamharah/jamharah/internal/jherr"
	"github.com/jamharah/jamharah/internal/occurrence"
	"github.com/jamharah/jamharah/internal/postings"
)

func main() {
	app := &cli.App{
		Name:      "build_words_index",
		Usage:     "build words.idx from a sorted occurrence stream and postings.bin",
		ArgsUsage: "<occurrences.sorted.tmp> <postings.bin> <words.idx>",
		Action:    run,
	}
	if err := app.Run(os.Args); err != nil {
		klog.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 3 {
		return cli.Exit("usage: build_words_index <occurrences.sorted.tmp> <postings.bin> <words.idx>", 1)
	}
	sortedPath := c.Args().Get(0)
	postingsPath := c.Args().Get(1)
	dictPath := c.Args().Get(2)

	startedAt := time.Now()
	defer func() { klog.Infof("build_words_index finished in %s", time.Since(startedAt)) }()

	in, err := os.Open(sortedPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer in.Close()
	reader := occurrence.NewReader(in)

	pf, err := postings.Open(postingsPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer pf.Close()
	walker := pf.NewBlockWalker()

	blocks, err := collectWordBlocks(reader, walker)
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err := dictionary.Build(dictPath, blocks); err != nil {
		return cli.Exit(err, 1)
	}
	klog.Infof("wrote %d dictionary entries to %s", len(blocks), dictPath)
	return nil
}

func collectWordBlocks(reader *occurrence.Reader, walker *postings.BlockWalker) ([]postings.WordBlock, error) {
	var blocks []postings.WordBlock
	haveWord := false
	var curHash uint64
	var curCount uint64

	flush := func() error {
		if !haveWord {
			return nil
		}
		loc, ok, err := walker.Next()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: postings.bin has fewer blocks than the occurrence stream has distinct words", jherr.InvalidFormat)
		}
		blocks = append(blocks, postings.WordBlock{WordHash: curHash, Location: loc, PostingsCount: curCount})
		return nil
	}

	for {
		t, ok, err := reader.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if !haveWord || t.WordHash != curHash {
			if err := flush(); err != nil {
				return nil, err
			}
			curHash = t.WordHash
			curCount = 0
			haveWord = true
		}
		curCount++
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return blocks, nil
}
