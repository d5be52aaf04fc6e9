// Command search_snippets reads a query from standard input and prints a
// human-readable block per hit, each with a contextual snippet of the
// matching page bracketed by «…». It resolves page text through books.bin
// and pages.idx, and prints the page's comments and highlights from an
// optional --anno annotations file (formatting entries are not printed).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/jamharah/jamharah/internal/anno"
	"github.com/jamharah/jamharah/internal/bookindex"
	"github.com/jamharah/jamharah/internal/dictionary"
	"github.com/jamharah/jamharah/internal/postings"
	"github.com/jamharah/jamharah/internal/query"
	"github.com/jamharah/jamharah/internal/textstore"
)

const (
	boundaryTailBytes = 80
	boundaryHeadBytes = 160
)

func main() {
	app := &cli.App{
		Name:      "search_snippets",
		Usage:     "print a contextual snippet per ranked hit",
		ArgsUsage: "<books.bin> <pages.idx> <words.idx> <postings.bin> <offset> <limit>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "exact",
				Usage: "require the literal query string verbatim; skip the normalized-token fallback snippet",
			},
			&cli.StringFlag{
				Name:  "anno",
				Usage: "path to an optional .jhanno annotations file",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		klog.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 6 {
		return cli.Exit("usage: search_snippets <books.bin> <pages.idx> <words.idx> <postings.bin> <offset> <limit> [--exact]", 1)
	}
	booksPath := c.Args().Get(0)
	pagesPath := c.Args().Get(1)
	dictPath := c.Args().Get(2)
	postingsPath := c.Args().Get(3)
	offset := c.Args().Get(4)
	limit := c.Args().Get(5)
	exact := c.Bool("exact")

	offsetN, err := parseNonNegative(offset)
	if err != nil {
		return cli.Exit(err, 1)
	}
	limitN, err := parseNonNegative(limit)
	if err != nil {
		return cli.Exit(err, 1)
	}

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

	dict, err := dictionary.Open(dictPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer dict.Close()

	pf, err := postings.Open(postingsPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer pf.Close()

	var annotations *anno.Set
	if annoPath := c.String("anno"); annoPath != "" {
		annotations, err = anno.Load(annoPath)
		if err != nil {
			return cli.Exit(err, 1)
		}
	} else {
		annotations = &anno.Set{}
	}

	cache, err := query.NewLookupCache(4096)
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
		if err := renderQuery(cache, dictPath, dict, pf, pagesIdx, books, annotations, line, exact, offsetN, limitN); err != nil {
			return cli.Exit(err, 1)
		}
	}
	return scanner.Err()
}

func parseNonNegative(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n < 0 {
		return 0, fmt.Errorf("invalid non-negative integer %q", s)
	}
	return n, nil
}

func renderQuery(
	cache *query.LookupCache,
	dictPath string,
	dict *dictionary.Reader,
	pf *postings.File,
	pagesIdx *bookindex.PagesReader,
	books *textstore.Reader,
	annotations *anno.Set,
	line string,
	exact bool,
	offset, limit int,
) error {
	terms, _, err := query.Tokenize(line)
	if err != nil {
		return err
	}

	hits, err := query.Search(cache, dictPath, dict, pf, line)
	if err != nil {
		return err
	}
	if offset > len(hits) {
		offset = len(hits)
	}
	hits = hits[offset:]
	if limit > 0 && limit < len(hits) {
		hits = hits[:limit]
	}

	for _, h := range hits {
		entry, err := pagesIdx.Lookup(h.PageID)
		if err != nil {
			return err
		}
		text, err := books.ReadLocator(entry.Locator())
		if err != nil {
			return err
		}

		snippet, found := query.LiteralSnippet(text, line, query.SnippetContextBytes)
		if !found {
			snippet, found = boundarySnippet(pagesIdx, books, entry, line)
		}
		if !found && !exact {
			snippet, found = query.TokenSnippet(text, terms, query.SnippetContextBytes)
		}
		if !found {
			snippet = "(no contextual snippet)"
		}

		fmt.Printf("page_id=%d book_id=%d chapter_id=%d score=%g\n", h.PageID, entry.BookID, entry.ChapterID, h.Score)
		fmt.Printf("  %s\n", snippet)
		for _, note := range annotations.CommentsFor(h.PageID) {
			fmt.Printf("  comment: %s\n", note.Text)
		}
		for _, note := range annotations.HighlightsFor(h.PageID) {
			fmt.Printf("  highlight: %s\n", note.Text)
		}
	}
	return nil
}

// boundarySnippet tries the next page in the same book, in case the
// literal query string straddles the page boundary.
func boundarySnippet(pagesIdx *bookindex.PagesReader, books *textstore.Reader, entry bookindex.PageIndexEntry, line string) (string, bool) {
	next, err := pagesIdx.Lookup(entry.PageID + 1)
	if err != nil || next.BookID != entry.BookID {
		return "", false
	}
	curText, err := books.ReadLocator(entry.Locator())
	if err != nil {
		return "", false
	}
	nextText, err := books.ReadLocator(next.Locator())
	if err != nil {
		return "", false
	}
	return query.BoundarySnippet(curText, nextText, line, query.SnippetContextBytes, boundaryTailBytes, boundaryHeadBytes)
}
