// Command build_from_sqlite reads a directory of per-book SQLite source
// files and writes the five structural artifacts every later build stage
// depends on: books.bin (raw page text), pages.idx, books.idx,
// chapters.idx, and titles.bin.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/jamharah/jamharah/internal/bookindex"
	"github.com/jamharah/jamharah/internal/closeutil"
	"github.com/jamharah/jamharah/internal/sourcedb"
	"github.com/jamharah/jamharah/internal/textstore"
)

func main() {
	app := &cli.App{
		Name:      "build_from_sqlite",
		Usage:     "build books.bin, pages.idx, books.idx, chapters.idx, titles.bin from a directory of per-book SQLite files",
		ArgsUsage: "<books_dir> <out_dir>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "block-size",
				Usage: "books.bin nominal block size in bytes",
				Value: textstore.DefaultBlockSize,
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
		return cli.Exit(fmt.Errorf("usage: build_from_sqlite <books_dir> <out_dir>"), 1)
	}
	booksDir := c.Args().Get(0)
	outDir := c.Args().Get(1)
	blockSize := uint32(c.Int("block-size"))

	startedAt := time.Now()
	defer func() { klog.Infof("build_from_sqlite finished in %s", time.Since(startedAt)) }()

	src, err := sourcedb.OpenSQLiteSource(booksDir)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer src.Close()

	books, err := src.Books()
	if err != nil {
		return cli.Exit(err, 1)
	}
	klog.Infof("found %d source books in %s", len(books), booksDir)

	tw, err := textstore.NewWriter(filepath.Join(outDir, "books.bin"), blockSize)
	if err != nil {
		return cli.Exit(err, 1)
	}

	var bookEntries []bookindex.BookIndexEntry
	var chapterEntries []bookindex.ChapterIndexEntry
	var pageEntries []bookindex.PageIndexEntry
	var titles []string

	nextPageID := uint32(0)
	nextChapterID := uint32(0)
	textCursor := uint64(0)

	for bookID, book := range books {
		chapters, err := src.Chapters(book)
		if err != nil {
			return closeTextStoreAnd(tw, cli.Exit(err, 1))
		}
		pages, err := src.Pages(book)
		if err != nil {
			return closeTextStoreAnd(tw, cli.Exit(err, 1))
		}

		bookTitle := book.Title
		if bookTitle == "" {
			bookTitle = book.SourceID
		}
		bookTitleIndex := uint32(len(titles))
		titles = append(titles, bookTitle)

		firstChapterID := nextChapterID
		firstPageID := nextPageID
		bookTextStart := textCursor

		chapterFirstPage := make([]uint32, len(chapters))
		chapterPageCount := make([]uint32, len(chapters))

		for _, page := range pages {
			loc, err := tw.Append([]byte(page.Text))
			if err != nil {
				return closeTextStoreAnd(tw, cli.Exit(err, 1))
			}
			pageEntries = append(pageEntries, bookindex.PageIndexEntry{
				PageID:        nextPageID,
				BookID:        uint32(bookID),
				ChapterID:     firstChapterID + page.ChapterOrdinal,
				PageNumber:    page.PageNumber,
				BlockID:       loc.BlockID,
				OffsetInBlock: loc.OffsetInBlock,
				Length:        loc.Length,
			})
			if int(page.ChapterOrdinal) < len(chapters) {
				if chapterPageCount[page.ChapterOrdinal] == 0 {
					chapterFirstPage[page.ChapterOrdinal] = nextPageID
				}
				chapterPageCount[page.ChapterOrdinal]++
			}
			nextPageID++
			textCursor += uint64(len(page.Text))
		}

		for i, ch := range chapters {
			titleIndex := uint32(len(titles))
			titles = append(titles, ch.Title)
			chapterEntries = append(chapterEntries, bookindex.ChapterIndexEntry{
				ChapterID:          firstChapterID + ch.Ordinal,
				BookID:             uint32(bookID),
				Ordinal:            ch.Ordinal,
				StartingPageNumber: ch.StartingPageNumber,
				FirstPageID:        chapterFirstPage[i],
				PageCount:          chapterPageCount[i],
				TitleIndex:         titleIndex,
			})
		}
		nextChapterID += uint32(len(chapters))

		bookEntries = append(bookEntries, bookindex.BookIndexEntry{
			BookID:       uint32(bookID),
			FirstPageID:  firstPageID,
			PageCount:    nextPageID - firstPageID,
			FirstChapter: firstChapterID,
			ChapterCount: uint32(len(chapters)),
			TitleIndex:   bookTitleIndex,
			TextOffset:   bookTextStart,
			TextLength:   textCursor - bookTextStart,
		})
		klog.Infof("book %d (%s): %d pages, %d chapters", bookID, book.SourceID, len(pages), len(chapters))
	}

	if err := tw.Close(); err != nil {
		return cli.Exit(err, 1)
	}
	if err := bookindex.BuildPages(filepath.Join(outDir, "pages.idx"), pageEntries); err != nil {
		return cli.Exit(err, 1)
	}
	if err := bookindex.BuildBooks(filepath.Join(outDir, "books.idx"), bookEntries); err != nil {
		return cli.Exit(err, 1)
	}
	if err := bookindex.BuildChapters(filepath.Join(outDir, "chapters.idx"), chapterEntries); err != nil {
		return cli.Exit(err, 1)
	}
	if err := bookindex.BuildTitles(filepath.Join(outDir, "titles.bin"), titles); err != nil {
		return cli.Exit(err, 1)
	}

	klog.Infof("wrote %d books, %d chapters, %d pages, %d titles", len(bookEntries), len(chapterEntries), len(pageEntries), len(titles))
	return nil
}

func closeTextStoreAnd(tw *textstore.Writer, retErr error) error {
	chain := new(closeutil.Chain)
	chain.Close(tw.Close)
	if cerr := chain.Err(); cerr != nil {
		klog.Errorf("cleanup after failure: %v", cerr)
	}
	return retErr
}
