// Command build_index_pipeline drives every build stage in order — source
// extraction, occurrence emission, external sort, postings construction,
// and dictionary construction — against a single books_dir/out_dir pair.
// It is a convenience wrapper: each stage is also runnable standalone via
// its own cmd/*.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/jamharah/jamharah/internal/bookindex"
	"github.com/jamharah/jamharah/internal/dictionary"
	"github.com/jamharah/jamharah/internal/extsort"
	"github.com/jamharah/jamharah/internal/occurrence"
	"github.com/jamharah/jamharah/internal/postings"
	"github.com/jamharah/jamharah/internal/sourcedb"
	"github.com/jamharah/jamharah/internal/textstore"
)

func main() {
	app := &cli.App{
		Name:      "build_index_pipeline",
		Usage:     "run build_from_sqlite, build_occurrences, sort_occurrences, build_postings, and build_words_index in sequence",
		ArgsUsage: "<books_dir> <out_dir>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "block-size",
				Usage: "books.bin nominal block size in bytes",
				Value: textstore.DefaultBlockSize,
			},
			&cli.StringFlag{
				Name:  "tmp-dir",
				Usage: "parent directory for this run's scratch files",
				Value: os.TempDir(),
			},
			&cli.IntFlag{
				Name:  "run-bytes",
				Usage: "in-core run size bound for the external sort stage, in bytes",
				Value: extsort.DefaultRunBytes,
			},
			&cli.BoolFlag{
				Name:  "zstd",
				Usage: "store each postings block as its own zstd frame",
			},
			&cli.BoolFlag{
				Name:  "timing",
				Usage: "log per-stage duration at info level",
			},
			&cli.BoolFlag{
				Name:  "keep-scratch",
				Usage: "keep the run's occurrence scratch files instead of removing them when the run ends",
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
		return cli.Exit("usage: build_index_pipeline <books_dir> <out_dir>", 1)
	}
	booksDir := c.Args().Get(0)
	outDir := c.Args().Get(1)
	blockSize := uint32(c.Int("block-size"))
	runBytes := c.Int("run-bytes")
	mode := postings.Plain
	if c.Bool("zstd") {
		mode = postings.Zstd
	}
	timing := c.Bool("timing")
	log := newStageLogger(timing)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return cli.Exit(err, 1)
	}

	runDir := filepath.Join(c.String("tmp-dir"), "jamharah-build-"+uuid.NewString())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return cli.Exit(err, 1)
	}
	if !c.Bool("keep-scratch") {
		defer os.RemoveAll(runDir)
	}

	booksBin := filepath.Join(outDir, "books.bin")
	pagesIdx := filepath.Join(outDir, "pages.idx")
	postingsBin := filepath.Join(outDir, "postings.bin")
	wordsIdx := filepath.Join(outDir, "words.idx")
	rawOccurrences := filepath.Join(runDir, "occurrences.tmp")
	sortedOccurrences := filepath.Join(runDir, "occurrences.sorted.tmp")

	overallStart := time.Now()
	defer func() { klog.Infof("build_index_pipeline finished in %s", time.Since(overallStart)) }()

	if err := timeStage(log, "build_from_sqlite", func() error {
		return stageBuildFromSQLite(booksDir, outDir, blockSize)
	}); err != nil {
		return cli.Exit(err, 1)
	}

	if err := timeStage(log, "build_occurrences", func() error {
		return stageBuildOccurrences(booksBin, pagesIdx, rawOccurrences)
	}); err != nil {
		return cli.Exit(err, 1)
	}

	if err := timeStage(log, "sort_occurrences", func() error {
		return stageSortOccurrences(rawOccurrences, sortedOccurrences, runDir, runBytes)
	}); err != nil {
		return cli.Exit(err, 1)
	}

	if err := timeStage(log, "build_postings", func() error {
		return stageBuildPostings(sortedOccurrences, postingsBin, mode)
	}); err != nil {
		return cli.Exit(err, 1)
	}

	if err := timeStage(log, "build_words_index", func() error {
		return stageBuildWordsIndex(sortedOccurrences, postingsBin, wordsIdx)
	}); err != nil {
		return cli.Exit(err, 1)
	}

	klog.Infof("index built in %s: %s", outDir, outDir)
	return nil
}

func newStageLogger(timing bool) *slog.Logger {
	level := slog.LevelWarn
	if timing {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func timeStage(log *slog.Logger, name string, fn func() error) error {
	startedAt := time.Now()
	err := fn()
	log.Info("stage complete", "stage", name, "elapsed", time.Since(startedAt).String(), "err", errString(err))
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func stageBuildFromSQLite(booksDir, outDir string, blockSize uint32) error {
	src, err := sourcedb.OpenSQLiteSource(booksDir)
	if err != nil {
		return err
	}
	defer src.Close()

	books, err := src.Books()
	if err != nil {
		return err
	}

	tw, err := textstore.NewWriter(filepath.Join(outDir, "books.bin"), blockSize)
	if err != nil {
		return err
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
			tw.Close()
			return err
		}
		pages, err := src.Pages(book)
		if err != nil {
			tw.Close()
			return err
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
				tw.Close()
				return err
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
	}

	if err := tw.Close(); err != nil {
		return err
	}
	if err := bookindex.BuildPages(filepath.Join(outDir, "pages.idx"), pageEntries); err != nil {
		return err
	}
	if err := bookindex.BuildBooks(filepath.Join(outDir, "books.idx"), bookEntries); err != nil {
		return err
	}
	if err := bookindex.BuildChapters(filepath.Join(outDir, "chapters.idx"), chapterEntries); err != nil {
		return err
	}
	return bookindex.BuildTitles(filepath.Join(outDir, "titles.bin"), titles)
}

func stageBuildOccurrences(booksPath, pagesPath, outPath string) error {
	books, err := textstore.Open(booksPath)
	if err != nil {
		return err
	}
	defer books.Close()

	pagesIdx, err := bookindex.OpenPages(pagesPath)
	if err != nil {
		return err
	}
	defer pagesIdx.Close()

	entries, err := pagesIdx.All()
	if err != nil {
		return err
	}

	pages := make([]occurrence.Page, len(entries))
	for i, e := range entries {
		text, err := books.ReadLocator(e.Locator())
		if err != nil {
			return err
		}
		pages[i] = occurrence.Page{PageID: e.PageID, Text: text}
	}

	w, err := occurrence.NewWriter(outPath)
	if err != nil {
		return err
	}

	workerCount := occurrence.WorkerCount(len(pages), threadsOverride())
	if err := occurrence.Emit(pages, w, workerCount, occurrence.HashSeed); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

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

func stageSortOccurrences(inPath, outPath, tmpDir string, runBytes int) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	reader := occurrence.NewReader(in)
	return extsort.Sort(reader, out, tmpDir, runBytes)
}

func stageBuildPostings(sortedPath, postingsPath string, mode postings.Compression) error {
	in, err := os.Open(sortedPath)
	if err != nil {
		return err
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
		return err
	}
	if _, err := postings.Build(next, w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func stageBuildWordsIndex(sortedPath, postingsPath, dictPath string) error {
	in, err := os.Open(sortedPath)
	if err != nil {
		return err
	}
	defer in.Close()
	reader := occurrence.NewReader(in)

	pf, err := postings.Open(postingsPath)
	if err != nil {
		return err
	}
	defer pf.Close()
	walker := pf.NewBlockWalker()

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
			return fmt.Errorf("postings.bin has fewer blocks than the occurrence stream has distinct words")
		}
		blocks = append(blocks, postings.WordBlock{WordHash: curHash, Location: loc, PostingsCount: curCount})
		return nil
	}

	for {
		t, ok, err := reader.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if !haveWord || t.WordHash != curHash {
			if err := flush(); err != nil {
				return err
			}
			curHash = t.WordHash
			curCount = 0
			haveWord = true
		}
		curCount++
	}
	if err := flush(); err != nil {
		return err
	}
	return dictionary.Build(dictPath, blocks)
}
