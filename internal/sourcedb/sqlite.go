package sourcedb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/jamharah/jamharah/internal/jherr"
)

// SQLiteSource reads the classical per-book relational layout: one SQLite
// file per book under a directory, each with a `book(nass, id, page, part)`
// table of page text fragments and a `title(tit, lvl, sub, id)` table of
// chapter-heading rows keyed by the page id they introduce.
type SQLiteSource struct {
	dir   string
	files []string // sorted, one per book, index == book order
}

// OpenSQLiteSource scans dir for *.sqlite book files, sorted by filename so
// book ids are assigned deterministically across rebuilds.
func OpenSQLiteSource(dir string) (*SQLiteSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read books dir %s: %v", jherr.IOError, dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sqlite") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return &SQLiteSource{dir: dir, files: files}, nil
}

// Close is a no-op: each book's database is opened and closed per method
// call rather than held open across the whole scan.
func (s *SQLiteSource) Close() error { return nil }

// Books returns one Book per .sqlite file, in filename order.
func (s *SQLiteSource) Books() ([]Book, error) {
	out := make([]Book, len(s.files))
	for i, name := range s.files {
		out[i] = Book{SourceID: strings.TrimSuffix(name, ".sqlite")}
	}
	return out, nil
}

func (s *SQLiteSource) open(book Book) (*sql.DB, error) {
	path := filepath.Join(s.dir, book.SourceID+".sqlite")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", jherr.IOError, path, err)
	}
	return db, nil
}

// Chapters reads the title table: every row is a chapter heading, keyed by
// the page id (book-local row id) at which it begins.
func (s *SQLiteSource) Chapters(book Book) ([]Chapter, error) {
	db, err := s.open(book)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT tit, id FROM title ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query title rows for %s: %v", jherr.IOError, book.SourceID, err)
	}
	defer rows.Close()

	var chapters []Chapter
	ordinal := uint32(0)
	for rows.Next() {
		var title string
		var startID int64
		if err := rows.Scan(&title, &startID); err != nil {
			return nil, fmt.Errorf("%w: scan title row for %s: %v", jherr.IOError, book.SourceID, err)
		}
		if title == "" {
			continue
		}
		chapters = append(chapters, Chapter{
			Title:              title,
			Ordinal:            ordinal,
			StartingPageNumber: uint32(startID),
		})
		ordinal++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate title rows for %s: %v", jherr.IOError, book.SourceID, err)
	}
	return chapters, nil
}

// Pages reads the book table, grouping consecutive rows with the same page
// number into one page (a page may be split across several `part` rows,
// each appended in row-id order), and assigns each page to the last
// chapter whose StartingPageNumber is at or before that page's row id.
func (s *SQLiteSource) Pages(book Book) ([]Page, error) {
	db, err := s.open(book)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	chapters, err := s.Chapters(book)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT nass, id, page FROM book ORDER BY page, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query book rows for %s: %v", jherr.IOError, book.SourceID, err)
	}
	defer rows.Close()

	var pages []Page
	var builder strings.Builder
	haveCurrent := false
	var currentPageNumber int64
	var currentRowID int64

	flush := func() {
		if !haveCurrent || builder.Len() == 0 {
			builder.Reset()
			return
		}
		pages = append(pages, Page{
			ChapterOrdinal: chapterForRow(chapters, currentRowID),
			PageNumber:     uint32(currentPageNumber),
			Text:           builder.String(),
		})
		builder.Reset()
	}

	for rows.Next() {
		var text string
		var rowID, pageNumber int64
		if err := rows.Scan(&text, &rowID, &pageNumber); err != nil {
			return nil, fmt.Errorf("%w: scan book row for %s: %v", jherr.IOError, book.SourceID, err)
		}
		if text == "" {
			continue
		}
		if !haveCurrent || pageNumber != currentPageNumber {
			flush()
			haveCurrent = true
			currentPageNumber = pageNumber
			currentRowID = rowID
		}
		builder.WriteString(text)
	}
	flush()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate book rows for %s: %v", jherr.IOError, book.SourceID, err)
	}
	return pages, nil
}

// chapterForRow finds the ordinal of the last chapter whose
// StartingPageNumber does not exceed rowID, or 0 if rowID precedes every
// chapter heading (the book's front matter is counted with the first
// chapter, whose ordinal is 0).
func chapterForRow(chapters []Chapter, rowID int64) uint32 {
	best := uint32(0)
	for _, c := range chapters {
		if int64(c.StartingPageNumber) <= rowID {
			best = c.Ordinal
		} else {
			break
		}
	}
	return best
}
