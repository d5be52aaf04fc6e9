// Package sourcedb defines the BookSource interface the build_from_sqlite
// driver reads from: a logical books → chapters → pages → raw UTF-8 tree,
// kept outside the index engine's core since the relational source layout
// is an external collaborator's concern, not the index format's.
package sourcedb

// Book is one source book's metadata, independent of how it is later
// assigned a dense book_id in the built index.
type Book struct {
	SourceID string
	Title    string
}

// Chapter is one source chapter, scoped to its owning book by array order
// rather than a foreign key: BookSource always yields a book's chapters
// together, immediately after the book itself.
type Chapter struct {
	Title              string
	Ordinal            uint32
	StartingPageNumber uint32
}

// Page is one source page's raw UTF-8 text, tagged with the ordinal
// chapter it belongs to (an index into the Chapters slice returned
// alongside it) and its logical page number as printed in the source.
type Page struct {
	ChapterOrdinal uint32
	PageNumber     uint32
	Text           string
}

// BookSource streams the full book/chapter/page tree of one source
// database. Implementations read from whatever relational format the
// source was authored in; the index build pipeline only ever sees this
// interface.
type BookSource interface {
	// Books returns every book in source-defined order. The builder
	// assigns dense book ids in this order.
	Books() ([]Book, error)
	// Chapters returns every chapter belonging to book, in ordinal order.
	Chapters(book Book) ([]Chapter, error)
	// Pages returns every page belonging to book, in page-number order,
	// each tagged with the ordinal of its owning chapter.
	Pages(book Book) ([]Page, error)
	// Close releases any resources the source holds open.
	Close() error
}
