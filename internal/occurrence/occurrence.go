// Package occurrence implements the emission stage of the index build
// pipeline: for every page of every source book, tokenize its text and emit
// one (word_hash, page_id, position) triple per token. Emission runs across
// a worker pool partitioned by page range, each worker appending to a
// shared, mutex-protected output stream, with an in-memory open-addressing
// probe table guarding against undetected hash collisions across the whole
// vocabulary.
package occurrence

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jamharah/jamharah/internal/jherr"
	"github.com/jamharah/jamharah/internal/texthash"
	"github.com/jamharah/jamharah/internal/tokenize"
)

// Triple is one emitted occurrence: word_hash identifies the token,
// page_id the page it was found on, position its 0-based ordinal within
// that page's tokenized text.
type Triple struct {
	WordHash uint64
	PageID   uint32
	Position uint32
}

const tripleSize = 8 + 4 + 4

// EncodeTriple writes t little-endian into dst[0:16].
func EncodeTriple(dst []byte, t Triple) {
	binary.LittleEndian.PutUint64(dst[0:8], t.WordHash)
	binary.LittleEndian.PutUint32(dst[8:12], t.PageID)
	binary.LittleEndian.PutUint32(dst[12:16], t.Position)
}

// DecodeTriple reads a Triple from src[0:16].
func DecodeTriple(src []byte) Triple {
	return Triple{
		WordHash: binary.LittleEndian.Uint64(src[0:8]),
		PageID:   binary.LittleEndian.Uint32(src[8:12]),
		Position: binary.LittleEndian.Uint32(src[12:16]),
	}
}

// Page is one unit of emission work: a page's id and its raw text.
type Page struct {
	PageID uint32
	Text   []byte
}

// HashSeed is folded into every word hash computed during emission. It must
// match the seed the query engine hashes query terms with, forever: once an
// index has been built with this value, changing it invalidates every
// on-disk dictionary.
const HashSeed uint64 = 0x4a414d4841524148

// Writer is the shared, mutex-protected sink every emission worker appends
// triples to. Workers do not need to agree on ordering among themselves;
// the external sort stage imposes the final (word_hash, page_id, position)
// order.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	buf []byte
}

// NewWriter creates the raw occurrences file at path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", jherr.IOError, path, err)
	}
	return &Writer{f: f}, nil
}

// WriteBatch appends triples under the writer's lock. Workers batch their
// per-page triples into one call to keep lock contention proportional to
// page count, not token count.
func (w *Writer) WriteBatch(triples []Triple) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	need := len(triples) * tripleSize
	if cap(w.buf) < need {
		w.buf = make([]byte, need)
	}
	buf := w.buf[:need]
	for i, t := range triples {
		EncodeTriple(buf[i*tripleSize:], t)
	}
	if _, err := w.f.Write(buf); err != nil {
		return fmt.Errorf("%w: write occurrence batch: %v", jherr.IOError, err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("%w: close occurrences file: %v", jherr.IOError, err)
	}
	return nil
}

// probeTable is an open-addressing set of (hash, sample word) used only to
// detect the case where two distinct token spellings hash identically; it
// never blocks emission, it only raises jherr.HashCollision the first time
// it observes one, since a silent collision would merge two unrelated
// words in the dictionary (and jherr.CapacityExceeded once every slot is
// taken).
type probeTable struct {
	mu      sync.Mutex
	hashes  []uint64
	words   [][]byte
	occupied []bool
	mask    uint64
}

func newProbeTable(sizeHint int) *probeTable {
	capacity := 1024
	for capacity < sizeHint*2 {
		capacity <<= 1
	}
	return &probeTable{
		hashes:   make([]uint64, capacity),
		words:    make([][]byte, capacity),
		occupied: make([]bool, capacity),
		mask:     uint64(capacity - 1),
	}
}

// observe records (hash, word) and reports a hash collision if a different
// word was previously recorded under the same hash, or
// jherr.CapacityExceeded if every slot is taken by other hashes.
func (p *probeTable) observe(hash uint64, word []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := hash & p.mask
	for probes := uint64(0); probes <= p.mask; probes++ {
		if !p.occupied[idx] {
			p.occupied[idx] = true
			p.hashes[idx] = hash
			p.words[idx] = append([]byte(nil), word...)
			return nil
		}
		if p.hashes[idx] == hash {
			if !bytesEqual(p.words[idx], word) {
				return fmt.Errorf("%w: hash %d shared by %q and %q", jherr.HashCollision, hash, p.words[idx], word)
			}
			return nil
		}
		idx = (idx + 1) & p.mask
	}
	return fmt.Errorf("%w: vocabulary probe table full (%d slots)", jherr.CapacityExceeded, p.mask+1)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MaxWorkers caps how many goroutines Emit spawns regardless of GOMAXPROCS
// or the JH_OCC_THREADS override.
const MaxWorkers = 32

// WorkerCount resolves the emission worker count the same way the CLI
// does: min(pageCount, min(32, NumCPU)), overridable by an explicit
// positive override (the CLI layer reads JH_OCC_THREADS and passes it
// here).
func WorkerCount(pageCount int, override int) int {
	if override > 0 {
		if override > MaxWorkers {
			return MaxWorkers
		}
		return override
	}
	n := runtime.NumCPU()
	if n > MaxWorkers {
		n = MaxWorkers
	}
	if pageCount < n {
		n = pageCount
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Emit tokenizes every page from pages and writes its occurrence triples to
// w, using workerCount goroutines partitioned by contiguous page ranges.
// Any worker encountering jherr.HashCollision, jherr.CapacityExceeded, or
// jherr.InvalidFormat aborts the whole emission.
func Emit(pages []Page, w *Writer, workerCount int, seed uint64) error {
	if workerCount < 1 {
		workerCount = 1
	}
	probes := newProbeTable(len(pages) * 64)

	g := new(errgroup.Group)
	chunk := (len(pages) + workerCount - 1) / workerCount
	if chunk < 1 {
		chunk = 1
	}
	for start := 0; start < len(pages); start += chunk {
		end := start + chunk
		if end > len(pages) {
			end = len(pages)
		}
		rangePages := pages[start:end]
		g.Go(func() error {
			return emitRange(rangePages, w, probes, seed)
		})
	}
	return g.Wait()
}

func emitRange(pages []Page, w *Writer, probes *probeTable, seed uint64) error {
	var tokens [65536]tokenize.Token
	workspace := make([]byte, 1<<20)
	var batch []Triple

	for _, page := range pages {
		ws := workspace
		toks := tokens[:]
		if len(page.Text) > len(ws) {
			ws = make([]byte, len(page.Text))
		}
		if len(page.Text) > len(toks) {
			toks = make([]tokenize.Token, len(page.Text))
		}
		found, err := tokenize.NormalizeAndTokenize(page.Text, toks, ws)
		if err != nil {
			return fmt.Errorf("tokenize page %d: %w", page.PageID, err)
		}
		batch = batch[:0]
		for _, tok := range found {
			hash := texthash.Hash64(tok.Word, seed)
			if err := probes.observe(hash, tok.Word); err != nil {
				return err
			}
			batch = append(batch, Triple{WordHash: hash, PageID: page.PageID, Position: tok.Position})
		}
		if len(batch) > 0 {
			if err := w.WriteBatch(batch); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reader streams raw (unsorted) Triples back out of an occurrences file,
// used by the external sort stage to produce in-core runs.
type Reader struct {
	r   io.Reader
	buf [tripleSize]byte
}

// NewReader wraps an open occurrences file for sequential triple reads.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// Next returns the next triple, or ok=false at clean EOF.
func (r *Reader) Next() (Triple, bool, error) {
	_, err := io.ReadFull(r.r, r.buf[:])
	if err == io.EOF {
		return Triple{}, false, nil
	}
	if err != nil {
		return Triple{}, false, fmt.Errorf("%w: read occurrence triple: %v", jherr.IOError, err)
	}
	return DecodeTriple(r.buf[:]), true, nil
}
