// Package extsort implements the external k-way merge sort that turns the
// raw, arrival-ordered occurrence stream into the (word_hash asc, page_id
// asc, position asc) order the postings builder requires. Runs that fit in
// an in-core budget are sorted in memory and spilled to numbered temp
// files; a final R-way merge produces the fully sorted stream without ever
// holding more than one run's worth of triples per input file in memory.
package extsort

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jamharah/jamharah/internal/jherr"
	"github.com/jamharah/jamharah/internal/occurrence"
)

// DefaultRunBytes bounds how many bytes of triples one in-core run holds
// before it is sorted and spilled, matching the build pipeline's default
// working-set budget.
const DefaultRunBytes = 64 << 20

const tripleSize = 16

func less(a, b occurrence.Triple) bool {
	if a.WordHash != b.WordHash {
		return a.WordHash < b.WordHash
	}
	if a.PageID != b.PageID {
		return a.PageID < b.PageID
	}
	return a.Position < b.Position
}

// Sort reads every triple from src, writes sorted runs to numbered temp
// files under tmpDir, merges them into dst in final order, and removes the
// temp files before returning. runBytes bounds in-core run size; callers
// pass DefaultRunBytes in production and a small value in tests to force
// multiple runs and exercise the merge path.
func Sort(src *occurrence.Reader, dst *os.File, tmpDir string, runBytes int) error {
	runPaths, err := spillRuns(src, tmpDir, runBytes)
	if err != nil {
		return err
	}
	defer func() {
		for _, p := range runPaths {
			os.Remove(p)
		}
	}()
	return mergeRuns(runPaths, dst)
}

func spillRuns(src *occurrence.Reader, tmpDir string, runBytes int) ([]string, error) {
	if runBytes < tripleSize {
		runBytes = tripleSize
	}
	capTriples := runBytes / tripleSize

	var runPaths []string
	buf := make([]occurrence.Triple, 0, capTriples)
	runIndex := 0

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		sort.Slice(buf, func(i, j int) bool { return less(buf[i], buf[j]) })
		path := filepath.Join(tmpDir, fmt.Sprintf("occ-run-%06d.tmp", runIndex))
		if err := writeRun(path, buf); err != nil {
			return err
		}
		runPaths = append(runPaths, path)
		runIndex++
		buf = buf[:0]
		return nil
	}

	for {
		t, ok, err := src.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		buf = append(buf, t)
		if len(buf) >= capTriples {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return runPaths, nil
}

func writeRun(path string, triples []occurrence.Triple) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create run %s: %v", jherr.IOError, path, err)
	}
	defer f.Close()
	buf := make([]byte, len(triples)*tripleSize)
	for i, t := range triples {
		occurrence.EncodeTriple(buf[i*tripleSize:], t)
	}
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("%w: write run %s: %v", jherr.IOError, path, err)
	}
	return nil
}

// runCursor streams one spilled run file back in order.
type runCursor struct {
	r       *occurrence.Reader
	f       *os.File
	current occurrence.Triple
	valid   bool
	done    bool
}

func openRun(path string) (*runCursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open run %s: %v", jherr.IOError, path, err)
	}
	return &runCursor{r: occurrence.NewReader(f), f: f}, nil
}

func (rc *runCursor) fill() error {
	if rc.valid || rc.done {
		return nil
	}
	t, ok, err := rc.r.Next()
	if err != nil {
		return err
	}
	if !ok {
		rc.done = true
		return nil
	}
	rc.current = t
	rc.valid = true
	return nil
}

func (rc *runCursor) close() error { return rc.f.Close() }

// mergeRuns performs the final R-way min-merge of every spilled run into
// dst, writing triples in strictly non-decreasing order.
func mergeRuns(runPaths []string, dst *os.File) error {
	cursors := make([]*runCursor, 0, len(runPaths))
	defer func() {
		for _, c := range cursors {
			c.close()
		}
	}()
	for _, p := range runPaths {
		c, err := openRun(p)
		if err != nil {
			return err
		}
		cursors = append(cursors, c)
	}

	const outBatch = 4096
	outBuf := make([]byte, 0, outBatch*tripleSize)

	for {
		best := -1
		for i, c := range cursors {
			if err := c.fill(); err != nil {
				return err
			}
			if !c.valid {
				continue
			}
			if best == -1 || less(c.current, cursors[best].current) {
				best = i
			}
		}
		if best == -1 {
			break
		}
		var tmp [tripleSize]byte
		occurrence.EncodeTriple(tmp[:], cursors[best].current)
		outBuf = append(outBuf, tmp[:]...)
		cursors[best].valid = false

		if len(outBuf) >= outBatch*tripleSize {
			if _, err := dst.Write(outBuf); err != nil {
				return fmt.Errorf("%w: write merged output: %v", jherr.IOError, err)
			}
			outBuf = outBuf[:0]
		}
	}
	if len(outBuf) > 0 {
		if _, err := dst.Write(outBuf); err != nil {
			return fmt.Errorf("%w: write merged output: %v", jherr.IOError, err)
		}
	}
	return nil
}
