package postings

// NextOccurrence pulls the next (word_hash, page_id, position) triple from
// an externally-sorted occurrence stream, in (word_hash asc, page_id asc,
// position asc) order. ok is false once the stream is exhausted. Defined as
// a function type rather than an interface from the occurrence package so
// that postings, the lower-level package, has no dependency on it.
type NextOccurrence func() (wordHash uint64, pageID, position uint32, ok bool, err error)

// WordBlock is one completed word's entry for the dictionary builder: its
// hash, where its postings block's length prefix landed in postings.bin,
// and how many (page_id, position) pairs it holds in total.
type WordBlock struct {
	WordHash       uint64
	Location       BlockLocation
	PostingsCount  uint64
}

// Build consumes a fully sorted occurrence stream and writes one postings
// block per distinct word_hash, in the order words first appear (which, for
// a stream sorted by word_hash, is hash-ascending order — exactly the order
// the dictionary builder needs for its own binary-searchable array). It
// returns one WordBlock per distinct word.
//
// Build is a single pass: it never holds more than one word's occurrences
// in memory at a time, matching the external-memory discipline the rest of
// the build pipeline follows.
func Build(next NextOccurrence, w *Writer) ([]WordBlock, error) {
	var blocks []WordBlock
	var enc *Encoder
	var curHash uint64
	haveWord := false

	flush := func() error {
		if !haveWord {
			return nil
		}
		plain := enc.Finish()
		loc, _, err := w.WriteBlock(plain, enc.TotalPostings())
		if err != nil {
			return err
		}
		blocks = append(blocks, WordBlock{WordHash: curHash, Location: loc, PostingsCount: enc.TotalPostings()})
		return nil
	}

	for {
		hash, pageID, position, ok, err := next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if !haveWord || hash != curHash {
			if err := flush(); err != nil {
				return nil, err
			}
			enc = NewEncoder()
			curHash = hash
			haveWord = true
		}
		enc.AddOccurrence(pageID, position)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return blocks, nil
}
