package query

import (
	"bytes"

	"github.com/jamharah/jamharah/internal/normalize"
	"github.com/jamharah/jamharah/internal/tokenize"
)

// SnippetContextBytes is the default number of bytes of context kept on
// each side of a snippet match.
const SnippetContextBytes = 60

// bracket frames match [start:end) within text with «…», truncating the
// surrounding context to contextBytes on each side without splitting
// mid-rune (a best-effort trim back to a UTF-8 boundary).
func bracket(text []byte, start, end, contextBytes int) string {
	lo := start - contextBytes
	if lo < 0 {
		lo = 0
	}
	for lo > 0 && isContinuationByte(text[lo]) {
		lo--
	}
	hi := end + contextBytes
	if hi > len(text) {
		hi = len(text)
	}
	for hi < len(text) && isContinuationByte(text[hi]) {
		hi++
	}
	var b bytes.Buffer
	b.Write(text[lo:start])
	b.WriteString("«")
	b.Write(text[start:end])
	b.WriteString("»")
	b.Write(text[end:hi])
	return b.String()
}

func isContinuationByte(b byte) bool { return b&0xC0 == 0x80 }

// LiteralSnippet searches text for the literal byte sequence query and
// returns a bracketed snippet around the first match.
func LiteralSnippet(text []byte, literal string, contextBytes int) (string, bool) {
	idx := bytes.Index(text, []byte(literal))
	if idx < 0 {
		return "", false
	}
	return bracket(text, idx, idx+len(literal), contextBytes), true
}

// BoundarySnippet stitches the tail of current with the head of next (the
// two halves of a page boundary a phrase might straddle) and searches the
// stitched buffer for literal, so a match entirely within current or next
// alone is not required. tailBytes/headBytes bound how much of each page is
// pulled into the stitch.
func BoundarySnippet(current, next []byte, literal string, contextBytes, tailBytes, headBytes int) (string, bool) {
	if tailBytes > len(current) {
		tailBytes = len(current)
	}
	if headBytes > len(next) {
		headBytes = len(next)
	}
	stitched := make([]byte, 0, tailBytes+headBytes)
	stitched = append(stitched, current[len(current)-tailBytes:]...)
	stitched = append(stitched, next[:headBytes]...)
	return LiteralSnippet(stitched, literal, contextBytes)
}

// TokenSnippet normalizes text and locates the first occurrence of any of
// terms' normalized words, returning a bracketed snippet cut from the
// normalized text. This is the root-token fallback used when the literal
// query string cannot be found verbatim (normalization changed its bytes).
func TokenSnippet(text []byte, terms []Term, contextBytes int) (string, bool) {
	tokens := make([]tokenize.Token, len(text)+1)
	workspace := make([]byte, len(text)+1)
	found, err := tokenize.NormalizeAndTokenize(text, tokens, workspace)
	if err != nil {
		return "", false
	}
	normalized := make([]byte, len(text))
	n, err := normalize.Bytes(normalized, text)
	if err != nil {
		return "", false
	}
	normalized = normalized[:n]
	for _, tok := range found {
		for _, t := range terms {
			if bytes.Equal(tok.Word, t.Word) {
				off := bytes.Index(normalized, tok.Word)
				if off < 0 {
					continue
				}
				return bracket(normalized, off, off+len(tok.Word), contextBytes), true
			}
		}
	}
	return "", false
}
