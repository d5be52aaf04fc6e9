// Package normalize implements the Arabic text normalization pass shared by
// the build-time tokenizer and the query engine: diacritics are dropped and
// a handful of letterform variants are collapsed so that spelling variants
// of the same word hash identically.
package normalize

import (
	"unicode/utf8"

	"github.com/jamharah/jamharah/internal/jherr"
)

const (
	diacriticsLowStart  = 0x064B
	diacriticsLowEnd    = 0x065F
	diacriticsHighStart = 0x06D6
	diacriticsHighEnd   = 0x06ED

	alefMadda       = 0x0622
	alefHamzaAbove  = 0x0623
	alefHamzaBelow  = 0x0625
	alefWasla       = 0x0671
	alef            = 0x0627
	alefMaksura     = 0x0649
	yeh             = 0x064A
	tehMarbuta      = 0x0629
	heh             = 0x0647
)

func isDiacritic(cp rune) bool {
	if cp >= diacriticsLowStart && cp <= diacriticsLowEnd {
		return true
	}
	if cp >= diacriticsHighStart && cp <= diacriticsHighEnd {
		return true
	}
	return false
}

// fold maps a single code point to its normalized form, or 0 if the code
// point should be dropped entirely (a diacritic).
func fold(cp rune) rune {
	if isDiacritic(cp) {
		return 0
	}
	switch cp {
	case alefMadda, alefHamzaAbove, alefHamzaBelow, alefWasla:
		return alef
	case alefMaksura:
		return yeh
	case tehMarbuta:
		return heh
	default:
		return cp
	}
}

// Bytes normalizes UTF-8 input into dst, returning the number of bytes
// written. dst must be large enough to hold the result; the result is never
// longer than len(src) bytes since folding never grows a code point's UTF-8
// width. Returns jherr.InvalidFormat on malformed UTF-8 and
// jherr.CapacityExceeded if dst is too small.
func Bytes(dst, src []byte) (int, error) {
	out := 0
	for i := 0; i < len(src); {
		cp, size := utf8.DecodeRune(src[i:])
		if cp == utf8.RuneError && size <= 1 {
			return 0, jherr.InvalidFormat
		}
		i += size
		cp = fold(cp)
		if cp == 0 {
			continue
		}
		n := utf8.RuneLen(cp)
		if out+n > len(dst) {
			return 0, jherr.CapacityExceeded
		}
		out += utf8.EncodeRune(dst[out:], cp)
	}
	return out, nil
}

// String normalizes a UTF-8 string and returns a freshly allocated result.
// It is a convenience wrapper over Bytes for the query path, where workspace
// reuse does not matter.
func String(s string) (string, error) {
	buf := make([]byte, len(s))
	n, err := Bytes(buf, []byte(s))
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}
