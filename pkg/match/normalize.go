// Package match implements the candidate normalization, deduplication and
// ranking pipeline. Everything here is a pure function of its inputs: given
// the same candidate set the grouping and ordering are identical regardless
// of provider arrival order, which keeps resolution results reproducible and
// the package testable without any network dependency.
package match

import (
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
)

// Normalize produces the canonical comparison form of a metadata field:
// lower-cased, diacritics folded to ASCII, punctuation stripped and
// whitespace collapsed. "Tiësto - Adagio For Strings " and
// "tiesto adagio for strings" normalize identically.
func Normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range foldDiacritics(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// foldDiacritics maps common accented characters to ASCII so "Tiësto" and
// "Tiesto" compare equal after normalization.
func foldDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case 'ë', 'ê', 'è', 'é', 'ē', 'ė':
			b.WriteRune('e')
		case 'ï', 'î', 'ì', 'í', 'ī':
			b.WriteRune('i')
		case 'ö', 'ô', 'ò', 'ó', 'ō', 'ø':
			b.WriteRune('o')
		case 'ü', 'û', 'ù', 'ú', 'ū':
			b.WriteRune('u')
		case 'ä', 'â', 'à', 'á', 'ā', 'å':
			b.WriteRune('a')
		case 'ç':
			b.WriteRune('c')
		case 'ñ':
			b.WriteRune('n')
		case 'ß':
			b.WriteString("ss")
		case 'œ':
			b.WriteString("oe")
		case 'æ':
			b.WriteString("ae")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Similarity returns the Jaro-Winkler similarity of two already-normalized
// strings in [0,1]. Two empty strings are considered identical.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	sim, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0
	}
	return float64(sim)
}

// Relative weights of title and artist when comparing two candidates for
// deduplication. Title dominates since artists repeat across a discography.
const (
	pairTitleWeight  = 0.6
	pairArtistWeight = 0.4
)

// pairSimilarity scores how likely two candidates describe the same song,
// combining title and artist similarity of their normalized fields.
func pairSimilarity(aTitle, aArtist, bTitle, bArtist string) float64 {
	return pairTitleWeight*Similarity(aTitle, bTitle) + pairArtistWeight*Similarity(aArtist, bArtist)
}

// albumsCompatible reports whether two normalized album names allow a merge:
// they match, or at least one side did not report an album at all.
func albumsCompatible(a, b string) bool {
	return a == "" || b == "" || a == b
}
