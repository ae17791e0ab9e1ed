package speech

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// AcceptThreshold is the lowest similarity accepted as a spoken answer
const AcceptThreshold = 0.7

var punctuation = strings.NewReplacer(
	".", "", ",", "", "¡", "", "!", "", "¿", "", "?", "",
	";", "", ":", "", `"`, "", "'", "",
)

// Normalize lower-cases s, drops punctuation and diacritics and
// collapses whitespace.
func Normalize(s string) string {
	s = punctuation.Replace(strings.ToLower(s))

	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(norm.NFC.String(b.String())), " ")
}

// Similarity is one minus the edit distance of the normalized strings
// divided by the longer length, in runes. Two empty strings are identical.
func Similarity(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// Match is the outcome of comparing a transcript against candidate phrases
type Match struct {
	Index    int     `json:"index"`
	Score    float64 `json:"score"`
	Accepted bool    `json:"accepted"`
}

// BestMatch returns the candidate most similar to transcript. Index is -1
// when there are no candidates. Ties go to the earlier candidate.
func BestMatch(transcript string, candidates []string) Match {
	best := Match{Index: -1}
	for i, c := range candidates {
		score := Similarity(transcript, c)
		if best.Index == -1 || score > best.Score {
			best = Match{Index: i, Score: score}
		}
	}
	best.Accepted = best.Index >= 0 && best.Score >= AcceptThreshold
	return best
}
