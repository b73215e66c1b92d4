package app

import (
	"regexp"
	"sort"
	"strconv"
)

// CitationExtractor finds the sources an answer refers to. It returns
// distinct zero-based indexes into a source list of length sourceCount,
// in ascending order; references outside the list are dropped.
type CitationExtractor interface {
	Extract(answer string, sourceCount int) []int
}

var bracketMarker = regexp.MustCompile(`\[(\d+)\]`)

// BracketCitationExtractor reads 1-based markers of the form [n].
type BracketCitationExtractor struct{}

func (BracketCitationExtractor) Extract(answer string, sourceCount int) []int {
	seen := make(map[int]struct{})
	for _, m := range bracketMarker.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		idx := n - 1
		if idx < 0 || idx >= sourceCount {
			continue
		}
		seen[idx] = struct{}{}
	}

	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
