package wordmatrix

import (
	"strings"
	"unicode"
)

//Pair two succeeding words
type Pair struct {
	Predecessor string
	Successor   string
}

//Split breaks a tweet into lower-cased words and returns their succession pairs,
//framed by the empty word at start and end
func Split(tweet string) []Pair {
	words := strings.FieldsFunc(strings.ToLower(tweet), func(r rune) bool {
		return unicode.IsSpace(r)
	})
	if len(words) == 0 {
		return nil
	}
	pairs := make([]Pair, 0, len(words)+1)
	prev := ""
	for _, w := range words {
		pairs = append(pairs, Pair{Predecessor: prev, Successor: w})
		prev = w
	}
	return append(pairs, Pair{Predecessor: prev, Successor: ""})
}
