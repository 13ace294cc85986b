package procs

import (
	"strings"
	"unicode"

	"github.com/drblury/agentflow/internal/agent/jsoncodec"
)

var stopwords = func() map[string]struct{} {
	words := strings.Split(
		"a,an,and,as,at,by,for,from,in,of,on,s,the,to,with,is,was,if,"+
			"then,that,these,those,them,thus", ",")
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()

// normalize lowercases a phrase and converts punctuation to spaces.
func normalize(phrase string) string {
	var b strings.Builder
	b.Grow(len(phrase))
	for _, r := range strings.ToLower(phrase) {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// tokenized splits a phrase into tokens with stopwords removed.
func tokenized(phrase string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, token := range strings.Fields(normalize(phrase)) {
		if _, stop := stopwords[token]; stop {
			continue
		}
		tokens[token] = struct{}{}
	}
	return tokens
}

// jaccard is the similarity of two phrases as token sets: the size of the
// intersection over the size of the union. Two phrases with no usable
// tokens at all are not similar.
func jaccard(phraseA, phraseB string) float64 {
	a, b := tokenized(phraseA), tokenized(phraseB)
	var intersection int
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// proportionASCII is the fraction of a phrase's runes in the ASCII range.
// Empty phrases count as fully ASCII.
func proportionASCII(phrase string) float64 {
	if phrase == "" {
		return 1
	}
	var ascii, total int
	for _, r := range phrase {
		total++
		if r <= unicode.MaxASCII {
			ascii++
		}
	}
	return float64(ascii) / float64(total)
}

// decodePrevious recovers a typed step result from the previous-result slot.
// Results that crossed the queue arrive as decoded JSON (maps and slices of
// any), so the value is round-tripped through the codec to restore its type.
func decodePrevious[T any](previous any) (T, error) {
	var out T
	if typed, ok := previous.(T); ok {
		return typed, nil
	}
	raw, err := jsoncodec.Marshal(previous)
	if err != nil {
		return out, err
	}
	if err := jsoncodec.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

// previousFloat recovers a numeric step result, which arrives as float64
// after queue transport.
func previousFloat(previous any) (float64, bool) {
	switch v := previous.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}
