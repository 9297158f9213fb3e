package transcript

import (
	"strings"
)

// topicWindow is how many of the newest segments feed topic inference.
const topicWindow = 12

var stopwords = map[string]bool{
	"the": true, "and": true, "that": true, "this": true, "with": true,
	"for": true, "was": true, "are": true, "but": true, "not": true,
	"you": true, "have": true, "has": true, "had": true, "they": true,
	"them": true, "then": true, "than": true, "what": true, "when": true,
	"where": true, "which": true, "will": true, "would": true, "could": true,
	"should": true, "there": true, "here": true, "about": true, "just": true,
	"like": true, "yeah": true, "okay": true, "going": true, "think": true,
	"know": true, "really": true, "well": true, "from": true, "been": true,
	"were": true, "your": true, "our": true, "his": true, "her": true,
	"its": true, "can": true, "get": true, "got": true, "because": true,
	"some": true, "also": true, "into": true, "out": true, "all": true,
}

// Topic derives a short running label for the conversation from the
// newest segments plus the live partial text. It is a display heuristic
// only: the most frequent bigram wins, falling back to the most frequent
// single token, ties broken by first encountered.
func (a *Aggregator) Topic() string {
	segs := a.Window(topicWindow)
	partial := a.Partial()

	var tokens []string
	for _, seg := range segs {
		tokens = append(tokens, tokenize(seg.Text)...)
	}
	tokens = append(tokens, tokenize(partial)...)
	if len(tokens) == 0 {
		return ""
	}

	if bigram := mostFrequent(bigrams(tokens), 2); bigram != "" {
		return bigram
	}
	return mostFrequent(tokens, 1)
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) < 3 || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func bigrams(tokens []string) []string {
	var out []string
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// mostFrequent returns the candidate with the highest count, provided it
// reaches minCount. On ties the first-encountered candidate stays.
func mostFrequent(candidates []string, minCount int) string {
	counts := make(map[string]int)
	var order []string
	for _, c := range candidates {
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	best, bestCount := "", 0
	for _, c := range order {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	if bestCount < minCount {
		return ""
	}
	return best
}
