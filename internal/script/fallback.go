package script

import "strings"

const genericFallback = "abstract background"

// fillerQueries pad the set when the text yields too few usable words.
var fillerQueries = []string{"b-roll", "background", "texture"}

const minFallbackWordLen = 4

// fallbackQueries derives search phrases from the text itself when the
// model reply is unusable: the first 3 words longer than 4 letters, padded
// with generic filler terms.
func fallbackQueries(text string) QuerySet {
	queries := make([]string, 0, queryCount)
	for _, word := range strings.Fields(text) {
		word = strings.Trim(strings.ToLower(word), ".,!?;:\"'()")
		if len(word) > minFallbackWordLen {
			queries = append(queries, word)
		}
		if len(queries) == queryCount {
			break
		}
	}

	for _, filler := range fillerQueries {
		if len(queries) == queryCount {
			break
		}
		queries = append(queries, filler)
	}

	return QuerySet{Queries: queries, Fallback: genericFallback}
}
