package collection

import (
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/refkeeper/reference-import-service/internal/domain"
	"github.com/refkeeper/reference-import-service/internal/normalize"
)

const (
	// nameInTitleScore is the score for a collection name found verbatim
	// in the item title.
	nameInTitleScore = 90

	// keywordThreshold is the minimum partial-similarity between a title
	// word and a collection name.
	keywordThreshold = 50

	// tagThreshold is the minimum similarity between an item tag and a
	// collection name.
	tagThreshold = 70

	// maxSuggestResults caps the number of suggestions returned.
	maxSuggestResults = 5

	// minKeywordLen is the minimum length of a title word considered for
	// keyword matching.
	minKeywordLen = 3
)

// SuggestInput carries the item text the suggester scores against.
type SuggestInput struct {
	Title string
	Tags  []string
}

// Suggestion is one advisory destination candidate. Suggestions pre-rank
// options presented to a human; they are never consulted by the resolver
// or the matcher.
type Suggestion struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Suggest scores existing collections against an item's title and tags.
//
// Per collection, the first matching heuristic wins: the collection name
// found verbatim in the normalized title scores 90; a title word (longer
// than three characters) with partial similarity above the keyword threshold
// scores that similarity; a tag with similarity above the tag threshold
// scores that similarity. Results are deduplicated by collection key keeping
// the highest-scoring occurrence, sorted by descending score, and capped.
func Suggest(item SuggestInput, snap []domain.CollectionRef) []Suggestion {
	title := normalize.Title(item.Title)

	var suggestions []Suggestion
	for _, col := range snap {
		if col.Name == "" || col.Key == "" {
			continue
		}
		name := strings.ToLower(col.Name)

		if title != "" && strings.Contains(title, name) {
			suggestions = append(suggestions, Suggestion{
				Key:    col.Key,
				Name:   col.Name,
				Score:  nameInTitleScore,
				Reason: "name in title",
			})
			continue
		}

		if s, ok := keywordScore(name, title); ok {
			suggestions = append(suggestions, Suggestion{
				Key:    col.Key,
				Name:   col.Name,
				Score:  s,
				Reason: "keyword match",
			})
			continue
		}

		if s, ok := tagScore(name, item.Tags); ok {
			suggestions = append(suggestions, Suggestion{
				Key:    col.Key,
				Name:   col.Name,
				Score:  s,
				Reason: "tag match",
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})

	seen := make(map[string]bool, len(suggestions))
	unique := suggestions[:0]
	for _, s := range suggestions {
		if seen[s.Key] {
			continue
		}
		seen[s.Key] = true
		unique = append(unique, s)
	}

	if len(unique) > maxSuggestResults {
		unique = unique[:maxSuggestResults]
	}
	return unique
}

func keywordScore(name, title string) (int, bool) {
	for _, word := range strings.Fields(title) {
		if len(word) <= minKeywordLen {
			continue
		}
		if s := fuzzy.PartialRatio(name, word); s >= keywordThreshold {
			return s, true
		}
	}
	return 0, false
}

func tagScore(name string, tags []string) (int, bool) {
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if s := fuzzy.Ratio(name, strings.ToLower(tag)); s >= tagThreshold {
			return s, true
		}
	}
	return 0, false
}
