// Package collection resolves human-supplied destination collections against
// a library snapshot and scores collections as advisory suggestions.
package collection

import (
	"strings"

	"github.com/refkeeper/reference-import-service/internal/domain"
)

const (
	// maxSuggestions caps the substring-match suggestions in a NotFound result.
	maxSuggestions = 5

	// maxAvailable caps the available-collections list in a NotFound result.
	maxAvailable = 20
)

// Resolve turns a user-supplied collection name or key into a single
// validated destination.
//
// Lookup by key is exact; lookup by name is a case-insensitive exact match on
// the display name. Resolve never creates a collection and never treats a
// "closest match" as success: when no exact match exists it returns a
// structured DestinationNotFound carrying up to five collection names that
// contain the attempted value as a substring (first-seen order) and a capped
// list of all available collections.
//
// When both name and key are empty, resolution is skipped and both results
// are nil; the caller must surface the missing destination as a warning.
func Resolve(name, key string, snap []domain.CollectionRef) (*domain.ResolvedDestination, *domain.DestinationNotFound) {
	if key != "" {
		for _, c := range snap {
			if c.Key == key {
				return &domain.ResolvedDestination{Key: c.Key, Name: c.Name}, nil
			}
		}
		return nil, notFound(key, snap)
	}

	if name != "" {
		for _, c := range snap {
			if strings.EqualFold(c.Name, name) {
				return &domain.ResolvedDestination{Key: c.Key, Name: c.Name}, nil
			}
		}
		return nil, notFound(name, snap)
	}

	return nil, nil
}

func notFound(attempted string, snap []domain.CollectionRef) *domain.DestinationNotFound {
	nf := &domain.DestinationNotFound{
		Attempted: attempted,
		Available: make([]domain.CollectionOption, 0, maxAvailable),
	}

	lower := strings.ToLower(attempted)
	for _, c := range snap {
		if len(nf.Suggestions) < maxSuggestions && strings.Contains(strings.ToLower(c.Name), lower) {
			nf.Suggestions = append(nf.Suggestions, c.Name)
		}
		if len(nf.Available) < maxAvailable {
			nf.Available = append(nf.Available, domain.CollectionOption{Key: c.Key, Name: c.Name})
		}
	}
	return nf
}
