// Package match detects duplicate bibliographic records against a
// point-in-time snapshot of the target library, using exact identifier
// equality first and fuzzy title similarity as a fallback.
package match

import (
	"sort"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/refkeeper/reference-import-service/internal/domain"
	"github.com/refkeeper/reference-import-service/internal/normalize"
)

const (
	// DefaultTitleThreshold is the minimum token-sort similarity (0-100)
	// for a fuzzy title match to count as a duplicate candidate.
	DefaultTitleThreshold = 85

	// DefaultMaxCandidates is the maximum number of fuzzy candidates returned.
	DefaultMaxCandidates = 5

	// highConfidenceScore is the fuzzy score at or above which a candidate
	// is bucketed as high confidence for user-facing messaging.
	highConfidenceScore = 95

	// mediumConfidenceScore is the fuzzy score at or above which a candidate
	// is bucketed as medium confidence.
	mediumConfidenceScore = 90
)

// Config holds matcher thresholds.
type Config struct {
	// TitleThreshold is the minimum fuzzy title score (0-100).
	// Defaults to DefaultTitleThreshold if zero.
	TitleThreshold int

	// MaxCandidates caps the number of fuzzy candidates returned.
	// Defaults to DefaultMaxCandidates if zero.
	MaxCandidates int
}

func (c *Config) applyDefaults() {
	if c.TitleThreshold == 0 {
		c.TitleThreshold = DefaultTitleThreshold
	}
	if c.MaxCandidates == 0 {
		c.MaxCandidates = DefaultMaxCandidates
	}
}

// Snapshot is a point-in-time read of library items. It is read once per
// batch and never refreshed mid-batch; two batches racing on the same
// near-duplicate record can both see "no duplicate".
type Snapshot struct {
	items []domain.ExistingItem
}

// NewSnapshot wraps a bounded fetch of recent library items.
func NewSnapshot(items []domain.ExistingItem) *Snapshot {
	return &Snapshot{items: items}
}

// Len returns the number of items in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.items)
}

// ByIdentifier returns the items exposing the given identifier value,
// compared case-insensitively after normalization.
func (s *Snapshot) ByIdentifier(kind domain.IdentifierKind, value string) []domain.ExistingItem {
	if value == "" {
		return nil
	}
	var out []domain.ExistingItem
	for i := range s.items {
		if normalize.ItemIdentifier(&s.items[i], kind) == value {
			out = append(out, s.items[i])
		}
	}
	return out
}

// Matcher finds duplicate candidates for incoming records.
type Matcher struct {
	cfg Config
}

// New creates a Matcher with the given configuration.
func New(cfg Config) *Matcher {
	cfg.applyDefaults()
	return &Matcher{cfg: cfg}
}

// FindDuplicates returns ranked duplicate candidates for a record.
//
// Identifier kinds are evaluated in fixed priority order (DOI, ISBN, PMID);
// the first kind that yields any match returns those items immediately with
// confidence 100, and no fuzzy comparison is performed. Only when no exact
// identifier match exists anywhere does the matcher fall back to fuzzy title
// scoring over the snapshot, keeping the top candidates at or above the
// title threshold, ordered by descending confidence.
//
// A record with a blank title returns an empty result without any comparison.
func (m *Matcher) FindDuplicates(rec *domain.SourceRecord, snap *Snapshot) []domain.MatchCandidate {
	title := normalize.Title(rec.Title)
	if title == "" {
		return nil
	}

	// Exact identifier tiers.
	for _, kind := range domain.ExactMatchKinds {
		id := normalize.RecordIdentifier(rec, kind)
		if id == "" {
			continue
		}
		items := snap.ByIdentifier(kind, id)
		if len(items) == 0 {
			continue
		}
		candidates := make([]domain.MatchCandidate, 0, len(items))
		for _, item := range items {
			candidates = append(candidates, domain.MatchCandidate{
				Key:        item.Key,
				Title:      item.Title,
				Tier:       exactTier(kind),
				Confidence: 100,
				Identifier: id,
			})
		}
		return candidates
	}

	// Fuzzy title fallback over the bounded recent-items window.
	var candidates []domain.MatchCandidate
	for _, item := range snap.items {
		existing := normalize.Title(item.Title)
		if existing == "" {
			continue
		}
		score := fuzzy.TokenSortRatio(title, existing)
		if score < m.cfg.TitleThreshold {
			continue
		}
		candidates = append(candidates, domain.MatchCandidate{
			Key:        item.Key,
			Title:      item.Title,
			Tier:       domain.TierFuzzyTitle,
			Confidence: score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > m.cfg.MaxCandidates {
		candidates = candidates[:m.cfg.MaxCandidates]
	}
	return candidates
}

func exactTier(kind domain.IdentifierKind) domain.MatchTier {
	switch kind {
	case domain.IdentifierDOI:
		return domain.TierExactDOI
	case domain.IdentifierISBN:
		return domain.TierExactISBN
	case domain.IdentifierPMID:
		return domain.TierExactPMID
	default:
		return domain.TierFuzzyTitle
	}
}

// ConfidenceBucket classifies a candidate for user-facing messaging.
// It is never used for control flow.
func ConfidenceBucket(c domain.MatchCandidate) string {
	if c.Tier.Exact() || c.Confidence >= highConfidenceScore {
		return "high"
	}
	if c.Confidence >= mediumConfidenceScore {
		return "medium"
	}
	return "low"
}
