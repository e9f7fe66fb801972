package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refkeeper/reference-import-service/internal/domain"
)

func snapshotFixture() *Snapshot {
	return NewSnapshot([]domain.ExistingItem{
		{
			Key:   "KEY1",
			Title: "Attention is all you need",
			DOI:   "10.5555/attention",
		},
		{
			Key:   "KEY2",
			Title: "A survey of transformer architectures in biology",
			Extra: "PMID: 30000001",
		},
		{
			Key:   "KEY3",
			Title: "Deep residual learning for image recognition",
			ISBN:  "978-0-123456-78-9",
		},
	})
}

func TestFindDuplicatesExactDOI(t *testing.T) {
	m := New(Config{})
	rec := domain.SourceRecord{
		Title: "Attention Is All You Need",
		DOI:   "10.5555/ATTENTION",
	}

	got := m.FindDuplicates(&rec, snapshotFixture())
	require.Len(t, got, 1)
	assert.Equal(t, "KEY1", got[0].Key)
	assert.Equal(t, domain.TierExactDOI, got[0].Tier)
	assert.Equal(t, 100, got[0].Confidence)
	assert.Equal(t, "10.5555/attention", got[0].Identifier)
}

func TestFindDuplicatesDOIWinsOverPMID(t *testing.T) {
	// Record matches KEY1 by DOI and KEY2 by PMID; DOI evaluates first
	// and short-circuits.
	m := New(Config{})
	rec := domain.SourceRecord{
		Title: "Completely different title",
		DOI:   "10.5555/attention",
		PMID:  "30000001",
	}

	got := m.FindDuplicates(&rec, snapshotFixture())
	require.Len(t, got, 1)
	assert.Equal(t, "KEY1", got[0].Key)
	assert.Equal(t, domain.TierExactDOI, got[0].Tier)
}

func TestFindDuplicatesPMIDFromExtraBlob(t *testing.T) {
	m := New(Config{})
	rec := domain.SourceRecord{
		Title: "Something unrelated entirely",
		PMID:  "30000001",
	}

	got := m.FindDuplicates(&rec, snapshotFixture())
	require.Len(t, got, 1)
	assert.Equal(t, "KEY2", got[0].Key)
	assert.Equal(t, domain.TierExactPMID, got[0].Tier)
}

func TestFindDuplicatesISBNTier(t *testing.T) {
	m := New(Config{})
	rec := domain.SourceRecord{
		Title: "An unrelated book",
		ISBN:  "978-0-123456-78-9",
	}

	got := m.FindDuplicates(&rec, snapshotFixture())
	require.Len(t, got, 1)
	assert.Equal(t, "KEY3", got[0].Key)
	assert.Equal(t, domain.TierExactISBN, got[0].Tier)
}

func TestFindDuplicatesFuzzyTitle(t *testing.T) {
	m := New(Config{})

	t.Run("identical normalized titles score 100", func(t *testing.T) {
		rec := domain.SourceRecord{Title: "attention is ALL you need!!!"}
		got := m.FindDuplicates(&rec, snapshotFixture())
		require.Len(t, got, 1)
		assert.Equal(t, "KEY1", got[0].Key)
		assert.Equal(t, domain.TierFuzzyTitle, got[0].Tier)
		assert.Equal(t, 100, got[0].Confidence)
	})

	t.Run("word order does not matter", func(t *testing.T) {
		rec := domain.SourceRecord{Title: "All you need is attention"}
		got := m.FindDuplicates(&rec, snapshotFixture())
		require.Len(t, got, 1)
		assert.Equal(t, "KEY1", got[0].Key)
		assert.Equal(t, 100, got[0].Confidence)
	})

	t.Run("unrelated title matches nothing", func(t *testing.T) {
		rec := domain.SourceRecord{Title: "Economics of medieval grain trade"}
		got := m.FindDuplicates(&rec, snapshotFixture())
		assert.Empty(t, got)
	})
}

func TestFindDuplicatesBlankTitle(t *testing.T) {
	m := New(Config{})

	// Even with a matching DOI, a blank title returns no candidates.
	rec := domain.SourceRecord{Title: "   ???  ", DOI: "10.5555/attention"}
	got := m.FindDuplicates(&rec, snapshotFixture())
	assert.Empty(t, got)
}

func TestFindDuplicatesCandidateCap(t *testing.T) {
	items := make([]domain.ExistingItem, 8)
	for i := range items {
		items[i] = domain.ExistingItem{
			Key:   string(rune('A' + i)),
			Title: "Genome wide association study of height",
		}
	}
	m := New(Config{MaxCandidates: 5})

	rec := domain.SourceRecord{Title: "Genome wide association study of height"}
	got := m.FindDuplicates(&rec, NewSnapshot(items))
	assert.Len(t, got, 5)
	for _, c := range got {
		assert.Equal(t, 100, c.Confidence)
	}
}

func TestFindDuplicatesThreshold(t *testing.T) {
	snap := NewSnapshot([]domain.ExistingItem{
		{Key: "K", Title: "Protein folding with deep neural networks"},
	})

	strict := New(Config{TitleThreshold: 99})
	loose := New(Config{TitleThreshold: 60})

	rec := domain.SourceRecord{Title: "Protein folding using deep networks"}
	assert.Empty(t, strict.FindDuplicates(&rec, snap))
	assert.NotEmpty(t, loose.FindDuplicates(&rec, snap))
}

func TestFindDuplicatesEmptySnapshot(t *testing.T) {
	m := New(Config{})
	rec := domain.SourceRecord{Title: "Anything at all", DOI: "10.1/x"}
	assert.Empty(t, m.FindDuplicates(&rec, NewSnapshot(nil)))
}

func TestConfidenceBucket(t *testing.T) {
	tests := []struct {
		name      string
		candidate domain.MatchCandidate
		expected  string
	}{
		{"exact tier is high regardless of score", domain.MatchCandidate{Tier: domain.TierExactDOI, Confidence: 100}, "high"},
		{"fuzzy 100", domain.MatchCandidate{Tier: domain.TierFuzzyTitle, Confidence: 100}, "high"},
		{"fuzzy 95 boundary", domain.MatchCandidate{Tier: domain.TierFuzzyTitle, Confidence: 95}, "high"},
		{"fuzzy 94", domain.MatchCandidate{Tier: domain.TierFuzzyTitle, Confidence: 94}, "medium"},
		{"fuzzy 90 boundary", domain.MatchCandidate{Tier: domain.TierFuzzyTitle, Confidence: 90}, "medium"},
		{"fuzzy 89", domain.MatchCandidate{Tier: domain.TierFuzzyTitle, Confidence: 89}, "low"},
		{"fuzzy 85", domain.MatchCandidate{Tier: domain.TierFuzzyTitle, Confidence: 85}, "low"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConfidenceBucket(tt.candidate))
		})
	}
}
