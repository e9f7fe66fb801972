package collection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refkeeper/reference-import-service/internal/domain"
)

func collectionsFixture() []domain.CollectionRef {
	return []domain.CollectionRef{
		{Key: "AAAA1111", Name: "Neuroscience", ItemCount: 40},
		{Key: "BBBB2222", Name: "Machine Learning", ItemCount: 12},
		{Key: "CCCC3333", Name: "Reading List", ItemCount: 3},
		{Key: "DDDD4444", Name: "Neuroimaging Methods", ItemCount: 7},
	}
}

func TestResolveByKey(t *testing.T) {
	resolved, nf := Resolve("", "BBBB2222", collectionsFixture())
	require.Nil(t, nf)
	require.NotNil(t, resolved)
	assert.Equal(t, "BBBB2222", resolved.Key)
	assert.Equal(t, "Machine Learning", resolved.Name)
}

func TestResolveByNameCaseInsensitive(t *testing.T) {
	resolved, nf := Resolve("neuroscience", "", collectionsFixture())
	require.Nil(t, nf)
	require.NotNil(t, resolved)
	assert.Equal(t, "AAAA1111", resolved.Key)
	assert.Equal(t, "Neuroscience", resolved.Name)
}

func TestResolveKeyWinsOverName(t *testing.T) {
	resolved, nf := Resolve("Neuroscience", "CCCC3333", collectionsFixture())
	require.Nil(t, nf)
	require.NotNil(t, resolved)
	assert.Equal(t, "CCCC3333", resolved.Key)
}

func TestResolveNoDestination(t *testing.T) {
	resolved, nf := Resolve("", "", collectionsFixture())
	assert.Nil(t, resolved)
	assert.Nil(t, nf)
}

func TestResolveNeverMatchesSubstring(t *testing.T) {
	// "Neuro" is a prefix of two collection names but an exact match of
	// neither; resolution must fail with suggestions rather than guess.
	resolved, nf := Resolve("Neuro", "", collectionsFixture())
	assert.Nil(t, resolved)
	require.NotNil(t, nf)
	assert.Equal(t, "Neuro", nf.Attempted)
	assert.Equal(t, []string{"Neuroscience", "Neuroimaging Methods"}, nf.Suggestions)
	assert.Len(t, nf.Available, 4)
}

func TestResolveUnknownKey(t *testing.T) {
	resolved, nf := Resolve("", "ZZZZ9999", collectionsFixture())
	assert.Nil(t, resolved)
	require.NotNil(t, nf)
	assert.Equal(t, "ZZZZ9999", nf.Attempted)
	assert.Empty(t, nf.Suggestions)
}

func TestResolveNotFoundCaps(t *testing.T) {
	snap := make([]domain.CollectionRef, 30)
	for i := range snap {
		snap[i] = domain.CollectionRef{
			Key:  fmt.Sprintf("KEY%02d", i),
			Name: fmt.Sprintf("Project Alpha %02d", i),
		}
	}

	_, nf := Resolve("alpha", "", snap)
	require.NotNil(t, nf)
	assert.Len(t, nf.Suggestions, 5)
	assert.Len(t, nf.Available, 20)
}
