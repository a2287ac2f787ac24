package keys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/pointer"

	"github.com/meili-operator/meilisearch-operator/internal/meiliclient"
)

func searchKeyDefinition() Definition {
	return Definition{
		Name:    pointer.String("search-key"),
		Actions: []string{"search"},
		Indexes: []string{"movies"},
	}
}

func TestResolveCreatesWhenNothingMatches(t *testing.T) {
	mock := meiliclient.NewMockClient()
	ctx := context.Background()

	resolution, err := Resolve(ctx, mock, searchKeyDefinition(), "", "")
	require.NoError(t, err)

	assert.Equal(t, SourceCreated, resolution.Source)
	assert.True(t, resolution.Owned)
	assert.False(t, resolution.PriorLost)
	assert.NotEmpty(t, resolution.UID)
	assert.NotEmpty(t, resolution.Value)
	assert.Len(t, mock.Keys, 1)
}

func TestResolveIsIdempotentAcrossRuns(t *testing.T) {
	mock := meiliclient.NewMockClient()
	ctx := context.Background()

	first, err := Resolve(ctx, mock, searchKeyDefinition(), "", "")
	require.NoError(t, err)

	// A second resolution without recorded state must find the key it
	// created before instead of minting a duplicate.
	second, err := Resolve(ctx, mock, searchKeyDefinition(), "", "")
	require.NoError(t, err)

	assert.Equal(t, first.UID, second.UID)
	assert.Equal(t, SourceAdoptedExact, second.Source)
	assert.Len(t, mock.Keys, 1)
}

func TestResolveReusesStatusUID(t *testing.T) {
	mock := meiliclient.NewMockClient()
	mock.Keys = []meiliclient.Key{
		{UID: "uid-existing", Key: "value-existing", Actions: []string{"search"}, Indexes: []string{"movies"}},
	}
	ctx := context.Background()

	resolution, err := Resolve(ctx, mock, searchKeyDefinition(), "", "uid-existing")
	require.NoError(t, err)

	assert.Equal(t, SourceStatus, resolution.Source)
	assert.Equal(t, "uid-existing", resolution.UID)
	assert.Equal(t, "value-existing", resolution.Value)
	assert.False(t, resolution.Owned)
	// One GetKey, nothing else.
	assert.Equal(t, 1, mock.TotalCalls())
}

func TestResolveValidatesSecretValue(t *testing.T) {
	mock := meiliclient.NewMockClient()
	mock.Keys = []meiliclient.Key{
		{UID: "uid-prefilled", Key: "value-prefilled", Actions: []string{"*"}, Indexes: []string{"*"}},
	}
	ctx := context.Background()

	resolution, err := Resolve(ctx, mock, searchKeyDefinition(), "value-prefilled", "")
	require.NoError(t, err)

	assert.Equal(t, SourceSecret, resolution.Source)
	assert.Equal(t, "uid-prefilled", resolution.UID)
	assert.False(t, resolution.Owned)
	assert.Len(t, mock.Keys, 1)
}

func TestResolveReportsLostPriorKey(t *testing.T) {
	mock := meiliclient.NewMockClient()
	ctx := context.Background()

	resolution, err := Resolve(ctx, mock, searchKeyDefinition(), "", "uid-gone")
	require.NoError(t, err)

	assert.True(t, resolution.PriorLost)
	assert.Equal(t, SourceCreated, resolution.Source)
	assert.NotEqual(t, "uid-gone", resolution.UID)
}

func TestResolveAdoptsRelaxedMatch(t *testing.T) {
	mock := meiliclient.NewMockClient()
	mock.Keys = []meiliclient.Key{
		{
			UID:         "uid-legacy",
			Key:         "value-legacy",
			Name:        pointer.String("made-by-hand"),
			Description: pointer.String("predates the operator"),
			Actions:     []string{"search"},
			Indexes:     []string{"movies"},
		},
	}
	ctx := context.Background()

	resolution, err := Resolve(ctx, mock, searchKeyDefinition(), "", "")
	require.NoError(t, err)

	assert.Equal(t, SourceAdoptedRelaxed, resolution.Source)
	assert.Equal(t, "uid-legacy", resolution.UID)
	assert.True(t, resolution.Owned)
	assert.Len(t, mock.Keys, 1)
}
