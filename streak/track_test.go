package streak

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupTrack(t *testing.T) {
	for _, name := range TrackNames() {
		tr, ok := LookupTrack(name)
		require.True(t, ok, name)
		assert.Equal(t, name, tr.Name)
		assert.NotEmpty(t, tr.Title)
		assert.NotEmpty(t, tr.CommitmentLabel)
		assert.Equal(t, 2000, tr.MaxCommitmentLen)
	}

	_, ok := LookupTrack("yoga")
	assert.False(t, ok)
	_, ok = LookupTrack("")
	assert.False(t, ok)
}

func TestTrackCapabilities(t *testing.T) {
	monk, _ := LookupTrack("monkmode")
	assert.True(t, monk.SupportsStartingDay)
	assert.Equal(t, 5000, monk.MaxStartingDay)
	assert.False(t, monk.SupportsAllowedItems)

	nofap, _ := LookupTrack("nofap")
	assert.True(t, nofap.SupportsStartingDay)
	assert.False(t, nofap.SupportsAllowedItems)

	social, _ := LookupTrack("nosocial")
	assert.False(t, social.SupportsStartingDay)
	assert.True(t, social.SupportsAllowedItems)
	assert.Equal(t, 50, social.MaxAllowedItems)
}
