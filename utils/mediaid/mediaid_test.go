package mediaid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PrefixedAndUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New(PrefixImage)
		require.True(t, strings.HasPrefix(id, "img_"))
		require.Equal(t, strings.ToLower(id), id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestIsValid(t *testing.T) {
	id := New(PrefixAudio)
	assert.True(t, IsValid(PrefixAudio, id))
	assert.False(t, IsValid(PrefixImage, id))
	assert.False(t, IsValid(PrefixAudio, "aud_not-a-ulid"))
}
