package secret

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	box := NewBox("correct horse battery staple")
	sealed, err := box.Seal("1234~abcdefghijklmnopqrstuvwxyz")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
	assert.NotContains(t, sealed, "abcdefghij")

	plain, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "1234~abcdefghijklmnopqrstuvwxyz", plain)
}

func TestWrongPassphraseFails(t *testing.T) {
	sealed, err := NewBox("one").Seal("token")
	require.NoError(t, err)

	_, err = NewBox("two").Open(sealed)
	assert.ErrorIs(t, err, ErrOpen)

	_, err = NewBox("").Open(sealed)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestDisabledBoxIsPassthrough(t *testing.T) {
	box := NewBox("")
	assert.False(t, box.Enabled())

	sealed, err := box.Seal("token")
	require.NoError(t, err)
	assert.Equal(t, "token", sealed)

	plain, err := NewBox("enabled").Open("legacy-plain-token")
	require.NoError(t, err)
	assert.Equal(t, "legacy-plain-token", plain)
}
