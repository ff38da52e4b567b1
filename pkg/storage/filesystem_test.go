package storage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, ok, err := s.Read("state.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save("state.json", []byte(`{"a":1}`)))
	require.NoError(t, s.Save("state.json", []byte(`{"a":2}`)))
	data, ok, err := s.Read("state.json")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":2}`, string(data))

	require.NoError(t, s.Delete("state.json"))
	require.NoError(t, s.Delete("state.json"))
	_, err = os.Stat(s.Path("state.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
		assert.ErrorIs(t, s.Save(name, nil), ErrInvalidName, name)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save("k.json", []byte("v")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k.json", entries[0].Name())
}
