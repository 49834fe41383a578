package fs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/content/store"
)

const testHash = "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{BasePath: t.TempDir()})
	require.NoError(t, err)
	return s
}

func TestWriteShardsPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.Write(ctx, testHash, bytes.NewReader([]byte("data")))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	// ab/cd/<hash> fan-out on disk.
	_, err = os.Stat(filepath.Join(s.BasePath(), "aa", "bb", testHash))
	assert.NoError(t, err)
}

func TestWriteExistingIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Write(ctx, testHash, bytes.NewReader([]byte("data")))
	require.NoError(t, err)

	// The second write never touches the reader.
	n, err := s.Write(ctx, testHash, failingReader{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestOpenAndRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Write(ctx, testHash, bytes.NewReader([]byte("payload")))
	require.NoError(t, err)

	rc, err := s.Open(ctx, testHash)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, []byte("payload"), data)

	require.NoError(t, s.Remove(ctx, testHash))
	_, err = s.Open(ctx, testHash)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Emptied shard directories are pruned.
	_, err = os.Stat(filepath.Join(s.BasePath(), "aa"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Remove(ctx, testHash))
}

func TestClosedStore(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	ctx := context.Background()
	_, err := s.Write(ctx, testHash, bytes.NewReader(nil))
	assert.ErrorIs(t, err, store.ErrStoreClosed)
	_, err = s.Open(ctx, testHash)
	assert.ErrorIs(t, err, store.ErrStoreClosed)
	_, err = s.Exists(ctx, testHash)
	assert.ErrorIs(t, err, store.ErrStoreClosed)
	assert.ErrorIs(t, s.Remove(ctx, testHash), store.ErrStoreClosed)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
