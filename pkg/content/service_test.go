package content

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/content/store/fs"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()

	blobs, err := fs.New(fs.Config{BasePath: t.TempDir()})
	require.NoError(t, err)

	svc := NewService(blobs, append([]Option{WithSpoolDir(t.TempDir())}, opts...)...)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func sha256hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestPutAndOpen(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	data := []byte("hello content world")

	result, err := svc.Put(ctx, bytes.NewReader(data), "")
	require.NoError(t, err)
	assert.Equal(t, sha256hex(data), result.Hash)
	assert.Equal(t, int64(len(data)), result.Size)
	assert.False(t, result.Deduplicated)
	assert.Contains(t, result.MimeType, "text/plain")

	rc, err := svc.Open(ctx, result.Hash)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPutDeduplicates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	data := []byte("same bytes twice")

	first, err := svc.Put(ctx, bytes.NewReader(data), "")
	require.NoError(t, err)
	assert.False(t, first.Deduplicated)

	second, err := svc.Put(ctx, bytes.NewReader(data), "")
	require.NoError(t, err)
	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.Hash, second.Hash)
}

func TestPutVerifiesExpectedHash(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	data := []byte("verify me")

	// A correct client-provided hash is accepted, case-insensitively.
	want := strings.ToUpper(sha256hex(data))
	_, err := svc.Put(ctx, bytes.NewReader(data), want)
	require.NoError(t, err)

	_, err = svc.Put(ctx, bytes.NewReader([]byte("other bytes")), want)
	assert.ErrorIs(t, err, models.ErrIntegrity)
}

func TestPutEnforcesMaxSize(t *testing.T) {
	svc := newTestService(t, WithMaxSize(8))
	ctx := context.Background()

	_, err := svc.Put(ctx, bytes.NewReader([]byte("12345678")), "")
	require.NoError(t, err)

	_, err = svc.Put(ctx, bytes.NewReader([]byte("123456789")), "")
	assert.ErrorIs(t, err, models.ErrEntryTooLarge)
}

func TestOpenMissing(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Open(context.Background(), strings.Repeat("ab", 32))
	assert.ErrorIs(t, err, models.ErrBlobNotFound)
}

func TestRemove(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result, err := svc.Put(ctx, bytes.NewReader([]byte("short lived")), "")
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, result.Hash))
	exists, err := svc.Exists(ctx, result.Hash)
	require.NoError(t, err)
	assert.False(t, exists)

	// Removing again is a no-op.
	assert.NoError(t, svc.Remove(ctx, result.Hash))
}

func TestStagedCommitSurvivesRemoval(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	data := []byte("staged twice")

	staged, err := svc.Stage(ctx, bytes.NewReader(data), "")
	require.NoError(t, err)
	defer staged.Discard()
	assert.Equal(t, sha256hex(data), staged.Hash)

	// Staging alone writes nothing.
	exists, err := svc.Exists(ctx, staged.Hash)
	require.NoError(t, err)
	assert.False(t, exists)

	dedup, err := staged.Commit(ctx)
	require.NoError(t, err)
	assert.False(t, dedup)

	// The spool stays valid, so a commit after the bytes were removed
	// out from under us writes them again.
	require.NoError(t, svc.Remove(ctx, staged.Hash))
	dedup, err = staged.Commit(ctx)
	require.NoError(t, err)
	assert.False(t, dedup)

	rc, err := svc.Open(ctx, staged.Hash)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
