package lifecycle

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/activity"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/content"
	contentfs "github.com/Dreamer0iQ/0x40-cloud/pkg/content/store/fs"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/quota"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

type testEnv struct {
	svc     *Service
	catalog *store.GORMStore
	content *content.Service
	user    *models.User
}

func newTestEnv(t *testing.T, quotaLimit int64) *testEnv {
	t.Helper()

	catalog, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalog.Close() })

	blobs, err := contentfs.New(contentfs.Config{BasePath: t.TempDir()})
	require.NoError(t, err)
	contentSvc := content.NewService(blobs, content.WithSpoolDir(t.TempDir()))

	quotaSvc := quota.NewService(catalog, "", quotaLimit)
	svc := NewService(catalog, contentSvc, quotaSvc, activity.NewNoop())

	return &testEnv{
		svc:     svc,
		catalog: catalog,
		content: contentSvc,
		user:    &models.User{ID: "u1", Username: "alice"},
	}
}

func upload(t *testing.T, env *testEnv, name, dir string, data []byte) *models.FileEntry {
	t.Helper()
	entry, err := env.svc.Upload(context.Background(), env.user, UploadRequest{
		Name:    name,
		Path:    dir,
		Content: bytes.NewReader(data),
	})
	require.NoError(t, err)
	return entry
}

func TestUploadStoresAndDeduplicates(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	data := []byte("shared payload")

	a := upload(t, env, "a.txt", "/", data)
	b := upload(t, env, "b.txt", "/Docs/", data)

	require.NotNil(t, a.ContentHash)
	assert.Equal(t, *a.ContentHash, *b.ContentHash)

	refs, err := env.catalog.BlobRefCount(ctx, *a.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, int64(2), refs)

	rc, _, err := env.svc.Download(ctx, "u1", a.ID, false)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, data, got)
}

func TestUploadVerifiesHash(t *testing.T) {
	env := newTestEnv(t, 0)

	sum := sha256.Sum256([]byte("right bytes"))
	_, err := env.svc.Upload(context.Background(), env.user, UploadRequest{
		Name:         "a.txt",
		Path:         "/",
		Content:      bytes.NewReader([]byte("wrong bytes")),
		ExpectedHash: hex.EncodeToString(sum[:]),
	})
	assert.ErrorIs(t, err, models.ErrIntegrity)
}

func TestUploadConflictReleasesStagedBlob(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	upload(t, env, "a.txt", "/", []byte("first"))

	_, err := env.svc.Upload(ctx, env.user, UploadRequest{
		Name:    "a.txt",
		Path:    "/",
		Content: bytes.NewReader([]byte("second, different bytes")),
	})
	require.ErrorIs(t, err, models.ErrDuplicateEntry)

	sum := sha256.Sum256([]byte("second, different bytes"))
	exists, err := env.content.Exists(ctx, hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	assert.False(t, exists, "staged bytes of the failed upload are released")
}

func TestUploadConflictKeepsSharedBlob(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	data := []byte("still referenced")

	a := upload(t, env, "a.txt", "/", data)

	// The failed upload carries the same content another entry uses.
	_, err := env.svc.Upload(ctx, env.user, UploadRequest{
		Name:    "a.txt",
		Path:    "/",
		Content: bytes.NewReader(data),
	})
	require.ErrorIs(t, err, models.ErrDuplicateEntry)

	exists, err := env.content.Exists(ctx, *a.ContentHash)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUploadQuota(t *testing.T) {
	env := newTestEnv(t, 10)

	upload(t, env, "small.txt", "/", []byte("1234567"))

	_, err := env.svc.Upload(context.Background(), env.user, UploadRequest{
		Name:    "big.txt",
		Path:    "/",
		Content: bytes.NewReader([]byte("overflow")),
	})
	assert.ErrorIs(t, err, models.ErrQuotaExceeded)
}

func TestUploadRejectsBadNames(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	for _, name := range []string{"", "a/b.txt", "a\\b.txt", "..", "bad\x00name"} {
		_, err := env.svc.Upload(ctx, env.user, UploadRequest{
			Name:    name,
			Path:    "/",
			Content: bytes.NewReader([]byte("x")),
		})
		assert.Error(t, err, "name %q", name)
	}
}

func TestUploadBatchPartialFailure(t *testing.T) {
	env := newTestEnv(t, 0)

	upload(t, env, "taken.txt", "/", []byte("already here"))

	results := env.svc.UploadBatch(context.Background(), env.user, []UploadRequest{
		{Name: "ok.txt", Path: "/", Content: bytes.NewReader([]byte("fine"))},
		{Name: "taken.txt", Path: "/", Content: bytes.NewReader([]byte("collides"))},
		{Name: "also-ok.txt", Path: "/", Content: bytes.NewReader([]byte("fine too"))},
	})

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, models.ErrDuplicateEntry)
	assert.NoError(t, results[2].Err)
}

func TestMoveIntoAutoCreatedFolder(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	_, err := env.svc.CreateFolder(ctx, "u1", "/", "Docs")
	require.NoError(t, err)
	a := upload(t, env, "a.txt", "/Docs/", []byte("doc"))

	// /Docs/Sub/ does not exist yet; moving into it creates it
	// implicitly.
	_, err = env.svc.Move(ctx, "u1", a.ID, "/Docs/Sub/")
	require.NoError(t, err)

	sub, err := env.svc.List(ctx, "u1", "/Docs/Sub/")
	require.NoError(t, err)
	require.Len(t, sub.Entries, 1)
	assert.Equal(t, "a.txt", sub.Entries[0].OriginalName)

	docs, err := env.svc.List(ctx, "u1", "/Docs/")
	require.NoError(t, err)
	require.Len(t, docs.Entries, 1)
	assert.True(t, docs.Entries[0].IsDir(), "only the Sub folder remains")
}

func TestCreateFolderDuplicate(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	_, err := env.svc.CreateFolder(ctx, "u1", "/", "Docs")
	require.NoError(t, err)
	_, err = env.svc.CreateFolder(ctx, "u1", "/", "Docs")
	assert.ErrorIs(t, err, models.ErrDuplicateEntry)
}

func TestPermanentDeleteRemovesPhysicalBytes(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	a := upload(t, env, "a.txt", "/", []byte("unique bytes"))
	hash := *a.ContentHash

	_, err := env.svc.Trash(ctx, "u1", a.ID)
	require.NoError(t, err)
	require.NoError(t, env.svc.PermanentDelete(ctx, "u1", a.ID))

	exists, err := env.content.Exists(ctx, hash)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPermanentDeleteKeepsSharedBytes(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	data := []byte("two references")

	a := upload(t, env, "a.txt", "/", data)
	upload(t, env, "b.txt", "/", data)

	_, err := env.svc.Trash(ctx, "u1", a.ID)
	require.NoError(t, err)
	require.NoError(t, env.svc.PermanentDelete(ctx, "u1", a.ID))

	exists, err := env.content.Exists(ctx, *a.ContentHash)
	require.NoError(t, err)
	assert.True(t, exists, "bytes survive while another entry references them")
}

func TestDownloadGuards(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	a := upload(t, env, "a.txt", "/", []byte("data"))
	folder, err := env.svc.CreateFolder(ctx, "u1", "/", "Docs")
	require.NoError(t, err)

	_, _, err = env.svc.Download(ctx, "u2", a.ID, false)
	assert.ErrorIs(t, err, models.ErrEntryNotFound)

	_, _, err = env.svc.Download(ctx, "u1", folder.ID, false)
	assert.ErrorIs(t, err, models.ErrUnsupportedOperation)

	_, err = env.svc.Trash(ctx, "u1", a.ID)
	require.NoError(t, err)
	_, _, err = env.svc.Download(ctx, "u1", a.ID, false)
	assert.ErrorIs(t, err, models.ErrEntryNotFound)
}

func TestDownloadCorruptedReference(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	a := upload(t, env, "a.txt", "/", []byte("soon gone"))
	require.NoError(t, env.content.Remove(ctx, *a.ContentHash))

	_, _, err := env.svc.Download(ctx, "u1", a.ID, false)
	assert.ErrorIs(t, err, models.ErrCorruptedReference)
}

func TestArchiveFolder(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	upload(t, env, "a.txt", "/Docs/", []byte("alpha"))
	upload(t, env, "b.txt", "/Docs/Sub/", []byte("beta"))
	upload(t, env, "outside.txt", "/", []byte("not included"))

	var buf bytes.Buffer
	require.NoError(t, env.svc.ArchiveFolder(ctx, "u1", "/Docs/", &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	names := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		names[f.Name] = data
	}
	assert.Equal(t, []byte("alpha"), names["a.txt"])
	assert.Equal(t, []byte("beta"), names["Sub/b.txt"])
}

// archiveMutator trashes an entry on the first write to the archive
// stream, after the subtree snapshot is taken but before the closing
// generation check.
type archiveMutator struct {
	buf    bytes.Buffer
	once   sync.Once
	mutate func()
}

func (w *archiveMutator) Write(p []byte) (int, error) {
	w.once.Do(w.mutate)
	return w.buf.Write(p)
}

func TestArchiveFolderDetectsMidStreamChange(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	upload(t, env, "a.txt", "/Docs/", []byte("alpha"))
	victim := upload(t, env, "b.txt", "/Docs/", []byte("beta"))

	w := &archiveMutator{mutate: func() {
		_, err := env.svc.Trash(ctx, "u1", victim.ID)
		require.NoError(t, err)
	}}

	err := env.svc.ArchiveFolder(ctx, "u1", "/Docs/", w)
	assert.ErrorIs(t, err, models.ErrConcurrentModification)
}

func TestArchiveFolderMissing(t *testing.T) {
	env := newTestEnv(t, 0)

	var buf bytes.Buffer
	err := env.svc.ArchiveFolder(context.Background(), "u1", "/Nope/", &buf)
	assert.ErrorIs(t, err, models.ErrEntryNotFound)
}

func TestDeleteFolder(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	upload(t, env, "a.txt", "/Docs/", []byte("one"))
	upload(t, env, "b.txt", "/Docs/Sub/", []byte("two"))

	trashed, err := env.svc.DeleteFolder(ctx, "u1", "/Docs/")
	require.NoError(t, err)
	assert.Equal(t, int64(2), trashed)

	listing, err := env.svc.List(ctx, "u1", "/")
	require.NoError(t, err)
	assert.Empty(t, listing.Entries)
}

func TestSuggestedFallsBackToRecent(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	upload(t, env, "a.txt", "/", []byte("a"))
	upload(t, env, "b.txt", "/", []byte("b"))

	suggested, err := env.svc.Suggested(ctx, "u1", 5)
	require.NoError(t, err)
	assert.Len(t, suggested, 2)
}

func TestConcurrentUploadsSameDirectory(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := env.svc.Upload(ctx, env.user, UploadRequest{
				Name:    "same.txt",
				Path:    "/",
				Content: bytes.NewReader([]byte("identical bytes")),
			})
			errs <- err
		}()
	}

	var ok, conflict int
	for i := 0; i < n; i++ {
		if err := <-errs; err == nil {
			ok++
		} else if assert.ErrorIs(t, err, models.ErrDuplicateEntry) {
			conflict++
		}
	}
	assert.Equal(t, 1, ok, "exactly one upload wins the name")
	assert.Equal(t, n-1, conflict)

	listing, err := env.svc.List(ctx, "u1", "/")
	require.NoError(t, err)
	require.Len(t, listing.Entries, 1)

	refs, err := env.catalog.BlobRefCount(ctx, *listing.Entries[0].ContentHash)
	require.NoError(t, err)
	assert.Equal(t, int64(1), refs, "losing uploads release their reference")

	exists, err := env.content.Exists(ctx, *listing.Entries[0].ContentHash)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestConcurrentUploadAndCleanupKeepsBytes(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	data := []byte("contended payload")
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	// Cleanup hammers the hash the way a failed sibling upload would
	// while dedup uploads of the same bytes commit. A committed row must
	// never be left pointing at removed bytes.
	const uploads = 8
	done := make(chan struct{})
	cleanerDone := make(chan struct{})
	go func() {
		defer close(cleanerDone)
		for {
			select {
			case <-done:
				return
			default:
				env.svc.releaseStaged(ctx, hash)
			}
		}
	}()

	errs := make(chan error, uploads)
	for i := 0; i < uploads; i++ {
		go func(i int) {
			_, err := env.svc.Upload(ctx, env.user, UploadRequest{
				Name:    fmt.Sprintf("copy-%d.txt", i),
				Path:    "/",
				Content: bytes.NewReader(data),
			})
			errs <- err
		}(i)
	}
	for i := 0; i < uploads; i++ {
		require.NoError(t, <-errs)
	}
	close(done)
	<-cleanerDone

	refs, err := env.catalog.BlobRefCount(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, int64(uploads), refs)

	listing, err := env.svc.List(ctx, "u1", "/")
	require.NoError(t, err)
	require.Len(t, listing.Entries, uploads)
	for _, entry := range listing.Entries {
		rc, _, err := env.svc.Download(ctx, "u1", entry.ID, false)
		require.NoError(t, err, "entry %s must not reference missing bytes", entry.OriginalName)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, data, got)
	}
}

func TestPermanentDeleteSkipsBytesReclaimedByReupload(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	data := []byte("deleted then reuploaded")

	first := upload(t, env, "old.txt", "/", data)
	_, err := env.svc.Trash(ctx, "u1", first.ID)
	require.NoError(t, err)

	// A new entry takes over the hash before the old one is purged.
	second := upload(t, env, "new.txt", "/", data)
	require.NoError(t, env.svc.PermanentDelete(ctx, "u1", first.ID))

	refs, err := env.catalog.BlobRefCount(ctx, *second.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, int64(1), refs)

	rc, _, err := env.svc.Download(ctx, "u1", second.ID, false)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, data, got)
}
