package quota

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

func newCatalog(t *testing.T) *store.GORMStore {
	t.Helper()
	s, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func hashptr(s string) *string { return &s }

func seedFile(t *testing.T, catalog *store.GORMStore, owner, name, mime string, size int64, hash string) *models.FileEntry {
	t.Helper()
	e := &models.FileEntry{
		OwnerID:      owner,
		OriginalName: name,
		VirtualPath:  "/",
		MimeType:     mime,
		Size:         size,
		ContentHash:  hashptr(hash),
	}
	require.NoError(t, catalog.CreateEntry(context.Background(), e))
	return e
}

func TestStats(t *testing.T) {
	catalog := newCatalog(t)
	svc := NewService(catalog, t.TempDir(), 1000)
	ctx := context.Background()
	user := &models.User{ID: "u1"}

	seedFile(t, catalog, "u1", "p.png", "image/png", 100, "h1")
	seedFile(t, catalog, "u1", "d.pdf", "application/pdf", 30, "h2")
	gone := seedFile(t, catalog, "u1", "old.txt", "text/plain", 5, "h3")
	_, err := catalog.TrashEntry(ctx, "u1", gone.ID)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(135), stats.TotalUsed)
	assert.Equal(t, int64(100), stats.ImageSize)
	assert.Equal(t, int64(30), stats.DocSize)
	assert.Equal(t, int64(5), stats.TrashSize)
	assert.Equal(t, int64(1000), stats.Limit)
	assert.Positive(t, stats.PhysicalTotal)
	assert.Positive(t, stats.PhysicalFree)
}

func TestStatsWithoutDiskPath(t *testing.T) {
	catalog := newCatalog(t)
	svc := NewService(catalog, "", 0)

	stats, err := svc.Stats(context.Background(), &models.User{ID: "u1"})
	require.NoError(t, err)
	assert.Zero(t, stats.PhysicalTotal)
	assert.Zero(t, stats.PhysicalFree)
}

func TestLimitFor(t *testing.T) {
	svc := NewService(nil, "", 500)

	assert.Equal(t, int64(500), svc.LimitFor(&models.User{}))
	assert.Equal(t, int64(200), svc.LimitFor(&models.User{QuotaBytes: 200}))
	assert.Equal(t, int64(500), svc.LimitFor(nil))
}

func TestCheckUpload(t *testing.T) {
	catalog := newCatalog(t)
	svc := NewService(catalog, "", 100)
	ctx := context.Background()
	user := &models.User{ID: "u1"}

	seedFile(t, catalog, "u1", "a.bin", "application/octet-stream", 80, "h1")

	assert.NoError(t, svc.CheckUpload(ctx, user, 20))
	assert.ErrorIs(t, svc.CheckUpload(ctx, user, 21), models.ErrQuotaExceeded)

	// Per-user override widens the budget.
	user.QuotaBytes = 1000
	assert.NoError(t, svc.CheckUpload(ctx, user, 500))

	// Zero limit disables enforcement.
	unlimited := NewService(catalog, "", 0)
	assert.NoError(t, unlimited.CheckUpload(ctx, user2(), 1<<40))
}

func user2() *models.User { return &models.User{ID: "u2"} }
