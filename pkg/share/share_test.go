package share

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

func newService(t *testing.T) (*Service, *store.GORMStore) {
	t.Helper()
	catalog, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalog.Close() })
	return NewService(catalog), catalog
}

func seedFile(t *testing.T, catalog *store.GORMStore, owner, name string) *models.FileEntry {
	t.Helper()
	hash := "a1b2"
	e := &models.FileEntry{
		OwnerID:      owner,
		OriginalName: name,
		VirtualPath:  "/",
		MimeType:     "text/plain",
		Size:         4,
		ContentHash:  &hash,
	}
	require.NoError(t, catalog.CreateEntry(context.Background(), e))
	return e
}

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestCreateAndResolve(t *testing.T) {
	svc, catalog := newService(t)
	ctx := context.Background()
	file := seedFile(t, catalog, "u1", "a.txt")

	link, err := svc.Create(ctx, "u1", file.ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, link.Token, 64)
	assert.Equal(t, file.ID, link.FileID)

	resolved, err := svc.Resolve(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", resolved.File.OriginalName)
	assert.Zero(t, resolved.Downloads, "resolving never burns a download")
}

func TestCreateGuards(t *testing.T) {
	svc, catalog := newService(t)
	ctx := context.Background()
	file := seedFile(t, catalog, "u1", "a.txt")

	_, err := svc.Create(ctx, "u2", file.ID, nil, nil)
	assert.ErrorIs(t, err, models.ErrEntryNotFound, "other users' files cannot be shared")

	folder := &models.FileEntry{
		OwnerID:      "u1",
		OriginalName: "Docs",
		VirtualPath:  "/",
		MimeType:     models.MimeDirectory,
	}
	require.NoError(t, catalog.CreateEntry(ctx, folder))
	_, err = svc.Create(ctx, "u1", folder.ID, nil, nil)
	assert.ErrorIs(t, err, models.ErrUnsupportedOperation)

	_, err = catalog.TrashEntry(ctx, "u1", file.ID)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", file.ID, nil, nil)
	assert.ErrorIs(t, err, models.ErrEntryNotFound, "trashed files cannot be shared")

	bad := int64(0)
	other := seedFile(t, catalog, "u1", "b.txt")
	_, err = svc.Create(ctx, "u1", other.ID, &bad, nil)
	assert.Error(t, err)

	past := time.Now().Add(-time.Minute)
	_, err = svc.Create(ctx, "u1", other.ID, nil, &past)
	assert.Error(t, err)
}

func TestConsumeHonorsLimit(t *testing.T) {
	svc, catalog := newService(t)
	ctx := context.Background()
	file := seedFile(t, catalog, "u1", "a.txt")

	limit := int64(2)
	link, err := svc.Create(ctx, "u1", file.ID, &limit, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := svc.Consume(ctx, link.Token)
		require.NoError(t, err)
	}

	_, err = svc.Consume(ctx, link.Token)
	assert.ErrorIs(t, err, models.ErrShareExhausted)

	// The exhausted link also stops resolving.
	_, err = svc.Resolve(ctx, link.Token)
	assert.ErrorIs(t, err, models.ErrShareExhausted)
}

func TestConsumeLimitUnderContention(t *testing.T) {
	svc, catalog := newService(t)
	ctx := context.Background()
	file := seedFile(t, catalog, "u1", "a.txt")

	limit := int64(1)
	link, err := svc.Create(ctx, "u1", file.ID, &limit, nil)
	require.NoError(t, err)

	const racers = 8
	start := make(chan struct{})
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Consume(ctx, link.Token)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var granted, exhausted int
	for err := range errs {
		switch {
		case err == nil:
			granted++
		case errors.Is(err, models.ErrShareExhausted):
			exhausted++
		default:
			t.Fatalf("unexpected consume error: %v", err)
		}
	}
	assert.Equal(t, 1, granted, "a limit of one admits exactly one racer")
	assert.Equal(t, racers-1, exhausted)

	stored, err := catalog.GetShare(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Downloads, "counter never overshoots the limit")
}

func TestCreateRejectsTokenCollision(t *testing.T) {
	_, catalog := newService(t)
	ctx := context.Background()
	file := seedFile(t, catalog, "u1", "a.txt")

	first := &models.ShareLink{Token: "fixed-token", FileID: file.ID, OwnerID: "u1"}
	require.NoError(t, catalog.CreateShare(ctx, first))

	second := &models.ShareLink{Token: "fixed-token", FileID: file.ID, OwnerID: "u1"}
	err := catalog.CreateShare(ctx, second)
	assert.ErrorIs(t, err, models.ErrShareExists)
}

func TestExpiredLinkRejected(t *testing.T) {
	svc, catalog := newService(t)
	ctx := context.Background()
	file := seedFile(t, catalog, "u1", "a.txt")

	soon := time.Now().Add(30 * time.Millisecond)
	link, err := svc.Create(ctx, "u1", file.ID, nil, &soon)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	_, err = svc.Resolve(ctx, link.Token)
	assert.ErrorIs(t, err, models.ErrShareExpired)
	_, err = svc.Consume(ctx, link.Token)
	assert.ErrorIs(t, err, models.ErrShareExpired)
}

func TestListAndRevoke(t *testing.T) {
	svc, catalog := newService(t)
	ctx := context.Background()
	file := seedFile(t, catalog, "u1", "a.txt")

	link, err := svc.Create(ctx, "u1", file.ID, nil, nil)
	require.NoError(t, err)

	links, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, links, 1)

	err = svc.Revoke(ctx, "u2", link.Token)
	assert.ErrorIs(t, err, models.ErrShareNotFound)

	require.NoError(t, svc.Revoke(ctx, "u1", link.Token))
	_, err = svc.Resolve(ctx, link.Token)
	assert.ErrorIs(t, err, models.ErrShareNotFound)
}

func TestResolveUnknownToken(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrShareNotFound)
}
