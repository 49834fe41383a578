package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "0x40-cloud", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
}

func TestSpanHelpersWithoutInit(t *testing.T) {
	tracer = nil
	enabled = false
	ctx := context.Background()

	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("boom"))
		RecordError(ctx, nil)
	})
	assert.Equal(t, "", TraceID(ctx))
}

func TestAttributeHelpers(t *testing.T) {
	assert.Equal(t, AttrClientIP, string(ClientIP("10.0.0.1").Key))
	assert.Equal(t, "10.0.0.1", ClientIP("10.0.0.1").Value.AsString())

	assert.Equal(t, AttrOwnerID, string(OwnerID("u1").Key))
	assert.Equal(t, AttrEntryID, string(EntryID("e1").Key))
	assert.Equal(t, AttrPath, string(Path("/Documents/").Key))
	assert.Equal(t, AttrBlobHash, string(BlobHash("abc").Key))
	assert.Equal(t, int64(1<<20), BlobSize(1<<20).Value.AsInt64())
	assert.True(t, Deduplicated(true).Value.AsBool())
}

func TestLifecycleAndBlobSpans(t *testing.T) {
	ctx := context.Background()

	_, span := StartLifecycleSpan(ctx, "upload", "u1", Path("/"))
	require.NotNil(t, span)
	span.End()

	_, span = StartBlobSpan(ctx, "put", "abc123", BlobSize(1024))
	require.NotNil(t, span)
	span.End()
}
