// Package lifecycle orchestrates the file state machine: upload, rename,
// move, star, trash, restore, permanent deletion, recursive folder
// removal and folder archiving.
//
// Every operation runs against the catalog and, where bytes move, the
// content store. The catalog transactionally owns multi-row invariants;
// this layer adds per-directory serialization, quota enforcement,
// physical blob cleanup and timeout mapping on top.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/activity"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/content"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/content/cache"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/metrics"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/quota"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

// DefaultStorageTimeout bounds a single physical storage operation.
const DefaultStorageTimeout = 2 * time.Minute

// Service is the lifecycle manager.
type Service struct {
	catalog  *store.GORMStore
	content  *content.Service
	quota    *quota.Service
	activity activity.Tracker
	previews *cache.Cache
	metrics  metrics.TransferMetrics

	dirLocks       *keyedMutex
	blobLocks      *keyedMutex
	storageTimeout time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPreviewCache attaches a preview cache used by preview downloads.
func WithPreviewCache(c *cache.Cache) ServiceOption {
	return func(s *Service) { s.previews = c }
}

// WithTransferMetrics attaches transfer instrumentation. A nil value
// disables recording.
func WithTransferMetrics(m metrics.TransferMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithStorageTimeout bounds physical storage operations.
func WithStorageTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.storageTimeout = d }
}

// NewService creates a lifecycle service.
func NewService(catalog *store.GORMStore, contentSvc *content.Service, quotaSvc *quota.Service, tracker activity.Tracker, opts ...ServiceOption) *Service {
	s := &Service{
		catalog:        catalog,
		content:        contentSvc,
		quota:          quotaSvc,
		activity:       tracker,
		dirLocks:       newKeyedMutex(),
		blobLocks:      newKeyedMutex(),
		storageTimeout: DefaultStorageTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// storageCtx derives a deadline-bound context for physical storage work.
func (s *Service) storageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storageTimeout)
}

// mapTimeout surfaces deadline expiry as the domain timeout error so
// callers never see a raw context error from storage I/O.
func mapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrTimeout
	}
	return err
}

// dirKey scopes a directory lock to one owner.
func dirKey(ownerID, dirPath string) string {
	return ownerID + "\x00" + dirPath
}
