// Package share issues and resolves public share links.
//
// A share link exposes exactly one file through an unguessable token,
// optionally gated by an expiry and a download limit. Limit enforcement
// is delegated to the catalog's conditional counter increment so it stays
// exact under concurrent downloads.
package share

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/metrics"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

// tokenBytes is the entropy of a share token; hex-encoded it fills the 64
// character token column.
const tokenBytes = 32

// Service manages share links on top of the catalog.
type Service struct {
	catalog *store.GORMStore
	metrics metrics.ShareMetrics
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics attaches share instrumentation. A nil value disables
// recording.
func WithMetrics(m metrics.ShareMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a share service.
func NewService(catalog *store.GORMStore, opts ...ServiceOption) *Service {
	s := &Service{catalog: catalog}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewToken returns a cryptographically random share token.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate share token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create issues a share link for a file the caller owns. Directories and
// trashed entries cannot be shared.
func (s *Service) Create(ctx context.Context, ownerID, fileID string, limit *int64, expiresAt *time.Time) (*models.ShareLink, error) {
	entry, err := s.catalog.GetEntry(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	if entry.State != models.StateActive {
		return nil, models.ErrEntryNotFound
	}
	if entry.IsDir() {
		return nil, models.ErrUnsupportedOperation
	}
	if limit != nil && *limit <= 0 {
		return nil, fmt.Errorf("download limit must be positive")
	}
	if expiresAt != nil && expiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("expiry must be in the future")
	}

	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	link := &models.ShareLink{
		Token:     token,
		FileID:    entry.ID,
		OwnerID:   ownerID,
		Limit:     limit,
		ExpiresAt: expiresAt,
	}
	if err := s.catalog.CreateShare(ctx, link); err != nil {
		return nil, err
	}
	link.File = *entry

	if s.metrics != nil {
		s.metrics.RecordShareCreated()
	}
	logger.InfoCtx(ctx, "share link created",
		logger.KeyEntryID, entry.ID, logger.KeyToken, token[:8])
	return link, nil
}

// Resolve looks up a share link for viewing. Expiry is checked; the
// download counter is untouched, so rendering a share page never burns a
// download.
func (s *Service) Resolve(ctx context.Context, token string) (*models.ShareLink, error) {
	link, err := s.resolve(ctx, token)
	s.recordOutcome(err)
	return link, err
}

func (s *Service) resolve(ctx context.Context, token string) (*models.ShareLink, error) {
	link, err := s.catalog.GetShare(ctx, token)
	if err != nil {
		return nil, err
	}
	if link.Expired(time.Now()) {
		return nil, models.ErrShareExpired
	}
	if link.Exhausted() {
		return nil, models.ErrShareExhausted
	}
	return link, nil
}

// Consume records a download against a share link and returns it with
// the file preloaded. Exactly limit downloads succeed, ever, no matter
// how many requests race.
func (s *Service) Consume(ctx context.Context, token string) (*models.ShareLink, error) {
	link, err := s.catalog.RecordDownload(ctx, token, time.Now())
	s.recordOutcome(err)
	if err != nil {
		return nil, err
	}
	return link, nil
}

// recordOutcome maps a resolution error onto the outcome counter.
func (s *Service) recordOutcome(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.RecordShareResolved(metrics.ShareOutcomeOK)
	case errors.Is(err, models.ErrShareExpired):
		s.metrics.RecordShareResolved(metrics.ShareOutcomeExpired)
	case errors.Is(err, models.ErrShareExhausted):
		s.metrics.RecordShareResolved(metrics.ShareOutcomeExhausted)
	case errors.Is(err, models.ErrShareNotFound):
		s.metrics.RecordShareResolved(metrics.ShareOutcomeNotFound)
	}
}

// List returns the owner's share links.
func (s *Service) List(ctx context.Context, ownerID string) ([]*models.ShareLink, error) {
	return s.catalog.ListShares(ctx, ownerID)
}

// Revoke deletes a share link the caller owns.
func (s *Service) Revoke(ctx context.Context, ownerID, token string) error {
	if err := s.catalog.DeleteShare(ctx, ownerID, token); err != nil {
		return err
	}
	logger.InfoCtx(ctx, "share link revoked", logger.KeyToken, token[:min(8, len(token))])
	return nil
}
