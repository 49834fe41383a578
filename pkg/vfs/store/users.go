package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
)

// CreateUser persists a new user account.
func (s *GORMStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = string(models.RoleUser)
	}
	return create(ctx, s.db, user, models.ErrDuplicateUser)
}

// GetUser retrieves a user by username.
func (s *GORMStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	return getByField[models.User](ctx, s.db, "username", username, models.ErrUserNotFound)
}

// GetUserByID retrieves a user by id.
func (s *GORMStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return getByField[models.User](ctx, s.db, "id", id, models.ErrUserNotFound)
}

// ListUsers returns all user accounts ordered by username.
func (s *GORMStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	return listAll[models.User](ctx, s.db, "username ASC")
}

// DeleteUser removes a user account by username.
func (s *GORMStore) DeleteUser(ctx context.Context, username string) error {
	return deleteByField[models.User](ctx, s.db, "username", username, models.ErrUserNotFound)
}

// ValidateCredentials checks a username/password pair and returns the
// user on success. Unknown users and wrong passwords are deliberately
// indistinguishable to the caller.
func (s *GORMStore) ValidateCredentials(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		if err == models.ErrUserNotFound {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, models.ErrInvalidCredentials
	}
	return user, nil
}

// UpdateLastLogin records a successful login.
func (s *GORMStore) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login", at).Error
}

// SetUserQuota updates the per-user quota override. Zero restores the
// server default.
func (s *GORMStore) SetUserQuota(ctx context.Context, username string, quotaBytes int64) error {
	if quotaBytes < 0 {
		return fmt.Errorf("quota must not be negative")
	}
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Update("quota_bytes", quotaBytes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// UpdatePassword replaces a user's password hash.
func (s *GORMStore) UpdatePassword(ctx context.Context, username, password string) error {
	hash, err := models.HashPassword(password)
	if err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Update("password_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// EnsureAdminUser creates the bootstrap administrator account if it does
// not exist yet. Returns true when the account was created.
func (s *GORMStore) EnsureAdminUser(ctx context.Context, password string) (bool, error) {
	_, err := s.GetUser(ctx, models.AdminUsername)
	if err == nil {
		return false, nil
	}
	if err != models.ErrUserNotFound {
		return false, err
	}

	hash, err := models.HashPassword(password)
	if err != nil {
		return false, err
	}

	err = s.CreateUser(ctx, &models.User{
		Username:     models.AdminUsername,
		PasswordHash: hash,
		Role:         string(models.RoleAdmin),
	})
	if err != nil {
		if err == models.ErrDuplicateUser {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
