package store

import (
	"context"

	"gorm.io/gorm"
)

// Generic catalog helpers. These wrap the most common GORM access patterns
// so each entity file only spells out the queries that are actually
// entity-specific.

// getByField retrieves a single record matched by one field.
func getByField[T any](ctx context.Context, db *gorm.DB, field string, value any, notFoundErr error) (*T, error) {
	var record T
	err := db.WithContext(ctx).Where(field+" = ?", value).First(&record).Error
	if err != nil {
		return nil, convertNotFoundError(err, notFoundErr)
	}
	return &record, nil
}

// listAll retrieves all records of a type, optionally scoped and ordered.
func listAll[T any](ctx context.Context, db *gorm.DB, order string, conds ...any) ([]*T, error) {
	var records []*T
	q := db.WithContext(ctx)
	if order != "" {
		q = q.Order(order)
	}
	if err := q.Find(&records, conds...).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// create inserts a record, translating unique constraint violations into
// the supplied duplicate error.
func create[T any](ctx context.Context, db *gorm.DB, record *T, duplicateErr error) error {
	if err := db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueConstraintError(err) {
			return duplicateErr
		}
		return err
	}
	return nil
}

// deleteByField removes records matched by one field and reports
// notFoundErr when nothing matched.
func deleteByField[T any](ctx context.Context, db *gorm.DB, field string, value any, notFoundErr error) error {
	var record T
	result := db.WithContext(ctx).Where(field+" = ?", value).Delete(&record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundErr
	}
	return nil
}
