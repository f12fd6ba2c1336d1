package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"task-calendar/internal/model"
)

// BucketRepository manages task buckets.
type BucketRepository struct {
	db *gorm.DB
}

func NewBucketRepository(db *gorm.DB) *BucketRepository {
	return &BucketRepository{db: db}
}

// GetOrCreate returns the user's bucket with the given name, creating it on
// first use. An empty name yields nil.
func (r *BucketRepository) GetOrCreate(ctx context.Context, userID, name string) (*model.Bucket, error) {
	if name == "" {
		return nil, nil
	}

	var bucket model.Bucket
	db := r.db.WithContext(ctx)
	err := db.Where("user_id = ? AND name = ?", userID, name).First(&bucket).Error
	switch {
	case err == nil:
		return &bucket, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		bucket = model.Bucket{UserID: userID, Name: name}
		if err := db.Create(&bucket).Error; err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		return &bucket, nil
	default:
		return nil, fmt.Errorf("find bucket: %w", err)
	}
}

func (r *BucketRepository) ListByUser(ctx context.Context, userID string) ([]model.Bucket, error) {
	var buckets []model.Bucket
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&buckets).Error; err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	return buckets, nil
}
