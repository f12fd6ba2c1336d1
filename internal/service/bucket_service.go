package service

import (
	"context"

	"task-calendar/internal/model"
)

// BucketService provides helpers around buckets.
type BucketService struct {
	repo BucketStore
}

func NewBucketService(repo BucketStore) *BucketService {
	return &BucketService{repo: repo}
}

func (s *BucketService) List(ctx context.Context, user *model.User) ([]model.Bucket, error) {
	return s.repo.ListByUser(ctx, user.ID)
}
