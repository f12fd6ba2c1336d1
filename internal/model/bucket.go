package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bucket groups tasks (errands, work, home...).
type Bucket struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index:idx_user_bucket_name,unique;not null"`
	Name      string `gorm:"index:idx_user_bucket_name,unique"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Tasks     []Task `gorm:"foreignKey:BucketID"`
}

func (b *Bucket) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
