package model

import "time"

// Task is a single to-do item. A nil Date puts it in the backlog, a nil
// BucketID leaves it unassigned; the two are independent.
type Task struct {
	ID        string  `gorm:"primaryKey"`
	UserID    string  `gorm:"index;not null"`
	Name      string  `gorm:"not null;default:''"`
	Date      *string `gorm:"index"`
	BucketID  *string `gorm:"index"`
	Complete  bool    `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InBacklog reports whether the task has no calendar day.
func (t *Task) InBacklog() bool {
	return t.Date == nil
}

// Unassigned reports whether the task has no bucket.
func (t *Task) Unassigned() bool {
	return t.BucketID == nil
}
