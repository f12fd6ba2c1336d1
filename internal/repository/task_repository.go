package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-calendar/internal/datekey"
	"task-calendar/internal/model"
)

// ErrMissingUserID is returned when a task would be created without an owner.
var ErrMissingUserID = errors.New("user id is required")

// CalendarStats pairs per-day task counts for a date range.
//
// Incomplete holds the completed-task counts. The name is kept for callers
// that already read the field.
type CalendarStats struct {
	Total      map[string]int64 `json:"total"`
	Incomplete map[string]int64 `json:"incomplete"`
}

// TaskRepository handles CRUD and calendar aggregates for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// UnassignedTasks lists the user's tasks without a bucket, oldest first.
func (r *TaskRepository) UnassignedTasks(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND bucket_id IS NULL", userID).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list unassigned tasks: %w", err)
	}
	return tasks, nil
}

// Backlog lists the user's tasks without a date, oldest first.
func (r *TaskRepository) Backlog(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND date IS NULL", userID).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list backlog: %w", err)
	}
	return tasks, nil
}

// DayTasks lists the user's tasks on the given date key, oldest first.
func (r *TaskRepository) DayTasks(ctx context.Context, userID, day string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, day).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list day tasks: %w", err)
	}
	return tasks, nil
}

// FindByID returns the task only if it belongs to userID.
func (r *TaskRepository) FindByID(ctx context.Context, userID, id string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&task).Error; err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// TotalCountsByDate counts the user's tasks per date key for days strictly
// between start and end.
func (r *TaskRepository) TotalCountsByDate(ctx context.Context, userID string, start, end time.Time) (map[string]int64, error) {
	return r.countsByDate(ctx, userID, start, end, false)
}

// CompletedCountsByDate is TotalCountsByDate restricted to completed tasks.
func (r *TaskRepository) CompletedCountsByDate(ctx context.Context, userID string, start, end time.Time) (map[string]int64, error) {
	return r.countsByDate(ctx, userID, start, end, true)
}

// CalendarStats runs both count queries concurrently.
func (r *TaskRepository) CalendarStats(ctx context.Context, userID string, start, end time.Time) (*CalendarStats, error) {
	var stats CalendarStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := r.TotalCountsByDate(gctx, userID, start, end)
		stats.Total = total
		return err
	})
	g.Go(func() error {
		completed, err := r.CompletedCountsByDate(gctx, userID, start, end)
		stats.Incomplete = completed
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

type dateCount struct {
	Date  *string
	Count int64
}

func (r *TaskRepository) countsByDate(ctx context.Context, userID string, start, end time.Time, onlyComplete bool) (map[string]int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("date, COUNT(date) AS count").
		Where("user_id = ? AND date > ? AND date < ?", userID, datekey.Format(start), datekey.Format(end))
	if onlyComplete {
		q = q.Where("complete = ?", true)
	}

	var rows []dateCount
	if err := q.Group("date").Order("date ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count tasks by date: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		if row.Date == nil {
			// The range filter excludes NULL dates, so the store broke the query contract.
			panic("repository: grouped task count without a date key")
		}
		counts[*row.Date] = row.Count
	}
	return counts, nil
}

func (r *TaskRepository) MarkComplete(ctx context.Context, id string) (*model.Task, error) {
	task, err := r.update(ctx, id, map[string]interface{}{"complete": true})
	if err != nil {
		return nil, fmt.Errorf("mark task complete: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) MarkIncomplete(ctx context.Context, id string) (*model.Task, error) {
	task, err := r.update(ctx, id, map[string]interface{}{"complete": false})
	if err != nil {
		return nil, fmt.Errorf("mark task incomplete: %w", err)
	}
	return task, nil
}

// CreateOrUpdate inserts the task, or renames it when id already exists.
// A nil name is stored as "". The update path leaves date untouched; dates
// change through AddDate and RemoveDate.
func (r *TaskRepository) CreateOrUpdate(ctx context.Context, userID, id string, name, date *string) (*model.Task, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	task := model.Task{ID: id, UserID: userID, Date: date}
	if name != nil {
		task.Name = *name
	}

	var stored model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).Create(&task).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&stored).Error
	})
	if err != nil {
		return nil, fmt.Errorf("upsert task: %w", err)
	}
	return &stored, nil
}

func (r *TaskRepository) AddDate(ctx context.Context, id, date string) (*model.Task, error) {
	task, err := r.update(ctx, id, map[string]interface{}{"date": date})
	if err != nil {
		return nil, fmt.Errorf("add task date: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) RemoveDate(ctx context.Context, id string) (*model.Task, error) {
	task, err := r.update(ctx, id, map[string]interface{}{"date": nil})
	if err != nil {
		return nil, fmt.Errorf("remove task date: %w", err)
	}
	return task, nil
}

// SetBucket assigns the task to a bucket, or unassigns it when bucketID is nil.
func (r *TaskRepository) SetBucket(ctx context.Context, id string, bucketID *string) (*model.Task, error) {
	var value interface{}
	if bucketID != nil {
		value = *bucketID
	}
	task, err := r.update(ctx, id, map[string]interface{}{"bucket_id": value})
	if err != nil {
		return nil, fmt.Errorf("set task bucket: %w", err)
	}
	return task, nil
}

// Delete removes the task and returns the removed row.
func (r *TaskRepository) Delete(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&task).Error; err != nil {
			return err
		}
		return tx.Delete(&task).Error
	})
	if err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}
	return &task, nil
}

// update applies fields to one task and reloads it. A missing id yields
// gorm.ErrRecordNotFound.
func (r *TaskRepository) update(ctx context.Context, id string, fields map[string]interface{}) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Task{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}
