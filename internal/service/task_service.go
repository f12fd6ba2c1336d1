package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"task-calendar/internal/datekey"
	"task-calendar/internal/logging"
	"task-calendar/internal/model"
	"task-calendar/internal/repository"
)

// ErrEmptyName is returned when a task would be created or renamed to a blank name.
var ErrEmptyName = errors.New("task name is required")

// TaskStore is the task persistence used by the services.
// *repository.TaskRepository implements it.
type TaskStore interface {
	UnassignedTasks(ctx context.Context, userID string) ([]model.Task, error)
	Backlog(ctx context.Context, userID string) ([]model.Task, error)
	DayTasks(ctx context.Context, userID, day string) ([]model.Task, error)
	FindByID(ctx context.Context, userID, id string) (*model.Task, error)
	TotalCountsByDate(ctx context.Context, userID string, start, end time.Time) (map[string]int64, error)
	CompletedCountsByDate(ctx context.Context, userID string, start, end time.Time) (map[string]int64, error)
	CalendarStats(ctx context.Context, userID string, start, end time.Time) (*repository.CalendarStats, error)
	MarkComplete(ctx context.Context, id string) (*model.Task, error)
	MarkIncomplete(ctx context.Context, id string) (*model.Task, error)
	CreateOrUpdate(ctx context.Context, userID, id string, name, date *string) (*model.Task, error)
	AddDate(ctx context.Context, id, date string) (*model.Task, error)
	RemoveDate(ctx context.Context, id string) (*model.Task, error)
	SetBucket(ctx context.Context, id string, bucketID *string) (*model.Task, error)
	Delete(ctx context.Context, id string) (*model.Task, error)
}

// BucketStore is the bucket persistence used by the services.
type BucketStore interface {
	GetOrCreate(ctx context.Context, userID, name string) (*model.Bucket, error)
	ListByUser(ctx context.Context, userID string) ([]model.Bucket, error)
}

// TaskInput represents data required to create a task.
type TaskInput struct {
	Name   string
	Day    *time.Time
	Bucket string
}

// TaskService wraps task-related business logic. Every mutation checks that
// the task belongs to the user first.
type TaskService struct {
	tasks   TaskStore
	buckets BucketStore
	newID   func() string
}

func NewTaskService(tasks TaskStore, buckets BucketStore) *TaskService {
	return &TaskService{tasks: tasks, buckets: buckets, newID: uuid.NewString}
}

func (s *TaskService) AddTask(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrEmptyName
	}

	var date *string
	if input.Day != nil {
		key := datekey.Format(*input.Day)
		date = &key
	}

	task, err := s.tasks.CreateOrUpdate(ctx, user.ID, s.newID(), &name, date)
	if err != nil {
		return nil, err
	}

	if input.Bucket != "" {
		bucket, err := s.buckets.GetOrCreate(ctx, user.ID, input.Bucket)
		if err != nil {
			return nil, err
		}
		if task, err = s.tasks.SetBucket(ctx, task.ID, &bucket.ID); err != nil {
			return nil, err
		}
	}

	logging.Logger.WithFields(logrus.Fields{"user": user.ID, "task": task.ID}).Info("task created")
	return task, nil
}

func (s *TaskService) Day(ctx context.Context, user *model.User, day time.Time) ([]model.Task, error) {
	return s.tasks.DayTasks(ctx, user.ID, datekey.Format(day))
}

func (s *TaskService) Backlog(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.tasks.Backlog(ctx, user.ID)
}

func (s *TaskService) Unassigned(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.tasks.UnassignedTasks(ctx, user.ID)
}

func (s *TaskService) GetTask(ctx context.Context, user *model.User, id string) (*model.Task, error) {
	return s.tasks.FindByID(ctx, user.ID, id)
}

// SetComplete marks the task done or not done.
func (s *TaskService) SetComplete(ctx context.Context, user *model.User, id string, done bool) (*model.Task, error) {
	if _, err := s.tasks.FindByID(ctx, user.ID, id); err != nil {
		return nil, err
	}
	if done {
		return s.tasks.MarkComplete(ctx, id)
	}
	return s.tasks.MarkIncomplete(ctx, id)
}

// Schedule puts the task on the given day.
func (s *TaskService) Schedule(ctx context.Context, user *model.User, id string, day time.Time) (*model.Task, error) {
	if _, err := s.tasks.FindByID(ctx, user.ID, id); err != nil {
		return nil, err
	}
	return s.tasks.AddDate(ctx, id, datekey.Format(day))
}

// Unschedule moves the task back to the backlog.
func (s *TaskService) Unschedule(ctx context.Context, user *model.User, id string) (*model.Task, error) {
	if _, err := s.tasks.FindByID(ctx, user.ID, id); err != nil {
		return nil, err
	}
	return s.tasks.RemoveDate(ctx, id)
}

// Rename changes only the name; the day is kept.
func (s *TaskService) Rename(ctx context.Context, user *model.User, id, name string) (*model.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if _, err := s.tasks.FindByID(ctx, user.ID, id); err != nil {
		return nil, err
	}
	return s.tasks.CreateOrUpdate(ctx, user.ID, id, &name, nil)
}

// DeleteTask removes a task completely.
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, id string) (*model.Task, error) {
	if _, err := s.tasks.FindByID(ctx, user.ID, id); err != nil {
		return nil, err
	}
	task, err := s.tasks.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	logging.Logger.WithFields(logrus.Fields{"user": user.ID, "task": id}).Info("task deleted")
	return task, nil
}

// MonthStats returns calendar stats for every day of month's calendar month.
// The store range is exclusive, so it runs from the last day of the previous
// month to the first day of the next one.
func (s *TaskService) MonthStats(ctx context.Context, user *model.User, month time.Time) (*repository.CalendarStats, error) {
	start, end := monthBounds(month)
	stats, err := s.tasks.CalendarStats(ctx, user.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("month stats: %w", err)
	}
	return stats, nil
}

func monthBounds(month time.Time) (time.Time, time.Time) {
	y, m, _ := month.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, month.Location())
	return first.AddDate(0, 0, -1), first.AddDate(0, 1, 0)
}

// weekBounds returns exclusive bounds around the Monday-to-Sunday week of now.
func weekBounds(now time.Time) (time.Time, time.Time) {
	today := datekey.StartOfDay(now)
	offset := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, -1), monday.AddDate(0, 0, 7)
}
