package service

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"task-calendar/internal/datekey"
	"task-calendar/internal/model"
	"task-calendar/internal/repository"
)

// fakeTaskStore is an in-memory TaskStore with the repository's semantics.
type fakeTaskStore struct {
	tasks map[string]*model.Task
	clock time.Time
	err   error
	calls []string
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{
		tasks: make(map[string]*model.Task),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeTaskStore) record(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeTaskStore) list(userID string, keep func(*model.Task) bool) []model.Task {
	var out []model.Task
	for _, t := range f.tasks {
		if t.UserID == userID && keep(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fakeTaskStore) UnassignedTasks(ctx context.Context, userID string) ([]model.Task, error) {
	if err := f.record("UnassignedTasks"); err != nil {
		return nil, err
	}
	return f.list(userID, func(t *model.Task) bool { return t.BucketID == nil }), nil
}

func (f *fakeTaskStore) Backlog(ctx context.Context, userID string) ([]model.Task, error) {
	if err := f.record("Backlog"); err != nil {
		return nil, err
	}
	return f.list(userID, func(t *model.Task) bool { return t.Date == nil }), nil
}

func (f *fakeTaskStore) DayTasks(ctx context.Context, userID, day string) ([]model.Task, error) {
	if err := f.record("DayTasks"); err != nil {
		return nil, err
	}
	return f.list(userID, func(t *model.Task) bool { return t.Date != nil && *t.Date == day }), nil
}

func (f *fakeTaskStore) FindByID(ctx context.Context, userID, id string) (*model.Task, error) {
	if err := f.record("FindByID"); err != nil {
		return nil, err
	}
	t, ok := f.tasks[id]
	if !ok || t.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTaskStore) counts(userID string, start, end time.Time, onlyComplete bool) map[string]int64 {
	from, to := datekey.Format(start), datekey.Format(end)
	counts := make(map[string]int64)
	for _, t := range f.tasks {
		if t.UserID != userID || t.Date == nil || *t.Date <= from || *t.Date >= to {
			continue
		}
		if onlyComplete && !t.Complete {
			continue
		}
		counts[*t.Date]++
	}
	return counts
}

func (f *fakeTaskStore) TotalCountsByDate(ctx context.Context, userID string, start, end time.Time) (map[string]int64, error) {
	if err := f.record("TotalCountsByDate"); err != nil {
		return nil, err
	}
	return f.counts(userID, start, end, false), nil
}

func (f *fakeTaskStore) CompletedCountsByDate(ctx context.Context, userID string, start, end time.Time) (map[string]int64, error) {
	if err := f.record("CompletedCountsByDate"); err != nil {
		return nil, err
	}
	return f.counts(userID, start, end, true), nil
}

func (f *fakeTaskStore) CalendarStats(ctx context.Context, userID string, start, end time.Time) (*repository.CalendarStats, error) {
	if err := f.record("CalendarStats"); err != nil {
		return nil, err
	}
	return &repository.CalendarStats{
		Total:      f.counts(userID, start, end, false),
		Incomplete: f.counts(userID, start, end, true),
	}, nil
}

func (f *fakeTaskStore) mutate(name, id string, apply func(*model.Task)) (*model.Task, error) {
	if err := f.record(name); err != nil {
		return nil, err
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	apply(t)
	copied := *t
	return &copied, nil
}

func (f *fakeTaskStore) MarkComplete(ctx context.Context, id string) (*model.Task, error) {
	return f.mutate("MarkComplete", id, func(t *model.Task) { t.Complete = true })
}

func (f *fakeTaskStore) MarkIncomplete(ctx context.Context, id string) (*model.Task, error) {
	return f.mutate("MarkIncomplete", id, func(t *model.Task) { t.Complete = false })
}

func (f *fakeTaskStore) CreateOrUpdate(ctx context.Context, userID, id string, name, date *string) (*model.Task, error) {
	if err := f.record("CreateOrUpdate"); err != nil {
		return nil, err
	}
	n := ""
	if name != nil {
		n = *name
	}
	if t, ok := f.tasks[id]; ok {
		t.Name = n
		copied := *t
		return &copied, nil
	}
	f.clock = f.clock.Add(time.Second)
	t := &model.Task{ID: id, UserID: userID, Name: n, Date: date, CreatedAt: f.clock}
	f.tasks[id] = t
	copied := *t
	return &copied, nil
}

func (f *fakeTaskStore) AddDate(ctx context.Context, id, date string) (*model.Task, error) {
	return f.mutate("AddDate", id, func(t *model.Task) { t.Date = &date })
}

func (f *fakeTaskStore) RemoveDate(ctx context.Context, id string) (*model.Task, error) {
	return f.mutate("RemoveDate", id, func(t *model.Task) { t.Date = nil })
}

func (f *fakeTaskStore) SetBucket(ctx context.Context, id string, bucketID *string) (*model.Task, error) {
	return f.mutate("SetBucket", id, func(t *model.Task) { t.BucketID = bucketID })
}

func (f *fakeTaskStore) Delete(ctx context.Context, id string) (*model.Task, error) {
	t, err := f.mutate("Delete", id, func(*model.Task) {})
	if err != nil {
		return nil, err
	}
	delete(f.tasks, id)
	return t, nil
}

// fakeBucketStore keeps buckets per user and name.
type fakeBucketStore struct {
	buckets map[string]*model.Bucket
}

func newFakeBucketStore() *fakeBucketStore {
	return &fakeBucketStore{buckets: make(map[string]*model.Bucket)}
}

func (f *fakeBucketStore) GetOrCreate(ctx context.Context, userID, name string) (*model.Bucket, error) {
	key := userID + "/" + name
	if b, ok := f.buckets[key]; ok {
		return b, nil
	}
	b := &model.Bucket{ID: "bucket-" + name, UserID: userID, Name: name}
	f.buckets[key] = b
	return b, nil
}

func (f *fakeBucketStore) ListByUser(ctx context.Context, userID string) ([]model.Bucket, error) {
	var out []model.Bucket
	for _, b := range f.buckets {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var (
	_ TaskStore   = (*repository.TaskRepository)(nil)
	_ BucketStore = (*repository.BucketRepository)(nil)
	_ TaskStore   = (*fakeTaskStore)(nil)
)
