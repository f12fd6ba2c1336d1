package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"task-calendar/internal/model"
)

// setupTestDB opens a fresh SQLite file database with migrations applied.
// Its clock advances one second per call so created_at ordering is stable.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	var mu sync.Mutex
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

func strPtr(s string) *string {
	return &s
}

func createTask(t *testing.T, repo *TaskRepository, userID, id, name string, date *string) *model.Task {
	t.Helper()
	task, err := repo.CreateOrUpdate(context.Background(), userID, id, &name, date)
	if err != nil {
		t.Fatalf("CreateOrUpdate(%q) error = %v", id, err)
	}
	return task
}

func taskIDs(tasks []model.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
