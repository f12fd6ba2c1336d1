package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"task-calendar/internal/datekey"
	"task-calendar/internal/model"
)

// SummaryService builds human-readable summaries for daily notifications.
type SummaryService struct {
	tasks TaskStore
}

func NewSummaryService(tasks TaskStore) *SummaryService {
	return &SummaryService{tasks: tasks}
}

// DailySummary lists today's tasks, the backlog size and this week's progress.
func (s *SummaryService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	today, err := s.tasks.DayTasks(ctx, user.ID, datekey.Format(now))
	if err != nil {
		return "", err
	}

	backlog, err := s.tasks.Backlog(ctx, user.ID)
	if err != nil {
		return "", err
	}

	start, end := weekBounds(now)
	stats, err := s.tasks.CalendarStats(ctx, user.ID, start, end)
	if err != nil {
		return "", err
	}
	var total, completed int64
	for _, n := range stats.Total {
		total += n
	}
	for _, n := range stats.Incomplete {
		completed += n
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Monday, 02 Jan 2006")))

	builder.WriteString("🔥 <b>Today</b>\n")
	if len(today) == 0 {
		builder.WriteString("— nothing planned\n")
	} else {
		for _, task := range today {
			builder.WriteString(FormatTaskLine(task))
			builder.WriteByte('\n')
		}
	}

	builder.WriteString(fmt.Sprintf("\n📥 Backlog: %d\n", len(backlog)))
	builder.WriteString(fmt.Sprintf("📊 This week: %d of %d done", completed, total))

	return strings.TrimSpace(builder.String()), nil
}

// FormatTaskLine renders a task as one HTML line with a status icon.
func FormatTaskLine(task model.Task) string {
	icon := "⬜"
	if task.Complete {
		icon = "✅"
	}
	name := strings.TrimSpace(task.Name)
	if name == "" {
		name = "(untitled)"
	}
	if task.Complete {
		return fmt.Sprintf("%s <s>%s</s>", icon, html.EscapeString(name))
	}
	return fmt.Sprintf("%s %s", icon, html.EscapeString(name))
}
