package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"task-calendar/internal/config"
	"task-calendar/internal/datekey"
	"task-calendar/internal/logging"
	"task-calendar/internal/model"
	"task-calendar/internal/repository"
	"task-calendar/internal/service"
)

const (
	cbDonePrefix    = "done:"
	cbUndoPrefix    = "undo:"
	cbTodayPrefix   = "today:"
	cbBacklogPrefix = "backlog:"
	cbRenamePrefix  = "rename:"
	cbDeletePrefix  = "delete:"
	cbConfirmPrefix = "confirm:"
	cbCancel        = "cancel"
)

const helpText = `<b>Task calendar</b>
/add &lt;name&gt; [@today|@tomorrow|@YYYY-MM-DD] [#bucket] — new task
/today — today's tasks
/day YYYY-MM-DD — tasks on a day
/backlog — tasks without a day
/unassigned — tasks without a bucket
/buckets — your buckets
/stats [YYYY-MM] — done/total per day for a month
/report — daily report now
/cancel — cancel renaming`

// Bot aggregates Telegram API with services.
type Bot struct {
	api        *tgbotapi.BotAPI
	userRepo   *repository.UserRepository
	taskSvc    *service.TaskService
	bucketSvc  *service.BucketService
	summarySvc *service.SummaryService
	config     *config.Config
	renames    map[int64]string
	mu         sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, taskSvc *service.TaskService, bucketSvc *service.BucketService, summarySvc *service.SummaryService, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logging.Logger.WithField("account", api.Self.UserName).Info("bot authorized")

	return &Bot{
		api:        api,
		userRepo:   userRepo,
		taskSvc:    taskSvc,
		bucketSvc:  bucketSvc,
		summarySvc: summarySvc,
		config:     cfg,
		renames:    make(map[int64]string),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	logging.Logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				logging.Logger.WithError(err).Error("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				logging.Logger.WithError(err).Error("handle message")
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		logging.Logger.WithFields(logrus.Fields{
			"from":    msg.From.ID,
			"command": msg.Command(),
		}).Info("command received")
		return b.handleCommand(ctx, msg)
	}

	if taskID, ok := b.pendingRename(msg.From.ID); ok {
		return b.finishRename(ctx, msg, taskID)
	}

	return b.sendText(msg.Chat.ID, "I didn't get that. Try /add to create a task or /help for the list of commands.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start", "help":
		return b.sendText(msg.Chat.ID, helpText)
	case "add":
		return b.handleAdd(ctx, msg)
	case "today":
		return b.handleDay(ctx, msg, b.now())
	case "day":
		day, err := datekey.Parse(strings.TrimSpace(msg.CommandArguments()), b.config.Location)
		if err != nil {
			return b.sendText(msg.Chat.ID, "Usage: /day YYYY-MM-DD")
		}
		return b.handleDay(ctx, msg, day)
	case "backlog":
		return b.handleBacklog(ctx, msg)
	case "unassigned":
		return b.handleUnassigned(ctx, msg)
	case "buckets":
		return b.handleBuckets(ctx, msg)
	case "stats":
		return b.handleStats(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearRename(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message) error {
	input, err := parseAddArgs(msg.CommandArguments(), b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.AddTask(ctx, user, input)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}

	when := "backlog"
	if task.Date != nil {
		when = *task.Date
	}
	text := fmt.Sprintf("➕ Added %s (%s)", service.FormatTaskLine(*task), escape(when))
	if input.Bucket != "" {
		text += fmt.Sprintf(" <i>#%s</i>", escape(input.Bucket))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleDay(ctx context.Context, msg *tgbotapi.Message, day time.Time) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	tasks, err := b.taskSvc.Day(ctx, user, day)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendTaskList(msg.Chat.ID, fmt.Sprintf("🗓 <b>%s</b>", datekey.Format(day)), tasks)
}

func (b *Bot) handleBacklog(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	tasks, err := b.taskSvc.Backlog(ctx, user)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendTaskList(msg.Chat.ID, "📥 <b>Backlog</b>", tasks)
}

func (b *Bot) handleUnassigned(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	tasks, err := b.taskSvc.Unassigned(ctx, user)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendTaskList(msg.Chat.ID, "🗂 <b>Without bucket</b>", tasks)
}

func (b *Bot) handleBuckets(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	buckets, err := b.bucketSvc.List(ctx, user)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if len(buckets) == 0 {
		return b.sendText(msg.Chat.ID, "No buckets yet. Add one with /add name #bucket.")
	}
	var sb strings.Builder
	sb.WriteString("🗂 <b>Buckets</b>\n")
	for _, bucket := range buckets {
		sb.WriteString(fmt.Sprintf("• #%s\n", escape(bucket.Name)))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) error {
	month := b.now()
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		parsed, err := time.ParseInLocation("2006-01", arg, b.config.Location)
		if err != nil {
			return b.sendText(msg.Chat.ID, "Usage: /stats [YYYY-MM]")
		}
		month = parsed
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	stats, err := b.taskSvc.MonthStats(ctx, user, month)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, formatStats(month, stats))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.summarySvc.DailySummary(ctx, *user, b.now())
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, text)
}

// SendDailyReports sends the daily summary to every known user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	now := b.now()
	for _, user := range users {
		text, err := b.summarySvc.DailySummary(ctx, user, now)
		if err != nil {
			logging.Logger.WithError(err).WithField("user", user.ID).Error("build report")
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			logging.Logger.WithError(err).WithField("user", user.ID).Error("send report")
		}
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID

	action, taskID := parseCallback(cb.Data)
	if action == cbCancel {
		b.answerCallback(cb.ID, "Cancelled")
		return nil
	}
	if taskID == "" {
		b.answerCallback(cb.ID, "Unknown action")
		return nil
	}

	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		return err
	}

	var (
		task   *model.Task
		notice string
	)
	switch action {
	case cbDonePrefix:
		task, err = b.taskSvc.SetComplete(ctx, user, taskID, true)
		notice = "Done"
	case cbUndoPrefix:
		task, err = b.taskSvc.SetComplete(ctx, user, taskID, false)
		notice = "Reopened"
	case cbTodayPrefix:
		task, err = b.taskSvc.Schedule(ctx, user, taskID, b.now())
		notice = "Moved to today"
	case cbBacklogPrefix:
		task, err = b.taskSvc.Unschedule(ctx, user, taskID)
		notice = "Moved to backlog"
	case cbRenamePrefix:
		if task, err = b.taskSvc.GetTask(ctx, user, taskID); err == nil {
			b.setRename(cb.From.ID, taskID)
			b.answerCallback(cb.ID, "")
			return b.sendText(chatID, fmt.Sprintf("✏️ Send a new name for %s or /cancel.", service.FormatTaskLine(*task)))
		}
	case cbDeletePrefix:
		if task, err = b.taskSvc.GetTask(ctx, user, taskID); err == nil {
			b.answerCallback(cb.ID, "")
			return b.sendWithReplyMarkup(chatID,
				fmt.Sprintf("🗑 Delete %s?", service.FormatTaskLine(*task)),
				confirmKeyboard(taskID))
		}
	case cbConfirmPrefix:
		task, err = b.taskSvc.DeleteTask(ctx, user, taskID)
		notice = "Deleted"
	}
	if err != nil {
		b.answerCallback(cb.ID, "Failed")
		return b.replyError(chatID, err)
	}

	b.answerCallback(cb.ID, notice)
	return b.sendText(chatID, fmt.Sprintf("%s: %s", notice, service.FormatTaskLine(*task)))
}

func (b *Bot) finishRename(ctx context.Context, msg *tgbotapi.Message, taskID string) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.Rename(ctx, user, taskID, msg.Text)
	if err != nil {
		if errors.Is(err, service.ErrEmptyName) {
			return b.sendText(msg.Chat.ID, "The name can't be empty. Send another one or /cancel.")
		}
		b.clearRename(msg.From.ID)
		return b.replyError(msg.Chat.ID, err)
	}
	b.clearRename(msg.From.ID)
	return b.sendText(msg.Chat.ID, "✏️ Renamed: "+service.FormatTaskLine(*task))
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) now() time.Time {
	return time.Now().In(b.config.Location)
}

func (b *Bot) replyError(chatID int64, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return b.sendText(chatID, "Task not found.")
	case errors.Is(err, service.ErrEmptyName):
		return b.sendText(chatID, "Task name can't be empty.")
	default:
		logging.Logger.WithError(err).Error("request failed")
		return b.sendText(chatID, "Something went wrong, please try again.")
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		logging.Logger.WithError(err).Warn("answer callback")
	}
}

func (b *Bot) sendTaskList(chatID int64, title string, tasks []model.Task) error {
	if len(tasks) == 0 {
		return b.sendText(chatID, title+"\n— empty")
	}
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteByte('\n')
	for i, task := range tasks {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, service.FormatTaskLine(task)))
	}
	return b.sendWithReplyMarkup(chatID, strings.TrimSpace(sb.String()), taskKeyboard(tasks))
}

func (b *Bot) pendingRename(userID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	taskID, ok := b.renames[userID]
	return taskID, ok
}

func (b *Bot) setRename(userID int64, taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.renames[userID] = taskID
}

func (b *Bot) clearRename(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.renames, userID)
}

// parseAddArgs reads "/add" arguments: free text is the name, @day picks the
// day and #bucket picks the bucket.
func parseAddArgs(args string, now time.Time) (service.TaskInput, error) {
	var (
		input service.TaskInput
		name  []string
	)
	for _, token := range strings.Fields(args) {
		switch {
		case strings.HasPrefix(token, "@") && len(token) > 1:
			day, err := parseDay(token[1:], now)
			if err != nil {
				return input, err
			}
			input.Day = &day
		case strings.HasPrefix(token, "#") && len(token) > 1:
			input.Bucket = token[1:]
		default:
			name = append(name, token)
		}
	}
	input.Name = strings.Join(name, " ")
	if input.Name == "" {
		return input, fmt.Errorf("usage: /add <name> [@today|@tomorrow|@YYYY-MM-DD] [#bucket]")
	}
	return input, nil
}

func parseDay(value string, now time.Time) (time.Time, error) {
	switch strings.ToLower(value) {
	case "today":
		return datekey.StartOfDay(now), nil
	case "tomorrow":
		return datekey.StartOfDay(now).AddDate(0, 0, 1), nil
	}
	day, err := datekey.Parse(value, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown day %q, use today, tomorrow or YYYY-MM-DD", value)
	}
	return day, nil
}

// parseCallback splits callback data into its action prefix and task id.
func parseCallback(data string) (string, string) {
	if data == cbCancel {
		return cbCancel, ""
	}
	for _, prefix := range []string{cbDonePrefix, cbUndoPrefix, cbTodayPrefix, cbBacklogPrefix, cbRenamePrefix, cbDeletePrefix, cbConfirmPrefix} {
		if strings.HasPrefix(data, prefix) {
			return prefix, strings.TrimPrefix(data, prefix)
		}
	}
	return "", ""
}

func taskKeyboard(tasks []model.Task) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for i, task := range tasks {
		n := i + 1
		toggle := tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ %d", n), cbDonePrefix+task.ID)
		if task.Complete {
			toggle = tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("↩️ %d", n), cbUndoPrefix+task.ID)
		}
		move := tgbotapi.NewInlineKeyboardButtonData("📅 today", cbTodayPrefix+task.ID)
		if task.Date != nil {
			move = tgbotapi.NewInlineKeyboardButtonData("📥 backlog", cbBacklogPrefix+task.ID)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			toggle,
			move,
			tgbotapi.NewInlineKeyboardButtonData("✏️", cbRenamePrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmKeyboard(taskID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", cbConfirmPrefix+taskID),
			tgbotapi.NewInlineKeyboardButtonData("↩️ Keep", cbCancel),
		),
	)
}

// formatStats renders "done/total" per day. stats.Incomplete holds the
// completed counts.
func formatStats(month time.Time, stats *repository.CalendarStats) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 <b>%s</b>\n", month.Format("January 2006")))
	if len(stats.Total) == 0 {
		sb.WriteString("— no scheduled tasks")
		return sb.String()
	}

	days := make([]string, 0, len(stats.Total))
	for day := range stats.Total {
		days = append(days, day)
	}
	sort.Strings(days)

	var total, done int64
	for _, day := range days {
		completed := stats.Incomplete[day]
		total += stats.Total[day]
		done += completed
		sb.WriteString(fmt.Sprintf("%s  %d/%d\n", day, completed, stats.Total[day]))
	}
	sb.WriteString(fmt.Sprintf("\nTotal: %d/%d", done, total))
	return sb.String()
}

func escape(s string) string {
	return html.EscapeString(s)
}
