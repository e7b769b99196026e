package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samvad-hq/samvad-briefing/internal/briefing"
	"github.com/samvad-hq/samvad-briefing/internal/logger"
	"github.com/samvad-hq/samvad-briefing/pkg/telegram"
	"golang.org/x/sync/errgroup"
)

const (
	// MinFreeTextRunes is the shortest pasted text that gets summarized.
	MinFreeTextRunes = 50

	defaultSummaryLimit = 2
)

// ErrUnauthorized is returned for privileged commands from other chats.
var ErrUnauthorized = errors.New("chat not authorized")

// Submitter queues a briefing cycle.
type Submitter interface {
	Submit(trigger briefing.Trigger, out briefing.Output) (<-chan briefing.Completion, error)
}

// ArticleSummarizer summarizes one pasted article.
type ArticleSummarizer interface {
	SummarizeOne(ctx context.Context, text string) (string, error)
}

// SourceLister names the monitored sources in registration order.
type SourceLister interface {
	Names() []string
}

// SeenCounter reports how many articles were already delivered.
type SeenCounter interface {
	Count(ctx context.Context) (int, error)
}

// Schedule describes the daily briefing times.
type Schedule interface {
	Times() []string
	Next() time.Time
}

// Deps groups the collaborators of a Handler.
type Deps struct {
	Messenger    briefing.Messenger
	Dispatcher   Submitter
	Summarizer   ArticleSummarizer
	Sources      SourceLister
	Seen         SeenCounter
	State        *briefing.Manager
	Schedule     Schedule
	Location     *time.Location
	TargetChatID int64

	// MaxConcurrentSummaries bounds in-flight free-text summaries.
	MaxConcurrentSummaries int
	Log                    logger.Logger
}

// Handler routes incoming Telegram messages to commands.
type Handler struct {
	deps      Deps
	log       logger.Logger
	summaries errgroup.Group
}

// NewHandler builds a command handler.
func NewHandler(deps Deps) *Handler {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.State == nil {
		deps.State = briefing.NewManager()
	}
	if deps.MaxConcurrentSummaries <= 0 {
		deps.MaxConcurrentSummaries = defaultSummaryLimit
	}
	h := &Handler{deps: deps, log: logger.Ensure(deps.Log)}
	h.summaries.SetLimit(deps.MaxConcurrentSummaries)
	return h
}

// Wait blocks until background summaries have finished.
func (h *Handler) Wait() { _ = h.summaries.Wait() }

// HandleUpdate processes one update. It matches telegram.HandlerFunc.
func (h *Handler) HandleUpdate(ctx context.Context, upd telegram.Update) {
	msg := upd.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}

	cmd, isCommand := parseCommand(msg.Text)
	h.log.DebugObj("update received", "update_meta", map[string]any{
		"update_id": upd.UpdateID,
		"chat_id":   msg.Chat.ID,
		"command":   cmd,
	})
	if !isCommand {
		h.handleFreeText(ctx, msg)
		return
	}

	switch cmd {
	case "start":
		h.reply(ctx, msg.Chat.ID, startText(firstName(msg), msg.Chat.ID, h.times()))
	case "help":
		h.reply(ctx, msg.Chat.ID, helpText)
	case "news", "briefing":
		h.handleBriefing(ctx, msg.Chat.ID)
	case "sources":
		h.reply(ctx, msg.Chat.ID, sourcesText(h.sourceNames()))
	case "status":
		h.reply(ctx, msg.Chat.ID, statusText(h.status(ctx)))
	default:
		h.reply(ctx, msg.Chat.ID, MsgUnknownCommand)
	}
}

// handleBriefing queues an on-demand cycle for the authorized chat only.
func (h *Handler) handleBriefing(ctx context.Context, chatID int64) {
	if err := h.authorize(chatID); err != nil {
		h.log.WarnObj("unauthorized briefing request", "auth_meta", map[string]any{
			"chat_id": chatID,
			"error":   err.Error(),
		})
		h.reply(ctx, chatID, MsgUnauthorized)
		return
	}

	out := briefing.NewReplyOutput(h.deps.Messenger, chatID, briefing.MsgGenerating)
	if _, err := h.deps.Dispatcher.Submit(briefing.TriggerOnDemand, out); err != nil {
		h.log.WarnObj("on-demand briefing not queued", "dispatch_error", err.Error())
		if errors.Is(err, briefing.ErrQueueFull) {
			h.reply(ctx, chatID, MsgBusy)
			return
		}
		h.reply(ctx, chatID, MsgUnavailable)
	}
}

func (h *Handler) authorize(chatID int64) error {
	if chatID != h.deps.TargetChatID {
		return fmt.Errorf("chat %d: %w", chatID, ErrUnauthorized)
	}
	return nil
}

func (h *Handler) handleFreeText(ctx context.Context, msg *telegram.Message) {
	text := strings.TrimSpace(msg.Text)
	if utf8.RuneCountInString(text) < MinFreeTextRunes {
		h.reply(ctx, msg.Chat.ID, MsgTooShort)
		return
	}

	chatID := msg.Chat.ID
	started := h.summaries.TryGo(func() error {
		h.summarizeText(ctx, chatID, text)
		return nil
	})
	if !started {
		h.log.WarnObj("free-text summary rejected, limit reached", "summary_meta", map[string]any{
			"chat_id": chatID,
			"limit":   h.deps.MaxConcurrentSummaries,
		})
		h.reply(ctx, chatID, MsgSummaryBusy)
	}
}

func (h *Handler) summarizeText(ctx context.Context, chatID int64, text string) {
	out := briefing.NewReplyOutput(h.deps.Messenger, chatID, MsgAnalyzing)
	if err := out.Progress(ctx); err != nil {
		h.log.WarnObj("placeholder not sent", "reply_error", err.Error())
	}

	summary, err := h.deps.Summarizer.SummarizeOne(ctx, text)
	if err != nil {
		h.log.ErrorObj("article summary failed", "summary_error", map[string]any{
			"chat_id": chatID,
			"error":   err.Error(),
		})
		summary = MsgSummaryFailed
	}
	if err := out.Publish(ctx, summary); err != nil {
		h.log.ErrorObj("article summary not delivered", "reply_error", map[string]any{
			"chat_id": chatID,
			"error":   err.Error(),
		})
	}
}

func (h *Handler) status(ctx context.Context) statusView {
	view := statusView{
		Times:    h.times(),
		Timezone: h.deps.Location.String(),
		Seen:     "unknown",
		State:    string(h.deps.State.GetState()),
	}
	if h.deps.Seen != nil {
		if n, err := h.deps.Seen.Count(ctx); err == nil {
			view.Seen = strconv.Itoa(n)
		} else {
			h.log.WarnObj("seen count failed", "status_error", err.Error())
		}
	}
	if h.deps.Schedule != nil {
		if next := h.deps.Schedule.Next(); !next.IsZero() {
			view.Next = next.In(h.deps.Location).Format("02 Jan 15:04")
		}
	}
	return view
}

func (h *Handler) times() []string {
	if h.deps.Schedule == nil {
		return nil
	}
	return h.deps.Schedule.Times()
}

func (h *Handler) sourceNames() []string {
	if h.deps.Sources == nil {
		return nil
	}
	return h.deps.Sources.Names()
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if _, err := h.deps.Messenger.Send(ctx, chatID, text); err != nil {
		h.log.ErrorObj("reply failed", "reply_error", map[string]any{
			"chat_id": chatID,
			"error":   err.Error(),
		})
	}
}

// parseCommand returns the lowercase command name without the leading slash
// or a trailing @botname. The second result is false for plain text.
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text)[0][1:]
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), true
}

func firstName(msg *telegram.Message) string {
	if msg.From == nil {
		return ""
	}
	return msg.From.FirstName
}
