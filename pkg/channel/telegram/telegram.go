package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"flowbot/pkg/agent"
	"flowbot/pkg/channel"
	"flowbot/pkg/config"
	"flowbot/pkg/model"
)

const messagePreviewLimit = 240

// Adapter bridges Telegram updates into the shared resolution engine.
// Text messages run through the intent matcher; inline-keyboard callback
// queries carry action identifiers and dispatch directly, mirroring
// Messenger postbacks.
type Adapter struct {
	cfg       config.TelegramConfig
	engine    *channel.Engine
	store     model.Store
	allowFrom map[string]struct{}
	log       *slog.Logger
	now       func() time.Time
}

// NewAdapter validates Telegram configuration and constructs an adapter
// instance.
func NewAdapter(cfg config.TelegramConfig, engine *channel.Engine, store model.Store, log *slog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("channels.telegram.token is required")
	}
	if engine == nil || engine.Matcher == nil || engine.Dispatcher == nil {
		return nil, errors.New("resolution engine is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:       cfg,
		engine:    engine,
		store:     store,
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "channel.telegram"),
		now:       time.Now,
	}, nil
}

// Name returns the channel identifier used for identity binding and logs.
func (a *Adapter) Name() string {
	return channel.Telegram
}

// Run starts Telegram long polling and handles updates until the context
// is canceled.
func (a *Adapter) Run(ctx context.Context) error {
	bot, err := telego.NewBot(strings.TrimSpace(a.cfg.Token))
	if err != nil {
		return fmt.Errorf("initialize telegram bot: %w", err)
	}

	updates, err := bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			a.handleUpdate(ctx, bot, update)
		}
	}
}

// handleUpdate classifies one polled update and replies when the engine
// produced something to say.
func (a *Adapter) handleUpdate(ctx context.Context, bot *telego.Bot, update telego.Update) {
	event, chatID, ok := a.classify(update)
	if !ok {
		return
	}

	if !a.senderAllowed(event.SenderID) {
		a.log.Debug("Ignoring update from unauthorized sender", "sender_id", event.SenderID)
		return
	}

	if update.CallbackQuery != nil {
		// Acknowledge the button press so the client stops its spinner.
		if err := bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID}); err != nil {
			a.log.Debug("Failed to answer callback query", "error", err)
		}
	}

	result, err := a.respond(ctx, event)
	if err != nil {
		a.log.Error("Dispatch failed", "kind", event.Kind.String(), "error", err)
		return
	}
	if result.Empty() {
		return
	}

	message := buildMessage(chatID, result)
	a.log.Info("Sending message", "chat_id", chatID, "content", previewText(message.Text))
	if _, err := bot.SendMessage(ctx, message); err != nil {
		a.log.Warn("Failed to send telegram message", "error", err)
	}
}

// classify maps one update to a normalized inbound event plus its chat.
func (a *Adapter) classify(update telego.Update) (channel.InboundEvent, int64, bool) {
	event := channel.InboundEvent{Channel: channel.Telegram}

	if message := update.Message; message != nil {
		if message.From == nil || strings.TrimSpace(message.Text) == "" {
			return event, 0, false
		}
		event.Kind = channel.KindMessage
		event.SenderID = strconv.FormatInt(message.From.ID, 10)
		event.Text = strings.TrimSpace(message.Text)
		return event, message.Chat.ID, true
	}

	if cq := update.CallbackQuery; cq != nil {
		if cq.Message == nil || strings.TrimSpace(cq.Data) == "" {
			return event, 0, false
		}
		event.Kind = channel.KindPostback
		event.SenderID = strconv.FormatInt(cq.From.ID, 10)
		event.Payload = agent.Action(cq.Data)
		return event, cq.Message.GetChat().ID, true
	}

	return event, 0, false
}

// respond resolves the sender and drives the shared matcher/dispatcher
// flow. Telegram has no account-linking notice; identity comes only from
// records already bound to the sender ID, and unresolved senders get the
// plain link prompt once an action would fire.
func (a *Adapter) respond(ctx context.Context, event channel.InboundEvent) (agent.ActionResult, error) {
	user, err := a.store.UserByChannelID(ctx, channel.Telegram, event.SenderID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return agent.ActionResult{}, fmt.Errorf("lookup user: %w", err)
	}

	uc := agent.UserContext{
		User:     user,
		Channel:  channel.Telegram,
		SenderID: event.SenderID,
	}
	if user != nil {
		uc.LocalTime = user.LocalTime(a.now())
	}

	switch event.Kind {
	case channel.KindMessage:
		match, ok := a.engine.Matcher.Match(event.Text)
		if !ok {
			return agent.ActionResult{}, nil
		}
		if user == nil {
			return a.engine.Dispatcher.LinkAccountResult(channel.Telegram), nil
		}
		return a.engine.Dispatcher.Dispatch(ctx, match.Action, match.Params, uc)
	case channel.KindPostback:
		if user == nil {
			return a.engine.Dispatcher.LinkAccountResult(channel.Telegram), nil
		}
		return a.engine.RespondToPostback(ctx, event.Payload, uc)
	default:
		return agent.ActionResult{}, nil
	}
}

// buildMessage renders an action result as a Telegram message. Quick
// replies become inline-keyboard callback buttons; a link prompt becomes
// plain text with a URL button.
func buildMessage(chatID int64, result agent.ActionResult) *telego.SendMessageParams {
	text := result.Speech
	var rows [][]telego.InlineKeyboardButton

	if result.LinkPrompt != nil {
		text = result.LinkPrompt.Text
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Link account").WithURL(result.LinkPrompt.URL),
		))
	}

	for _, reply := range result.QuickReplies {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(reply.Title).WithCallbackData(string(reply.Payload)),
		))
	}

	message := tu.Message(tu.ID(chatID), text)
	if len(rows) > 0 {
		message = message.WithReplyMarkup(tu.InlineKeyboard(rows...))
	}

	return message
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}

	_, ok := a.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}
