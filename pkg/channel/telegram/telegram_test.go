package telegram

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/mymmrac/telego"

	"flowbot/pkg/agent"
	"flowbot/pkg/channel"
	"flowbot/pkg/intent"
	"flowbot/pkg/model"
)

func newTestEngine(t *testing.T, store model.Store) *channel.Engine {
	t.Helper()

	matcher, err := intent.DefaultMatcher()
	if err != nil {
		t.Fatalf("DefaultMatcher error: %v", err)
	}

	dispatcher, err := agent.NewDispatcher(agent.Options{
		Store:       store,
		Rand:        rand.New(rand.NewPCG(3, 3)),
		LinkBaseURL: "https://flow.example",
	})
	if err != nil {
		t.Fatalf("NewDispatcher error: %v", err)
	}

	return &channel.Engine{Matcher: matcher, Dispatcher: dispatcher}
}

func newTestAdapter(t *testing.T, store model.Store) *Adapter {
	t.Helper()

	return &Adapter{
		engine: newTestEngine(t, store),
		store:  store,
		log:    slog.Default(),
		now:    time.Now,
	}
}

func TestAllowFromSet(t *testing.T) {
	allowed := allowFromSet([]string{" 123 ", "", "456", "123"})
	if len(allowed) != 2 {
		t.Fatalf("allowFromSet len = %d, want 2", len(allowed))
	}
	if _, ok := allowed["123"]; !ok {
		t.Fatal("allowFromSet missing 123")
	}
	if _, ok := allowed["456"]; !ok {
		t.Fatal("allowFromSet missing 456")
	}
}

func TestSenderAllowed(t *testing.T) {
	adapter := &Adapter{allowFrom: map[string]struct{}{"1": {}}}
	if !adapter.senderAllowed("1") {
		t.Fatal("expected sender 1 to be allowed")
	}
	if adapter.senderAllowed("2") {
		t.Fatal("expected sender 2 to be denied")
	}

	adapter.allowFrom = nil
	if !adapter.senderAllowed("any") {
		t.Fatal("expected sender to be allowed when allowlist empty")
	}
}

func TestPreviewText(t *testing.T) {
	if got := previewText(" hello "); got != "hello" {
		t.Fatalf("previewText short = %q, want %q", got, "hello")
	}

	long := strings.Repeat("a", messagePreviewLimit+20)
	got := previewText(long)
	if len(got) != messagePreviewLimit+3 {
		t.Fatalf("previewText long len = %d, want %d", len(got), messagePreviewLimit+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("previewText long = %q, want ellipsis suffix", got)
	}
}

func TestClassifyMessage(t *testing.T) {
	adapter := &Adapter{}
	update := telego.Update{Message: &telego.Message{
		From: &telego.User{ID: 42},
		Chat: telego.Chat{ID: 5},
		Text: " my tasks ",
	}}

	event, chatID, ok := adapter.classify(update)
	if !ok {
		t.Fatal("expected message update to classify")
	}
	if event.Kind != channel.KindMessage {
		t.Fatalf("kind = %v, want message", event.Kind)
	}
	if event.SenderID != "42" || event.Text != "my tasks" || chatID != 5 {
		t.Fatalf("unexpected event %+v chat %d", event, chatID)
	}
}

func TestClassifyCallbackQuery(t *testing.T) {
	adapter := &Adapter{}
	update := telego.Update{CallbackQuery: &telego.CallbackQuery{
		ID:      "cb-1",
		From:    telego.User{ID: 42},
		Data:    "input.help_tasks",
		Message: &telego.Message{Chat: telego.Chat{ID: 5}},
	}}

	event, chatID, ok := adapter.classify(update)
	if !ok {
		t.Fatal("expected callback update to classify")
	}
	if event.Kind != channel.KindPostback {
		t.Fatalf("kind = %v, want postback", event.Kind)
	}
	if event.Payload != agent.ActionHelpTasks || chatID != 5 {
		t.Fatalf("unexpected event %+v chat %d", event, chatID)
	}
}

func TestClassifyIgnoresNonText(t *testing.T) {
	adapter := &Adapter{}
	if _, _, ok := adapter.classify(telego.Update{}); ok {
		t.Fatal("expected empty update to be ignored")
	}
	if _, _, ok := adapter.classify(telego.Update{Message: &telego.Message{Chat: telego.Chat{ID: 5}}}); ok {
		t.Fatal("expected message without sender/text to be ignored")
	}
}

func TestRespondLinkedUser(t *testing.T) {
	ctx := context.Background()
	store := model.NewMemStore()
	adapter := newTestAdapter(t, store)

	user, err := store.CreateUser(ctx, &model.User{Name: "Jo Doe", Timezone: "UTC"})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	user.SetChannelID(channel.Telegram, "42")
	if err := store.PutUser(ctx, user); err != nil {
		t.Fatalf("PutUser error: %v", err)
	}

	result, err := adapter.respond(ctx, channel.InboundEvent{
		Channel:  channel.Telegram,
		Kind:     channel.KindMessage,
		SenderID: "42",
		Text:     "my tasks",
	})
	if err != nil {
		t.Fatalf("respond error: %v", err)
	}
	if !strings.Contains(result.Speech, "You've completed 0 tasks for today.") {
		t.Fatalf("speech = %q", result.Speech)
	}
}

func TestRespondUnlinkedUserGetsLinkPrompt(t *testing.T) {
	adapter := newTestAdapter(t, model.NewMemStore())

	result, err := adapter.respond(context.Background(), channel.InboundEvent{
		Channel:  channel.Telegram,
		Kind:     channel.KindPostback,
		SenderID: "42",
		Payload:  agent.ActionHelp,
	})
	if err != nil {
		t.Fatalf("respond error: %v", err)
	}
	if result.LinkPrompt == nil {
		t.Fatal("expected link prompt for unlinked sender")
	}
	if result.LinkPrompt.URL != "https://flow.example/app/telegram/auth" {
		t.Fatalf("link URL = %q", result.LinkPrompt.URL)
	}
}

func TestBuildMessageQuickReplies(t *testing.T) {
	message := buildMessage(5, agent.ActionResult{
		Speech: "pick a topic",
		QuickReplies: []agent.QuickReply{
			{Title: "Learn about Habits", Payload: agent.ActionHelpHabits},
		},
	})

	if message.Text != "pick a topic" {
		t.Fatalf("text = %q", message.Text)
	}
	markup, ok := message.ReplyMarkup.(*telego.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("reply markup type %T", message.ReplyMarkup)
	}
	if len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 1 {
		t.Fatalf("unexpected keyboard shape %+v", markup.InlineKeyboard)
	}
	button := markup.InlineKeyboard[0][0]
	if button.Text != "Learn about Habits" || button.CallbackData != "input.help_habits" {
		t.Fatalf("unexpected button %+v", button)
	}
}

func TestBuildMessageLinkPrompt(t *testing.T) {
	message := buildMessage(5, agent.ActionResult{
		LinkPrompt: &agent.LinkPrompt{Text: "link up", URL: "https://flow.example/app/telegram/auth"},
	})

	if message.Text != "link up" {
		t.Fatalf("text = %q", message.Text)
	}
	markup, ok := message.ReplyMarkup.(*telego.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("reply markup type %T", message.ReplyMarkup)
	}
	button := markup.InlineKeyboard[0][0]
	if button.URL != "https://flow.example/app/telegram/auth" {
		t.Fatalf("unexpected button %+v", button)
	}
}
