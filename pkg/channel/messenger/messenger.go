package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"flowbot/pkg/agent"
	"flowbot/pkg/channel"
	"flowbot/pkg/config"
	"flowbot/pkg/model"
)

// webhookBody is the Messenger webhook delivery shape: a list of entries,
// each carrying a list of messaging events.
type webhookBody struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	Messaging []messagingEvent `json:"messaging"`
}

type messagingEvent struct {
	Sender         *participant         `json:"sender"`
	Message        *messageEvent        `json:"message"`
	Postback       *postbackEvent       `json:"postback"`
	AccountLinking *accountLinkingEvent `json:"account_linking"`
}

type participant struct {
	ID string `json:"id"`
}

type messageEvent struct {
	Text string `json:"text"`
}

type postbackEvent struct {
	Payload string `json:"payload"`
}

type accountLinkingEvent struct {
	Status            string `json:"status"`
	AuthorizationCode string `json:"authorization_code"`
}

// Sender delivers one finished message object to a recipient. The Graph
// API client implements it; tests substitute a recorder.
type Sender interface {
	Send(ctx context.Context, recipientID string, message MessageObject) error
}

// Adapter is the Messenger front door: it classifies inbound webhook
// events, resolves the sender to a user record, runs the shared
// resolution engine, and hands the rendered envelope to the transport.
type Adapter struct {
	engine *channel.Engine
	store  model.Store
	sender Sender
	log    *slog.Logger
	now    func() time.Time
}

// NewAdapter wires the Messenger adapter. All collaborators are required.
func NewAdapter(engine *channel.Engine, store model.Store, sender Sender, log *slog.Logger) (*Adapter, error) {
	if engine == nil || engine.Matcher == nil || engine.Dispatcher == nil {
		return nil, errors.New("resolution engine is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if sender == nil {
		return nil, errors.New("sender is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		engine: engine,
		store:  store,
		sender: sender,
		log:    log.With("component", "channel.messenger"),
		now:    time.Now,
	}, nil
}

// NewAdapterFromConfig builds the adapter with a real Graph API client.
func NewAdapterFromConfig(cfg config.MessengerConfig, engine *channel.Engine, store model.Store, log *slog.Logger) (*Adapter, error) {
	client, err := NewClient(cfg, log)
	if err != nil {
		return nil, err
	}

	return NewAdapter(engine, store, client, log)
}

// classify inspects the top-level shape of one messaging event.
func classify(md *messagingEvent) channel.Kind {
	switch {
	case md == nil:
		return channel.KindUnknown
	case md.Message != nil:
		return channel.KindMessage
	case md.Postback != nil:
		return channel.KindPostback
	default:
		return channel.KindUnknown
	}
}

// firstMessagingEvent extracts the first deliverable event from a webhook
// body, or nil when the body lacks the expected structure.
func firstMessagingEvent(body []byte) *messagingEvent {
	var payload webhookBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	if len(payload.Entry) == 0 || len(payload.Entry[0].Messaging) == 0 {
		return nil
	}

	return &payload.Entry[0].Messaging[0]
}

// resolveUser binds or looks up the user for one event. An account-link
// notice with status "linked" carries the external user ID as its
// authorization code; the sender's platform identity is then bound onto
// that record and persisted. Otherwise the sender ID is matched against
// already-bound records. Absence of a user is not an error.
func (a *Adapter) resolveUser(ctx context.Context, md *messagingEvent, psid string) *model.User {
	if linking := md.AccountLinking; linking != nil && linking.Status == "linked" {
		a.log.Debug("Linking user", "authorization_code", linking.AuthorizationCode)
		user, err := a.store.User(ctx, linking.AuthorizationCode)
		if err == nil && psid != "" {
			user.SetChannelID(channel.Messenger, psid)
			if err := a.store.PutUser(ctx, user); err != nil {
				a.log.Error("Failed to persist account link", "error", err)
			}
			return user
		}
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			a.log.Error("Account link lookup failed", "error", err)
		}
	}

	if psid == "" {
		return nil
	}

	user, err := a.store.UserByChannelID(ctx, channel.Messenger, psid)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			a.log.Error("User lookup failed", "error", err)
		}
		return nil
	}

	return user
}

// HandleEvent processes one raw webhook body end to end. It always
// returns cleanly: malformed payloads, unmatched utterances, and
// transport failures are logged or answered, never raised.
func (a *Adapter) HandleEvent(ctx context.Context, body []byte) {
	md := firstMessagingEvent(body)
	if md == nil {
		a.log.Debug("Malformed webhook body, ignoring")
		return
	}

	var psid string
	if md.Sender != nil {
		psid = md.Sender.ID
	}

	user := a.resolveUser(ctx, md, psid)
	kind := classify(md)
	a.log.Debug("Inbound event", "kind", kind.String(), "sender_id", psid, "resolved", user != nil)

	event := channel.InboundEvent{Channel: channel.Messenger, Kind: kind, SenderID: psid}
	switch kind {
	case channel.KindMessage:
		event.Text = md.Message.Text
	case channel.KindPostback:
		event.Payload = agent.Action(md.Postback.Payload)
	default:
		return
	}

	result, err := a.respond(ctx, event, user)
	if err != nil {
		a.log.Error("Dispatch failed", "kind", kind.String(), "error", err)
		return
	}
	if result.Empty() || psid == "" {
		return
	}

	envelope := BuildEnvelope(result)
	if err := a.sender.Send(ctx, psid, envelope); err != nil {
		a.log.Warn("Failed to send messenger reply", "recipient", psid, "error", err)
	}
}

// respond runs the matcher/dispatcher for one classified event. When no
// user was resolved the dispatcher is not invoked; the fixed link-account
// result takes its place, but only once an action would actually fire,
// so unmatched text stays silent even for strangers.
func (a *Adapter) respond(ctx context.Context, event channel.InboundEvent, user *model.User) (agent.ActionResult, error) {
	uc := agent.UserContext{
		User:     user,
		Channel:  channel.Messenger,
		SenderID: event.SenderID,
	}
	if user != nil {
		uc.LocalTime = user.LocalTime(a.now())
	}

	switch event.Kind {
	case channel.KindMessage:
		if event.Text == "" {
			return agent.ActionResult{}, nil
		}
		match, ok := a.engine.Matcher.Match(event.Text)
		if !ok {
			return agent.ActionResult{}, nil
		}
		if user == nil {
			return a.engine.Dispatcher.LinkAccountResult(channel.Messenger), nil
		}
		return a.engine.Dispatcher.Dispatch(ctx, match.Action, match.Params, uc)
	case channel.KindPostback:
		if user == nil {
			return a.engine.Dispatcher.LinkAccountResult(channel.Messenger), nil
		}
		return a.engine.RespondToPostback(ctx, event.Payload, uc)
	default:
		return agent.ActionResult{}, nil
	}
}
