package channel

import (
	"context"

	"flowbot/pkg/agent"
	"flowbot/pkg/intent"
)

// Channel names used for identity binding and logs.
const (
	Messenger = "messenger"
	Telegram  = "telegram"
)

// Kind classifies one inbound event by its top-level shape.
type Kind int

const (
	KindUnknown Kind = iota
	KindMessage
	KindPostback
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindPostback:
		return "postback"
	default:
		return "unknown"
	}
}

// InboundEvent is the normalized form of one webhook delivery or polled
// update. Built per request and discarded with it.
type InboundEvent struct {
	Channel  string
	Kind     Kind
	SenderID string
	Text     string       // message path
	Payload  agent.Action // postback path
}

// Poller is a channel adapter that pulls its own updates (for example
// Telegram long polling) instead of receiving webhooks.
type Poller interface {
	Name() string
	Run(ctx context.Context) error
}

// Engine drives the shared resolution flow: text goes through the intent
// matcher, postback payloads go to the dispatcher directly. Adapters own
// classification, identity resolution, and envelope rendering around it.
type Engine struct {
	Matcher    *intent.Matcher
	Dispatcher *agent.Dispatcher
}

// RespondToText matches an utterance and dispatches the winning action.
// An utterance matching no rule yields an empty result and no dispatch.
func (e *Engine) RespondToText(ctx context.Context, text string, uc agent.UserContext) (agent.ActionResult, error) {
	match, ok := e.Matcher.Match(text)
	if !ok {
		return agent.ActionResult{}, nil
	}

	return e.Dispatcher.Dispatch(ctx, match.Action, match.Params, uc)
}

// RespondToPostback dispatches a postback payload as a literal action
// identifier, bypassing the matcher. No parameters are produced this way.
func (e *Engine) RespondToPostback(ctx context.Context, payload agent.Action, uc agent.UserContext) (agent.ActionResult, error) {
	return e.Dispatcher.Dispatch(ctx, payload, nil, uc)
}
