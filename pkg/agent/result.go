package agent

// QuickReply is one suggestion button: a display title plus the action
// identifier the channel sends back as a postback when pressed.
type QuickReply struct {
	Title   string
	Payload Action
}

// LinkPrompt directs the channel to offer account linking. Channels with
// rich payloads render it as a linking button; others fall back to the
// plain text.
type LinkPrompt struct {
	Text string
	URL  string
}

// ActionResult is the immutable outcome of dispatching one action:
// optional speech plus an optional structured directive. Both fields
// empty means intentional silence and nothing is sent.
type ActionResult struct {
	Speech       string
	QuickReplies []QuickReply
	LinkPrompt   *LinkPrompt
}

// Empty reports whether the result carries nothing to send.
func (r ActionResult) Empty() bool {
	return r.Speech == "" && len(r.QuickReplies) == 0 && r.LinkPrompt == nil
}

// BuildQuickReplies wraps ordered (title, payload) pairs into a result
// directive, preserving order.
func BuildQuickReplies(buttons ...QuickReply) []QuickReply {
	if len(buttons) == 0 {
		return nil
	}

	replies := make([]QuickReply, len(buttons))
	copy(replies, buttons)
	return replies
}
