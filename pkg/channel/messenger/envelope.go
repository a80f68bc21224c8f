package messenger

import "flowbot/pkg/agent"

// MessageObject is one outbound Messenger message: plain text, a rich
// attachment, or either combined with quick-reply suggestions.
type MessageObject struct {
	Text         string       `json:"text,omitempty"`
	Attachment   *Attachment  `json:"attachment,omitempty"`
	QuickReplies []QuickReply `json:"quick_replies,omitempty"`
}

// QuickReply is the wire form of one suggestion button.
type QuickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

// Attachment wraps a structured template payload.
type Attachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

// AttachmentPayload is the template body of an attachment.
type AttachmentPayload struct {
	TemplateType string   `json:"template_type"`
	Text         string   `json:"text,omitempty"`
	Buttons      []Button `json:"buttons,omitempty"`
}

// Button is one template button.
type Button struct {
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

// BuildQuickReplies renders ordered (title, payload) pairs as Messenger
// quick replies, one entry per pair, each tagged as free-text entry.
func BuildQuickReplies(buttons []agent.QuickReply) []QuickReply {
	if len(buttons) == 0 {
		return nil
	}

	replies := make([]QuickReply, 0, len(buttons))
	for _, button := range buttons {
		replies = append(replies, QuickReply{
			ContentType: "text",
			Title:       button.Title,
			Payload:     string(button.Payload),
		})
	}

	return replies
}

// BuildEnvelope renders an action result as an outbound message object.
// A rich attachment takes precedence: when present, the plain speech text
// is omitted. Quick replies merge alongside either form.
func BuildEnvelope(result agent.ActionResult) MessageObject {
	msg := MessageObject{QuickReplies: BuildQuickReplies(result.QuickReplies)}

	if result.LinkPrompt != nil {
		msg.Attachment = &Attachment{
			Type: "template",
			Payload: AttachmentPayload{
				TemplateType: "button",
				Text:         result.LinkPrompt.Text,
				Buttons: []Button{{
					Type: "account_link",
					URL:  result.LinkPrompt.URL,
				}},
			},
		}
		return msg
	}

	msg.Text = result.Speech
	return msg
}
