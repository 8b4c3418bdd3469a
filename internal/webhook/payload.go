package webhook

import (
	"strings"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
)

// CloudAPIPayload mirrors the WhatsApp Cloud API webhook envelope, reduced
// to the fields the bot consumes.
type CloudAPIPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Statuses []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"statuses"`
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
					Interactive struct {
						Type        string `json:"type"`
						ButtonReply struct {
							ID string `json:"id"`
						} `json:"button_reply"`
						ListReply struct {
							ID string `json:"id"`
						} `json:"list_reply"`
					} `json:"interactive"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// Normalize extracts the first message of the payload as an inbound event.
// Returns false for envelopes with nothing to process: delivery status
// callbacks, empty entries, or messages with no sender. Free text is
// lowercased and trimmed before matching.
func (p *CloudAPIPayload) Normalize() (model.InboundEvent, bool) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return model.InboundEvent{}, false
	}
	value := p.Entry[0].Changes[0].Value

	// Status callbacks carry no user message.
	if len(value.Statuses) > 0 || len(value.Messages) == 0 {
		return model.InboundEvent{}, false
	}

	msg := value.Messages[0]
	if msg.From == "" {
		return model.InboundEvent{}, false
	}

	return model.InboundEvent{
		From:     msg.From,
		Text:     strings.ToLower(strings.TrimSpace(msg.Text.Body)),
		ButtonID: msg.Interactive.ButtonReply.ID,
		ListID:   msg.Interactive.ListReply.ID,
	}, true
}
