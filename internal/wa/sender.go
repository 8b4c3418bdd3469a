package wa

import "context"

// ReplyButton is one quick-reply button on an interactive message.
// WhatsApp allows at most three per message.
type ReplyButton struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListRow is one selectable row of an interactive list.
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ListSection groups rows under an optional section title.
type ListSection struct {
	Title string    `json:"title"`
	Rows  []ListRow `json:"rows"`
}

// Sender delivers outbound messages to an end user. Implementations must be
// safe for concurrent use.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, buttons []ReplyButton) error
	SendList(ctx context.Context, to, body, buttonText string, sections []ListSection) error
}
