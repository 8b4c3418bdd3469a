package wa

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/observer"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// WhatsApp Cloud API interactive-message length limits, in runes.
const (
	maxSectionTitleLen = 24
	maxRowTitleLen     = 24
	maxRowDescLen      = 72
	maxListButtonLen   = 20
	maxReplyTitleLen   = 20
	maxReplyButtons    = 3
)

const defaultGraphBaseURL = "https://graph.facebook.com/v20.0"

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	phoneNumberID string
	token         string
}

// NewClient creates a Cloud API client for one business phone number.
// baseURL may be empty to use the production Graph endpoint.
func NewClient(baseURL, phoneNumberID, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultGraphBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		phoneNumberID: phoneNumberID,
		token:         token,
	}
}

type messagePayload struct {
	MessagingProduct string              `json:"messaging_product"`
	To               string              `json:"to"`
	Type             string              `json:"type"`
	Text             *textPayload        `json:"text,omitempty"`
	Interactive      *interactivePayload `json:"interactive,omitempty"`
}

type textPayload struct {
	Body string `json:"body"`
}

type interactivePayload struct {
	Type   string         `json:"type"`
	Body   textPayload    `json:"body"`
	Action *actionPayload `json:"action,omitempty"`
}

type actionPayload struct {
	Buttons  []buttonPayload `json:"buttons,omitempty"`
	Button   string          `json:"button,omitempty"`
	Sections []ListSection   `json:"sections,omitempty"`
}

type buttonPayload struct {
	Type  string      `json:"type"`
	Reply ReplyButton `json:"reply"`
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	err := c.post(ctx, messagePayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textPayload{Body: body},
	})
	observer.IncOutboundSend("text", err)
	return err
}

// SendButtons sends a body with up to three quick-reply buttons. Extra
// buttons are dropped and titles are clamped to the API limit.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []ReplyButton) error {
	if len(buttons) > maxReplyButtons {
		buttons = buttons[:maxReplyButtons]
	}
	safe := make([]buttonPayload, 0, len(buttons))
	for _, b := range buttons {
		safe = append(safe, buttonPayload{
			Type: "reply",
			Reply: ReplyButton{
				ID:    b.ID,
				Title: utils.ClampRunes(b.Title, maxReplyTitleLen),
			},
		})
	}

	err := c.post(ctx, messagePayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &interactivePayload{
			Type:   "button",
			Body:   textPayload{Body: body},
			Action: &actionPayload{Buttons: safe},
		},
	})
	observer.IncOutboundSend("buttons", err)
	return err
}

// SendList sends a sectioned interactive list. Section titles, row titles,
// row descriptions and the opener button text are clamped to the API limits.
func (c *Client) SendList(ctx context.Context, to, body, buttonText string, sections []ListSection) error {
	safe := make([]ListSection, 0, len(sections))
	for _, sec := range sections {
		rows := make([]ListRow, 0, len(sec.Rows))
		for _, row := range sec.Rows {
			rows = append(rows, ListRow{
				ID:          row.ID,
				Title:       utils.ClampRunes(row.Title, maxRowTitleLen),
				Description: utils.ClampRunes(row.Description, maxRowDescLen),
			})
		}
		safe = append(safe, ListSection{
			Title: utils.ClampRunes(sec.Title, maxSectionTitleLen),
			Rows:  rows,
		})
	}

	err := c.post(ctx, messagePayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &interactivePayload{
			Type: "list",
			Body: textPayload{Body: body},
			Action: &actionPayload{
				Button:   utils.ClampRunes(buttonText, maxListButtonLen),
				Sections: safe,
			},
		},
	})
	observer.IncOutboundSend("list", err)
	return err
}

func (c *Client) post(ctx context.Context, payload messagePayload) error {
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(utils.MustMarshalJSON(payload)))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewRetryable(err, "whatsapp send failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		logger.FromContext(ctx).Warn("WhatsApp API rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("to", payload.To),
			zap.ByteString("response", respBody))
		return fmt.Errorf("%w: whatsapp api status %d", apperrors.ErrBadRequest, resp.StatusCode)
	}
	return nil
}

var _ Sender = (*Client)(nil)
