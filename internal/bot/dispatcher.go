package bot

import (
	"context"
	"strings"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/observer"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/wa"
)

// ReplyKind selects which outbound message shape a decision produced.
type ReplyKind string

const (
	ReplyText    ReplyKind = "text"
	ReplyButtons ReplyKind = "buttons"
	ReplyList    ReplyKind = "list"
)

// Reply is the outbound message a decision resolved to.
type Reply struct {
	Kind       ReplyKind
	Body       string
	Buttons    []wa.ReplyButton
	ButtonText string
	Sections   []wa.ListSection
}

// Send delivers the reply through the given sender.
func (r Reply) Send(ctx context.Context, s wa.Sender, to string) error {
	switch r.Kind {
	case ReplyButtons:
		return s.SendButtons(ctx, to, r.Body, r.Buttons)
	case ReplyList:
		return s.SendList(ctx, to, r.Body, r.ButtonText, r.Sections)
	default:
		return s.SendText(ctx, to, r.Body)
	}
}

// Summary is a short description of the reply for chat history records.
func (r Reply) Summary() string {
	switch r.Kind {
	case ReplyButtons:
		return "[buttons] " + firstLine(r.Body)
	case ReplyList:
		return "[list] " + firstLine(r.Body)
	default:
		return firstLine(r.Body)
	}
}

func firstLine(body string) string {
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		return body[:i]
	}
	return body
}

// Decision is the dispatcher's verdict for one inbound event: the flow step
// the interaction maps to and the reply to send back.
type Decision struct {
	FlowStep model.FlowStep
	Reply    Reply
}

// Dispatcher maps normalized inbound events onto flow decisions. It holds no
// per-conversation state beyond the last-browsed category cache and is safe
// for concurrent use.
type Dispatcher struct {
	categories *CategoryCache
}

// NewDispatcher creates a dispatcher backed by the given category cache.
func NewDispatcher(categories *CategoryCache) *Dispatcher {
	return &Dispatcher{categories: categories}
}

// Dispatch resolves an inbound event to a decision. Interactive replies
// outrank any text the same message carried; unrecognized input of any kind
// falls back to the welcome hint.
func (d *Dispatcher) Dispatch(event model.InboundEvent) Decision {
	var decision Decision
	kind, value := event.Signal()
	switch kind {
	case model.SignalButton:
		decision = d.dispatchButton(event.From, value)
	case model.SignalList:
		decision = d.dispatchList(event.From, value)
	default:
		decision = d.dispatchText(value)
	}
	observer.IncDispatchAction(string(decision.FlowStep))
	return decision
}

func (d *Dispatcher) dispatchButton(from, buttonID string) Decision {
	switch buttonID {
	case BtnMainMenu:
		return Decision{FlowStep: model.FlowMenuMain, Reply: mainMenuReply()}
	case BtnMoreFAQs:
		category := d.categories.Get(from)
		return Decision{FlowStep: model.FlowFAQ, Reply: categoryListReply(category)}
	default:
		return fallbackDecision()
	}
}

func (d *Dispatcher) dispatchList(from, listID string) Decision {
	if IsCategory(listID) {
		d.categories.Put(from, listID)
		return Decision{FlowStep: model.FlowBrowseCatalog, Reply: categoryListReply(listID)}
	}
	if answer, ok := FAQAnswer(listID); ok {
		return Decision{FlowStep: model.FlowFAQ, Reply: answerReply(answer)}
	}
	return fallbackDecision()
}

func (d *Dispatcher) dispatchText(text string) Decision {
	if IsGreeting(text) {
		return Decision{FlowStep: model.FlowWelcome, Reply: mainMenuReply()}
	}
	for _, keyword := range contactKeywords {
		if strings.Contains(text, keyword) {
			return Decision{FlowStep: model.FlowContactSupport, Reply: answerReply(faqAnswers[FAQGenReach])}
		}
	}
	return fallbackDecision()
}

func fallbackDecision() Decision {
	return Decision{
		FlowStep: model.FlowWelcome,
		Reply:    FallbackReply(),
	}
}

// FallbackReply is the generic help text, also used as the last-resort reply
// when a richer outbound send fails.
func FallbackReply() Reply {
	return Reply{Kind: ReplyText, Body: fallbackBody}
}

func mainMenuReply() Reply {
	return Reply{
		Kind:       ReplyList,
		Body:       welcomeBody,
		ButtonText: "Open Menu",
		Sections:   mainMenuSections,
	}
}

func categoryListReply(categoryID string) Reply {
	cfg := categoryFAQs[categoryID]
	return Reply{
		Kind:       ReplyList,
		Body:       "*" + cfg.Title + "*\n\nPlease choose a question below:",
		ButtonText: cfg.ButtonText,
		Sections:   []wa.ListSection{{Title: "FAQs", Rows: cfg.Rows}},
	}
}

func answerReply(answer string) Reply {
	return Reply{
		Kind: ReplyButtons,
		Body: answer + answerFooter,
		Buttons: []wa.ReplyButton{
			{ID: BtnMainMenu, Title: "⬅️ Main Menu"},
			{ID: BtnMoreFAQs, Title: "📋 More FAQs"},
		},
	}
}
