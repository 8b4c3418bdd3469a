package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/wa"
)

type senderMock struct {
	mock.Mock
}

func (m *senderMock) SendText(ctx context.Context, to, body string) error {
	args := m.Called(ctx, to, body)
	return args.Error(0)
}

func (m *senderMock) SendButtons(ctx context.Context, to, body string, buttons []wa.ReplyButton) error {
	args := m.Called(ctx, to, body, buttons)
	return args.Error(0)
}

func (m *senderMock) SendList(ctx context.Context, to, body, buttonText string, sections []wa.ListSection) error {
	args := m.Called(ctx, to, body, buttonText, sections)
	return args.Error(0)
}

func newDispatcher() *Dispatcher {
	return NewDispatcher(NewCategoryCache())
}

func TestDispatch_GreetingOpensMainMenu(t *testing.T) {
	d := newDispatcher()

	for _, greeting := range []string{"hi", "hello", "hii", "hey", "menu", "start", "manas"} {
		decision := d.Dispatch(model.InboundEvent{From: "919876543210", Text: greeting})
		assert.Equal(t, model.FlowWelcome, decision.FlowStep, greeting)
		assert.Equal(t, ReplyList, decision.Reply.Kind, greeting)
		assert.Equal(t, "Open Menu", decision.Reply.ButtonText, greeting)
		require.Len(t, decision.Reply.Sections, 1)
		assert.Len(t, decision.Reply.Sections[0].Rows, 4)
	}
}

func TestDispatch_UnknownTextFallsBack(t *testing.T) {
	d := newDispatcher()

	decision := d.Dispatch(model.InboundEvent{From: "919876543210", Text: "what is the weather"})
	assert.Equal(t, model.FlowWelcome, decision.FlowStep)
	assert.Equal(t, ReplyText, decision.Reply.Kind)
	assert.Contains(t, decision.Reply.Body, "Type *Hi* to open the menu.")
}

func TestDispatch_ContactKeywordsReachSupport(t *testing.T) {
	d := newDispatcher()

	for _, text := range []string{"call 1933", "is there a helpline", "how do i contact you"} {
		decision := d.Dispatch(model.InboundEvent{From: "919876543210", Text: text})
		assert.Equal(t, model.FlowContactSupport, decision.FlowStep, text)
		assert.Equal(t, ReplyButtons, decision.Reply.Kind, text)
		assert.Contains(t, decision.Reply.Body, "1933", text)
	}
}

func TestDispatch_ButtonOutranksText(t *testing.T) {
	d := newDispatcher()

	decision := d.Dispatch(model.InboundEvent{
		From:     "919876543210",
		Text:     "hi",
		ButtonID: BtnMainMenu,
	})
	assert.Equal(t, model.FlowMenuMain, decision.FlowStep)
	assert.Equal(t, ReplyList, decision.Reply.Kind)
}

func TestDispatch_CategorySelectionOpensFAQList(t *testing.T) {
	d := newDispatcher()

	decision := d.Dispatch(model.InboundEvent{From: "919876543210", ListID: CatRehab})
	assert.Equal(t, model.FlowBrowseCatalog, decision.FlowStep)
	assert.Equal(t, ReplyList, decision.Reply.Kind)
	assert.Equal(t, "Open FAQs", decision.Reply.ButtonText)
	assert.Contains(t, decision.Reply.Body, "Rehab Support")
	require.Len(t, decision.Reply.Sections, 1)
	assert.Equal(t, "FAQs", decision.Reply.Sections[0].Title)
	assert.Len(t, decision.Reply.Sections[0].Rows, 4)
}

func TestDispatch_FAQSelectionAnswersWithFollowUps(t *testing.T) {
	d := newDispatcher()

	decision := d.Dispatch(model.InboundEvent{From: "919876543210", ListID: FAQConfIdent})
	assert.Equal(t, model.FlowFAQ, decision.FlowStep)
	assert.Equal(t, ReplyButtons, decision.Reply.Kind)
	assert.Contains(t, decision.Reply.Body, "strictly confidential")
	assert.Contains(t, decision.Reply.Body, "info.ncbmanas@gov.in")
	require.Len(t, decision.Reply.Buttons, 2)
	assert.Equal(t, BtnMainMenu, decision.Reply.Buttons[0].ID)
	assert.Equal(t, BtnMoreFAQs, decision.Reply.Buttons[1].ID)
}

func TestDispatch_MoreFAQsDefaultsToReportCategory(t *testing.T) {
	d := newDispatcher()

	decision := d.Dispatch(model.InboundEvent{From: "919876543210", ButtonID: BtnMoreFAQs})
	assert.Equal(t, model.FlowFAQ, decision.FlowStep)
	assert.Contains(t, decision.Reply.Body, "Report a Drug Crime")
}

func TestDispatch_MoreFAQsRecallsLastCategory(t *testing.T) {
	d := newDispatcher()
	from := "919876543210"

	_ = d.Dispatch(model.InboundEvent{From: from, ListID: CatAbout})

	decision := d.Dispatch(model.InboundEvent{From: from, ButtonID: BtnMoreFAQs})
	assert.Equal(t, model.FlowFAQ, decision.FlowStep)
	assert.Contains(t, decision.Reply.Body, "About NCB/MANAS")

	other := d.Dispatch(model.InboundEvent{From: "917700112233", ButtonID: BtnMoreFAQs})
	assert.Contains(t, other.Reply.Body, "Report a Drug Crime")
}

func TestDispatch_UnknownInteractiveIDsFallBack(t *testing.T) {
	d := newDispatcher()

	button := d.Dispatch(model.InboundEvent{From: "919876543210", ButtonID: "BTN_BOGUS"})
	assert.Equal(t, model.FlowWelcome, button.FlowStep)
	assert.Equal(t, ReplyText, button.Reply.Kind)

	list := d.Dispatch(model.InboundEvent{From: "919876543210", ListID: "FAQ_BOGUS"})
	assert.Equal(t, model.FlowWelcome, list.FlowStep)
	assert.Equal(t, ReplyText, list.Reply.Kind)
}

func TestReply_SendRoutesByKind(t *testing.T) {
	ctx := context.Background()
	to := "919876543210"

	t.Run("Text", func(t *testing.T) {
		sender := new(senderMock)
		sender.On("SendText", ctx, to, "plain").Return(nil)

		err := Reply{Kind: ReplyText, Body: "plain"}.Send(ctx, sender, to)
		assert.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("Buttons", func(t *testing.T) {
		sender := new(senderMock)
		buttons := []wa.ReplyButton{{ID: "b1", Title: "One"}}
		sender.On("SendButtons", ctx, to, "pick", buttons).Return(nil)

		err := Reply{Kind: ReplyButtons, Body: "pick", Buttons: buttons}.Send(ctx, sender, to)
		assert.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("List", func(t *testing.T) {
		sender := new(senderMock)
		sections := []wa.ListSection{{Title: "FAQs"}}
		sender.On("SendList", ctx, to, "menu", "Open", sections).Return(nil)

		err := Reply{Kind: ReplyList, Body: "menu", ButtonText: "Open", Sections: sections}.Send(ctx, sender, to)
		assert.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("SenderError", func(t *testing.T) {
		sender := new(senderMock)
		sendErr := errors.New("network down")
		sender.On("SendText", ctx, to, "plain").Return(sendErr)

		err := Reply{Kind: ReplyText, Body: "plain"}.Send(ctx, sender, to)
		assert.ErrorIs(t, err, sendErr)
	})
}

func TestReply_Summary(t *testing.T) {
	assert.Equal(t, "hello", Reply{Kind: ReplyText, Body: "hello\nworld"}.Summary())
	assert.True(t, strings.HasPrefix(Reply{Kind: ReplyButtons, Body: "ans"}.Summary(), "[buttons] "))
	assert.True(t, strings.HasPrefix(Reply{Kind: ReplyList, Body: "menu"}.Summary(), "[list] "))
}

func TestCategoryCache_Defaults(t *testing.T) {
	cache := NewCategoryCache()
	assert.Equal(t, CatReport, cache.Get("unknown"))

	cache.Put("919876543210", CatConf)
	assert.Equal(t, CatConf, cache.Get("919876543210"))
	assert.Equal(t, CatReport, cache.Get("917700112233"))
}
