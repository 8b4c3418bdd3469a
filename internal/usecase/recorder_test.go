package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	apperrors "gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/bot"
	eventbusmock "gitlab.com/manasline/api/wa-helpline-bot/internal/eventbus/mock"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	storagemock "gitlab.com/manasline/api/wa-helpline-bot/internal/storage/mock"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
)

type recorderFixture struct {
	userRepo    *storagemock.UserRepoMock
	sessionRepo *storagemock.SessionRepoMock
	flowRepo    *storagemock.SessionFlowRepoMock
	messageRepo *storagemock.ChatMessageRepoMock
	eventRepo   *storagemock.AnalyticsEventRepoMock
	publisher   *eventbusmock.PublisherMock
	recorder    *Recorder
}

func newRecorderFixture(t *testing.T) *recorderFixture {
	logger.Log = zaptest.NewLogger(t).Named("test")
	f := &recorderFixture{
		userRepo:    new(storagemock.UserRepoMock),
		sessionRepo: new(storagemock.SessionRepoMock),
		flowRepo:    new(storagemock.SessionFlowRepoMock),
		messageRepo: new(storagemock.ChatMessageRepoMock),
		eventRepo:   new(storagemock.AnalyticsEventRepoMock),
		publisher:   new(eventbusmock.PublisherMock),
	}
	f.recorder = NewRecorder(f.userRepo, f.sessionRepo, f.flowRepo, f.messageRepo, f.eventRepo, f.publisher)
	return f
}

func greetingDecision() bot.Decision {
	return bot.NewDispatcher(bot.NewCategoryCache()).Dispatch(model.InboundEvent{From: "919876543210", Text: "hi"})
}

func TestRecorder_Record_FullFlow(t *testing.T) {
	f := newRecorderFixture(t)
	ctx := context.Background()
	user := model.FakeUser(&model.User{UserType: model.UserTypeNew, LastActive: time.Now().UTC()})
	session := model.FakeSession(&model.Session{UserID: user.ID, IsActive: true})
	event := model.InboundEvent{From: user.PhoneNumber, Text: "hi"}

	var savedMessages []*model.ChatMessage
	f.messageRepo.On("Save", ctx, mock.AnythingOfType("*model.ChatMessage")).Run(func(args mock.Arguments) {
		savedMessages = append(savedMessages, args.Get(1).(*model.ChatMessage))
	}).Return(nil)
	f.eventRepo.On("Save", ctx, mock.AnythingOfType("*model.AnalyticsEvent")).Return(nil)
	f.publisher.On("PublishEvent", ctx, mock.AnythingOfType("*model.AnalyticsEvent")).Return(nil)
	f.flowRepo.On("MaxStepOrder", ctx, session.ID).Return(3, nil)
	f.flowRepo.On("Save", ctx, mock.MatchedBy(func(flow *model.SessionFlow) bool {
		return flow.SessionID == session.ID && flow.FlowStep == model.FlowWelcome && flow.StepOrder == 4
	})).Return(nil)
	f.userRepo.On("TouchLastActive", ctx, user.ID, mock.AnythingOfType("time.Time")).Return(nil)
	f.sessionRepo.On("CountByUser", ctx, user.ID).Return(int64(3), nil)
	f.userRepo.On("UpdateUserType", ctx, user.ID, model.UserTypeReturning).Return(nil)

	f.recorder.Record(ctx, user, session, event, greetingDecision(), false)

	// USER then BOT chat messages.
	assert.Len(t, savedMessages, 2)
	assert.Equal(t, model.SenderUser, savedMessages[0].Sender)
	assert.Equal(t, model.SenderBot, savedMessages[1].Sender)
	// Message_Received, Message_Sent, Flow_Step.
	f.eventRepo.AssertNumberOfCalls(t, "Save", 3)
	f.flowRepo.AssertExpectations(t)
	assert.Equal(t, model.UserTypeReturning, user.UserType)
}

func TestRecorder_Record_FirstStepStartsAtOne(t *testing.T) {
	f := newRecorderFixture(t)
	ctx := context.Background()
	user := model.FakeUser(&model.User{UserType: model.UserTypeNew, LastActive: time.Now().UTC()})
	session := model.FakeSession(&model.Session{UserID: user.ID, IsActive: true})

	f.messageRepo.On("Save", ctx, mock.AnythingOfType("*model.ChatMessage")).Return(nil)
	f.eventRepo.On("Save", ctx, mock.AnythingOfType("*model.AnalyticsEvent")).Return(nil)
	f.publisher.On("PublishEvent", ctx, mock.AnythingOfType("*model.AnalyticsEvent")).Return(nil)
	f.flowRepo.On("MaxStepOrder", ctx, session.ID).Return(0, nil)
	f.flowRepo.On("Save", ctx, mock.MatchedBy(func(flow *model.SessionFlow) bool {
		return flow.StepOrder == 1
	})).Return(nil)
	f.userRepo.On("TouchLastActive", ctx, user.ID, mock.AnythingOfType("time.Time")).Return(nil)
	f.sessionRepo.On("CountByUser", ctx, user.ID).Return(int64(1), nil)

	f.recorder.Record(ctx, user, session, model.InboundEvent{From: user.PhoneNumber, Text: "hi"}, greetingDecision(), false)

	f.flowRepo.AssertExpectations(t)
	// Classification unchanged, no update issued.
	f.userRepo.AssertNotCalled(t, "UpdateUserType", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecorder_Record_AllStepsBestEffort(t *testing.T) {
	f := newRecorderFixture(t)
	ctx := context.Background()
	user := model.FakeUser(&model.User{UserType: model.UserTypeNew, LastActive: time.Now().UTC()})
	session := model.FakeSession(&model.Session{UserID: user.ID, IsActive: true})

	f.messageRepo.On("Save", ctx, mock.AnythingOfType("*model.ChatMessage")).Return(apperrors.ErrDatabase)
	f.eventRepo.On("Save", ctx, mock.AnythingOfType("*model.AnalyticsEvent")).Return(apperrors.ErrDatabase)
	f.flowRepo.On("MaxStepOrder", ctx, session.ID).Return(0, apperrors.ErrDatabase)
	f.flowRepo.On("Save", ctx, mock.AnythingOfType("*model.SessionFlow")).Return(apperrors.ErrDatabase)
	f.userRepo.On("TouchLastActive", ctx, user.ID, mock.AnythingOfType("time.Time")).Return(apperrors.ErrDatabase)
	f.sessionRepo.On("CountByUser", ctx, user.ID).Return(int64(0), apperrors.ErrDatabase)

	// Must not panic or propagate anything.
	f.recorder.Record(ctx, user, session, model.InboundEvent{From: user.PhoneNumber, Text: "hi"}, greetingDecision(), true)

	f.publisher.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything)
	f.userRepo.AssertNotCalled(t, "UpdateUserType", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecorder_Record_InactivityOverride(t *testing.T) {
	f := newRecorderFixture(t)
	ctx := context.Background()
	user := model.FakeUser(&model.User{UserType: model.UserTypeActive})
	session := model.FakeSession(&model.Session{UserID: user.ID, IsActive: true})

	f.messageRepo.On("Save", ctx, mock.AnythingOfType("*model.ChatMessage")).Return(nil)
	f.eventRepo.On("Save", ctx, mock.AnythingOfType("*model.AnalyticsEvent")).Return(nil)
	f.publisher.On("PublishEvent", ctx, mock.AnythingOfType("*model.AnalyticsEvent")).Return(nil)
	f.flowRepo.On("MaxStepOrder", ctx, session.ID).Return(5, nil)
	f.flowRepo.On("Save", ctx, mock.AnythingOfType("*model.SessionFlow")).Return(nil)
	// Touch fails, so lastActive stays 40 days stale and the 30-day rule wins.
	user.LastActive = time.Now().UTC().Add(-40 * 24 * time.Hour)
	f.userRepo.On("TouchLastActive", ctx, user.ID, mock.AnythingOfType("time.Time")).Return(apperrors.ErrDatabase)
	f.sessionRepo.On("CountByUser", ctx, user.ID).Return(int64(10), nil)
	f.userRepo.On("UpdateUserType", ctx, user.ID, model.UserTypeInactive).Return(nil)

	f.recorder.Record(ctx, user, session, model.InboundEvent{From: user.PhoneNumber, Text: "hi"}, greetingDecision(), false)

	f.userRepo.AssertExpectations(t)
	assert.Equal(t, model.UserTypeInactive, user.UserType)
}
