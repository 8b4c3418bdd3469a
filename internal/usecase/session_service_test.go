package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
	eventbusmock "gitlab.com/manasline/api/wa-helpline-bot/internal/eventbus/mock"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	storagemock "gitlab.com/manasline/api/wa-helpline-bot/internal/storage/mock"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
)

type sessionServiceFixture struct {
	userRepo    *storagemock.UserRepoMock
	sessionRepo *storagemock.SessionRepoMock
	eventRepo   *storagemock.AnalyticsEventRepoMock
	publisher   *eventbusmock.PublisherMock
	service     *SessionService
}

func newSessionServiceFixture(t *testing.T) *sessionServiceFixture {
	logger.Log = zaptest.NewLogger(t).Named("test")
	f := &sessionServiceFixture{
		userRepo:    new(storagemock.UserRepoMock),
		sessionRepo: new(storagemock.SessionRepoMock),
		eventRepo:   new(storagemock.AnalyticsEventRepoMock),
		publisher:   new(eventbusmock.PublisherMock),
	}
	f.service = NewSessionService(f.userRepo, f.sessionRepo, f.eventRepo, f.publisher)
	return f
}

func TestSessionService_Create_ForceClosesActives(t *testing.T) {
	f := newSessionServiceFixture(t)
	ctx := context.Background()
	user := model.FakeUser()

	f.userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
	f.sessionRepo.On("ForceCloseActive", ctx, user.ID, mock.AnythingOfType("time.Time")).Return(int64(2), nil)
	f.sessionRepo.On("Save", ctx, mock.AnythingOfType("*model.Session")).Return(nil)
	f.eventRepo.On("Save", ctx, mock.MatchedBy(func(ev *model.AnalyticsEvent) bool {
		return ev.EventAction == model.ActionSessionStart && ev.EventLabel == string(model.SourceQRCode)
	})).Return(nil)
	f.publisher.On("PublishEvent", ctx, mock.AnythingOfType("*model.AnalyticsEvent")).Return(nil)

	session, err := f.service.Create(ctx, CreateSessionRequest{UserID: user.ID, Source: model.SourceQRCode})
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, model.SourceQRCode, session.Source)
	assert.True(t, session.IsActive)
	f.sessionRepo.AssertExpectations(t)
	f.eventRepo.AssertExpectations(t)
}

func TestSessionService_Create_ValidationError(t *testing.T) {
	f := newSessionServiceFixture(t)

	_, err := f.service.Create(context.Background(), CreateSessionRequest{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.service.Create(context.Background(), CreateSessionRequest{UserID: "u1", Source: "BOGUS"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	f.userRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestSessionService_Create_UnknownUser(t *testing.T) {
	f := newSessionServiceFixture(t)
	ctx := context.Background()

	f.userRepo.On("FindByID", ctx, "missing").Return(nil, apperrors.ErrNotFound)

	_, err := f.service.Create(ctx, CreateSessionRequest{UserID: "missing"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSessionService_Create_ForceCloseFailureStillOpens(t *testing.T) {
	f := newSessionServiceFixture(t)
	ctx := context.Background()
	user := model.FakeUser()

	f.userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
	f.sessionRepo.On("ForceCloseActive", ctx, user.ID, mock.AnythingOfType("time.Time")).Return(int64(0), apperrors.ErrDatabase)
	f.sessionRepo.On("Save", ctx, mock.AnythingOfType("*model.Session")).Return(nil)
	f.eventRepo.On("Save", ctx, mock.AnythingOfType("*model.AnalyticsEvent")).Return(nil)
	f.publisher.On("PublishEvent", ctx, mock.AnythingOfType("*model.AnalyticsEvent")).Return(nil)

	session, err := f.service.Create(ctx, CreateSessionRequest{UserID: user.ID})
	require.NoError(t, err)
	assert.True(t, session.IsActive)
}

func TestSessionService_End(t *testing.T) {
	f := newSessionServiceFixture(t)
	ctx := context.Background()
	session := model.FakeSession(&model.Session{IsActive: true})
	session.StartTime = time.Now().UTC().Add(-90 * time.Second)

	f.sessionRepo.On("FindByID", ctx, session.ID).Return(session, nil)
	f.sessionRepo.On("EndSession", ctx, session).Return(nil)
	f.eventRepo.On("Save", ctx, mock.MatchedBy(func(ev *model.AnalyticsEvent) bool {
		return ev.EventAction == model.ActionSessionEnd && ev.EventValue != nil && *ev.EventValue >= 90
	})).Return(nil)
	f.publisher.On("PublishEvent", ctx, mock.AnythingOfType("*model.AnalyticsEvent")).Return(nil)

	ended, err := f.service.End(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, ended.IsActive)
	require.NotNil(t, ended.DurationSeconds)
	assert.GreaterOrEqual(t, *ended.DurationSeconds, int64(90))
	f.eventRepo.AssertExpectations(t)
}

func TestSessionService_End_AlreadyClosedIsNoop(t *testing.T) {
	f := newSessionServiceFixture(t)
	ctx := context.Background()
	session := model.FakeSession()
	session.IsActive = false

	f.sessionRepo.On("FindByID", ctx, session.ID).Return(session, nil)

	ended, err := f.service.End(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, ended.IsActive)
	f.sessionRepo.AssertNotCalled(t, "EndSession", mock.Anything, mock.Anything)
	f.eventRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
