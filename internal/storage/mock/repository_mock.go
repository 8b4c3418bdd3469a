package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
)

// --- UserRepo Mock ---

// UserRepoMock mocks the UserRepo interface
type UserRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *UserRepoMock) Save(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// Update mocks the Update method
func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *UserRepoMock) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// FindByPhone mocks the FindByPhone method
func (m *UserRepoMock) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// TouchLastActive mocks the TouchLastActive method
func (m *UserRepoMock) TouchLastActive(ctx context.Context, userID string, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

// UpdateUserType mocks the UpdateUserType method
func (m *UserRepoMock) UpdateUserType(ctx context.Context, userID string, userType model.UserType) error {
	args := m.Called(ctx, userID, userType)
	return args.Error(0)
}

// CountNewInRange mocks the CountNewInRange method
func (m *UserRepoMock) CountNewInRange(ctx context.Context, start, end time.Time) (int64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(int64), args.Error(1)
}

// CountNewPerDay mocks the CountNewPerDay method
func (m *UserRepoMock) CountNewPerDay(ctx context.Context, start, end time.Time) ([]model.DailyCount, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DailyCount), args.Error(1)
}

func (m *UserRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- SessionRepo Mock ---

// SessionRepoMock mocks the SessionRepo interface
type SessionRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *SessionRepoMock) Save(ctx context.Context, session *model.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *SessionRepoMock) FindByID(ctx context.Context, id string) (*model.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

// FindActiveByUser mocks the FindActiveByUser method
func (m *SessionRepoMock) FindActiveByUser(ctx context.Context, userID string) (*model.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

// CountByUser mocks the CountByUser method
func (m *SessionRepoMock) CountByUser(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// EndSession mocks the EndSession method
func (m *SessionRepoMock) EndSession(ctx context.Context, session *model.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// ForceCloseActive mocks the ForceCloseActive method
func (m *SessionRepoMock) ForceCloseActive(ctx context.Context, userID string, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, at)
	return args.Get(0).(int64), args.Error(1)
}

// CountInRange mocks the CountInRange method
func (m *SessionRepoMock) CountInRange(ctx context.Context, start, end time.Time) (int64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(int64), args.Error(1)
}

// CountPerDay mocks the CountPerDay method
func (m *SessionRepoMock) CountPerDay(ctx context.Context, start, end time.Time) ([]model.SessionTrendPoint, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SessionTrendPoint), args.Error(1)
}

// CountPerHour mocks the CountPerHour method
func (m *SessionRepoMock) CountPerHour(ctx context.Context, start, end time.Time) (map[int]int64, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]int64), args.Error(1)
}

// CountBySourceInRange mocks the CountBySourceInRange method
func (m *SessionRepoMock) CountBySourceInRange(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

// AvgDurationInRange mocks the AvgDurationInRange method
func (m *SessionRepoMock) AvgDurationInRange(ctx context.Context, start, end time.Time) (float64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(float64), args.Error(1)
}

// Stats mocks the Stats method
func (m *SessionRepoMock) Stats(ctx context.Context) (*model.SessionStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SessionStats), args.Error(1)
}

func (m *SessionRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- SessionFlowRepo Mock ---

// SessionFlowRepoMock mocks the SessionFlowRepo interface
type SessionFlowRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *SessionFlowRepoMock) Save(ctx context.Context, flow *model.SessionFlow) error {
	args := m.Called(ctx, flow)
	return args.Error(0)
}

// MaxStepOrder mocks the MaxStepOrder method
func (m *SessionFlowRepoMock) MaxStepOrder(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

// TopSteps mocks the TopSteps method
func (m *SessionFlowRepoMock) TopSteps(ctx context.Context, limit int) ([]model.FlowStepCount, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FlowStepCount), args.Error(1)
}

// CountByStepInRange mocks the CountByStepInRange method
func (m *SessionFlowRepoMock) CountByStepInRange(ctx context.Context, step model.FlowStep, start, end time.Time) (int64, error) {
	args := m.Called(ctx, step, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SessionFlowRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- ChatMessageRepo Mock ---

// ChatMessageRepoMock mocks the ChatMessageRepo interface
type ChatMessageRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *ChatMessageRepoMock) Save(ctx context.Context, message *model.ChatMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// MarkRead mocks the MarkRead method
func (m *ChatMessageRepoMock) MarkRead(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

// CountInRange mocks the CountInRange method
func (m *ChatMessageRepoMock) CountInRange(ctx context.Context, start, end time.Time) (int64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(int64), args.Error(1)
}

// CountBySenderInRange mocks the CountBySenderInRange method
func (m *ChatMessageRepoMock) CountBySenderInRange(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *ChatMessageRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- AnalyticsEventRepo Mock ---

// AnalyticsEventRepoMock mocks the AnalyticsEventRepo interface
type AnalyticsEventRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *AnalyticsEventRepoMock) Save(ctx context.Context, event *model.AnalyticsEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// ActiveUsers mocks the ActiveUsers method
func (m *AnalyticsEventRepoMock) ActiveUsers(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

// DistinctUsersInRange mocks the DistinctUsersInRange method
func (m *AnalyticsEventRepoMock) DistinctUsersInRange(ctx context.Context, start, end time.Time) (int64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(int64), args.Error(1)
}

// DistinctUsersByTypeInRange mocks the DistinctUsersByTypeInRange method
func (m *AnalyticsEventRepoMock) DistinctUsersByTypeInRange(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

// Stats mocks the Stats method
func (m *AnalyticsEventRepoMock) Stats(ctx context.Context, start, end time.Time) ([]model.EventStat, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EventStat), args.Error(1)
}

func (m *AnalyticsEventRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- DashboardMetricRepo Mock ---

// DashboardMetricRepoMock mocks the DashboardMetricRepo interface
type DashboardMetricRepoMock struct {
	mock.Mock
}

// Upsert mocks the Upsert method
func (m *DashboardMetricRepoMock) Upsert(ctx context.Context, metric *model.DashboardMetric) error {
	args := m.Called(ctx, metric)
	return args.Error(0)
}

// FindByDate mocks the FindByDate method
func (m *DashboardMetricRepoMock) FindByDate(ctx context.Context, date time.Time) ([]model.DashboardMetric, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DashboardMetric), args.Error(1)
}

func (m *DashboardMetricRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
