package storage

import (
	"context"
	"time"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
)

// UserRepo defines user storage operations
type UserRepo interface {
	Save(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByPhone(ctx context.Context, phone string) (*model.User, error)
	TouchLastActive(ctx context.Context, userID string, at time.Time) error
	UpdateUserType(ctx context.Context, userID string, userType model.UserType) error
	CountNewInRange(ctx context.Context, start, end time.Time) (int64, error)
	CountNewPerDay(ctx context.Context, start, end time.Time) ([]model.DailyCount, error)
	Close(ctx context.Context) error
}

// SessionRepo defines session storage operations
type SessionRepo interface {
	Save(ctx context.Context, session *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	FindActiveByUser(ctx context.Context, userID string) (*model.Session, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	EndSession(ctx context.Context, session *model.Session) error
	ForceCloseActive(ctx context.Context, userID string, at time.Time) (int64, error)
	CountInRange(ctx context.Context, start, end time.Time) (int64, error)
	CountPerDay(ctx context.Context, start, end time.Time) ([]model.SessionTrendPoint, error)
	CountPerHour(ctx context.Context, start, end time.Time) (map[int]int64, error)
	CountBySourceInRange(ctx context.Context, start, end time.Time) (map[string]int64, error)
	AvgDurationInRange(ctx context.Context, start, end time.Time) (float64, error)
	Stats(ctx context.Context) (*model.SessionStats, error)
	Close(ctx context.Context) error
}

// SessionFlowRepo defines flow step storage operations
type SessionFlowRepo interface {
	Save(ctx context.Context, flow *model.SessionFlow) error
	MaxStepOrder(ctx context.Context, sessionID string) (int, error)
	TopSteps(ctx context.Context, limit int) ([]model.FlowStepCount, error)
	CountByStepInRange(ctx context.Context, step model.FlowStep, start, end time.Time) (int64, error)
	Close(ctx context.Context) error
}

// ChatMessageRepo defines chat message storage operations
type ChatMessageRepo interface {
	Save(ctx context.Context, message *model.ChatMessage) error
	MarkRead(ctx context.Context, messageID string) error
	CountInRange(ctx context.Context, start, end time.Time) (int64, error)
	CountBySenderInRange(ctx context.Context, start, end time.Time) (map[string]int64, error)
	Close(ctx context.Context) error
}

// AnalyticsEventRepo defines analytics event storage operations
type AnalyticsEventRepo interface {
	Save(ctx context.Context, event *model.AnalyticsEvent) error
	ActiveUsers(ctx context.Context, since time.Time) (int64, error)
	DistinctUsersInRange(ctx context.Context, start, end time.Time) (int64, error)
	DistinctUsersByTypeInRange(ctx context.Context, start, end time.Time) (map[string]int64, error)
	Stats(ctx context.Context, start, end time.Time) ([]model.EventStat, error)
	Close(ctx context.Context) error
}

// DashboardMetricRepo defines dashboard metric storage operations
type DashboardMetricRepo interface {
	Upsert(ctx context.Context, metric *model.DashboardMetric) error
	FindByDate(ctx context.Context, date time.Time) ([]model.DashboardMetric, error)
	Close(ctx context.Context) error
}
