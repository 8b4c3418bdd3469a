package storage

import (
	"context"
	"time"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
)

// UserRepoAdapter adapts the PostgresRepo to the UserRepo interface
type UserRepoAdapter struct {
	postgres *PostgresRepo
}

// NewUserRepoAdapter creates a new user repository adapter
func NewUserRepoAdapter(postgres *PostgresRepo) UserRepo {
	return &UserRepoAdapter{postgres: postgres}
}

// Save saves a user
func (a *UserRepoAdapter) Save(ctx context.Context, user *model.User) error {
	return a.postgres.SaveUser(ctx, user)
}

// Update updates a user
func (a *UserRepoAdapter) Update(ctx context.Context, user *model.User) error {
	return a.postgres.UpdateUser(ctx, user)
}

// FindByID finds a user by ID
func (a *UserRepoAdapter) FindByID(ctx context.Context, id string) (*model.User, error) {
	return a.postgres.FindUserByID(ctx, id)
}

// FindByPhone finds a user by phone number
func (a *UserRepoAdapter) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	return a.postgres.FindUserByPhone(ctx, phone)
}

// TouchLastActive bumps a user's last_active timestamp
func (a *UserRepoAdapter) TouchLastActive(ctx context.Context, userID string, at time.Time) error {
	return a.postgres.TouchUserLastActive(ctx, userID, at)
}

// UpdateUserType updates a user's classification
func (a *UserRepoAdapter) UpdateUserType(ctx context.Context, userID string, userType model.UserType) error {
	return a.postgres.UpdateUserType(ctx, userID, userType)
}

// CountNewInRange counts users created within a time range
func (a *UserRepoAdapter) CountNewInRange(ctx context.Context, start, end time.Time) (int64, error) {
	return a.postgres.CountUsersCreatedInRange(ctx, start, end)
}

// CountNewPerDay buckets user creations per UTC day
func (a *UserRepoAdapter) CountNewPerDay(ctx context.Context, start, end time.Time) ([]model.DailyCount, error) {
	return a.postgres.CountUsersCreatedPerDay(ctx, start, end)
}

func (a *UserRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// SessionRepoAdapter adapts the PostgresRepo to the SessionRepo interface
type SessionRepoAdapter struct {
	postgres *PostgresRepo
}

// NewSessionRepoAdapter creates a new session repository adapter
func NewSessionRepoAdapter(postgres *PostgresRepo) SessionRepo {
	return &SessionRepoAdapter{postgres: postgres}
}

// Save saves a session
func (a *SessionRepoAdapter) Save(ctx context.Context, session *model.Session) error {
	return a.postgres.SaveSession(ctx, session)
}

// FindByID finds a session by ID
func (a *SessionRepoAdapter) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return a.postgres.FindSessionByID(ctx, id)
}

// FindActiveByUser finds a user's most recent active session
func (a *SessionRepoAdapter) FindActiveByUser(ctx context.Context, userID string) (*model.Session, error) {
	return a.postgres.FindActiveSessionByUser(ctx, userID)
}

// CountByUser counts all sessions ever opened by a user
func (a *SessionRepoAdapter) CountByUser(ctx context.Context, userID string) (int64, error) {
	return a.postgres.CountSessionsByUser(ctx, userID)
}

// EndSession persists a closed session's end state
func (a *SessionRepoAdapter) EndSession(ctx context.Context, session *model.Session) error {
	return a.postgres.EndSession(ctx, session)
}

// ForceCloseActive closes every active session a user still has open
func (a *SessionRepoAdapter) ForceCloseActive(ctx context.Context, userID string, at time.Time) (int64, error) {
	return a.postgres.ForceCloseActiveSessions(ctx, userID, at)
}

// CountInRange counts sessions started within a time range
func (a *SessionRepoAdapter) CountInRange(ctx context.Context, start, end time.Time) (int64, error) {
	return a.postgres.CountSessionsInRange(ctx, start, end)
}

// CountPerDay buckets session starts per UTC day
func (a *SessionRepoAdapter) CountPerDay(ctx context.Context, start, end time.Time) ([]model.SessionTrendPoint, error) {
	return a.postgres.CountSessionsPerDay(ctx, start, end)
}

// CountPerHour buckets session starts per UTC hour of day
func (a *SessionRepoAdapter) CountPerHour(ctx context.Context, start, end time.Time) (map[int]int64, error) {
	return a.postgres.CountSessionsPerHour(ctx, start, end)
}

// CountBySourceInRange groups session starts by acquisition source
func (a *SessionRepoAdapter) CountBySourceInRange(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	return a.postgres.CountSessionsBySourceInRange(ctx, start, end)
}

// AvgDurationInRange averages closed-session duration within a time range
func (a *SessionRepoAdapter) AvgDurationInRange(ctx context.Context, start, end time.Time) (float64, error) {
	return a.postgres.AvgSessionDurationInRange(ctx, start, end)
}

// Stats returns overall session statistics
func (a *SessionRepoAdapter) Stats(ctx context.Context) (*model.SessionStats, error) {
	return a.postgres.SessionStats(ctx)
}

func (a *SessionRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// SessionFlowRepoAdapter adapts the PostgresRepo to the SessionFlowRepo interface
type SessionFlowRepoAdapter struct {
	postgres *PostgresRepo
}

// NewSessionFlowRepoAdapter creates a new session flow repository adapter
func NewSessionFlowRepoAdapter(postgres *PostgresRepo) SessionFlowRepo {
	return &SessionFlowRepoAdapter{postgres: postgres}
}

// Save saves a flow step record
func (a *SessionFlowRepoAdapter) Save(ctx context.Context, flow *model.SessionFlow) error {
	return a.postgres.SaveSessionFlow(ctx, flow)
}

// MaxStepOrder returns the highest step order recorded for a session
func (a *SessionFlowRepoAdapter) MaxStepOrder(ctx context.Context, sessionID string) (int, error) {
	return a.postgres.MaxSessionFlowStepOrder(ctx, sessionID)
}

// TopSteps returns the most frequently recorded flow steps
func (a *SessionFlowRepoAdapter) TopSteps(ctx context.Context, limit int) ([]model.FlowStepCount, error) {
	return a.postgres.TopSessionFlowSteps(ctx, limit)
}

// CountByStepInRange counts records for one flow step within a time range
func (a *SessionFlowRepoAdapter) CountByStepInRange(ctx context.Context, step model.FlowStep, start, end time.Time) (int64, error) {
	return a.postgres.CountSessionFlowsByStepInRange(ctx, step, start, end)
}

func (a *SessionFlowRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// ChatMessageRepoAdapter adapts the PostgresRepo to the ChatMessageRepo interface
type ChatMessageRepoAdapter struct {
	postgres *PostgresRepo
}

// NewChatMessageRepoAdapter creates a new chat message repository adapter
func NewChatMessageRepoAdapter(postgres *PostgresRepo) ChatMessageRepo {
	return &ChatMessageRepoAdapter{postgres: postgres}
}

// Save saves a chat message
func (a *ChatMessageRepoAdapter) Save(ctx context.Context, message *model.ChatMessage) error {
	return a.postgres.SaveChatMessage(ctx, message)
}

// MarkRead marks a chat message as read
func (a *ChatMessageRepoAdapter) MarkRead(ctx context.Context, messageID string) error {
	return a.postgres.MarkChatMessageRead(ctx, messageID)
}

// CountInRange counts chat messages created within a time range
func (a *ChatMessageRepoAdapter) CountInRange(ctx context.Context, start, end time.Time) (int64, error) {
	return a.postgres.CountChatMessagesInRange(ctx, start, end)
}

// CountBySenderInRange groups chat messages by sender within a time range
func (a *ChatMessageRepoAdapter) CountBySenderInRange(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	return a.postgres.CountChatMessagesBySenderInRange(ctx, start, end)
}

func (a *ChatMessageRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// AnalyticsEventRepoAdapter adapts the PostgresRepo to the AnalyticsEventRepo interface
type AnalyticsEventRepoAdapter struct {
	postgres *PostgresRepo
}

// NewAnalyticsEventRepoAdapter creates a new analytics event repository adapter
func NewAnalyticsEventRepoAdapter(postgres *PostgresRepo) AnalyticsEventRepo {
	return &AnalyticsEventRepoAdapter{postgres: postgres}
}

// Save appends an analytics event
func (a *AnalyticsEventRepoAdapter) Save(ctx context.Context, event *model.AnalyticsEvent) error {
	return a.postgres.SaveAnalyticsEvent(ctx, event)
}

// ActiveUsers counts distinct users with engagement since the given instant
func (a *AnalyticsEventRepoAdapter) ActiveUsers(ctx context.Context, since time.Time) (int64, error) {
	return a.postgres.CountActiveUsersSince(ctx, since)
}

// DistinctUsersInRange counts distinct event users within a time range
func (a *AnalyticsEventRepoAdapter) DistinctUsersInRange(ctx context.Context, start, end time.Time) (int64, error) {
	return a.postgres.CountDistinctUsersInRange(ctx, start, end)
}

// DistinctUsersByTypeInRange groups distinct event users by classification
func (a *AnalyticsEventRepoAdapter) DistinctUsersByTypeInRange(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	return a.postgres.CountDistinctUsersByTypeInRange(ctx, start, end)
}

// Stats groups events by category and action within a time range
func (a *AnalyticsEventRepoAdapter) Stats(ctx context.Context, start, end time.Time) ([]model.EventStat, error) {
	return a.postgres.AnalyticsEventStats(ctx, start, end)
}

func (a *AnalyticsEventRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// DashboardMetricRepoAdapter adapts the PostgresRepo to the DashboardMetricRepo interface
type DashboardMetricRepoAdapter struct {
	postgres *PostgresRepo
}

// NewDashboardMetricRepoAdapter creates a new dashboard metric repository adapter
func NewDashboardMetricRepoAdapter(postgres *PostgresRepo) DashboardMetricRepo {
	return &DashboardMetricRepoAdapter{postgres: postgres}
}

// Upsert writes a metric row for a (date, name) pair
func (a *DashboardMetricRepoAdapter) Upsert(ctx context.Context, metric *model.DashboardMetric) error {
	return a.postgres.UpsertDashboardMetric(ctx, metric)
}

// FindByDate returns every metric row for one UTC calendar day
func (a *DashboardMetricRepoAdapter) FindByDate(ctx context.Context, date time.Time) ([]model.DashboardMetric, error) {
	return a.postgres.FindDashboardMetricsByDate(ctx, date)
}

func (a *DashboardMetricRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// Ensure adapters implement the interfaces
var _ UserRepo = (*UserRepoAdapter)(nil)
var _ SessionRepo = (*SessionRepoAdapter)(nil)
var _ SessionFlowRepo = (*SessionFlowRepoAdapter)(nil)
var _ ChatMessageRepo = (*ChatMessageRepoAdapter)(nil)
var _ AnalyticsEventRepo = (*AnalyticsEventRepoAdapter)(nil)
var _ DashboardMetricRepo = (*DashboardMetricRepoAdapter)(nil)
