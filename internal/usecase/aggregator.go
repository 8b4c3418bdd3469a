package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	apperrors "gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/observer"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/storage"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// Aggregator serves the on-demand dashboard aggregations and the daily
// batch metric computation. Reads run concurrently with writes and accept
// eventually-consistent counts.
type Aggregator struct {
	userRepo    storage.UserRepo
	sessionRepo storage.SessionRepo
	flowRepo    storage.SessionFlowRepo
	messageRepo storage.ChatMessageRepo
	eventRepo   storage.AnalyticsEventRepo
	metricRepo  storage.DashboardMetricRepo
}

// NewAggregator creates an aggregator.
func NewAggregator(
	userRepo storage.UserRepo,
	sessionRepo storage.SessionRepo,
	flowRepo storage.SessionFlowRepo,
	messageRepo storage.ChatMessageRepo,
	eventRepo storage.AnalyticsEventRepo,
	metricRepo storage.DashboardMetricRepo,
) *Aggregator {
	return &Aggregator{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		flowRepo:    flowRepo,
		messageRepo: messageRepo,
		eventRepo:   eventRepo,
		metricRepo:  metricRepo,
	}
}

// realTimeWindow is the trailing window for the realtime snapshot.
const realTimeWindow = 5 * time.Minute

// ActiveUsers counts distinct users with an Engagement event in the trailing
// window of the given minutes.
func (a *Aggregator) ActiveUsers(ctx context.Context, minutes int) (int64, error) {
	if minutes <= 0 {
		return 0, fmt.Errorf("%w: minutes must be positive", apperrors.ErrInvalidRange)
	}
	start := time.Now()
	count, err := a.eventRepo.ActiveUsers(ctx, utils.Now().Add(-time.Duration(minutes)*time.Minute))
	observer.ObserveAggregationDuration("active_users", time.Since(start))
	return count, err
}

// TopSteps returns the most frequently recorded flow steps.
func (a *Aggregator) TopSteps(ctx context.Context, limit int) ([]model.FlowStepCount, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", apperrors.ErrInvalidRange)
	}
	start := time.Now()
	steps, err := a.flowRepo.TopSteps(ctx, limit)
	observer.ObserveAggregationDuration("top_steps", time.Since(start))
	return steps, err
}

// HourlyActivity buckets session starts over the last days into 24
// hour-of-day buckets. Hours with no sessions report zero.
func (a *Aggregator) HourlyActivity(ctx context.Context, days int) ([]model.HourlyBucket, error) {
	start, end, err := trailingDays(days)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	perHour, err := a.sessionRepo.CountPerHour(ctx, start, end)
	observer.ObserveAggregationDuration("hourly_activity", time.Since(began))
	if err != nil {
		return nil, err
	}

	buckets := make([]model.HourlyBucket, 24)
	for hour := 0; hour < 24; hour++ {
		buckets[hour] = model.HourlyBucket{Hour: hour, Count: perHour[hour]}
	}
	return buckets, nil
}

// UserGrowth returns new-user counts per day over the last days.
func (a *Aggregator) UserGrowth(ctx context.Context, days int) ([]model.DailyCount, error) {
	start, end, err := trailingDays(days)
	if err != nil {
		return nil, err
	}
	began := time.Now()
	counts, err := a.userRepo.CountNewPerDay(ctx, start, end)
	observer.ObserveAggregationDuration("user_growth", time.Since(began))
	return counts, err
}

// SessionTrends returns sessions per day with average duration over the
// last days.
func (a *Aggregator) SessionTrends(ctx context.Context, days int) ([]model.SessionTrendPoint, error) {
	start, end, err := trailingDays(days)
	if err != nil {
		return nil, err
	}
	began := time.Now()
	trends, err := a.sessionRepo.CountPerDay(ctx, start, end)
	observer.ObserveAggregationDuration("session_trends", time.Since(began))
	return trends, err
}

// Funnel counts recorded steps per fixed funnel stage over the last days.
// Every stage appears in order even when its count is zero.
func (a *Aggregator) Funnel(ctx context.Context, days int) ([]model.FunnelStage, error) {
	start, end, err := trailingDays(days)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	stages := make([]model.FunnelStage, 0, len(model.FunnelStages))
	for _, step := range model.FunnelStages {
		count, err := a.flowRepo.CountByStepInRange(ctx, step, start, end)
		if err != nil {
			return nil, err
		}
		stages = append(stages, model.FunnelStage{Step: step, Count: count})
	}
	observer.ObserveAggregationDuration("funnel", time.Since(began))
	return stages, nil
}

// EventStats groups analytics events by (category, action) over the range.
func (a *Aggregator) EventStats(ctx context.Context, start, end time.Time) ([]model.EventStat, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end must be after start", apperrors.ErrInvalidRange)
	}
	began := time.Now()
	stats, err := a.eventRepo.Stats(ctx, start, end)
	observer.ObserveAggregationDuration("event_stats", time.Since(began))
	return stats, err
}

// RealTimeStats snapshots users, sessions and messages over the trailing
// five minutes.
func (a *Aggregator) RealTimeStats(ctx context.Context) (*model.RealTimeStats, error) {
	now := utils.Now()
	since := now.Add(-realTimeWindow)
	began := time.Now()
	defer func() { observer.ObserveAggregationDuration("realtime", time.Since(began)) }()

	users, err := a.eventRepo.ActiveUsers(ctx, since)
	if err != nil {
		return nil, err
	}
	sessions, err := a.sessionRepo.CountInRange(ctx, since, now)
	if err != nil {
		return nil, err
	}
	messages, err := a.messageRepo.CountInRange(ctx, since, now)
	if err != nil {
		return nil, err
	}

	return &model.RealTimeStats{
		ActiveUsers:    users,
		RecentSessions: sessions,
		RecentMessages: messages,
		Timestamp:      now,
	}, nil
}

// SessionStats summarizes all-time session volume: total and active counts,
// the per-source breakdown and the overall average duration.
func (a *Aggregator) SessionStats(ctx context.Context) (*model.SessionStats, error) {
	began := time.Now()
	stats, err := a.sessionRepo.Stats(ctx)
	observer.ObserveAggregationDuration("session_stats", time.Since(began))
	return stats, err
}

// CalculateDailyMetrics recomputes and upserts the dashboard metrics for the
// UTC calendar day containing date. Re-running for the same day overwrites
// the prior values.
func (a *Aggregator) CalculateDailyMetrics(ctx context.Context, date time.Time) (err error) {
	log := logger.FromContext(ctx)
	day := model.MetricDay(date)
	dayEnd := day.Add(24 * time.Hour)

	began := time.Now()
	defer func() {
		observer.ObserveAggregationDuration("daily_metrics", time.Since(began))
		observer.IncDailyMetricRun(err)
	}()

	log.Info("Calculating daily metrics", zap.Time("metric_date", day))

	// A user is active on any event that day, not only engagement.
	dau, err := a.eventRepo.DistinctUsersInRange(ctx, day, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to compute daily active users: %w", err)
	}
	dauByType, err := a.eventRepo.DistinctUsersByTypeInRange(ctx, day, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to compute active-user breakdown: %w", err)
	}
	if err = a.upsertMetric(ctx, day, model.MetricDailyActiveUsers, model.MetricCategoryUsers, float64(dau), dauByType); err != nil {
		return err
	}

	newUsers, err := a.userRepo.CountNewInRange(ctx, day, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to count new users: %w", err)
	}
	if err = a.upsertMetric(ctx, day, model.MetricNewUsers, model.MetricCategoryUsers, float64(newUsers), nil); err != nil {
		return err
	}

	sessions, err := a.sessionRepo.CountInRange(ctx, day, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to count sessions: %w", err)
	}
	bySource, err := a.sessionRepo.CountBySourceInRange(ctx, day, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to compute session source breakdown: %w", err)
	}
	if err = a.upsertMetric(ctx, day, model.MetricTotalSessions, model.MetricCategorySessions, float64(sessions), bySource); err != nil {
		return err
	}

	avgDuration, err := a.sessionRepo.AvgDurationInRange(ctx, day, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to compute avg session duration: %w", err)
	}
	if err = a.upsertMetric(ctx, day, model.MetricAvgSessionDuration, model.MetricCategoryPerformance, avgDuration, nil); err != nil {
		return err
	}

	messages, err := a.messageRepo.CountInRange(ctx, day, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to count messages: %w", err)
	}
	bySender, err := a.messageRepo.CountBySenderInRange(ctx, day, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to compute message sender breakdown: %w", err)
	}
	if err = a.upsertMetric(ctx, day, model.MetricMessagesSent, model.MetricCategoryEngagement, float64(messages), bySender); err != nil {
		return err
	}

	log.Info("Daily metrics calculated",
		zap.Time("metric_date", day),
		zap.Int64("daily_active_users", dau),
		zap.Int64("new_users", newUsers),
		zap.Int64("total_sessions", sessions),
		zap.Int64("messages_sent", messages),
	)
	return nil
}

func (a *Aggregator) upsertMetric(ctx context.Context, day time.Time, name string, category model.MetricCategory, value float64, breakdown map[string]int64) error {
	var breakdownJSON datatypes.JSON
	if len(breakdown) > 0 {
		breakdownJSON = utils.MustMarshalJSON(breakdown)
	}
	metric := model.NewDashboardMetric(day, name, category, value, breakdownJSON)
	if err := a.metricRepo.Upsert(ctx, metric); err != nil {
		return fmt.Errorf("failed to upsert metric %s: %w", name, err)
	}
	return nil
}

// RunDailyScheduler recomputes the previous UTC day's metrics once at
// startup and then once per day at the configured hour, until ctx is
// cancelled.
func (a *Aggregator) RunDailyScheduler(ctx context.Context, hourUTC int) {
	log := logger.FromContext(ctx).Named("daily_scheduler")

	run := func() {
		defer utils.RecoverWithLog(ctx, "daily metric run")
		yesterday := utils.Now().Add(-24 * time.Hour)
		if err := a.CalculateDailyMetrics(ctx, yesterday); err != nil {
			log.Error("Daily metric run failed", zap.Error(err))
		}
	}
	run()

	for {
		timer := time.NewTimer(time.Until(nextRunAt(utils.Now(), hourUTC)))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("Daily scheduler stopped")
			return
		case <-timer.C:
			run()
		}
	}
}

// nextRunAt returns the next occurrence of hourUTC strictly after now.
func nextRunAt(now time.Time, hourUTC int) time.Time {
	if hourUTC < 0 || hourUTC > 23 {
		hourUTC = 0
	}
	u := now.UTC()
	next := time.Date(u.Year(), u.Month(), u.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !next.After(u) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

func trailingDays(days int) (time.Time, time.Time, error) {
	if days <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: days must be positive", apperrors.ErrInvalidRange)
	}
	end := utils.Now()
	return end.AddDate(0, 0, -days), end, nil
}
