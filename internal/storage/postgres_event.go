package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/observer"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// --- AnalyticsEvent Repository Methods ---

// SaveAnalyticsEvent appends an analytics event record. Events tied to a
// user also refresh that user's last_active, mirroring the event's own
// timestamp; a failure there is logged but does not fail the append.
func (r *PostgresRepo) SaveAnalyticsEvent(ctx context.Context, event *model.AnalyticsEvent) error {
	operation := func() error {
		if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, defaultRetryMaxElapsedTime)
	startTime := utils.Now()
	saveErr := retryableOperation(ctx, policy, "SaveAnalyticsEvent", operation)
	observer.ObserveDbOperationDuration("save", "analytics_event", time.Since(startTime), saveErr)
	if saveErr != nil {
		logger.FromContext(ctx).Error("Failed to save analytics event after retries",
			zap.String("category", string(event.EventCategory)),
			zap.String("action", event.EventAction),
			zap.Error(saveErr))
		return saveErr
	}

	if event.UserID != nil {
		if err := r.TouchUserLastActive(ctx, *event.UserID, event.CreatedAt); err != nil {
			logger.FromContext(ctx).Warn("Failed to touch last_active from analytics event",
				zap.String("user_id", *event.UserID),
				zap.Error(err))
		}
	}
	return nil
}

// CountActiveUsersSince counts distinct users with an Engagement event at or
// after the given instant. Deduplicates by user identity, not event count.
func (r *PostgresRepo) CountActiveUsersSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.AnalyticsEvent{}).
			Select("COUNT(DISTINCT user_id)").
			Where("event_category = ? AND user_id IS NOT NULL AND created_at >= ?", string(model.CategoryEngagement), since.UTC()).
			Scan(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	countErr := retryableOperation(ctx, readPolicy, "CountActiveUsersSince", operation)
	observer.ObserveDbOperationDuration("active_users", "analytics_event", time.Since(startTime), countErr)
	if countErr != nil {
		logger.FromContext(ctx).Error("Failed to count active users after retries", zap.Error(countErr))
		return 0, countErr
	}
	return count, nil
}

// CountDistinctUsersInRange counts distinct users with an event of any
// category in [start, end).
func (r *PostgresRepo) CountDistinctUsersInRange(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.AnalyticsEvent{}).
			Select("COUNT(DISTINCT user_id)").
			Where("user_id IS NOT NULL AND created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
			Scan(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	countErr := retryableOperation(ctx, readPolicy, "CountDistinctUsersInRange", operation)
	observer.ObserveDbOperationDuration("distinct_users", "analytics_event", time.Since(startTime), countErr)
	if countErr != nil {
		logger.FromContext(ctx).Error("Failed to count distinct users after retries", zap.Error(countErr))
		return 0, countErr
	}
	return count, nil
}

// CountDistinctUsersByTypeInRange groups distinct event users in [start, end)
// by their current classification.
func (r *PostgresRepo) CountDistinctUsersByTypeInRange(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	type typeRow struct {
		UserType string
		Count    int64
	}
	var rows []typeRow
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.AnalyticsEvent{}).
			Select("users.user_type AS user_type, COUNT(DISTINCT analytics_events.user_id) AS count").
			Joins("JOIN users ON users.id = analytics_events.user_id").
			Where("analytics_events.created_at >= ? AND analytics_events.created_at < ?", start.UTC(), end.UTC()).
			Group("users.user_type").
			Scan(&rows)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	queryErr := retryableOperation(ctx, readPolicy, "CountDistinctUsersByTypeInRange", operation)
	observer.ObserveDbOperationDuration("distinct_users_by_type", "analytics_event", time.Since(startTime), queryErr)
	if queryErr != nil {
		logger.FromContext(ctx).Error("Failed to group distinct users by type after retries", zap.Error(queryErr))
		return nil, queryErr
	}

	breakdown := make(map[string]int64, len(rows))
	for _, row := range rows {
		breakdown[row.UserType] = row.Count
	}
	return breakdown, nil
}

// AnalyticsEventStats groups events in [start, end) by (category, action)
// with total count, distinct user count and average event value, ordered by
// count descending.
func (r *PostgresRepo) AnalyticsEventStats(ctx context.Context, start, end time.Time) ([]model.EventStat, error) {
	var rows []model.EventStat
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.AnalyticsEvent{}).
			Select("event_category AS category, event_action AS action, COUNT(*) AS count, COUNT(DISTINCT user_id) AS unique_users, COALESCE(AVG(event_value), 0) AS avg_value").
			Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
			Group("event_category, event_action").
			Order("count DESC").
			Scan(&rows)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	queryErr := retryableOperation(ctx, readPolicy, "AnalyticsEventStats", operation)
	observer.ObserveDbOperationDuration("stats", "analytics_event", time.Since(startTime), queryErr)
	if queryErr != nil {
		logger.FromContext(ctx).Error("Failed to compute event stats after retries", zap.Error(queryErr))
		return nil, queryErr
	}
	if rows == nil {
		return []model.EventStat{}, nil
	}
	return rows, nil
}
