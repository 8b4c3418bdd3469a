package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/observer"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// --- Session Repository Methods ---

// SaveSession creates a new session record.
func (r *PostgresRepo) SaveSession(ctx context.Context, session *model.Session) error {
	operation := func() error {
		if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, defaultRetryMaxElapsedTime)
	startTime := utils.Now()
	saveErr := retryableOperation(ctx, policy, "SaveSession", operation)
	observer.ObserveDbOperationDuration("save", "session", time.Since(startTime), saveErr)
	if saveErr != nil {
		logger.FromContext(ctx).Error("Failed to save session after retries",
			zap.String("user_id", session.UserID),
			zap.Error(saveErr))
		return saveErr
	}
	return nil
}

// FindSessionByID finds a session by its ID.
func (r *PostgresRepo) FindSessionByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	operation := func() error {
		result := r.db.WithContext(ctx).Where("id = ?", id).First(&session)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: session_id %s: %w", apperrors.ErrNotFound, id, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindSessionByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", "session", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find session by ID after retries",
			zap.String("session_id", id),
			zap.Error(findErr))
		return nil, findErr
	}
	return &session, nil
}

// FindActiveSessionByUser finds the open session for a user, if any.
// Newest start time wins should more than one exist.
func (r *PostgresRepo) FindActiveSessionByUser(ctx context.Context, userID string) (*model.Session, error) {
	var session model.Session
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("user_id = ? AND is_active = ?", userID, true).
			Order("start_time DESC").
			First(&session)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: no active session for user %s: %w", apperrors.ErrNotFound, userID, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindActiveSessionByUser", operation)
	observer.ObserveDbOperationDuration("find_active_by_user", "session", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find active session after retries",
			zap.String("user_id", userID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &session, nil
}

// CountSessionsByUser counts all sessions ever opened by a user.
func (r *PostgresRepo) CountSessionsByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Session{}).
			Where("user_id = ?", userID).
			Count(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	countErr := retryableOperation(ctx, readPolicy, "CountSessionsByUser", operation)
	observer.ObserveDbOperationDuration("count_by_user", "session", time.Since(startTime), countErr)
	if countErr != nil {
		logger.FromContext(ctx).Error("Failed to count sessions after retries",
			zap.String("user_id", userID),
			zap.Error(countErr))
		return 0, countErr
	}
	return count, nil
}

// EndSession persists the closed state of a session (end time, duration,
// is_active=false). The session must already be ended via Session.End.
func (r *PostgresRepo) EndSession(ctx context.Context, session *model.Session) error {
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Session{}).
			Where("id = ?", session.ID).
			Updates(map[string]interface{}{
				"end_time":         session.EndTime,
				"duration_seconds": session.DurationSeconds,
				"is_active":        false,
				"updated_at":       utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: session %s", apperrors.ErrNotFound, session.ID)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, defaultRetryMaxElapsedTime)
	startTime := utils.Now()
	endErr := retryableOperation(ctx, policy, "EndSession", operation)
	observer.ObserveDbOperationDuration("end", "session", time.Since(startTime), endErr)
	if endErr != nil {
		logger.FromContext(ctx).Error("Failed to end session after retries",
			zap.String("session_id", session.ID),
			zap.Error(endErr))
		return endErr
	}
	return nil
}

// ForceCloseActiveSessions closes every open session a user still has,
// deriving end time and whole-second duration in the database. Returns the
// number of sessions closed. Best-effort last-writer-wins, no row locking.
func (r *PostgresRepo) ForceCloseActiveSessions(ctx context.Context, userID string, at time.Time) (int64, error) {
	var closed int64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Session{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Updates(map[string]interface{}{
				"end_time":         at.UTC(),
				"duration_seconds": gorm.Expr("FLOOR(EXTRACT(EPOCH FROM (?::timestamptz - start_time)))", at.UTC()),
				"is_active":        false,
				"updated_at":       utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		closed = result.RowsAffected
		return nil
	}

	policy := newRetryPolicy(ctx, defaultRetryMaxElapsedTime)
	startTime := utils.Now()
	closeErr := retryableOperation(ctx, policy, "ForceCloseActiveSessions", operation)
	observer.ObserveDbOperationDuration("force_close_active", "session", time.Since(startTime), closeErr)
	if closeErr != nil {
		logger.FromContext(ctx).Error("Failed to force-close sessions after retries",
			zap.String("user_id", userID),
			zap.Error(closeErr))
		return 0, closeErr
	}
	return closed, nil
}

// CountSessionsInRange counts sessions started in [start, end).
func (r *PostgresRepo) CountSessionsInRange(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Session{}).
			Where("start_time >= ? AND start_time < ?", start.UTC(), end.UTC()).
			Count(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	countErr := retryableOperation(ctx, readPolicy, "CountSessionsInRange", operation)
	observer.ObserveDbOperationDuration("count_in_range", "session", time.Since(startTime), countErr)
	if countErr != nil {
		logger.FromContext(ctx).Error("Failed to count sessions in range after retries", zap.Error(countErr))
		return 0, countErr
	}
	return count, nil
}

// CountSessionsPerDay returns daily session counts plus the rounded average
// duration per day over [start, end), ordered by day ascending.
func (r *PostgresRepo) CountSessionsPerDay(ctx context.Context, start, end time.Time) ([]model.SessionTrendPoint, error) {
	var rows []model.SessionTrendPoint
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Session{}).
			Select("to_char(start_time AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS date, COUNT(*) AS count, COALESCE(ROUND(AVG(duration_seconds)), 0) AS avg_duration").
			Where("start_time >= ? AND start_time < ?", start.UTC(), end.UTC()).
			Group("date").
			Order("date ASC").
			Scan(&rows)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	queryErr := retryableOperation(ctx, readPolicy, "CountSessionsPerDay", operation)
	observer.ObserveDbOperationDuration("count_per_day", "session", time.Since(startTime), queryErr)
	if queryErr != nil {
		logger.FromContext(ctx).Error("Failed to compute session trends after retries", zap.Error(queryErr))
		return nil, queryErr
	}
	if rows == nil {
		return []model.SessionTrendPoint{}, nil
	}
	return rows, nil
}

// CountSessionsPerHour returns session-start counts grouped by hour of day
// over [start, end). Hours with no sessions are absent from the map.
func (r *PostgresRepo) CountSessionsPerHour(ctx context.Context, start, end time.Time) (map[int]int64, error) {
	type hourRow struct {
		Hour  int
		Count int64
	}
	var rows []hourRow
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Session{}).
			Select("EXTRACT(HOUR FROM start_time AT TIME ZONE 'UTC')::int AS hour, COUNT(*) AS count").
			Where("start_time >= ? AND start_time < ?", start.UTC(), end.UTC()).
			Group("hour").
			Order("hour ASC").
			Scan(&rows)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	queryErr := retryableOperation(ctx, readPolicy, "CountSessionsPerHour", operation)
	observer.ObserveDbOperationDuration("count_per_hour", "session", time.Since(startTime), queryErr)
	if queryErr != nil {
		logger.FromContext(ctx).Error("Failed to compute hourly activity after retries", zap.Error(queryErr))
		return nil, queryErr
	}

	buckets := make(map[int]int64, len(rows))
	for _, row := range rows {
		buckets[row.Hour] = row.Count
	}
	return buckets, nil
}

// CountSessionsBySourceInRange groups sessions started in [start, end) by source.
func (r *PostgresRepo) CountSessionsBySourceInRange(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	type sourceRow struct {
		Source string
		Count  int64
	}
	var rows []sourceRow
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Session{}).
			Select("source, COUNT(*) AS count").
			Where("start_time >= ? AND start_time < ?", start.UTC(), end.UTC()).
			Group("source").
			Scan(&rows)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	queryErr := retryableOperation(ctx, readPolicy, "CountSessionsBySourceInRange", operation)
	observer.ObserveDbOperationDuration("count_by_source", "session", time.Since(startTime), queryErr)
	if queryErr != nil {
		logger.FromContext(ctx).Error("Failed to group sessions by source after retries", zap.Error(queryErr))
		return nil, queryErr
	}

	breakdown := make(map[string]int64, len(rows))
	for _, row := range rows {
		breakdown[row.Source] = row.Count
	}
	return breakdown, nil
}

// AvgSessionDurationInRange returns the mean duration in seconds of sessions
// started in [start, end) that have a recorded duration. Zero when none do.
func (r *PostgresRepo) AvgSessionDurationInRange(ctx context.Context, start, end time.Time) (float64, error) {
	var avg float64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Session{}).
			Select("COALESCE(AVG(duration_seconds), 0)").
			Where("start_time >= ? AND start_time < ? AND duration_seconds > 0", start.UTC(), end.UTC()).
			Scan(&avg)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	queryErr := retryableOperation(ctx, readPolicy, "AvgSessionDurationInRange", operation)
	observer.ObserveDbOperationDuration("avg_duration", "session", time.Since(startTime), queryErr)
	if queryErr != nil {
		logger.FromContext(ctx).Error("Failed to compute avg session duration after retries", zap.Error(queryErr))
		return 0, queryErr
	}
	return avg, nil
}

// SessionStats summarizes total/active session volume, per-source counts and
// the overall average duration.
func (r *PostgresRepo) SessionStats(ctx context.Context) (*model.SessionStats, error) {
	stats := &model.SessionStats{BySource: map[string]int64{}}

	operation := func() error {
		if err := r.db.WithContext(ctx).Model(&model.Session{}).Count(&stats.Total).Error; err != nil {
			return fmt.Errorf("%w: total count failed: %w", apperrors.ErrDatabase, err)
		}
		if err := r.db.WithContext(ctx).Model(&model.Session{}).
			Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
			return fmt.Errorf("%w: active count failed: %w", apperrors.ErrDatabase, err)
		}

		type sourceRow struct {
			Source string
			Count  int64
		}
		var rows []sourceRow
		if err := r.db.WithContext(ctx).Model(&model.Session{}).
			Select("source, COUNT(*) AS count").
			Group("source").
			Scan(&rows).Error; err != nil {
			return fmt.Errorf("%w: source breakdown failed: %w", apperrors.ErrDatabase, err)
		}
		stats.BySource = make(map[string]int64, len(rows))
		for _, row := range rows {
			stats.BySource[row.Source] = row.Count
		}

		var avg float64
		if err := r.db.WithContext(ctx).Model(&model.Session{}).
			Select("COALESCE(ROUND(AVG(duration_seconds)), 0)").
			Where("duration_seconds > 0").
			Scan(&avg).Error; err != nil {
			return fmt.Errorf("%w: avg duration failed: %w", apperrors.ErrDatabase, err)
		}
		stats.AvgDuration = int64(avg)
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	statsErr := retryableOperation(ctx, readPolicy, "SessionStats", operation)
	observer.ObserveDbOperationDuration("stats", "session", time.Since(startTime), statsErr)
	if statsErr != nil {
		logger.FromContext(ctx).Error("Failed to compute session stats after retries", zap.Error(statsErr))
		return nil, statsErr
	}
	return stats, nil
}
