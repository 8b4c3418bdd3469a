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

// --- SessionFlow Repository Methods ---

// SaveSessionFlow appends a flow step record.
func (r *PostgresRepo) SaveSessionFlow(ctx context.Context, flow *model.SessionFlow) error {
	operation := func() error {
		if err := r.db.WithContext(ctx).Create(flow).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, defaultRetryMaxElapsedTime)
	startTime := utils.Now()
	saveErr := retryableOperation(ctx, policy, "SaveSessionFlow", operation)
	observer.ObserveDbOperationDuration("save", "session_flow", time.Since(startTime), saveErr)
	if saveErr != nil {
		logger.FromContext(ctx).Error("Failed to save session flow after retries",
			zap.String("session_id", flow.SessionID),
			zap.String("flow_step", string(flow.FlowStep)),
			zap.Error(saveErr))
		return saveErr
	}
	return nil
}

// MaxSessionFlowStepOrder returns the highest step order recorded for a
// session, or zero when the session has no flow records yet.
//
// Read-then-increment is a check-then-act race under concurrent duplicate
// webhook delivery; occasional collisions are tolerated as a data-quality
// issue, not guarded against.
func (r *PostgresRepo) MaxSessionFlowStepOrder(ctx context.Context, sessionID string) (int, error) {
	var maxOrder int
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.SessionFlow{}).
			Select("COALESCE(MAX(step_order), 0)").
			Where("session_id = ?", sessionID).
			Scan(&maxOrder)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	queryErr := retryableOperation(ctx, readPolicy, "MaxSessionFlowStepOrder", operation)
	observer.ObserveDbOperationDuration("max_step_order", "session_flow", time.Since(startTime), queryErr)
	if queryErr != nil {
		logger.FromContext(ctx).Error("Failed to read max step order after retries",
			zap.String("session_id", sessionID),
			zap.Error(queryErr))
		return 0, queryErr
	}
	return maxOrder, nil
}

// TopSessionFlowSteps returns the most frequently recorded flow steps,
// ordered by count descending.
func (r *PostgresRepo) TopSessionFlowSteps(ctx context.Context, limit int) ([]model.FlowStepCount, error) {
	var rows []model.FlowStepCount
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.SessionFlow{}).
			Select("flow_step AS step, COUNT(*) AS count").
			Group("flow_step").
			Order("count DESC").
			Limit(limit).
			Scan(&rows)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	queryErr := retryableOperation(ctx, readPolicy, "TopSessionFlowSteps", operation)
	observer.ObserveDbOperationDuration("top_steps", "session_flow", time.Since(startTime), queryErr)
	if queryErr != nil {
		logger.FromContext(ctx).Error("Failed to compute top flow steps after retries", zap.Error(queryErr))
		return nil, queryErr
	}
	if rows == nil {
		return []model.FlowStepCount{}, nil
	}
	return rows, nil
}

// CountSessionFlowsByStepInRange counts records for one flow step whose
// step timestamp falls in [start, end).
func (r *PostgresRepo) CountSessionFlowsByStepInRange(ctx context.Context, step model.FlowStep, start, end time.Time) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.SessionFlow{}).
			Where("flow_step = ? AND step_timestamp >= ? AND step_timestamp < ?", string(step), start.UTC(), end.UTC()).
			Count(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	countErr := retryableOperation(ctx, readPolicy, "CountSessionFlowsByStepInRange", operation)
	observer.ObserveDbOperationDuration("count_by_step", "session_flow", time.Since(startTime), countErr)
	if countErr != nil {
		logger.FromContext(ctx).Error("Failed to count flow steps after retries",
			zap.String("flow_step", string(step)),
			zap.Error(countErr))
		return 0, countErr
	}
	return count, nil
}
