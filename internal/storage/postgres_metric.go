package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/observer"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// --- DashboardMetric Repository Methods ---

// UpsertDashboardMetric writes a metric row, overwriting the value and
// breakdown when one already exists for the same (metric_date, metric_name).
// Recomputation for the same day is idempotent.
func (r *PostgresRepo) UpsertDashboardMetric(ctx context.Context, metric *model.DashboardMetric) error {
	metric.MetricDate = model.MetricDay(metric.MetricDate)
	metric.UpdatedAt = utils.Now()

	operation := func() error {
		result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "metric_date"}, {Name: "metric_name"}},
			DoUpdates: clause.AssignmentColumns(metric.GetUpdatableFields()),
		}).Create(metric)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, defaultRetryMaxElapsedTime)
	startTime := utils.Now()
	upsertErr := retryableOperation(ctx, policy, "UpsertDashboardMetric", operation)
	observer.ObserveDbOperationDuration("upsert", "dashboard_metric", time.Since(startTime), upsertErr)
	if upsertErr != nil {
		logger.FromContext(ctx).Error("Failed to upsert dashboard metric after retries",
			zap.String("metric_name", metric.MetricName),
			zap.Time("metric_date", metric.MetricDate),
			zap.Error(upsertErr))
		return upsertErr
	}
	return nil
}

// FindDashboardMetricsByDate returns every metric row for the UTC calendar
// day containing date.
func (r *PostgresRepo) FindDashboardMetricsByDate(ctx context.Context, date time.Time) ([]model.DashboardMetric, error) {
	day := model.MetricDay(date)

	var metrics []model.DashboardMetric
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("metric_date = ?", day).
			Order("metric_name ASC").
			Find(&metrics)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindDashboardMetricsByDate", operation)
	observer.ObserveDbOperationDuration("find_by_date", "dashboard_metric", time.Since(startTime), findErr)
	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find dashboard metrics after retries",
			zap.Time("metric_date", day),
			zap.Error(findErr))
		return nil, findErr
	}
	if metrics == nil {
		return []model.DashboardMetric{}, nil
	}
	return metrics, nil
}
