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

// --- User Repository Methods ---

// SaveUser creates a new user record.
func (r *PostgresRepo) SaveUser(ctx context.Context, user *model.User) error {
	operation := func() error {
		if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, defaultRetryMaxElapsedTime)
	startTime := utils.Now()
	saveErr := retryableOperation(ctx, policy, "SaveUser", operation)
	observer.ObserveDbOperationDuration("save", "user", time.Since(startTime), saveErr)
	if saveErr != nil {
		logger.FromContext(ctx).Error("Failed to save user after retries",
			zap.String("phone_number", user.PhoneNumber),
			zap.Error(saveErr))
		return saveErr
	}
	return nil
}

// UpdateUser updates an existing user record.
func (r *PostgresRepo) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = utils.Now()

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.User{}).
			Where("id = ?", user.ID).
			Updates(user)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: user %s", apperrors.ErrNotFound, user.ID)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, defaultRetryMaxElapsedTime)
	startTime := utils.Now()
	updateErr := retryableOperation(ctx, policy, "UpdateUser", operation)
	observer.ObserveDbOperationDuration("update", "user", time.Since(startTime), updateErr)
	if updateErr != nil {
		logger.FromContext(ctx).Error("Failed to update user after retries",
			zap.String("user_id", user.ID),
			zap.Error(updateErr))
		return updateErr
	}
	return nil
}

// FindUserByID finds a user by its ID.
func (r *PostgresRepo) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	operation := func() error {
		result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user_id %s: %w", apperrors.ErrNotFound, id, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindUserByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", "user", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find user by ID after retries",
			zap.String("user_id", id),
			zap.Error(findErr))
		return nil, findErr
	}
	return &user, nil
}

// FindUserByPhone finds a user by its normalized phone handle.
func (r *PostgresRepo) FindUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	var user model.User
	operation := func() error {
		result := r.db.WithContext(ctx).Where("phone_number = ?", phone).First(&user)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: phone %s: %w", apperrors.ErrNotFound, phone, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindUserByPhone", operation)
	observer.ObserveDbOperationDuration("find_by_phone", "user", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find user by phone after retries",
			zap.String("phone", phone),
			zap.Error(findErr))
		return nil, findErr
	}
	return &user, nil
}

// TouchUserLastActive updates only the last_active column for a user.
func (r *PostgresRepo) TouchUserLastActive(ctx context.Context, userID string, at time.Time) error {
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"last_active": at.UTC(),
				"updated_at":  utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: user %s", apperrors.ErrNotFound, userID)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, defaultRetryMaxElapsedTime)
	startTime := utils.Now()
	touchErr := retryableOperation(ctx, policy, "TouchUserLastActive", operation)
	observer.ObserveDbOperationDuration("touch_last_active", "user", time.Since(startTime), touchErr)
	if touchErr != nil {
		logger.FromContext(ctx).Error("Failed to touch user last_active after retries",
			zap.String("user_id", userID),
			zap.Error(touchErr))
		return touchErr
	}
	return nil
}

// UpdateUserType updates only the classification column for a user.
func (r *PostgresRepo) UpdateUserType(ctx context.Context, userID string, userType model.UserType) error {
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"user_type":  string(userType),
				"updated_at": utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: user %s", apperrors.ErrNotFound, userID)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, defaultRetryMaxElapsedTime)
	startTime := utils.Now()
	updateErr := retryableOperation(ctx, policy, "UpdateUserType", operation)
	observer.ObserveDbOperationDuration("update_user_type", "user", time.Since(startTime), updateErr)
	if updateErr != nil {
		logger.FromContext(ctx).Error("Failed to update user type after retries",
			zap.String("user_id", userID),
			zap.String("user_type", string(userType)),
			zap.Error(updateErr))
		return updateErr
	}
	return nil
}

// CountUsersCreatedInRange counts users whose first record falls in [start, end).
func (r *PostgresRepo) CountUsersCreatedInRange(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.User{}).
			Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
			Count(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	countErr := retryableOperation(ctx, readPolicy, "CountUsersCreatedInRange", operation)
	observer.ObserveDbOperationDuration("count_created_in_range", "user", time.Since(startTime), countErr)
	if countErr != nil {
		logger.FromContext(ctx).Error("Failed to count new users after retries", zap.Error(countErr))
		return 0, countErr
	}
	return count, nil
}

// CountUsersCreatedPerDay returns daily new-user counts over [start, end),
// ordered by day ascending. Days with no signups are omitted.
func (r *PostgresRepo) CountUsersCreatedPerDay(ctx context.Context, start, end time.Time) ([]model.DailyCount, error) {
	var rows []model.DailyCount
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.User{}).
			Select("to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS date, COUNT(*) AS count").
			Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
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
	queryErr := retryableOperation(ctx, readPolicy, "CountUsersCreatedPerDay", operation)
	observer.ObserveDbOperationDuration("count_created_per_day", "user", time.Since(startTime), queryErr)
	if queryErr != nil {
		logger.FromContext(ctx).Error("Failed to compute user growth after retries", zap.Error(queryErr))
		return nil, queryErr
	}
	if rows == nil {
		return []model.DailyCount{}, nil
	}
	return rows, nil
}
