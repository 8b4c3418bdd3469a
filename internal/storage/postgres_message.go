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

// --- ChatMessage Repository Methods ---

// SaveChatMessage appends a chat message record.
func (r *PostgresRepo) SaveChatMessage(ctx context.Context, message *model.ChatMessage) error {
	operation := func() error {
		if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, defaultRetryMaxElapsedTime)
	startTime := utils.Now()
	saveErr := retryableOperation(ctx, policy, "SaveChatMessage", operation)
	observer.ObserveDbOperationDuration("save", "chat_message", time.Since(startTime), saveErr)
	if saveErr != nil {
		logger.FromContext(ctx).Error("Failed to save chat message after retries",
			zap.String("session_id", message.SessionID),
			zap.String("sender", string(message.Sender)),
			zap.Error(saveErr))
		return saveErr
	}
	return nil
}

// MarkChatMessageRead flips is_read to true for a message. The transition
// only ever goes false to true.
func (r *PostgresRepo) MarkChatMessageRead(ctx context.Context, messageID string) error {
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.ChatMessage{}).
			Where("id = ?", messageID).
			Update("is_read", true)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: chat message %s", apperrors.ErrNotFound, messageID)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, defaultRetryMaxElapsedTime)
	startTime := utils.Now()
	markErr := retryableOperation(ctx, policy, "MarkChatMessageRead", operation)
	observer.ObserveDbOperationDuration("mark_read", "chat_message", time.Since(startTime), markErr)
	if markErr != nil {
		logger.FromContext(ctx).Error("Failed to mark chat message read after retries",
			zap.String("message_id", messageID),
			zap.Error(markErr))
		return markErr
	}
	return nil
}

// CountChatMessagesInRange counts messages created in [start, end).
func (r *PostgresRepo) CountChatMessagesInRange(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.ChatMessage{}).
			Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
			Count(&count)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	countErr := retryableOperation(ctx, readPolicy, "CountChatMessagesInRange", operation)
	observer.ObserveDbOperationDuration("count_in_range", "chat_message", time.Since(startTime), countErr)
	if countErr != nil {
		logger.FromContext(ctx).Error("Failed to count chat messages after retries", zap.Error(countErr))
		return 0, countErr
	}
	return count, nil
}

// CountChatMessagesBySenderInRange groups messages created in [start, end)
// by sender.
func (r *PostgresRepo) CountChatMessagesBySenderInRange(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	type senderRow struct {
		Sender string
		Count  int64
	}
	var rows []senderRow
	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.ChatMessage{}).
			Select("sender, COUNT(*) AS count").
			Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
			Group("sender").
			Scan(&rows)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	queryErr := retryableOperation(ctx, readPolicy, "CountChatMessagesBySenderInRange", operation)
	observer.ObserveDbOperationDuration("count_by_sender", "chat_message", time.Since(startTime), queryErr)
	if queryErr != nil {
		logger.FromContext(ctx).Error("Failed to group chat messages by sender after retries", zap.Error(queryErr))
		return nil, queryErr
	}

	breakdown := make(map[string]int64, len(rows))
	for _, row := range rows {
		breakdown[row.Sender] = row.Count
	}
	return breakdown, nil
}
