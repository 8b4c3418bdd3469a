package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	apperrors "gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
)

func TestPostgresRepo_SaveChatMessage(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()
	message := &model.ChatMessage{
		ID:          "message-1",
		SessionID:   "session-1",
		Sender:      model.SenderUser,
		MessageType: model.MessageTypeText,
		CreatedAt:   time.Now().UTC(),
	}

	insertQuery := `INSERT INTO "chat_messages" ("id","session_id","sender","message_type","content","is_read","created_at") VALUES ($1,$2,$3,$4,$5,$6,$7)`
	mock.ExpectExec(insertQuery).
		WithArgs(message.ID, message.SessionID, string(model.SenderUser), model.MessageTypeText, AnyJSON{}, false, AnyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveChatMessage(ctx, message)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_MarkChatMessageRead(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	updateQuery := `UPDATE "chat_messages" SET "is_read"=$1 WHERE id = $2`
	mock.ExpectExec(updateQuery).
		WithArgs(true, "message-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkChatMessageRead(ctx, "message-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_MarkChatMessageRead_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	updateQuery := `UPDATE "chat_messages" SET "is_read"=$1 WHERE id = $2`
	mock.ExpectExec(updateQuery).
		WithArgs(true, "message-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkChatMessageRead(ctx, "message-404")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
