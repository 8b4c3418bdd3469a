package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// MessageSender identifies who authored a chat message.
type MessageSender string

const (
	SenderUser  MessageSender = "USER"
	SenderBot   MessageSender = "BOT"
	SenderAgent MessageSender = "AGENT"
)

// Chat message content types.
const (
	MessageTypeText        = "text"
	MessageTypeImage       = "image"
	MessageTypeInteractive = "interactive"
	MessageTypeLocation    = "location"
	MessageTypeDocument    = "document"
	MessageTypeAudio       = "audio"
	MessageTypeVideo       = "video"
	MessageTypeSticker     = "sticker"
	MessageTypeContacts    = "contacts"
)

// ChatMessage is one message exchanged within a session. Immutable once
// created except for the isRead false->true transition on USER messages.
type ChatMessage struct {
	ID          string         `json:"id" gorm:"primaryKey;type:text"`
	SessionID   string         `json:"session_id" gorm:"column:session_id;index;type:text" validate:"required"`
	Sender      MessageSender  `json:"sender" gorm:"index;type:text" validate:"required,oneof=USER BOT AGENT"`
	MessageType string         `json:"message_type,omitempty" gorm:"column:message_type;type:text;default:text"`
	Content     datatypes.JSON `json:"content,omitempty" gorm:"type:jsonb;column:content"`
	IsRead      bool           `json:"is_read" gorm:"column:is_read;default:false"`
	CreatedAt   time.Time      `json:"created_at,omitempty" gorm:"column:created_at;index;autoCreateTime"`
}

// TableName specifies the table name for the ChatMessage model.
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// NewChatMessage builds a message record with a fresh id and timestamp.
func NewChatMessage(sessionID string, sender MessageSender, messageType string, content datatypes.JSON) *ChatMessage {
	if messageType == "" {
		messageType = MessageTypeText
	}
	return &ChatMessage{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Sender:      sender,
		MessageType: messageType,
		Content:     content,
		CreatedAt:   utils.Now(),
	}
}
