package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// EventCategory groups analytics events by concern.
type EventCategory string

const (
	CategoryUser         EventCategory = "User"
	CategoryEngagement   EventCategory = "Engagement"
	CategorySystem       EventCategory = "System"
	CategoryMarketing    EventCategory = "Marketing"
	CategoryConversation EventCategory = "Conversation"
)

// Well-known event actions recorded by the pipeline.
const (
	ActionRegistration    = "Registration"
	ActionSessionStart    = "Session_Start"
	ActionSessionEnd      = "Session_End"
	ActionMessageReceived = "Message_Received"
	ActionMessageSent     = "Message_Sent"
	ActionFlowStep        = "Flow_Step"
)

// AnalyticsEvent is an append-only fact record, optionally tied to a user
// and/or session. Dangling user/session references are tolerated since
// events are historical facts.
type AnalyticsEvent struct {
	ID            string         `json:"id" gorm:"primaryKey;type:text"`
	UserID        *string        `json:"user_id,omitempty" gorm:"column:user_id;index;type:text"`
	SessionID     *string        `json:"session_id,omitempty" gorm:"column:session_id;index;type:text"`
	EventCategory EventCategory  `json:"event_category" gorm:"column:event_category;index;type:text" validate:"required,oneof=User Engagement System Marketing Conversation"`
	EventAction   string         `json:"event_action" gorm:"column:event_action;index;type:text" validate:"required"`
	EventLabel    string         `json:"event_label,omitempty" gorm:"column:event_label;type:text"`
	EventValue    *float64       `json:"event_value,omitempty" gorm:"column:event_value"`
	Metadata      datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb;column:metadata"`
	CreatedAt     time.Time      `json:"created_at,omitempty" gorm:"column:created_at;index;autoCreateTime"`
}

// TableName specifies the table name for the AnalyticsEvent model.
func (AnalyticsEvent) TableName() string {
	return "analytics_events"
}

// NewAnalyticsEvent builds an event record. userID and sessionID may be
// empty; empty values are stored as NULL.
func NewAnalyticsEvent(userID, sessionID string, category EventCategory, action string) *AnalyticsEvent {
	ev := &AnalyticsEvent{
		ID:            uuid.NewString(),
		EventCategory: category,
		EventAction:   action,
		CreatedAt:     utils.Now(),
	}
	if userID != "" {
		ev.UserID = &userID
	}
	if sessionID != "" {
		ev.SessionID = &sessionID
	}
	return ev
}

// WithLabel sets the event label.
func (e *AnalyticsEvent) WithLabel(label string) *AnalyticsEvent {
	e.EventLabel = label
	return e
}

// WithValue sets the numeric event value.
func (e *AnalyticsEvent) WithValue(value float64) *AnalyticsEvent {
	e.EventValue = &value
	return e
}

// WithMetadata sets the metadata payload.
func (e *AnalyticsEvent) WithMetadata(metadata datatypes.JSON) *AnalyticsEvent {
	e.Metadata = metadata
	return e
}
