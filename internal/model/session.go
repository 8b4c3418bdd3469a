package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// SessionSource identifies how the user arrived at the bot.
type SessionSource string

const (
	SourceQRCode     SessionSource = "QR_CODE"
	SourceDirectLink SessionSource = "DIRECT_LINK"
	SourceAdClick    SessionSource = "AD_CLICK"
	SourceReferral   SessionSource = "REFERRAL"
	SourceOrganic    SessionSource = "ORGANIC"
	SourceOther      SessionSource = "OTHER"
)

// SessionChannel identifies the conversation medium.
type SessionChannel string

const (
	ChannelWhatsApp  SessionChannel = "WHATSAPP"
	ChannelWeb       SessionChannel = "WEB"
	ChannelMobileApp SessionChannel = "MOBILE_APP"
)

// Session represents one continuous interaction window for a user.
// At most one session per user may be active at any instant; opening a
// new one force-closes any other open session for that user first.
type Session struct {
	ID              string         `json:"id" gorm:"primaryKey;type:text"`
	UserID          string         `json:"user_id" gorm:"column:user_id;index;type:text" validate:"required"`
	Source          SessionSource  `json:"source,omitempty" gorm:"index;type:text;default:ORGANIC" validate:"omitempty,oneof=QR_CODE DIRECT_LINK AD_CLICK REFERRAL ORGANIC OTHER"`
	Channel         SessionChannel `json:"channel,omitempty" gorm:"type:text;default:WHATSAPP" validate:"omitempty,oneof=WHATSAPP WEB MOBILE_APP"`
	StartTime       time.Time      `json:"start_time,omitempty" gorm:"column:start_time;index"`
	EndTime         *time.Time     `json:"end_time,omitempty" gorm:"column:end_time"`
	DurationSeconds *int64         `json:"duration_seconds,omitempty" gorm:"column:duration_seconds"`
	IsActive        bool           `json:"is_active" gorm:"column:is_active;index;default:true"`
	CreatedAt       time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
	Metadata        datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb;column:metadata"`
}

// TableName specifies the table name for the Session model.
func (Session) TableName() string {
	return "sessions"
}

// NewSession opens a session for the given user, applying the ORGANIC and
// WHATSAPP defaults when source or channel are unset.
func NewSession(userID string, source SessionSource, channel SessionChannel) *Session {
	if source == "" {
		source = SourceOrganic
	}
	if channel == "" {
		channel = ChannelWhatsApp
	}
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Source:    source,
		Channel:   channel,
		StartTime: utils.Now(),
		IsActive:  true,
	}
}

// End closes the session at the given instant, deriving the duration in
// whole seconds. Ending an already closed session is a no-op.
func (s *Session) End(at time.Time) {
	if !s.IsActive {
		return
	}
	end := at.UTC()
	duration := int64(end.Sub(s.StartTime).Seconds())
	s.EndTime = &end
	s.DurationSeconds = &duration
	s.IsActive = false
}
