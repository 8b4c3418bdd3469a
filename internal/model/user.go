package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// UserType is the derived engagement classification of a user.
type UserType string

const (
	UserTypeNew       UserType = "NEW"
	UserTypeReturning UserType = "RETURNING"
	UserTypeActive    UserType = "ACTIVE"
	UserTypeInactive  UserType = "INACTIVE"
)

// SupportedLanguages lists the locale codes the bot can serve.
var SupportedLanguages = []string{"en", "hi", "gu", "ta", "te", "bn", "mr", "kn"}

const (
	// DefaultLanguage is assigned when no language preference is known.
	DefaultLanguage = "en"
	// InactivityWindow is how long a user may stay idle before the
	// classification flips to INACTIVE regardless of session count.
	InactivityWindow = 30 * 24 * time.Hour
)

// User represents a bot end-user keyed by their normalized phone handle.
type User struct {
	ID          string         `json:"id" gorm:"primaryKey;type:text"`
	PhoneNumber string         `json:"phone_number" gorm:"column:phone_number;uniqueIndex;type:text" validate:"required,e164"`
	Name        string         `json:"name,omitempty" gorm:"type:text"`
	Language    string         `json:"language,omitempty" gorm:"type:text;default:en" validate:"omitempty,oneof=en hi gu ta te bn mr kn"`
	UserType    UserType       `json:"user_type,omitempty" gorm:"column:user_type;index;type:text;default:NEW"`
	FirstSeen   time.Time      `json:"first_seen,omitempty" gorm:"column:first_seen"`
	LastActive  time.Time      `json:"last_active,omitempty" gorm:"column:last_active;index"`
	CreatedAt   time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
	Metadata    datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb;column:metadata"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// NewUser builds a User from a raw contact identifier. The identifier is
// normalized into the canonical handle form; ErrInvalidIdentity is returned
// when that fails. New users start as NEW with firstSeen/lastActive set to now.
func NewUser(rawIdentity, name, language string) (*User, error) {
	handle, ok := utils.NormalizeHandle(rawIdentity)
	if !ok {
		return nil, apperrors.ErrInvalidIdentity
	}
	if language == "" {
		language = DefaultLanguage
	}
	now := utils.Now()
	return &User{
		ID:          uuid.NewString(),
		PhoneNumber: handle,
		Name:        name,
		Language:    language,
		UserType:    UserTypeNew,
		FirstSeen:   now,
		LastActive:  now,
	}, nil
}

// ComputeUserType derives the classification from total session count and
// recency. The 30-day inactivity override wins regardless of session count.
// Pure and idempotent: same inputs always yield the same classification.
func ComputeUserType(sessionCount int64, lastActive, now time.Time) UserType {
	if !lastActive.IsZero() && now.Sub(lastActive) > InactivityWindow {
		return UserTypeInactive
	}
	switch {
	case sessionCount <= 1:
		return UserTypeNew
	case sessionCount <= 5:
		return UserTypeReturning
	default:
		return UserTypeActive
	}
}
