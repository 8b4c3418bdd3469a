package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
)

func TestComputeUserType(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		sessionCount int64
		lastActive   time.Time
		expected     UserType
	}{
		{
			name:         "zero sessions is NEW",
			sessionCount: 0,
			lastActive:   now,
			expected:     UserTypeNew,
		},
		{
			name:         "one session is NEW",
			sessionCount: 1,
			lastActive:   now,
			expected:     UserTypeNew,
		},
		{
			name:         "two sessions is RETURNING",
			sessionCount: 2,
			lastActive:   now,
			expected:     UserTypeReturning,
		},
		{
			name:         "three sessions is RETURNING",
			sessionCount: 3,
			lastActive:   now,
			expected:     UserTypeReturning,
		},
		{
			name:         "five sessions is RETURNING",
			sessionCount: 5,
			lastActive:   now,
			expected:     UserTypeReturning,
		},
		{
			name:         "six sessions is ACTIVE",
			sessionCount: 6,
			lastActive:   now,
			expected:     UserTypeActive,
		},
		{
			name:         "eight sessions is ACTIVE",
			sessionCount: 8,
			lastActive:   now,
			expected:     UserTypeActive,
		},
		{
			name:         "idle 35 days overrides high session count",
			sessionCount: 8,
			lastActive:   now.Add(-35 * 24 * time.Hour),
			expected:     UserTypeInactive,
		},
		{
			name:         "idle 29 days does not override",
			sessionCount: 8,
			lastActive:   now.Add(-29 * 24 * time.Hour),
			expected:     UserTypeActive,
		},
		{
			name:         "idle 35 days with zero sessions",
			sessionCount: 0,
			lastActive:   now.Add(-35 * 24 * time.Hour),
			expected:     UserTypeInactive,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := ComputeUserType(tc.sessionCount, tc.lastActive, now)
			assert.Equal(t, tc.expected, result)

			// Same inputs must always yield the same classification.
			assert.Equal(t, result, ComputeUserType(tc.sessionCount, tc.lastActive, now))
		})
	}
}

func TestNewUser(t *testing.T) {
	t.Run("normalizes identity", func(t *testing.T) {
		user, err := NewUser("1 (555) 123-4567", "Asha", "")
		require.NoError(t, err)
		assert.Equal(t, "+15551234567", user.PhoneNumber)
		assert.Equal(t, UserTypeNew, user.UserType)
		assert.Equal(t, DefaultLanguage, user.Language)
		assert.NotEmpty(t, user.ID)
		assert.False(t, user.FirstSeen.IsZero())
		assert.Equal(t, user.FirstSeen, user.LastActive)
	})

	t.Run("rejects unnormalizable identity", func(t *testing.T) {
		user, err := NewUser("not-a-number", "", "")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidIdentity)
	})
}

func TestSessionEnd(t *testing.T) {
	session := NewSession("user-1", "", "")
	assert.Equal(t, SourceOrganic, session.Source)
	assert.Equal(t, ChannelWhatsApp, session.Channel)
	assert.True(t, session.IsActive)

	end := session.StartTime.Add(95 * time.Second)
	session.End(end)

	assert.False(t, session.IsActive)
	require.NotNil(t, session.EndTime)
	require.NotNil(t, session.DurationSeconds)
	assert.Equal(t, int64(95), *session.DurationSeconds)

	// Ending again must not move the end time.
	session.End(end.Add(time.Hour))
	assert.Equal(t, end, *session.EndTime)
	assert.Equal(t, int64(95), *session.DurationSeconds)
}
