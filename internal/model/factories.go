package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// RandomJSONB generates random JSON data for testing.
func RandomJSONB() datatypes.JSON {
	jsonData := map[string]interface{}{
		"stub_key": gofakeit.Word(),
		"stub_num": gofakeit.Number(1, 100),
	}
	bytes, _ := json.Marshal(jsonData)
	return datatypes.JSON(bytes)
}

// JSONBMap generates JSON data from a map for testing.
func JSONBMap(data map[string]interface{}) datatypes.JSON {
	bytes, _ := json.Marshal(data)
	return datatypes.JSON(bytes)
}

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// FakeHandle returns a random canonical phone handle.
func FakeHandle() string {
	return fmt.Sprintf("+91%d", gofakeit.Number(7000000000, 9999999999))
}

// FakeUser creates a User instance with default fake data.
func FakeUser(overrideDefaults ...*User) *User {
	base := &User{
		ID:          uuid.NewString(),
		PhoneNumber: FakeHandle(),
		Name:        gofakeit.Name(),
		Language:    gofakeit.RandomString(SupportedLanguages),
		UserType:    UserType(gofakeit.RandomString([]string{string(UserTypeNew), string(UserTypeReturning), string(UserTypeActive)})),
		FirstSeen:   utils.Now().Add(-time.Duration(gofakeit.Number(1, 365)) * 24 * time.Hour),
		LastActive:  utils.Now().Add(-time.Duration(gofakeit.Number(0, 72)) * time.Hour),
		CreatedAt:   utils.Now().Add(-time.Duration(gofakeit.Number(1, 365)) * 24 * time.Hour),
		UpdatedAt:   utils.Now(),
		Metadata:    RandomJSONB(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.PhoneNumber != "" {
			base.PhoneNumber = ovr.PhoneNumber
		}
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
		if ovr.Language != "" {
			base.Language = ovr.Language
		}
		if ovr.UserType != "" {
			base.UserType = ovr.UserType
		}
		if !ovr.FirstSeen.IsZero() {
			base.FirstSeen = ovr.FirstSeen
		}
		if !ovr.LastActive.IsZero() {
			base.LastActive = ovr.LastActive
		}
		if ovr.Metadata != nil {
			base.Metadata = ovr.Metadata
		}
	}
	return base
}

// FakeSession creates a Session instance with default fake data.
func FakeSession(overrideDefaults ...*Session) *Session {
	base := &Session{
		ID:        uuid.NewString(),
		UserID:    uuid.NewString(),
		Source:    SessionSource(gofakeit.RandomString([]string{string(SourceQRCode), string(SourceDirectLink), string(SourceAdClick), string(SourceReferral), string(SourceOrganic), string(SourceOther)})),
		Channel:   ChannelWhatsApp,
		StartTime: utils.Now().Add(-time.Duration(gofakeit.Number(1, 120)) * time.Minute),
		IsActive:  true,
		CreatedAt: utils.Now(),
		UpdatedAt: utils.Now(),
		Metadata:  RandomJSONB(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.UserID != "" {
			base.UserID = ovr.UserID
		}
		if ovr.Source != "" {
			base.Source = ovr.Source
		}
		if ovr.Channel != "" {
			base.Channel = ovr.Channel
		}
		if !ovr.StartTime.IsZero() {
			base.StartTime = ovr.StartTime
		}
		base.IsActive = ovr.IsActive
		base.EndTime = ovr.EndTime
		base.DurationSeconds = ovr.DurationSeconds
		if ovr.Metadata != nil {
			base.Metadata = ovr.Metadata
		}
	}
	return base
}

// FakeInboundEvent creates a text inbound event from a random handle.
func FakeInboundEvent(overrideDefaults ...*InboundEvent) *InboundEvent {
	base := &InboundEvent{
		From: FakeHandle(),
		Text: gofakeit.RandomString([]string{"hi", "hello", "menu", "contact", gofakeit.Sentence(4)}),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.From != "" {
			base.From = ovr.From
		}
		if ovr.Text != "" {
			base.Text = ovr.Text
		}
		if ovr.ButtonID != "" {
			base.ButtonID = ovr.ButtonID
			base.Text = ""
		}
		if ovr.ListID != "" {
			base.ListID = ovr.ListID
			base.Text = ""
		}
	}
	return base
}
