package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
)

// PublisherMock is a testify mock for eventbus.Publisher.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) PublishEvent(ctx context.Context, event *model.AnalyticsEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() {
	m.Called()
}
