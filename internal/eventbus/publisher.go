package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/observer"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// Publisher fans analytics events out to downstream consumers. Publishing is
// best-effort: the persisted event row is the source of truth and a publish
// failure never fails the interaction that produced it.
type Publisher interface {
	PublishEvent(ctx context.Context, event *model.AnalyticsEvent) error
	Close()
}

// NATSPublisher publishes analytics events onto a NATS subject per category.
type NATSPublisher struct {
	nc            *nats.Conn
	subjectPrefix string
}

// Ensure NATSPublisher implements Publisher
var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to NATS with unlimited reconnects. subjectPrefix
// defaults to "helpline.events" when empty.
func NewNATSPublisher(url, subjectPrefix string) (*NATSPublisher, error) {
	if subjectPrefix == "" {
		subjectPrefix = "helpline.events"
	}

	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, s *nats.Subscription, err error) {
			logger.Log.Error("NATS error", zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{nc: nc, subjectPrefix: subjectPrefix}, nil
}

// PublishEvent sends the event as JSON on "<prefix>.<category>.<action>".
func (p *NATSPublisher) PublishEvent(ctx context.Context, event *model.AnalyticsEvent) error {
	subject := fmt.Sprintf("%s.%s.%s", p.subjectPrefix, event.EventCategory, event.EventAction)

	err := p.nc.Publish(subject, utils.MustMarshalJSON(event))
	observer.IncEventBusPublished(err)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to publish analytics event",
			zap.String("subject", subject),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close closes the connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// NoopPublisher discards events. Used when no event bus is configured.
type NoopPublisher struct{}

var _ Publisher = (*NoopPublisher)(nil)

// PublishEvent does nothing.
func (NoopPublisher) PublishEvent(ctx context.Context, event *model.AnalyticsEvent) error {
	return nil
}

// Close does nothing.
func (NoopPublisher) Close() {}
