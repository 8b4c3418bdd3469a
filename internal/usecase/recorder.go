package usecase

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/bot"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/eventbus"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/storage"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// Recorder durably records one dispatched interaction: both chat messages,
// the flow step, the analytics events, and the user recency/classification
// updates. Every step is independent and best-effort; failures are logged
// and never propagated so the webhook path can always acknowledge.
type Recorder struct {
	userRepo    storage.UserRepo
	sessionRepo storage.SessionRepo
	flowRepo    storage.SessionFlowRepo
	messageRepo storage.ChatMessageRepo
	eventRepo   storage.AnalyticsEventRepo
	publisher   eventbus.Publisher
}

// NewRecorder creates a recorder.
func NewRecorder(
	userRepo storage.UserRepo,
	sessionRepo storage.SessionRepo,
	flowRepo storage.SessionFlowRepo,
	messageRepo storage.ChatMessageRepo,
	eventRepo storage.AnalyticsEventRepo,
	publisher eventbus.Publisher,
) *Recorder {
	return &Recorder{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		flowRepo:    flowRepo,
		messageRepo: messageRepo,
		eventRepo:   eventRepo,
		publisher:   publisher,
	}
}

// Record persists the interaction. The inbound message is recorded even when
// the outbound send failed; sendFailed only annotates the bot-side record.
func (r *Recorder) Record(ctx context.Context, user *model.User, session *model.Session, event model.InboundEvent, decision bot.Decision, sendFailed bool) {
	log := logger.FromContext(ctx).With(
		zap.String("user_id", user.ID),
		zap.String("session_id", session.ID),
	)

	r.recordInbound(ctx, log, session, event)
	r.recordOutbound(ctx, log, session, decision, sendFailed)
	r.recordFlowStep(ctx, log, user, session, event, decision)
	r.touchAndReclassify(ctx, log, user)
}

func (r *Recorder) recordInbound(ctx context.Context, log *zap.Logger, session *model.Session, event model.InboundEvent) {
	kind, value := event.Signal()
	messageType := model.MessageTypeText
	if kind != model.SignalText {
		messageType = model.MessageTypeInteractive
	}
	content := utils.MustMarshalJSON(map[string]interface{}{
		"text":      event.Text,
		"button_id": event.ButtonID,
		"list_id":   event.ListID,
	})

	msg := model.NewChatMessage(session.ID, model.SenderUser, messageType, datatypes.JSON(content))
	if err := r.messageRepo.Save(ctx, msg); err != nil {
		log.Warn("Failed to record inbound chat message", zap.Error(err))
	}

	r.emitEvent(ctx, log, model.NewAnalyticsEvent(session.UserID, session.ID, model.CategoryConversation, model.ActionMessageReceived).
		WithLabel(kind.String()).
		WithMetadata(datatypes.JSON(utils.MustMarshalJSON(map[string]string{"value": value}))))
}

func (r *Recorder) recordOutbound(ctx context.Context, log *zap.Logger, session *model.Session, decision bot.Decision, sendFailed bool) {
	content := utils.MustMarshalJSON(map[string]interface{}{
		"summary":     decision.Reply.Summary(),
		"flow_step":   string(decision.FlowStep),
		"send_failed": sendFailed,
	})
	messageType := model.MessageTypeText
	if decision.Reply.Kind != bot.ReplyText {
		messageType = model.MessageTypeInteractive
	}

	msg := model.NewChatMessage(session.ID, model.SenderBot, messageType, datatypes.JSON(content))
	if err := r.messageRepo.Save(ctx, msg); err != nil {
		log.Warn("Failed to record outbound chat message", zap.Error(err))
	}

	r.emitEvent(ctx, log, model.NewAnalyticsEvent(session.UserID, session.ID, model.CategoryConversation, model.ActionMessageSent).
		WithLabel(string(decision.Reply.Kind)))
}

// recordFlowStep appends the next journey step. The max-then-increment read
// is a tolerated check-then-act race: duplicate webhook deliveries may
// produce colliding step orders, which the funnel treats as a data-quality
// blemish rather than an error.
func (r *Recorder) recordFlowStep(ctx context.Context, log *zap.Logger, user *model.User, session *model.Session, event model.InboundEvent, decision bot.Decision) {
	maxOrder, err := r.flowRepo.MaxStepOrder(ctx, session.ID)
	if err != nil {
		log.Warn("Failed to read max step order, defaulting to 0", zap.Error(err))
		maxOrder = 0
	}

	_, value := event.Signal()
	stepData := utils.MustMarshalJSON(map[string]string{"input": value})
	flow := model.NewSessionFlow(session.ID, decision.FlowStep, maxOrder+1, datatypes.JSON(stepData))
	if err := r.flowRepo.Save(ctx, flow); err != nil {
		log.Warn("Failed to record session flow step", zap.Error(err))
	}

	r.emitEvent(ctx, log, model.NewAnalyticsEvent(user.ID, session.ID, model.CategoryEngagement, model.ActionFlowStep).
		WithLabel(string(decision.FlowStep)))
}

// touchAndReclassify refreshes lastActive and re-derives the classification
// from scratch. Full recomputation is required since the 30-day inactivity
// rule can flip a high-session-count user back to INACTIVE.
func (r *Recorder) touchAndReclassify(ctx context.Context, log *zap.Logger, user *model.User) {
	now := utils.Now()
	if err := r.userRepo.TouchLastActive(ctx, user.ID, now); err != nil {
		log.Warn("Failed to touch user last active", zap.Error(err))
	} else {
		user.LastActive = now
	}

	sessionCount, err := r.sessionRepo.CountByUser(ctx, user.ID)
	if err != nil {
		log.Warn("Failed to count user sessions for classification", zap.Error(err))
		return
	}

	newType := model.ComputeUserType(sessionCount, user.LastActive, now)
	if newType == user.UserType {
		return
	}
	if err := r.userRepo.UpdateUserType(ctx, user.ID, newType); err != nil {
		log.Warn("Failed to update user classification",
			zap.String("user_type", string(newType)),
			zap.Error(err),
		)
		return
	}
	log.Info("User classification changed",
		zap.String("from", string(user.UserType)),
		zap.String("to", string(newType)),
	)
	user.UserType = newType
}

func (r *Recorder) emitEvent(ctx context.Context, log *zap.Logger, event *model.AnalyticsEvent) {
	if err := r.eventRepo.Save(ctx, event); err != nil {
		log.Warn("Failed to record analytics event",
			zap.String("action", event.EventAction),
			zap.Error(err),
		)
		return
	}
	_ = r.publisher.PublishEvent(ctx, event)
}
