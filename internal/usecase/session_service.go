package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/eventbus"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/storage"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/validator"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// CreateSessionRequest is the explicit session-create API payload.
type CreateSessionRequest struct {
	UserID  string               `json:"user_id" validate:"required"`
	Source  model.SessionSource  `json:"source,omitempty" validate:"omitempty,oneof=QR_CODE DIRECT_LINK AD_CLICK REFERRAL ORGANIC OTHER"`
	Channel model.SessionChannel `json:"channel,omitempty" validate:"omitempty,oneof=WHATSAPP WEB MOBILE_APP"`
}

// SessionService handles the explicit session lifecycle API. Unlike the
// webhook resolver, creating a session here always force-closes any other
// open session for the user first.
type SessionService struct {
	userRepo    storage.UserRepo
	sessionRepo storage.SessionRepo
	eventRepo   storage.AnalyticsEventRepo
	publisher   eventbus.Publisher
}

// NewSessionService creates a session service.
func NewSessionService(
	userRepo storage.UserRepo,
	sessionRepo storage.SessionRepo,
	eventRepo storage.AnalyticsEventRepo,
	publisher eventbus.Publisher,
) *SessionService {
	return &SessionService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		eventRepo:   eventRepo,
		publisher:   publisher,
	}
}

// Create opens a new session for the user, force-closing any session still
// marked active. Returns ErrNotFound when the user does not exist.
func (s *SessionService) Create(ctx context.Context, req CreateSessionRequest) (*model.Session, error) {
	log := logger.FromContext(ctx)

	if err := validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	user, err := s.userRepo.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	closed, err := s.sessionRepo.ForceCloseActive(ctx, user.ID, utils.Now())
	if err != nil {
		// Best-effort last-writer-wins; the new session still opens.
		log.Warn("Failed to force-close active sessions",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	} else if closed > 0 {
		log.Info("Force-closed active sessions",
			zap.String("user_id", user.ID),
			zap.Int64("closed", closed),
		)
	}

	session := model.NewSession(user.ID, req.Source, req.Channel)
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	s.emitEvent(ctx, model.NewAnalyticsEvent(user.ID, session.ID, model.CategoryUser, model.ActionSessionStart).
		WithLabel(string(session.Source)))
	return session, nil
}

// End closes the session and records a Session_End event carrying the
// duration in seconds. Ending an already closed session is a no-op that
// returns the session unchanged.
func (s *SessionService) End(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return session, nil
	}

	session.End(utils.Now())
	if err := s.sessionRepo.EndSession(ctx, session); err != nil {
		return nil, err
	}

	event := model.NewAnalyticsEvent(session.UserID, session.ID, model.CategoryUser, model.ActionSessionEnd)
	if session.DurationSeconds != nil {
		event = event.WithValue(float64(*session.DurationSeconds))
	}
	s.emitEvent(ctx, event)
	return session, nil
}

func (s *SessionService) emitEvent(ctx context.Context, event *model.AnalyticsEvent) {
	if err := s.eventRepo.Save(ctx, event); err != nil {
		logger.FromContext(ctx).Warn("Failed to record analytics event",
			zap.String("action", event.EventAction),
			zap.Error(err),
		)
		return
	}
	_ = s.publisher.PublishEvent(ctx, event)
}
