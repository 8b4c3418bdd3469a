package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	apperrors "gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/eventbus"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/storage"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// Resolution is the outcome of resolving an inbound identity: the user and
// their open session, with flags marking which of the two were just created.
type Resolution struct {
	User         *model.User
	Session      *model.Session
	IsNewUser    bool
	IsNewSession bool
}

// Resolver maps a raw inbound identity onto a User and an open Session,
// creating either when absent. The webhook path reuses an open session
// indefinitely; only the explicit session API force-closes prior sessions.
type Resolver struct {
	userRepo    storage.UserRepo
	sessionRepo storage.SessionRepo
	eventRepo   storage.AnalyticsEventRepo
	publisher   eventbus.Publisher
}

// NewResolver creates a resolver.
func NewResolver(
	userRepo storage.UserRepo,
	sessionRepo storage.SessionRepo,
	eventRepo storage.AnalyticsEventRepo,
	publisher eventbus.Publisher,
) *Resolver {
	return &Resolver{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		eventRepo:   eventRepo,
		publisher:   publisher,
	}
}

// Resolve normalizes rawIdentity and returns the user and open session for
// it, creating both as needed. Returns ErrInvalidIdentity when the identity
// cannot be normalized, and a repository error when the lookups or creates
// fail. The Registration and Session_Start analytics events are best-effort.
func (r *Resolver) Resolve(ctx context.Context, rawIdentity string) (*Resolution, error) {
	log := logger.FromContext(ctx)

	handle, ok := utils.NormalizeHandle(rawIdentity)
	if !ok {
		return nil, apperrors.ErrInvalidIdentity
	}

	resolution := &Resolution{}

	user, err := r.userRepo.FindByPhone(ctx, handle)
	switch {
	case err == nil:
		resolution.User = user
	case errors.Is(err, apperrors.ErrNotFound):
		newUser, buildErr := model.NewUser(handle, "", "")
		if buildErr != nil {
			return nil, buildErr
		}
		if saveErr := r.userRepo.Save(ctx, newUser); saveErr != nil {
			// Duplicate means another delivery of the same first message won
			// the race; fall back to the stored row.
			if errors.Is(saveErr, apperrors.ErrDuplicate) {
				existing, findErr := r.userRepo.FindByPhone(ctx, handle)
				if findErr != nil {
					return nil, findErr
				}
				resolution.User = existing
				break
			}
			return nil, saveErr
		}
		resolution.User = newUser
		resolution.IsNewUser = true
		r.emitEvent(ctx, model.NewAnalyticsEvent(newUser.ID, "", model.CategoryUser, model.ActionRegistration).
			WithLabel(string(model.ChannelWhatsApp)))
		log.Info("Registered new user", zap.String("user_id", newUser.ID))
	default:
		return nil, err
	}

	session, err := r.sessionRepo.FindActiveByUser(ctx, resolution.User.ID)
	switch {
	case err == nil:
		resolution.Session = session
	case errors.Is(err, apperrors.ErrNotFound):
		newSession := model.NewSession(resolution.User.ID, model.SourceOrganic, model.ChannelWhatsApp)
		if saveErr := r.sessionRepo.Save(ctx, newSession); saveErr != nil {
			return nil, saveErr
		}
		resolution.Session = newSession
		resolution.IsNewSession = true
		r.emitEvent(ctx, model.NewAnalyticsEvent(resolution.User.ID, newSession.ID, model.CategoryUser, model.ActionSessionStart).
			WithLabel(string(newSession.Source)))
		log.Debug("Opened new session",
			zap.String("user_id", resolution.User.ID),
			zap.String("session_id", newSession.ID),
		)
	default:
		return nil, err
	}

	return resolution, nil
}

// emitEvent persists and publishes an analytics event, logging failures
// instead of propagating them.
func (r *Resolver) emitEvent(ctx context.Context, event *model.AnalyticsEvent) {
	if err := r.eventRepo.Save(ctx, event); err != nil {
		logger.FromContext(ctx).Warn("Failed to record analytics event",
			zap.String("action", event.EventAction),
			zap.Error(err),
		)
		return
	}
	_ = r.publisher.PublishEvent(ctx, event)
}
