package usecase

import (
	"context"
	"errors"
	"time"

	"go-panel-backend/internal/domain"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/logger"
	"go-panel-backend/pkg/metrics"
	"go-panel-backend/pkg/validation"
)

// Payloads on the session topic of a slot.
const (
	sessionRefresh = "refresh"
	sessionCleared = "cleared"
)

// SessionTopic carries session-level signals of one client slot: a profile
// refresh after sign-in and the unconditional clear on logout.
func SessionTopic(sid string) string {
	return "session:" + sid
}

var shellScreens = []domain.Screen{
	{Key: "home", Title: "Inicio", Path: "/"},
	{Key: domain.CollectionContacts, Title: "Usuarios", Path: "/usuarios", RequiresSession: true},
	{Key: domain.CollectionPosts, Title: "Posts", Path: "/post", RequiresSession: true},
	{Key: domain.CollectionProducts, Title: "Productos", Path: "/productos", RequiresSession: true},
}

type sessionUsecase struct {
	provider       domain.IdentityProvider
	profiles       domain.ProfileRepository
	images         *ImageUploader
	notifier       domain.Notifier
	metrics        metrics.Recorder
	requireSession bool
	now            func() time.Time
}

func NewSessionUsecase(
	provider domain.IdentityProvider,
	profiles domain.ProfileRepository,
	images *ImageUploader,
	notifier domain.Notifier,
	rec metrics.Recorder,
	requireSession bool,
) domain.SessionUsecase {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &sessionUsecase{
		provider:       provider,
		profiles:       profiles,
		images:         images,
		notifier:       notifier,
		metrics:        rec,
		requireSession: requireSession,
		now:            time.Now,
	}
}

// ObserveSession delivers the merged session of the slot on one goroutine:
// right away, after every auth-state change, and after profile refreshes.
// A logout clear latches: identities reported by the provider are ignored
// until the next explicit sign-in refresh.
func (u *sessionUsecase) ObserveSession(ctx context.Context, cs domain.ClientSession, fn func(*domain.Session)) domain.Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	u.metrics.SubscriptionOpened("session")

	signals, stopSignals := u.notifier.Subscribe(SessionTopic(cs.ID))
	identities := make(chan *domain.Identity, 1)
	stopAuth := u.provider.OnAuthStateChanged(ctx, cs, func(id *domain.Identity) {
		select {
		case identities <- id:
		case <-ctx.Done():
		}
	})

	go func() {
		defer u.metrics.SubscriptionClosed("session")
		defer stopSignals()
		defer stopAuth()

		var (
			delivered bool
			last      *domain.Session
			cleared   bool
		)
		emit := func(s *domain.Session) {
			if ctx.Err() != nil {
				return
			}
			if delivered && last == nil && s == nil {
				return
			}
			delivered, last = true, s
			fn(s)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case id := <-identities:
				if cleared && id != nil {
					continue
				}
				emit(u.LoadFullSession(ctx, id))
			case payload, ok := <-signals:
				if !ok {
					return
				}
				switch payload {
				case sessionCleared:
					cleared = true
					emit(nil)
				case sessionRefresh:
					cleared = false
					s, err := u.CurrentSession(ctx, cs)
					if err != nil {
						logger.Log.Warn("session refresh failed", "error", err)
						continue
					}
					emit(s)
				}
			}
		}
	}()

	return domain.Unsubscribe(cancel)
}

func (u *sessionUsecase) Register(ctx context.Context, cs domain.ClientSession, input domain.RegisterInput) (*domain.Session, error) {
	input.Username = validation.Clean(input.Username)
	if err := validation.Validator().Struct(input); err != nil {
		return nil, apperror.Validation("Revisa los datos del registro.", validation.FormatValidationErrors(err)...)
	}
	if input.Avatar != nil {
		if err := u.images.Check(ctx, input.Avatar); err != nil {
			return nil, err
		}
	}

	id, err := u.provider.CreateUser(ctx, cs, input.Email, input.Password)
	if err != nil {
		u.metrics.RecordAuthEvent("register", "failure")
		return nil, err
	}

	avatar := ""
	if input.Avatar != nil {
		if avatar, err = u.images.Upload(ctx, AvatarPrefix, *input.Avatar); err != nil {
			u.metrics.RecordAuthEvent("register", "failure")
			return nil, err
		}
	}

	profile := &domain.Profile{
		UID:       id.UID,
		Email:     id.Email,
		Username:  input.Username,
		Avatar:    avatar,
		Provider:  domain.ProviderPassword,
		CreatedAt: u.now().UTC(),
	}
	if err := u.profiles.Create(ctx, profile); err != nil {
		u.metrics.RecordAuthEvent("register", "failure")
		logger.Log.Error("failed to create profile", "uid", id.UID, "error", err)
		return nil, apperror.Persistence("", err)
	}

	u.metrics.RecordAuthEvent("register", "success")
	u.notifier.Publish(ctx, SessionTopic(cs.ID), sessionRefresh)
	return domain.MergeSession(id, profile), nil
}

func (u *sessionUsecase) Login(ctx context.Context, cs domain.ClientSession, email, password string) (*domain.Session, error) {
	id, err := u.provider.SignIn(ctx, cs, email, password)
	if err != nil {
		u.metrics.RecordAuthEvent("login", "failure")
		return nil, err
	}
	u.metrics.RecordAuthEvent("login", "success")
	u.notifier.Publish(ctx, SessionTopic(cs.ID), sessionRefresh)
	return u.LoadFullSession(ctx, id), nil
}

func (u *sessionUsecase) GoogleConsentURL(state string) (string, error) {
	return u.provider.GoogleConsentURL(state)
}

func (u *sessionUsecase) LoginWithGoogle(ctx context.Context, cs domain.ClientSession, code string) (*domain.Session, error) {
	id, err := u.provider.SignInWithGoogle(ctx, cs, code)
	if err != nil {
		u.metrics.RecordAuthEvent("google_login", "failure")
		return nil, err
	}
	u.metrics.RecordAuthEvent("google_login", "success")

	profile, err := u.ensureGoogleProfile(ctx, id)
	if err != nil {
		logger.Log.Warn("google profile unavailable, using identity alone", "uid", id.UID, "error", err)
		profile = nil
	}
	u.notifier.Publish(ctx, SessionTopic(cs.ID), sessionRefresh)
	return domain.MergeSession(id, profile), nil
}

// ensureGoogleProfile returns the stored profile or creates it from the
// Google display name and photo on first sign-in.
func (u *sessionUsecase) ensureGoogleProfile(ctx context.Context, id *domain.Identity) (*domain.Profile, error) {
	profile, err := u.profiles.GetByUID(ctx, id.UID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, err
	}

	profile = &domain.Profile{
		UID:       id.UID,
		Email:     id.Email,
		Username:  id.DisplayName,
		Avatar:    id.PhotoURL,
		Provider:  domain.ProviderGoogle,
		CreatedAt: u.now().UTC(),
	}
	if err := u.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, domain.ErrProfileExists) {
			return u.profiles.GetByUID(ctx, id.UID)
		}
		return nil, err
	}
	return profile, nil
}

func (u *sessionUsecase) ResetPassword(ctx context.Context, email string) error {
	if err := u.provider.SendPasswordResetEmail(ctx, email); err != nil {
		u.metrics.RecordAuthEvent("password_reset", "failure")
		return err
	}
	u.metrics.RecordAuthEvent("password_reset", "success")
	return nil
}

func (u *sessionUsecase) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	return u.provider.ConfirmPasswordReset(ctx, token, newPassword)
}

// Logout clears the slot for observers whether or not the provider
// acknowledged the sign-out. The provider error is only logged.
func (u *sessionUsecase) Logout(ctx context.Context, cs domain.ClientSession) error {
	if err := u.provider.SignOut(ctx, cs); err != nil {
		logger.Log.Warn("provider sign-out failed, clearing session locally", "error", err)
		u.metrics.RecordAuthEvent("logout", "failure")
	} else {
		u.metrics.RecordAuthEvent("logout", "success")
	}
	u.notifier.Publish(ctx, SessionTopic(cs.ID), sessionCleared)
	return nil
}

func (u *sessionUsecase) CurrentSession(ctx context.Context, cs domain.ClientSession) (*domain.Session, error) {
	id, err := u.provider.CurrentUser(ctx, cs)
	if err != nil {
		return nil, apperror.Auth(apperror.CodeInternal, err)
	}
	return u.LoadFullSession(ctx, id), nil
}

// LoadFullSession merges the stored profile over id. Any failure to read the
// profile falls back to the identity alone.
func (u *sessionUsecase) LoadFullSession(ctx context.Context, id *domain.Identity) *domain.Session {
	if id == nil {
		return nil
	}
	profile, err := u.profiles.GetByUID(ctx, id.UID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			logger.Log.Info("no profile for identity", "uid", id.UID)
		} else {
			logger.Log.Warn("failed to load profile, using identity alone", "uid", id.UID, "error", err)
		}
		return domain.MergeSession(id, nil)
	}
	return domain.MergeSession(id, profile)
}

func (u *sessionUsecase) Shell(ctx context.Context, cs domain.ClientSession) *domain.Shell {
	session, err := u.CurrentSession(ctx, cs)
	if err != nil {
		logger.Log.Warn("shell could not resolve session", "error", err)
		session = nil
	}
	screens := make([]domain.Screen, len(shellScreens))
	copy(screens, shellScreens)
	return &domain.Shell{
		Screens:   screens,
		Session:   session,
		ShowLogin: u.requireSession && session == nil,
	}
}
