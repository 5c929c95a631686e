// Package identity is the built-in identity provider: password and Google
// accounts, client sign-in slots, password reset mail and auth-state
// notifications per slot.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go-panel-backend/internal/domain"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/auth"
	"go-panel-backend/pkg/email"
	"go-panel-backend/pkg/logger"
	"go-panel-backend/pkg/security"
	"go-panel-backend/pkg/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	signedInPayload   = "signed_in"
	signedOutPayload  = "signed_out"
)

// Topic is the notifier topic carrying auth-state changes of one slot.
func Topic(sid string) string {
	return "auth:" + sid
}

type GoogleClient interface {
	ConsentURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (*auth.GoogleUser, error)
}

type Mailer interface {
	SendPasswordReset(data email.PasswordResetData) error
}

// LoginGuard tracks failed password sign-ins.
type LoginGuard interface {
	IsBlocked(ctx context.Context, email, ip string) (bool, error)
	RecordFailedAttempt(ctx context.Context, email, ip, userAgent, reason string) (bool, int, error)
	ClearAttempts(ctx context.Context, email, ip string) error
}

type Config struct {
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
	// ResetURL is the page that receives ?token=... from the reset mail.
	ResetURL   string
	BcryptCost int
}

type Deps struct {
	Accounts domain.AccountRepository
	Sessions domain.ClientSessionRepository
	Notifier domain.Notifier
	Google   GoogleClient
	Mailer   Mailer
	Guard    LoginGuard
	Audit    *security.AuditLogger
}

type provider struct {
	cfg      Config
	accounts domain.AccountRepository
	sessions domain.ClientSessionRepository
	notifier domain.Notifier
	google   GoogleClient
	mailer   Mailer
	guard    LoginGuard
	audit    *security.AuditLogger
	now      func() time.Time
}

func NewProvider(cfg Config, deps Deps) domain.IdentityProvider {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 14 * 24 * time.Hour
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	return &provider{
		cfg:      cfg,
		accounts: deps.Accounts,
		sessions: deps.Sessions,
		notifier: deps.Notifier,
		google:   deps.Google,
		mailer:   deps.Mailer,
		guard:    deps.Guard,
		audit:    deps.Audit,
		now:      time.Now,
	}
}

func (p *provider) CreateUser(ctx context.Context, cs domain.ClientSession, emailAddr, password string) (*domain.Identity, error) {
	emailAddr = normalizeEmail(emailAddr)
	if !validEmail(emailAddr) {
		return nil, apperror.Auth(apperror.CodeInvalidEmail, nil)
	}
	if len(password) < minPasswordLength {
		return nil, apperror.Auth(apperror.CodeWeakPassword, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cfg.BcryptCost)
	if err != nil {
		return nil, apperror.Auth(apperror.CodeInternal, err)
	}
	hashStr := string(hash)
	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		PasswordHash: &hashStr,
		CreatedAt:    p.now().UTC(),
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, apperror.Auth(apperror.CodeEmailInUse, err)
		}
		return nil, apperror.Auth(apperror.CodeInternal, err)
	}

	if err := p.bind(ctx, cs, account.ID); err != nil {
		return nil, err
	}
	p.audit.Log(ctx, security.AuditEvent{
		Event:        security.EventRegister,
		SubjectType:  "email",
		SubjectValue: emailAddr,
		IP:           cs.IP,
		UserAgent:    cs.UserAgent,
	})
	return account.Identity(), nil
}

func (p *provider) SignIn(ctx context.Context, cs domain.ClientSession, emailAddr, password string) (*domain.Identity, error) {
	emailAddr = normalizeEmail(emailAddr)
	if !validEmail(emailAddr) {
		return nil, apperror.Auth(apperror.CodeInvalidEmail, nil)
	}

	if blocked, err := p.guard.IsBlocked(ctx, emailAddr, cs.IP); err != nil {
		logger.Log.Warn("login block check failed", "error", err)
	} else if blocked {
		p.audit.LogLoginBlocked(ctx, emailAddr, cs.IP, cs.UserAgent)
		return nil, apperror.Auth(apperror.CodeTooManyRequests, nil)
	}

	account, err := p.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, p.failed(ctx, cs, emailAddr, apperror.CodeUserNotFound)
		}
		return nil, apperror.Auth(apperror.CodeInternal, err)
	}
	if account.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*account.PasswordHash), []byte(password)) != nil {
		return nil, p.failed(ctx, cs, emailAddr, apperror.CodeWrongPassword)
	}

	if err := p.guard.ClearAttempts(ctx, emailAddr, cs.IP); err != nil {
		logger.Log.Warn("failed to clear login attempts", "error", err)
	}
	if err := p.bind(ctx, cs, account.ID); err != nil {
		return nil, err
	}
	p.audit.Log(ctx, security.AuditEvent{
		Event:        security.EventLoginSuccess,
		SubjectType:  "email",
		SubjectValue: emailAddr,
		IP:           cs.IP,
		UserAgent:    cs.UserAgent,
	})
	return account.Identity(), nil
}

// failed records the attempt and escalates to too-many-requests once the
// guard blocks the subject.
func (p *provider) failed(ctx context.Context, cs domain.ClientSession, emailAddr, code string) error {
	blocked, _, err := p.guard.RecordFailedAttempt(ctx, emailAddr, cs.IP, cs.UserAgent, strings.TrimPrefix(code, "auth/"))
	if err != nil {
		logger.Log.Warn("failed to record login attempt", "error", err)
	}
	if blocked {
		return apperror.Auth(apperror.CodeTooManyRequests, nil)
	}
	return apperror.Auth(code, nil)
}

func (p *provider) GoogleConsentURL(state string) (string, error) {
	if p.google == nil {
		return "", apperror.Auth(apperror.CodeOperationNotAllowed, auth.ErrGoogleNotConfigured)
	}
	u, err := p.google.ConsentURL(state)
	if err != nil {
		return "", apperror.Auth(apperror.CodeOperationNotAllowed, err)
	}
	return u, nil
}

func (p *provider) SignInWithGoogle(ctx context.Context, cs domain.ClientSession, code string) (*domain.Identity, error) {
	if p.google == nil {
		return nil, apperror.Auth(apperror.CodeOperationNotAllowed, auth.ErrGoogleNotConfigured)
	}
	if code == "" {
		return nil, apperror.Auth(apperror.CodePopupClosed, nil)
	}

	user, err := p.google.Exchange(ctx, code)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrGoogleUnreachable):
			return nil, apperror.Auth(apperror.CodeNetworkFailed, err)
		case errors.Is(err, auth.ErrGoogleNotConfigured):
			return nil, apperror.Auth(apperror.CodeOperationNotAllowed, err)
		default:
			return nil, apperror.Auth(apperror.CodeCancelledPopup, err)
		}
	}

	account, err := p.googleAccount(ctx, user)
	if err != nil {
		return nil, apperror.Auth(apperror.CodeInternal, err)
	}
	if err := p.bind(ctx, cs, account.ID); err != nil {
		return nil, err
	}
	p.audit.Log(ctx, security.AuditEvent{
		Event:        security.EventGoogleLogin,
		SubjectType:  "email",
		SubjectValue: user.Email,
		IP:           cs.IP,
		UserAgent:    cs.UserAgent,
	})

	// Google's current name and picture win over what the account stored.
	id := account.Identity()
	if user.Name != "" {
		id.DisplayName = user.Name
	}
	if user.Picture != "" {
		id.PhotoURL = user.Picture
	}
	return id, nil
}

// googleAccount finds the account by Google subject, links an existing
// password account with the same email, or creates a new one.
func (p *provider) googleAccount(ctx context.Context, user *auth.GoogleUser) (*domain.Account, error) {
	account, err := p.accounts.GetByGoogleSubject(ctx, user.Subject)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	account, err = p.accounts.GetByEmail(ctx, user.Email)
	switch {
	case err == nil:
		if err := p.accounts.LinkGoogle(ctx, account.ID, user.Subject, user.Name, user.Picture); err != nil {
			return nil, err
		}
		subject := user.Subject
		account.GoogleSubject = &subject
		return account, nil
	case !errors.Is(err, domain.ErrAccountNotFound):
		return nil, err
	}

	subject := user.Subject
	account = &domain.Account{
		ID:            uuid.NewString(),
		Email:         user.Email,
		GoogleSubject: &subject,
		DisplayName:   user.Name,
		PhotoURL:      user.Picture,
		CreatedAt:     p.now().UTC(),
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (p *provider) SendPasswordResetEmail(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if !validEmail(emailAddr) {
		return apperror.Auth(apperror.CodeInvalidEmail, nil)
	}
	account, err := p.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return apperror.Auth(apperror.CodeUserNotFound, err)
		}
		return apperror.Auth(apperror.CodeInternal, err)
	}

	token, err := newResetToken()
	if err != nil {
		return apperror.Auth(apperror.CodeInternal, err)
	}
	expiresAt := p.now().Add(p.cfg.ResetTokenTTL)
	if err := p.accounts.CreatePasswordReset(ctx, hashToken(token), account.ID, expiresAt); err != nil {
		return apperror.Auth(apperror.CodeInternal, err)
	}

	if p.mailer == nil {
		return apperror.Auth(apperror.CodeOperationNotAllowed, email.ErrNotConfigured)
	}
	err = p.mailer.SendPasswordReset(email.PasswordResetData{
		Email:     account.Email,
		ResetLink: p.resetLink(token),
		ValidFor:  fmt.Sprintf("%d minutos", int(p.cfg.ResetTokenTTL.Minutes())),
	})
	if err != nil {
		if errors.Is(err, email.ErrNotConfigured) {
			return apperror.Auth(apperror.CodeOperationNotAllowed, err)
		}
		return apperror.Auth(apperror.CodeNetworkFailed, err)
	}

	p.audit.Log(ctx, security.AuditEvent{
		Event:        security.EventPasswordResetRequested,
		SubjectType:  "email",
		SubjectValue: emailAddr,
	})
	return nil
}

func (p *provider) resetLink(token string) string {
	sep := "?"
	if strings.Contains(p.cfg.ResetURL, "?") {
		sep = "&"
	}
	return p.cfg.ResetURL + sep + "token=" + url.QueryEscape(token)
}

func (p *provider) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperror.Auth(apperror.CodeWeakPassword, nil)
	}
	if token == "" {
		return apperror.Auth(apperror.CodeInvalidActionCode, nil)
	}

	accountID, err := p.accounts.ConsumePasswordReset(ctx, hashToken(token), p.now())
	if err != nil {
		if errors.Is(err, domain.ErrResetTokenInvalid) {
			return apperror.Auth(apperror.CodeInvalidActionCode, err)
		}
		return apperror.Auth(apperror.CodeInternal, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.cfg.BcryptCost)
	if err != nil {
		return apperror.Auth(apperror.CodeInternal, err)
	}
	if err := p.accounts.UpdatePassword(ctx, accountID, string(hash)); err != nil {
		return apperror.Auth(apperror.CodeInternal, err)
	}

	p.audit.Log(ctx, security.AuditEvent{
		Event:        security.EventPasswordReset,
		SubjectType:  "uid",
		SubjectValue: accountID,
	})
	return nil
}

func (p *provider) SignOut(ctx context.Context, cs domain.ClientSession) error {
	err := p.sessions.Unbind(ctx, cs.ID)
	p.notifier.Publish(ctx, Topic(cs.ID), signedOutPayload)
	if err != nil {
		return apperror.Auth(apperror.CodeInternal, err)
	}
	p.audit.Log(ctx, security.AuditEvent{
		Event:     security.EventLogout,
		IP:        cs.IP,
		UserAgent: cs.UserAgent,
	})
	return nil
}

func (p *provider) CurrentUser(ctx context.Context, cs domain.ClientSession) (*domain.Identity, error) {
	if cs.ID == "" {
		return nil, nil
	}
	accountID, err := p.sessions.AccountID(ctx, cs.ID, p.now())
	if err != nil {
		if errors.Is(err, domain.ErrNoClientSession) {
			return nil, nil
		}
		return nil, err
	}
	account, err := p.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return account.Identity(), nil
}

// OnAuthStateChanged runs fn on a single goroutine: once with the current
// identity, then after every sign-in or sign-out on the slot.
func (p *provider) OnAuthStateChanged(ctx context.Context, cs domain.ClientSession, fn func(*domain.Identity)) domain.Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	changes, stop := p.notifier.Subscribe(Topic(cs.ID))

	go func() {
		defer stop()
		p.emitCurrent(ctx, cs, fn)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				p.emitCurrent(ctx, cs, fn)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			stop()
		})
	}
}

func (p *provider) emitCurrent(ctx context.Context, cs domain.ClientSession, fn func(*domain.Identity)) {
	id, err := p.CurrentUser(ctx, cs)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Log.Warn("failed to resolve current user", "error", err)
		id = nil
	}
	fn(id)
}

func (p *provider) bind(ctx context.Context, cs domain.ClientSession, accountID string) error {
	if cs.ID == "" {
		return apperror.Auth(apperror.CodeInternal, domain.ErrNoClientSession)
	}
	if err := p.sessions.Bind(ctx, cs.ID, accountID, p.now().Add(p.cfg.SessionTTL)); err != nil {
		return apperror.Auth(apperror.CodeInternal, err)
	}
	p.notifier.Publish(ctx, Topic(cs.ID), signedInPayload)
	return nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validEmail(s string) bool {
	return s != "" && validation.Validator().Var(s, "email,max=254") == nil
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
