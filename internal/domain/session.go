package domain

import (
	"context"
	"time"
)

// Sign-up method tags stored on profiles.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// Identity is what the identity provider knows about a signed-in account.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// Profile is the stored record keyed by the identity id.
type Profile struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is the merged view handed to consumers: either absent (nil) or
// fully composed.
type Session struct {
	UID         string     `json:"uid"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName,omitempty"`
	PhotoURL    string     `json:"photoURL,omitempty"`
	Username    string     `json:"username,omitempty"`
	Avatar      string     `json:"avatar"`
	Provider    string     `json:"provider,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// MergeSession overlays the profile on the identity. Profile values win on
// uid and email when they are set. A nil profile yields the identity alone.
func MergeSession(id *Identity, p *Profile) *Session {
	if id == nil {
		return nil
	}
	s := &Session{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
	}
	if p == nil {
		return s
	}
	if p.UID != "" {
		s.UID = p.UID
	}
	if p.Email != "" {
		s.Email = p.Email
	}
	s.Username = p.Username
	s.Avatar = p.Avatar
	s.Provider = p.Provider
	if !p.CreatedAt.IsZero() {
		createdAt := p.CreatedAt
		s.CreatedAt = &createdAt
	}
	return s
}

// ClientSession identifies one client's sign-in slot. It is passed
// explicitly to every session operation.
type ClientSession struct {
	ID        string
	IP        string
	UserAgent string
}

// Unsubscribe stops a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

type RegisterInput struct {
	Email    string  `json:"email" form:"email"`
	Password string  `json:"password" form:"password"`
	Username string  `json:"username" form:"username" validate:"max=60"`
	Avatar   *Upload `json:"-" form:"-"`
}

// Screen is one navigable area of the shell.
type Screen struct {
	Key             string `json:"key"`
	Title           string `json:"title"`
	Path            string `json:"path"`
	RequiresSession bool   `json:"requiresSession"`
}

// Shell tells a client which screens to render and whether to prompt for login.
type Shell struct {
	Screens   []Screen `json:"screens"`
	Session   *Session `json:"session"`
	ShowLogin bool     `json:"showLogin"`
}

type IdentityProvider interface {
	CreateUser(ctx context.Context, cs ClientSession, email, password string) (*Identity, error)
	SignIn(ctx context.Context, cs ClientSession, email, password string) (*Identity, error)
	GoogleConsentURL(state string) (string, error)
	SignInWithGoogle(ctx context.Context, cs ClientSession, code string) (*Identity, error)
	SendPasswordResetEmail(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	SignOut(ctx context.Context, cs ClientSession) error
	// CurrentUser returns nil, nil when the slot is signed out.
	CurrentUser(ctx context.Context, cs ClientSession) (*Identity, error)
	// OnAuthStateChanged calls fn with the current identity right away and
	// after every sign-in or sign-out on the slot.
	OnAuthStateChanged(ctx context.Context, cs ClientSession, fn func(*Identity)) Unsubscribe
}

type ProfileRepository interface {
	GetByUID(ctx context.Context, uid string) (*Profile, error)
	Create(ctx context.Context, profile *Profile) error
}

type SessionUsecase interface {
	ObserveSession(ctx context.Context, cs ClientSession, fn func(*Session)) Unsubscribe
	Register(ctx context.Context, cs ClientSession, input RegisterInput) (*Session, error)
	Login(ctx context.Context, cs ClientSession, email, password string) (*Session, error)
	GoogleConsentURL(state string) (string, error)
	LoginWithGoogle(ctx context.Context, cs ClientSession, code string) (*Session, error)
	ResetPassword(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	Logout(ctx context.Context, cs ClientSession) error
	CurrentSession(ctx context.Context, cs ClientSession) (*Session, error)
	LoadFullSession(ctx context.Context, id *Identity) *Session
	Shell(ctx context.Context, cs ClientSession) *Shell
}
