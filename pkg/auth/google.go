package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

var (
	ErrGoogleNotConfigured = errors.New("google sign-in not configured")
	// ErrGoogleUnreachable wraps transport failures talking to Google's
	// token or key endpoints.
	ErrGoogleUnreachable = errors.New("google endpoint unreachable")
	ErrGoogleRejected    = errors.New("google rejected the authorization code")
	ErrInvalidIDToken    = errors.New("invalid google id_token")
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Overridable for tests
	AuthURL  string
	TokenURL string
}

// GoogleUser is the verified subset of the id_token claims.
type GoogleUser struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// GoogleOAuth runs the authorization-code flow and verifies the returned
// id_token against Google's published keys.
type GoogleOAuth struct {
	oauth  *oauth2.Config
	keys   *SigningKeys
	client *http.Client
}

func NewGoogleOAuth(config GoogleConfig, keys *SigningKeys) *GoogleOAuth {
	endpoint := endpoints.Google
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	if config.AuthURL != "" {
		endpoint.AuthURL = config.AuthURL
	}
	if config.TokenURL != "" {
		endpoint.TokenURL = config.TokenURL
	}
	return &GoogleOAuth{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		keys:   keys,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *GoogleOAuth) Configured() bool {
	return g != nil && g.oauth.ClientID != "" && g.oauth.ClientSecret != ""
}

// ConsentURL builds the Google consent screen URL carrying state.
func (g *GoogleOAuth) ConsentURL(state string) (string, error) {
	if !g.Configured() {
		return "", ErrGoogleNotConfigured
	}
	return g.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account")), nil
}

// Exchange trades the authorization code for tokens and returns the verified user.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	if !g.Configured() {
		return nil, ErrGoogleNotConfigured
	}

	token, err := g.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, g.client), code)
	if err != nil {
		var rejected *oauth2.RetrieveError
		if errors.As(err, &rejected) {
			return nil, fmt.Errorf("%w: status %d: %s", ErrGoogleRejected, rejected.Response.StatusCode, rejected.ErrorCode)
		}
		return nil, fmt.Errorf("%w: %v", ErrGoogleUnreachable, err)
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, fmt.Errorf("%w: empty id_token", ErrGoogleRejected)
	}
	return g.verifyIDToken(ctx, idToken)
}

func (g *GoogleOAuth) verifyIDToken(ctx context.Context, raw string) (*GoogleUser, error) {
	claims := &googleClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, g.keys.Keyfunc(ctx),
		jwt.WithAudience(g.oauth.ClientID),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		// A key set fetch failure keeps ErrGoogleUnreachable in the chain.
		return nil, fmt.Errorf("%w: %w", ErrInvalidIDToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidIDToken
	}
	if !validIssuer(claims.Issuer) {
		return nil, fmt.Errorf("%w: issuer %q", ErrInvalidIDToken, claims.Issuer)
	}
	if claims.Subject == "" || claims.Email == "" || !claims.EmailVerified {
		return nil, fmt.Errorf("%w: unverified email", ErrInvalidIDToken)
	}
	return &GoogleUser{
		Subject: claims.Subject,
		Email:   strings.ToLower(claims.Email),
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

func validIssuer(iss string) bool {
	for _, v := range googleIssuers {
		if iss == v {
			return true
		}
	}
	return false
}

// NewState returns a random URL-safe OAuth state value.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
