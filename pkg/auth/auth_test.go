package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokens(t *testing.T) {
	tokens := NewSessionTokens("secret", time.Hour)

	t.Run("round trip", func(t *testing.T) {
		raw, sid, err := tokens.Issue()
		require.NoError(t, err)
		got, err := tokens.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, sid, got)
	})

	t.Run("wrong secret", func(t *testing.T) {
		raw, _, err := NewSessionTokens("other", time.Hour).Issue()
		require.NoError(t, err)
		_, err = tokens.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidSessionToken)
	})

	t.Run("expired", func(t *testing.T) {
		old := NewSessionTokens("secret", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		raw, _, err := old.Issue()
		require.NoError(t, err)
		_, err = tokens.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidSessionToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidSessionToken)
	})
}

type googleFixture struct {
	key         *rsa.PrivateKey
	server      *httptest.Server
	idTok       string
	status      int
	certsStatus int
}

func newGoogleFixture(t *testing.T) *googleFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &googleFixture{key: key, status: http.StatusOK, certsStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/certs", func(w http.ResponseWriter, r *http.Request) {
		if f.certsStatus != http.StatusOK {
			w.WriteHeader(f.certsStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(keySet{Keys: []jsonWebKey{{
			Kid: "k1",
			Kty: "RSA",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if f.status != http.StatusOK || r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at", "id_token": f.idTok})
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *googleFixture) sign(t *testing.T, claims googleClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "k1"
	raw, err := tok.SignedString(f.key)
	require.NoError(t, err)
	return raw
}

func (f *googleFixture) oauth() *GoogleOAuth {
	return NewGoogleOAuth(GoogleConfig{
		ClientID:     "client-1",
		ClientSecret: "s",
		RedirectURL:  "http://localhost/cb",
		TokenURL:     f.server.URL + "/token",
	}, NewSigningKeys(f.server.URL+"/certs"))
}

func validClaims() googleClaims {
	return googleClaims{
		Email:         "Ana@Example.com",
		EmailVerified: true,
		Name:          "Ana",
		Picture:       "https://lh3.googleusercontent.com/a/pic",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Subject:   "g-123",
			Audience:  jwt.ClaimStrings{"client-1"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestGoogleOAuth_Exchange(t *testing.T) {
	t.Run("verified user", func(t *testing.T) {
		f := newGoogleFixture(t)
		f.idTok = f.sign(t, validClaims())

		user, err := f.oauth().Exchange(context.Background(), "good-code")
		require.NoError(t, err)
		assert.Equal(t, "g-123", user.Subject)
		assert.Equal(t, "ana@example.com", user.Email)
		assert.Equal(t, "Ana", user.Name)
	})

	t.Run("wrong audience", func(t *testing.T) {
		f := newGoogleFixture(t)
		c := validClaims()
		c.Audience = jwt.ClaimStrings{"someone-else"}
		f.idTok = f.sign(t, c)

		_, err := f.oauth().Exchange(context.Background(), "good-code")
		assert.ErrorIs(t, err, ErrInvalidIDToken)
	})

	t.Run("unverified email", func(t *testing.T) {
		f := newGoogleFixture(t)
		c := validClaims()
		c.EmailVerified = false
		f.idTok = f.sign(t, c)

		_, err := f.oauth().Exchange(context.Background(), "good-code")
		assert.ErrorIs(t, err, ErrInvalidIDToken)
	})

	t.Run("rejected code", func(t *testing.T) {
		f := newGoogleFixture(t)
		_, err := f.oauth().Exchange(context.Background(), "bad-code")
		assert.ErrorIs(t, err, ErrGoogleRejected)
	})

	t.Run("key set outage reads as unreachable", func(t *testing.T) {
		f := newGoogleFixture(t)
		f.idTok = f.sign(t, validClaims())
		f.certsStatus = http.StatusServiceUnavailable

		_, err := f.oauth().Exchange(context.Background(), "good-code")
		assert.ErrorIs(t, err, ErrGoogleUnreachable)
	})

	t.Run("unreachable", func(t *testing.T) {
		f := newGoogleFixture(t)
		g := f.oauth()
		f.server.Close()

		_, err := g.Exchange(context.Background(), "good-code")
		assert.True(t, errors.Is(err, ErrGoogleUnreachable))
	})
}

func TestGoogleOAuth_ConsentURL(t *testing.T) {
	g := NewGoogleOAuth(GoogleConfig{ClientID: "client-1", ClientSecret: "s", RedirectURL: "http://localhost/cb"}, nil)

	raw, err := g.ConsentURL("st4te")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "st4te", u.Query().Get("state"))
	assert.Equal(t, "client-1", u.Query().Get("client_id"))
	assert.Equal(t, "openid email profile", u.Query().Get("scope"))
	assert.Equal(t, "select_account", u.Query().Get("prompt"))
	assert.Equal(t, "code", u.Query().Get("response_type"))

	_, err = NewGoogleOAuth(GoogleConfig{}, nil).ConsentURL("x")
	assert.ErrorIs(t, err, ErrGoogleNotConfigured)
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}
