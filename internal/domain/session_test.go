package domain_test

import (
	"testing"
	"time"

	"go-panel-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestMergeSession(t *testing.T) {
	id := &domain.Identity{UID: "u1", Email: "old@x.com", DisplayName: "Ana G", PhotoURL: "https://img/a.png"}

	t.Run("nil identity yields no session", func(t *testing.T) {
		assert.Nil(t, domain.MergeSession(nil, &domain.Profile{UID: "u1"}))
	})

	t.Run("missing profile falls back to identity alone", func(t *testing.T) {
		s := domain.MergeSession(id, nil)
		assert.Equal(t, &domain.Session{UID: "u1", Email: "old@x.com", DisplayName: "Ana G", PhotoURL: "https://img/a.png"}, s)
	})

	t.Run("profile wins on collisions", func(t *testing.T) {
		created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		s := domain.MergeSession(id, &domain.Profile{
			UID: "u1", Email: "a@x.com", Username: "Ana", Avatar: "", Provider: domain.ProviderPassword, CreatedAt: created,
		})
		assert.Equal(t, "a@x.com", s.Email)
		assert.Equal(t, "Ana", s.Username)
		assert.Equal(t, "", s.Avatar)
		assert.Equal(t, domain.ProviderPassword, s.Provider)
		assert.Equal(t, created, *s.CreatedAt)
		assert.Equal(t, "Ana G", s.DisplayName)
	})

	t.Run("empty profile values do not clobber identity", func(t *testing.T) {
		s := domain.MergeSession(id, &domain.Profile{Username: "ana"})
		assert.Equal(t, "u1", s.UID)
		assert.Equal(t, "old@x.com", s.Email)
		assert.Nil(t, s.CreatedAt)
	})
}

func TestDocumentDecode(t *testing.T) {
	doc := domain.Document{
		ID: "p1",
		Fields: domain.Fields{
			"titulo":   "Lámpara",
			"precio":   19.5,
			"creadoEn": "2025-03-01T10:00:00.000000Z",
		},
	}
	var p domain.Product
	assert.NoError(t, doc.Decode(&p))
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, 19.5, p.Precio)
	assert.Equal(t, 2025, p.CreadoEn.Year())
}

func TestSubscriptionUnsubscribeIsIdempotent(t *testing.T) {
	calls := 0
	sub := domain.NewSubscription[domain.Post](make(chan []domain.Post), func() { calls++ })
	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 1, calls)
}
