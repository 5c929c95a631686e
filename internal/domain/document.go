package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Collections managed by the entity editors.
const (
	CollectionContacts = "usuarios"
	CollectionPosts    = "post"
	CollectionProducts = "productos"
)

// TimestampLayout is fixed width so stored timestamps sort as text.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

type serverTimestamp struct{}

// ServerTimestamp asks the document store to fill the field with its own
// clock at write time.
var ServerTimestamp = serverTimestamp{}

// Fields is the flat field map of a document.
type Fields map[string]any

type Document struct {
	ID         string
	Collection string
	Fields     Fields
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Decode copies the document fields, plus its id, into v.
func (d Document) Decode(v any) error {
	out := make(map[string]any, len(d.Fields)+1)
	for k, val := range d.Fields {
		out[k] = val
	}
	out["id"] = d.ID
	raw, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// OrderBy selects the list order. An empty Field means insertion order.
type OrderBy struct {
	Field string
	Desc  bool
}

type DocumentStore interface {
	Add(ctx context.Context, collection string, fields Fields) (string, error)
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Update merges fields into the stored document. Returns ErrNotFound
	// when the document does not exist.
	Update(ctx context.Context, collection, id string, fields Fields) error
	// Delete of a missing document succeeds.
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string, order OrderBy) ([]Document, error)
}

// Notifier fans out change signals by topic, within the process and across
// instances when a relay is configured.
type Notifier interface {
	Publish(ctx context.Context, topic, payload string)
	Subscribe(topic string) (<-chan string, func())
}

// CollectionTopic is the notifier topic that signals a collection change.
func CollectionTopic(collection string) string {
	return "collection:" + collection
}
