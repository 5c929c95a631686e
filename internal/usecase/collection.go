package usecase

import (
	"context"
	"errors"

	"go-panel-backend/internal/domain"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/logger"
	"go-panel-backend/pkg/metrics"
)

// collection is the typed view of one document collection shared by the
// entity editors.
type collection[T any] struct {
	name     string
	store    domain.DocumentStore
	notifier domain.Notifier
	order    domain.OrderBy
	metrics  metrics.Recorder
}

func (c *collection[T]) list(ctx context.Context) ([]T, error) {
	docs, err := c.store.List(ctx, c.name, c.order)
	if err != nil {
		logger.Log.Error("failed to list collection", "collection", c.name, "error", err)
		return nil, apperror.Persistence("", err)
	}

	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := doc.Decode(&item); err != nil {
			logger.Log.Warn("skipping undecodable document", "collection", c.name, "id", doc.ID, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// subscribe streams a full snapshot now and after every change signal. An
// unread snapshot is replaced by the newer one.
func (c *collection[T]) subscribe(ctx context.Context) *domain.Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	signals, stop := c.notifier.Subscribe(domain.CollectionTopic(c.name))
	out := make(chan []T, 1)
	c.metrics.SubscriptionOpened(c.name)

	go func() {
		defer c.metrics.SubscriptionClosed(c.name)
		defer close(out)
		defer stop()

		publish := func() {
			items, err := c.list(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Log.Warn("snapshot skipped", "collection", c.name, "error", err)
				}
				return
			}
			select {
			case <-out:
			default:
			}
			out <- items
		}

		publish()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				publish()
			}
		}
	}()

	return domain.NewSubscription(out, cancel)
}

func (c *collection[T]) get(ctx context.Context, id string) (*T, error) {
	doc, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return nil, persistenceError(c.name, "get", id, err)
	}
	var item T
	if err := doc.Decode(&item); err != nil {
		return nil, apperror.Persistence("", err)
	}
	return &item, nil
}

func (c *collection[T]) add(ctx context.Context, fields domain.Fields) (string, error) {
	id, err := c.store.Add(ctx, c.name, fields)
	if err != nil {
		return "", persistenceError(c.name, "add", "", err)
	}
	return id, nil
}

func (c *collection[T]) update(ctx context.Context, id string, fields domain.Fields) error {
	if err := c.store.Update(ctx, c.name, id, fields); err != nil {
		return persistenceError(c.name, "update", id, err)
	}
	return nil
}

func (c *collection[T]) delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, c.name, id); err != nil {
		return persistenceError(c.name, "delete", id, err)
	}
	return nil
}

func persistenceError(collection, op, id string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperror.PersistenceNotFound(err)
	}
	logger.Log.Error("document write failed", "collection", collection, "op", op, "id", id, "error", err)
	return apperror.Persistence("", err)
}
