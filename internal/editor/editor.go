// Package editor runs the live entity editors: one event loop per client
// connection, applying list snapshots, client commands and completions of
// in-flight writes in order.
package editor

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"go-panel-backend/internal/domain"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/logger"
	"go-panel-backend/pkg/metrics"
)

// Command types accepted from the client.
const (
	CmdBeginEdit     = "begin_edit"
	CmdChange        = "change"
	CmdCancel        = "cancel"
	CmdSave          = "save"
	CmdCreate        = "create"
	CmdDelete        = "delete"
	CmdConfirmDelete = "confirm_delete"
	CmdCancelDelete  = "cancel_delete"
)

const msgUnknownCommand = "Acción no reconocida."

// Adapter binds an editor to one collection.
type Adapter[T, D any] struct {
	Collection string
	ID         func(T) string
	Draft      func(T) D
	Subscribe  func(ctx context.Context) *domain.Subscription[T]
	// Validate is the local required-field check run before any write.
	Validate func(d D, image *domain.Upload, creating bool) error
	Create   func(ctx context.Context, d D, image *domain.Upload) error
	Update   func(ctx context.Context, id string, d D, image *domain.Upload) error
	Delete   func(ctx context.Context, id string) error
}

type ImagePayload struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

type Command struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	Draft json.RawMessage `json:"draft,omitempty"`
	Image *ImagePayload   `json:"image,omitempty"`
}

// View is everything a client needs to render the editor.
type View[T, D any] struct {
	Collection    string      `json:"collection"`
	Ready         bool        `json:"ready"`
	Rows          []Row[T, D] `json:"rows"`
	Creating      bool        `json:"creating"`
	PendingDelete string      `json:"pendingDelete,omitempty"`
	Message       string      `json:"message,omitempty"`
}

type Editor[T, D any] struct {
	adapter Adapter[T, D]
	metrics metrics.Recorder

	rows          []*Row[T, D]
	ready         bool
	creating      bool
	pendingDelete string
	message       string

	completions chan func()
	alive       atomic.Bool
}

func New[T, D any](adapter Adapter[T, D], rec metrics.Recorder) *Editor[T, D] {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Editor[T, D]{
		adapter:     adapter,
		metrics:     rec,
		completions: make(chan func()),
	}
}

// Run owns the editor state until ctx ends or commands is closed. render is
// called on the loop goroutine after every change. The list subscription is
// released exactly once on return.
func (e *Editor[T, D]) Run(ctx context.Context, commands <-chan Command, render func(View[T, D])) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.alive.Store(true)
	defer e.alive.Store(false)

	sub := e.adapter.Subscribe(ctx)
	defer sub.Unsubscribe()
	snapshots := sub.Snapshots()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case items, ok := <-snapshots:
			if !ok {
				return nil
			}
			e.applySnapshot(items)
		case cmd, ok := <-commands:
			if !ok {
				return nil
			}
			e.handle(ctx, cmd)
		case apply := <-e.completions:
			apply()
		}
		render(e.view())
	}
}

// dispatch runs op off the loop. In-flight writes are never cancelled; a
// completion arriving after the editor stopped is dropped.
func (e *Editor[T, D]) dispatch(ctx context.Context, command string, op func(context.Context) error, apply func(error)) {
	writeCtx := context.WithoutCancel(ctx)
	go func() {
		err := op(writeCtx)
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		e.metrics.RecordEditorCommand(e.adapter.Collection, command, outcome)

		select {
		case e.completions <- func() {
			if e.alive.Load() {
				apply(err)
			}
		}:
		case <-ctx.Done():
			logger.Log.Debug("editor gone, dropping completion", "collection", e.adapter.Collection, "command", command)
		}
	}()
}

func (e *Editor[T, D]) handle(ctx context.Context, cmd Command) {
	e.message = ""
	var err error

	switch cmd.Type {
	case CmdBeginEdit:
		err = e.withRow(cmd.ID, func(r *Row[T, D]) error {
			return r.BeginEdit(e.adapter.Draft(r.Record))
		})
	case CmdChange:
		var d D
		if err = json.Unmarshal(cmd.Draft, &d); err == nil {
			err = e.withRow(cmd.ID, func(r *Row[T, D]) error { return r.SetDraft(d) })
		}
	case CmdCancel:
		err = e.withRow(cmd.ID, func(r *Row[T, D]) error { return r.Cancel() })
	case CmdSave:
		err = e.save(ctx, cmd)
	case CmdCreate:
		err = e.create(ctx, cmd)
	case CmdDelete:
		err = e.withRow(cmd.ID, func(r *Row[T, D]) error {
			e.pendingDelete = cmd.ID
			return nil
		})
	case CmdConfirmDelete:
		err = e.confirmDelete(ctx, cmd.ID)
	case CmdCancelDelete:
		e.pendingDelete = ""
	default:
		e.message = msgUnknownCommand
		err = ErrInvalidTransition
	}

	if err != nil {
		e.metrics.RecordEditorCommand(e.adapter.Collection, cmd.Type, "rejected")
		logger.Log.Debug("editor command rejected", "collection", e.adapter.Collection, "command", cmd.Type, "id", cmd.ID, "error", err)
	}
}

func (e *Editor[T, D]) save(ctx context.Context, cmd Command) error {
	row := e.find(cmd.ID)
	if row == nil {
		return ErrInvalidTransition
	}
	if len(cmd.Draft) > 0 {
		var d D
		if err := json.Unmarshal(cmd.Draft, &d); err != nil {
			return err
		}
		if err := row.SetDraft(d); err != nil {
			return err
		}
	}

	image := cmd.Image.upload()
	draft, err := row.StartSave(func(d D) error { return e.adapter.Validate(d, image, false) })
	if err != nil {
		return err
	}

	id := cmd.ID
	e.dispatch(ctx, CmdSave,
		func(ctx context.Context) error { return e.adapter.Update(ctx, id, draft, image) },
		func(err error) {
			row := e.find(id)
			if row == nil {
				return
			}
			if err != nil {
				row.SaveFailed(apperror.UserMessage(err))
				return
			}
			row.SaveSucceeded()
		})
	return nil
}

func (e *Editor[T, D]) create(ctx context.Context, cmd Command) error {
	if e.creating {
		return ErrInvalidTransition
	}
	var d D
	if err := json.Unmarshal(cmd.Draft, &d); err != nil {
		e.message = apperror.MsgUnexpected
		return err
	}
	image := cmd.Image.upload()
	if err := e.adapter.Validate(d, image, true); err != nil {
		e.message = apperror.UserMessage(err)
		return err
	}

	e.creating = true
	e.dispatch(ctx, CmdCreate,
		func(ctx context.Context) error { return e.adapter.Create(ctx, d, image) },
		func(err error) {
			e.creating = false
			if err != nil {
				e.message = apperror.UserMessage(err)
			}
		})
	return nil
}

func (e *Editor[T, D]) confirmDelete(ctx context.Context, id string) error {
	if id == "" || e.pendingDelete != id {
		return ErrInvalidTransition
	}
	e.pendingDelete = ""
	e.dispatch(ctx, CmdDelete,
		func(ctx context.Context) error { return e.adapter.Delete(ctx, id) },
		func(err error) {
			if err == nil {
				return
			}
			if row := e.find(id); row != nil {
				row.Error = apperror.UserMessage(err)
				return
			}
			e.message = apperror.UserMessage(err)
		})
	return nil
}

// applySnapshot replaces the list, keeping the edit state of rows that are
// still present.
func (e *Editor[T, D]) applySnapshot(items []T) {
	rows := make([]*Row[T, D], 0, len(items))
	for _, item := range items {
		id := e.adapter.ID(item)
		if existing := e.find(id); existing != nil {
			existing.Record = item
			rows = append(rows, existing)
			continue
		}
		rows = append(rows, &Row[T, D]{Record: item, State: Viewing})
	}
	e.rows = rows
	e.ready = true
	if e.pendingDelete != "" && e.find(e.pendingDelete) == nil {
		e.pendingDelete = ""
	}
}

func (e *Editor[T, D]) find(id string) *Row[T, D] {
	for _, r := range e.rows {
		if e.adapter.ID(r.Record) == id {
			return r
		}
	}
	return nil
}

func (e *Editor[T, D]) withRow(id string, fn func(*Row[T, D]) error) error {
	row := e.find(id)
	if row == nil {
		return ErrInvalidTransition
	}
	return fn(row)
}

func (e *Editor[T, D]) view() View[T, D] {
	rows := make([]Row[T, D], len(e.rows))
	for i, r := range e.rows {
		rows[i] = *r
		if r.Draft != nil {
			d := *r.Draft
			rows[i].Draft = &d
		}
	}
	return View[T, D]{
		Collection:    e.adapter.Collection,
		Ready:         e.ready,
		Rows:          rows,
		Creating:      e.creating,
		PendingDelete: e.pendingDelete,
		Message:       e.message,
	}
}

func (p *ImagePayload) upload() *domain.Upload {
	if p == nil || len(p.Data) == 0 {
		return nil
	}
	return &domain.Upload{Filename: p.Filename, Data: p.Data}
}
