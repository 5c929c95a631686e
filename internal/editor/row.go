package editor

import (
	"errors"

	"go-panel-backend/pkg/apperror"
)

// State is where a row sits in viewing → editing → saving → viewing.
type State string

const (
	Viewing State = "viewing"
	Editing State = "editing"
	Saving  State = "saving"
)

var ErrInvalidTransition = errors.New("invalid row transition")

// Row is a record plus its local edit state. Draft is only set while the
// row is editing or saving.
type Row[T, D any] struct {
	Record T      `json:"record"`
	State  State  `json:"state"`
	Draft  *D     `json:"draft,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BeginEdit seeds the draft from the current record.
func (r *Row[T, D]) BeginEdit(seed D) error {
	if r.State != Viewing {
		return ErrInvalidTransition
	}
	r.State = Editing
	r.Draft = &seed
	r.Error = ""
	return nil
}

func (r *Row[T, D]) SetDraft(d D) error {
	if r.State != Editing {
		return ErrInvalidTransition
	}
	r.Draft = &d
	return nil
}

// Cancel discards the draft. The record is untouched.
func (r *Row[T, D]) Cancel() error {
	if r.State != Editing {
		return ErrInvalidTransition
	}
	r.State = Viewing
	r.Draft = nil
	r.Error = ""
	return nil
}

// StartSave enters saving only when validate accepts the draft. A rejected
// draft stays in editing with the validation message.
func (r *Row[T, D]) StartSave(validate func(D) error) (D, error) {
	var zero D
	if r.State != Editing || r.Draft == nil {
		return zero, ErrInvalidTransition
	}
	if validate != nil {
		if err := validate(*r.Draft); err != nil {
			r.Error = apperror.UserMessage(err)
			return zero, err
		}
	}
	r.State = Saving
	r.Error = ""
	return *r.Draft, nil
}

func (r *Row[T, D]) SaveSucceeded() {
	if r.State != Saving {
		return
	}
	r.State = Viewing
	r.Draft = nil
	r.Error = ""
}

// SaveFailed returns to editing with the draft intact.
func (r *Row[T, D]) SaveFailed(msg string) {
	if r.State != Saving {
		return
	}
	r.State = Editing
	r.Error = msg
}
