package antivirus

import (
	"context"
	"errors"
)

// ErrInfected is returned when a scanner reports a signature match.
var ErrInfected = errors.New("antivirus: threat detected")

// Verdict is the outcome of one scan. Threat is empty for clean content.
type Verdict struct {
	Scanner string
	Threat  string
}

// Infected reports whether the scanner matched a signature.
func (v Verdict) Infected() bool { return v.Threat != "" }

// Scanner inspects uploaded bytes before they reach the blob store.
// A non-nil error means the content could not be scanned; callers treat
// that as a rejection.
type Scanner interface {
	Scan(ctx context.Context, filename string, data []byte) (Verdict, error)
	Ping(ctx context.Context) error
}

// Nop accepts everything. It stands in when no daemon is configured.
type Nop struct{}

var _ Scanner = Nop{}

func (Nop) Scan(context.Context, string, []byte) (Verdict, error) {
	return Verdict{Scanner: "noop"}, nil
}

func (Nop) Ping(context.Context) error { return nil }
