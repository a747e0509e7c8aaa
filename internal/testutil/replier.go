package testutil

import (
	"context"
	"sync"

	"github.com/roach88/guildscript/internal/ir"
)

// RecordingReplier collects every reply it receives.
type RecordingReplier struct {
	mu      sync.Mutex
	replies []ir.Value
	err     error
}

// Reply implements script.Replier.
func (r *RecordingReplier) Reply(_ context.Context, v ir.Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.replies = append(r.replies, v)
	return nil
}

// FailWith makes every later Reply return err.
func (r *RecordingReplier) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Replies returns a copy of the collected replies.
func (r *RecordingReplier) Replies() []ir.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ir.Value(nil), r.replies...)
}
