package surface

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// WriterPublisher writes every publish and retract as one JSON line.
type WriterPublisher struct {
	mu  sync.Mutex
	enc *json.Encoder
}

type event struct {
	Op      string        `json:"op"`
	Tenant  string        `json:"tenant"`
	Command *GroupCommand `json:"command,omitempty"`
}

// NewWriterPublisher returns a publisher writing to w.
func NewWriterPublisher(w io.Writer) *WriterPublisher {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &WriterPublisher{enc: enc}
}

// Publish implements Publisher.
func (p *WriterPublisher) Publish(_ context.Context, tenant string, cmd GroupCommand) error {
	return p.write(event{Op: "publish", Tenant: tenant, Command: &cmd})
}

// Retract implements Publisher.
func (p *WriterPublisher) Retract(_ context.Context, tenant string) error {
	return p.write(event{Op: "retract", Tenant: tenant})
}

func (p *WriterPublisher) write(e event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.Encode(e)
}
