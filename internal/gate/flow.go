package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rcliao/recordbook/internal/model"
	"github.com/rcliao/recordbook/internal/notify"
)

// Kind is the intent a flow carries.
type Kind string

const (
	KindAdd    Kind = "add"
	KindEdit   Kind = "edit"
	KindDelete Kind = "delete"
)

// State is a flow's position in its lifecycle.
type State string

const (
	StateClosed     State = "closed"
	StateEditing    State = "editing"    // add and edit flows while open
	StateConfirming State = "confirming" // delete flows while open
)

// Outcome reports what a Confirm did.
type Outcome struct {
	// Applied is false when the flow was already closed and nothing ran.
	Applied bool
	// Record is the created record for add flows.
	Record model.Record
	// Collection is the collection after the mutation.
	Collection model.Collection
}

// FlowView is a read-only picture of a flow for rendering.
type FlowView struct {
	ID     string       `json:"id" yaml:"id"`
	Kind   Kind         `json:"kind" yaml:"kind"`
	State  State        `json:"state" yaml:"state"`
	Target string       `json:"target,omitempty" yaml:"target,omitempty"`
	Draft  *model.Draft `json:"draft,omitempty" yaml:"draft,omitempty"`
}

// Flow is one open→resolve cycle of a user intent.
type Flow struct {
	gate *Gate
	id   string
	kind Kind

	mu     sync.Mutex
	state  State
	target string
	draft  model.Draft
}

func (f *Flow) ID() string { return f.id }
func (f *Flow) Kind() Kind { return f.kind }

// Target returns the record id an edit or delete flow acts on.
func (f *Flow) Target() string { return f.target }

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Draft returns a copy of the current draft.
func (f *Flow) Draft() model.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// View returns a snapshot of the flow.
func (f *Flow) View() FlowView {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := FlowView{ID: f.id, Kind: f.kind, State: f.state, Target: f.target}
	if f.kind != KindDelete {
		d := f.draft
		v.Draft = &d
	}
	return v
}

// SetName updates the draft name. It reports false when the flow has no
// draft to edit (delete flows, closed flows).
func (f *Flow) SetName(s string) bool {
	return f.edit(func(d *model.Draft) { d.Name = s })
}

// SetEmail updates the draft email. See SetName.
func (f *Flow) SetEmail(s string) bool {
	return f.edit(func(d *model.Draft) { d.Email = s })
}

func (f *Flow) edit(apply func(*model.Draft)) bool {
	f.mu.Lock()
	if f.state != StateEditing {
		f.mu.Unlock()
		return false
	}
	apply(&f.draft)
	f.mu.Unlock()

	f.gate.hub.Publish(notify.Event{Kind: notify.FlowDraft, FlowID: f.id, RecordID: f.target})
	return true
}

// Cancel discards the flow without touching the store. It reports false if
// the flow was already closed.
func (f *Flow) Cancel() bool {
	if !f.close() {
		return false
	}
	f.gate.forget(f.id)

	slog.Debug("flow cancelled", "flow", f.id, "kind", f.kind)
	f.gate.hub.Publish(notify.Event{Kind: notify.FlowCancelled, FlowID: f.id, RecordID: f.target})
	return true
}

// Confirm applies the flow to the store and closes it. The store is called
// at most once per flow: confirming a closed flow returns an Outcome with
// Applied false and does nothing. A backend error still closes the flow.
func (f *Flow) Confirm(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	if f.state == StateClosed {
		f.mu.Unlock()
		return Outcome{}, nil
	}
	f.state = StateClosed
	draft := f.draft
	f.mu.Unlock()
	f.gate.forget(f.id)

	out := Outcome{Applied: true}
	var err error
	s := f.gate.store
	switch f.kind {
	case KindAdd:
		out.Record, err = s.Add(ctx, draft)
		if err == nil {
			out.Collection, err = s.Snapshot(ctx)
		}
	case KindEdit:
		out.Collection, err = s.Update(ctx, f.target, draft)
	case KindDelete:
		out.Collection, err = s.Remove(ctx, f.target)
	}
	if err != nil {
		slog.Warn("flow confirm failed", "flow", f.id, "kind", f.kind, "err", err)
		return out, fmt.Errorf("confirm %s: %w", f.kind, err)
	}

	slog.Debug("flow committed", "flow", f.id, "kind", f.kind, "target", f.target)
	f.gate.hub.Publish(notify.Event{Kind: notify.FlowCommitted, FlowID: f.id, RecordID: f.recordID(out)})
	return out, nil
}

func (f *Flow) close() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateClosed {
		return false
	}
	f.state = StateClosed
	return true
}

func (f *Flow) recordID(out Outcome) string {
	if f.kind == KindAdd {
		return out.Record.ID
	}
	return f.target
}
