// Package gate implements the confirmation protocol between user intents and
// store mutations.
//
// Every add, edit or delete goes through a Flow. A flow holds its own Draft
// (or target id for deletes), touches the store exactly once when confirmed,
// and is closed afterwards whether it was confirmed or cancelled.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rcliao/recordbook/internal/model"
	"github.com/rcliao/recordbook/internal/notify"
	"github.com/rcliao/recordbook/internal/store"
)

// Gate opens flows against a store and tracks the ones still open.
type Gate struct {
	store store.Store
	ids   IDGenerator
	hub   notify.Hub

	mu    sync.Mutex
	open  map[string]*Flow
	order []string
}

// Option configures a Gate.
type Option func(*Gate)

// WithIDGenerator sets the flow id source. Defaults to ULIDs.
func WithIDGenerator(g IDGenerator) Option {
	return func(gt *Gate) { gt.ids = g }
}

// New returns a gate mutating s.
func New(s store.Store, opts ...Option) *Gate {
	g := &Gate{
		store: s,
		open:  map[string]*Flow{},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.ids == nil {
		g.ids = NewULIDGenerator()
	}
	return g
}

// OpenAdd opens an add flow with an empty draft.
func (g *Gate) OpenAdd() *Flow {
	return g.register(&Flow{kind: KindAdd, state: StateEditing})
}

// OpenEdit opens an edit flow whose draft starts from the record's current
// name and email. If id does not exist the draft starts empty and confirming
// it is a no-op update.
func (g *Gate) OpenEdit(ctx context.Context, id string) (*Flow, error) {
	rec, ok, err := g.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open edit %s: %w", id, err)
	}
	f := &Flow{kind: KindEdit, state: StateEditing, target: id}
	if ok {
		f.draft = model.DraftOf(rec)
	}
	return g.register(f), nil
}

// OpenDelete opens a delete confirmation for id. The target is fixed here.
func (g *Gate) OpenDelete(id string) *Flow {
	return g.register(&Flow{kind: KindDelete, state: StateConfirming, target: id})
}

// Flow returns an open flow by id.
func (g *Gate) Flow(flowID string) (*Flow, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, ok := g.open[flowID]
	return f, ok
}

// Open returns views of all open flows in the order they were opened.
func (g *Gate) Open() []FlowView {
	g.mu.Lock()
	flows := make([]*Flow, 0, len(g.order))
	for _, id := range g.order {
		flows = append(flows, g.open[id])
	}
	g.mu.Unlock()

	views := make([]FlowView, len(flows))
	for i, f := range flows {
		views[i] = f.View()
	}
	return views
}

// Subscribe registers fn for flow events and returns its cancel func.
func (g *Gate) Subscribe(fn notify.Func) func() {
	return g.hub.Subscribe(fn)
}

func (g *Gate) register(f *Flow) *Flow {
	f.gate = g
	f.id = g.ids.Generate()

	g.mu.Lock()
	g.open[f.id] = f
	g.order = append(g.order, f.id)
	g.mu.Unlock()

	slog.Debug("flow opened", "flow", f.id, "kind", f.kind, "target", f.target)
	g.hub.Publish(notify.Event{Kind: notify.FlowOpened, FlowID: f.id, RecordID: f.target})
	return f
}

func (g *Gate) forget(flowID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.open, flowID)
	for i, id := range g.order {
		if id == flowID {
			g.order = append(g.order[:i:i], g.order[i+1:]...)
			break
		}
	}
}
