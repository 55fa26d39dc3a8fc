package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/recordbook/internal/model"
	"github.com/rcliao/recordbook/internal/notify"
	"github.com/rcliao/recordbook/internal/store"
)

func newTestGate(t *testing.T) (*Gate, *store.MemStore) {
	t.Helper()
	s := store.NewMemStore()
	return New(s, WithIDGenerator(NewFixedGenerator())), s
}

func snapshot(t *testing.T, s store.Store) model.Collection {
	t.Helper()
	c, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	return c
}

// seed adds Ana and Bo through add flows.
func seed(t *testing.T, g *Gate) {
	t.Helper()
	ctx := context.Background()
	for _, d := range []model.Draft{{Name: "Ana", Email: "a@x.com"}, {Name: "Bo", Email: "b@x.com"}} {
		f := g.OpenAdd()
		f.SetName(d.Name)
		f.SetEmail(d.Email)
		_, err := f.Confirm(ctx)
		require.NoError(t, err)
	}
}

func TestAddFlowCommits(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGate(t)

	f := g.OpenAdd()
	assert.Equal(t, KindAdd, f.Kind())
	assert.Equal(t, StateEditing, f.State())
	assert.Equal(t, model.Draft{}, f.Draft())

	require.True(t, f.SetName("Ana"))
	require.True(t, f.SetEmail("a@x.com"))
	assert.Empty(t, snapshot(t, s), "draft leaked before confirm")

	out, err := f.Confirm(ctx)
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, model.Record{ID: "0", Name: "Ana", Email: "a@x.com"}, out.Record)
	assert.Equal(t, model.Collection{out.Record}, out.Collection)
	assert.Equal(t, StateClosed, f.State())

	f2 := g.OpenAdd()
	f2.SetName("Bo")
	f2.SetEmail("b@x.com")
	out, err = f2.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", out.Record.ID)
}

func TestAddFlowCancelLeavesStoreUntouched(t *testing.T) {
	g, s := newTestGate(t)
	seed(t, g)
	before := snapshot(t, s)

	f := g.OpenAdd()
	f.SetName("Cy")
	require.True(t, f.Cancel())

	assert.Equal(t, before, snapshot(t, s))
	st, _ := s.Stats(context.Background())
	assert.Equal(t, "2", st.NextID, "cancel must not consume an id")
}

func TestAddFlowStartsFromCleanDraft(t *testing.T) {
	g, _ := newTestGate(t)

	f := g.OpenAdd()
	f.SetName("leftover")
	f.SetEmail("leftover@x.com")
	f.Cancel()

	assert.Equal(t, model.Draft{}, g.OpenAdd().Draft())
}

func TestEditFlowCommits(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGate(t)
	seed(t, g)

	f, err := g.OpenEdit(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, model.Draft{Name: "Ana", Email: "a@x.com"}, f.Draft())

	f.SetName("Ana K")
	out, err := f.Confirm(ctx)
	require.NoError(t, err)
	assert.True(t, out.Applied)

	want := model.Collection{
		{ID: "0", Name: "Ana K", Email: "a@x.com"},
		{ID: "1", Name: "Bo", Email: "b@x.com"},
	}
	assert.Equal(t, want, out.Collection)
	assert.Equal(t, want, snapshot(t, s))
}

func TestEditFlowCancel(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGate(t)
	seed(t, g)
	before := snapshot(t, s)

	f, err := g.OpenEdit(ctx, "1")
	require.NoError(t, err)
	f.SetName("Bo X")
	assert.Equal(t, "Bo", snapshot(t, s)[1].Name, "draft leaked before confirm")
	require.True(t, f.Cancel())

	after := snapshot(t, s)
	assert.Equal(t, before, after)
	assert.Equal(t, "Bo", after[1].Name)
}

func TestEditFlowReadsCurrentRecordOnOpen(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGate(t)
	seed(t, g)

	f, _ := g.OpenEdit(ctx, "1")
	f.SetName("Bo X")
	f.Cancel()

	first, _ := g.OpenEdit(ctx, "0")
	first.SetName("Ana K")
	_, err := first.Confirm(ctx)
	require.NoError(t, err)

	again, _ := g.OpenEdit(ctx, "1")
	assert.Equal(t, model.Draft{Name: "Bo", Email: "b@x.com"}, again.Draft(), "carried over cancelled draft")

	ana, _ := g.OpenEdit(ctx, "0")
	assert.Equal(t, "Ana K", ana.Draft().Name)
}

func TestEditFlowOnMissingRecord(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGate(t)
	seed(t, g)
	before := snapshot(t, s)

	f, err := g.OpenEdit(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, model.Draft{}, f.Draft())
	f.SetName("ghost")

	out, err := f.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, out.Collection)
	assert.Equal(t, before, snapshot(t, s))
}

func TestEditFlowTargetRemovedBeforeConfirm(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGate(t)
	seed(t, g)

	edit, _ := g.OpenEdit(ctx, "0")
	edit.SetName("Ana K")

	del := g.OpenDelete("0")
	_, err := del.Confirm(ctx)
	require.NoError(t, err)

	_, err = edit.Confirm(ctx)
	require.NoError(t, err)

	assert.Equal(t, model.Collection{{ID: "1", Name: "Bo", Email: "b@x.com"}}, snapshot(t, s))
}

func TestDeleteFlow(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGate(t)
	seed(t, g)

	f := g.OpenDelete("0")
	assert.Equal(t, StateConfirming, f.State())
	assert.Equal(t, "0", f.Target())
	assert.False(t, f.SetName("x"), "delete flows have no draft")

	out, err := f.Confirm(ctx)
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, model.Collection{{ID: "1", Name: "Bo", Email: "b@x.com"}}, snapshot(t, s))

	f = g.OpenAdd()
	f.SetName("Cy")
	f.SetEmail("c@x.com")
	out, err = f.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", out.Record.ID)
}

func TestDeleteFlowCancel(t *testing.T) {
	g, s := newTestGate(t)
	seed(t, g)
	before := snapshot(t, s)

	require.True(t, g.OpenDelete("1").Cancel())
	assert.Equal(t, before, snapshot(t, s))
}

func TestDeleteTargetFixedAcrossConcurrentEdit(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGate(t)
	seed(t, g)

	del := g.OpenDelete("1")

	edit, _ := g.OpenEdit(ctx, "1")
	edit.SetName("Bo X")
	_, err := edit.Confirm(ctx)
	require.NoError(t, err)

	_, err = del.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, snapshot(t, s).IDs())
}

func TestConfirmTwiceAppliesOnce(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGate(t)

	f := g.OpenAdd()
	f.SetName("Ana")
	_, err := f.Confirm(ctx)
	require.NoError(t, err)

	out, err := f.Confirm(ctx)
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Len(t, snapshot(t, s), 1)

	assert.False(t, f.Cancel(), "closed flow cannot be cancelled")
	assert.False(t, f.SetName("late"), "closed flow cannot be edited")
}

func TestConfirmAfterCancelIsNoop(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGate(t)
	seed(t, g)

	f := g.OpenDelete("0")
	f.Cancel()
	out, err := f.Confirm(ctx)
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Len(t, snapshot(t, s), 2)
}

func TestSimultaneousFlowsHaveIndependentDrafts(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGate(t)
	seed(t, g)

	a, _ := g.OpenEdit(ctx, "0")
	b, _ := g.OpenEdit(ctx, "0")
	a.SetName("from a")
	b.SetEmail("b@elsewhere")

	assert.Equal(t, model.Draft{Name: "from a", Email: "a@x.com"}, a.Draft())
	assert.Equal(t, model.Draft{Name: "Ana", Email: "b@elsewhere"}, b.Draft())

	d := a.Draft()
	d.Name = "mutated copy"
	assert.Equal(t, "from a", a.Draft().Name)

	_, err := a.Confirm(ctx)
	require.NoError(t, err)
	_, err = b.Confirm(ctx)
	require.NoError(t, err)

	// Last confirm wins; both were applied in confirmation order.
	assert.Equal(t, model.Record{ID: "0", Name: "Ana", Email: "b@elsewhere"}, snapshot(t, s)[0])
}

func TestOpenFlowsTracking(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	g := New(s, WithIDGenerator(NewFixedGenerator("f1", "f2", "f3")))
	first := g.OpenAdd()
	first.SetName("Ana")
	first.Confirm(ctx)

	edit, _ := g.OpenEdit(ctx, "0")
	del := g.OpenDelete("0")

	views := g.Open()
	require.Len(t, views, 2)
	assert.Equal(t, FlowView{ID: "f2", Kind: KindEdit, State: StateEditing, Target: "0", Draft: &model.Draft{Name: "Ana"}}, views[0])
	assert.Equal(t, FlowView{ID: "f3", Kind: KindDelete, State: StateConfirming, Target: "0"}, views[1])

	got, ok := g.Flow("f2")
	require.True(t, ok)
	assert.Same(t, edit, got)

	del.Cancel()
	_, ok = g.Flow("f3")
	assert.False(t, ok)
	assert.Len(t, g.Open(), 1)
}

func TestFlowEvents(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGate(t)

	var flowEvents, storeEvents []notify.Kind
	g.Subscribe(func(e notify.Event) { flowEvents = append(flowEvents, e.Kind) })
	s.Subscribe(func(e notify.Event) { storeEvents = append(storeEvents, e.Kind) })

	f := g.OpenAdd()
	f.SetName("Ana")
	f.Confirm(ctx)

	c := g.OpenAdd()
	c.Cancel()

	assert.Equal(t, []notify.Kind{
		notify.FlowOpened, notify.FlowDraft, notify.FlowCommitted,
		notify.FlowOpened, notify.FlowCancelled,
	}, flowEvents)
	assert.Equal(t, []notify.Kind{notify.RecordAdded}, storeEvents)
}

// failingStore fails every mutation after wrapping a MemStore.
type failingStore struct {
	*store.MemStore
	calls int
}

var errBackend = errors.New("backend down")

func (f *failingStore) Add(ctx context.Context, d model.Draft) (model.Record, error) {
	f.calls++
	return model.Record{}, errBackend
}

func TestConfirmBackendErrorClosesFlow(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{MemStore: store.NewMemStore()}
	g := New(fs)

	f := g.OpenAdd()
	_, err := f.Confirm(ctx)
	require.ErrorIs(t, err, errBackend)
	assert.Equal(t, StateClosed, f.State())
	assert.Empty(t, g.Open())

	out, err := f.Confirm(ctx)
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, 1, fs.calls)
}

func TestULIDGeneratorUnique(t *testing.T) {
	g := NewULIDGenerator()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := g.Generate()
		require.Len(t, id, 26)
		require.False(t, seen[id])
		seen[id] = true
	}
}
