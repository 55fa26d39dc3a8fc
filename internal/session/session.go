// Package session is the terminal front end for the record store. It turns
// command lines into gate flows and re-renders the collection whenever the
// store reports a change.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/rcliao/recordbook/internal/gate"
	"github.com/rcliao/recordbook/internal/notify"
	"github.com/rcliao/recordbook/internal/store"
)

// ErrNoFlow is returned by commands that need an open flow when none is.
var ErrNoFlow = errors.New("no open flow (use add, edit <id> or delete <id>)")

// Session binds a store, a gate and an output stream. It shows at most one
// flow at a time, like a single dialog on screen.
type Session struct {
	id     string
	store  store.Store
	gate   *gate.Gate
	out    io.Writer
	render Renderer
	log    *slog.Logger

	autoRender bool
	dirty      bool
	active     *gate.Flow
	unsub      func()
}

// Option configures a Session.
type Option func(*Session)

// WithRenderer sets the output renderer. Defaults to text.
func WithRenderer(r Renderer) Option {
	return func(s *Session) { s.render = r }
}

// WithAutoRender controls whether the collection is printed after every
// change. Defaults to true.
func WithAutoRender(on bool) Option {
	return func(s *Session) { s.autoRender = on }
}

// WithLogger sets the session logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New returns a session writing to out.
func New(st store.Store, g *gate.Gate, out io.Writer, opts ...Option) *Session {
	s := &Session{
		id:         uuid.Must(uuid.NewV7()).String(),
		store:      st,
		gate:       g,
		out:        out,
		render:     textRenderer{},
		log:        slog.Default(),
		autoRender: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session", s.id)
	s.unsub = st.Subscribe(s.onChange)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Active returns the flow currently shown, or nil.
func (s *Session) Active() *gate.Flow { return s.active }

// Close cancels any open flow and stops listening to the store.
func (s *Session) Close() {
	if s.active != nil {
		s.active.Cancel()
		s.active = nil
	}
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

func (s *Session) onChange(e notify.Event) {
	s.log.Debug("store changed", "kind", e.Kind, "record", e.RecordID)
	s.dirty = true
}

// Exec runs one command line. Blank lines and lines starting with # are
// ignored. Everything after the single space following name or email is
// taken verbatim as the field value.
func (s *Session) Exec(ctx context.Context, line string) error {
	line = strings.TrimRight(line, "\r\n")
	if t := strings.TrimSpace(line); t == "" || strings.HasPrefix(t, "#") {
		return nil
	}
	verb, rest, _ := strings.Cut(strings.TrimLeft(line, " \t"), " ")
	verb = strings.TrimSpace(verb)

	s.log.Debug("exec", "cmd", verb)
	if err := s.dispatch(ctx, verb, rest); err != nil {
		return fmt.Errorf("%s: %w", verb, err)
	}

	if s.dirty {
		s.dirty = false
		if s.autoRender {
			return s.list(ctx)
		}
	}
	return nil
}

func (s *Session) dispatch(ctx context.Context, verb, raw string) error {
	arg := strings.TrimSpace(raw)
	switch verb {
	case "list", "ls":
		return s.list(ctx)
	case "show":
		return s.show(ctx, arg)
	case "add":
		return s.openAdd()
	case "edit":
		return s.openEdit(ctx, arg)
	case "delete", "rm":
		return s.openDelete(arg)
	case "name":
		return s.setField(raw, (*gate.Flow).SetName)
	case "email":
		return s.setField(raw, (*gate.Flow).SetEmail)
	case "confirm":
		return s.confirm(ctx)
	case "cancel":
		return s.cancel()
	case "flow":
		if s.active == nil {
			return ErrNoFlow
		}
		return s.render.Flow(s.out, s.active.View())
	case "stats":
		st, err := s.store.Stats(ctx)
		if err != nil {
			return err
		}
		return s.render.Stats(s.out, st)
	case "help":
		_, err := io.WriteString(s.out, helpText)
		return err
	default:
		return fmt.Errorf("unknown command (try help)")
	}
}

func (s *Session) list(ctx context.Context) error {
	c, err := s.store.Snapshot(ctx)
	if err != nil {
		return err
	}
	return s.render.Collection(s.out, c)
}

func (s *Session) show(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("record id required")
	}
	r, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("record %s not found", id)
	}
	return s.render.Record(s.out, r)
}

func (s *Session) openAdd() error {
	if err := s.dismiss(); err != nil {
		return err
	}
	return s.opened(s.gate.OpenAdd())
}

func (s *Session) openEdit(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("record id required")
	}
	if err := s.dismiss(); err != nil {
		return err
	}
	f, err := s.gate.OpenEdit(ctx, id)
	if err != nil {
		return err
	}
	return s.opened(f)
}

func (s *Session) openDelete(id string) error {
	if id == "" {
		return errors.New("record id required")
	}
	if err := s.dismiss(); err != nil {
		return err
	}
	return s.opened(s.gate.OpenDelete(id))
}

func (s *Session) opened(f *gate.Flow) error {
	s.active = f
	return s.render.Notice(s.out, Notice{Action: "opened", Flow: f.View()})
}

// dismiss cancels the flow on screen before another one opens.
func (s *Session) dismiss() error {
	if s.active == nil {
		return nil
	}
	return s.cancel()
}

func (s *Session) setField(value string, set func(*gate.Flow, string) bool) error {
	if s.active == nil {
		return ErrNoFlow
	}
	if !set(s.active, value) {
		return fmt.Errorf("%s flow has no draft", s.active.Kind())
	}
	return nil
}

func (s *Session) confirm(ctx context.Context) error {
	f := s.active
	if f == nil {
		return ErrNoFlow
	}
	s.active = nil
	out, err := f.Confirm(ctx)
	if err != nil {
		return err
	}
	if !out.Applied {
		return ErrNoFlow
	}
	view := f.View()
	if f.Kind() == gate.KindAdd {
		view.Target = out.Record.ID
	}
	return s.render.Notice(s.out, Notice{Action: "committed", Flow: view})
}

func (s *Session) cancel() error {
	f := s.active
	if f == nil {
		return ErrNoFlow
	}
	s.active = nil
	f.Cancel()
	return s.render.Notice(s.out, Notice{Action: "cancelled", Flow: f.View()})
}

const helpText = `commands:
  list                 show all records
  show <id>            show one record
  add                  open an add form
  edit <id>            open an edit form for a record
  delete <id>          ask to delete a record
  name <text>          set the name in the open form (text kept as typed)
  email <text>         set the email in the open form (text kept as typed)
  confirm              apply the open form
  cancel               discard the open form
  flow                 show the open form
  stats                show store statistics
  help                 show this help
`
