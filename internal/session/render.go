package session

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/recordbook/internal/gate"
	"github.com/rcliao/recordbook/internal/model"
	"github.com/rcliao/recordbook/internal/store"
)

// Notice reports a flow transition to the user.
type Notice struct {
	Action string        `json:"action" yaml:"action"` // opened | committed | cancelled
	Flow   gate.FlowView `json:"flow" yaml:"flow"`
}

// Renderer writes session output in one format.
type Renderer interface {
	Collection(w io.Writer, c model.Collection) error
	Record(w io.Writer, r model.Record) error
	Flow(w io.Writer, v gate.FlowView) error
	Notice(w io.Writer, n Notice) error
	Stats(w io.Writer, st *store.Stats) error
	Result(w io.Writer, res *ScriptResult) error
}

// NewRenderer returns the renderer for format: text, json or yaml.
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "", "text":
		return textRenderer{}, nil
	case "json":
		return encodeRenderer{encode: encodeJSON}, nil
	case "yaml":
		return encodeRenderer{encode: encodeYAML}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

type textRenderer struct{}

func (textRenderer) Collection(w io.Writer, c model.Collection) error {
	if len(c) == 0 {
		_, err := fmt.Fprintln(w, "no records")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL")
	for _, r := range c {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Name, r.Email)
	}
	return tw.Flush()
}

func (textRenderer) Record(w io.Writer, r model.Record) error {
	_, err := fmt.Fprintf(w, "id:    %s\nname:  %s\nemail: %s\n", r.ID, r.Name, r.Email)
	return err
}

func (textRenderer) Flow(w io.Writer, v gate.FlowView) error {
	if _, err := fmt.Fprintf(w, "%s\n", describe(v)); err != nil {
		return err
	}
	if v.Draft == nil {
		_, err := fmt.Fprintf(w, "  state: %s\n", v.State)
		return err
	}
	_, err := fmt.Fprintf(w, "  state: %s\n  name:  %s\n  email: %s\n", v.State, v.Draft.Name, v.Draft.Email)
	return err
}

func (textRenderer) Notice(w io.Writer, n Notice) error {
	_, err := fmt.Fprintf(w, "%s %s\n", n.Action, describe(n.Flow))
	return err
}

func (textRenderer) Stats(w io.Writer, st *store.Stats) error {
	_, err := fmt.Fprintf(w, "backend:   %s\nrecords:   %d\nallocated: %d\nremoved:   %d\nnext id:   %s\n",
		st.Backend, st.Records, st.Allocated, st.Removed(), st.NextID)
	return err
}

func (t textRenderer) Result(w io.Writer, res *ScriptResult) error {
	if _, err := fmt.Fprintf(w, "script %s: %d steps\n", res.Name, res.Steps); err != nil {
		return err
	}
	return t.Collection(w, res.Final)
}

// describe renders "<kind> flow <id>" plus the record it concerns.
func describe(v gate.FlowView) string {
	s := fmt.Sprintf("%s flow %s", v.Kind, v.ID)
	switch {
	case v.Target == "":
	case v.Kind == gate.KindAdd:
		s += " as record " + v.Target
	default:
		s += " on record " + v.Target
	}
	return s
}

// encodeRenderer emits every value as one JSON or YAML document.
type encodeRenderer struct {
	encode func(w io.Writer, v any) error
}

func (r encodeRenderer) Collection(w io.Writer, c model.Collection) error {
	if c == nil {
		c = model.Collection{}
	}
	return r.encode(w, c)
}

func (r encodeRenderer) Record(w io.Writer, rec model.Record) error { return r.encode(w, rec) }
func (r encodeRenderer) Flow(w io.Writer, v gate.FlowView) error    { return r.encode(w, v) }
func (r encodeRenderer) Notice(w io.Writer, n Notice) error         { return r.encode(w, n) }

func (r encodeRenderer) Stats(w io.Writer, st *store.Stats) error {
	return r.encode(w, st)
}

func (r encodeRenderer) Result(w io.Writer, res *ScriptResult) error {
	out := *res
	if out.Final == nil {
		out.Final = model.Collection{}
	}
	return r.encode(w, out)
}

func encodeJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "---")
	return err
}
