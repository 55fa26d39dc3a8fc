package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/recordbook/internal/model"
)

// ErrExpectation is returned when a script's final collection differs from
// its expect block.
var ErrExpectation = errors.New("expectation failed")

// Script is a recorded sequence of session commands.
type Script struct {
	// Name identifies the script in output.
	Name string `yaml:"name"`

	// Description explains what the script exercises.
	Description string `yaml:"description,omitempty"`

	// Steps are command lines, run in order through Session.Exec.
	Steps []string `yaml:"steps"`

	// Expect is the collection the script must end with. Omit to skip the
	// check; "expect: []" requires an empty collection.
	Expect *model.Collection `yaml:"expect,omitempty"`
}

// ScriptResult is the outcome of RunScript.
type ScriptResult struct {
	Name  string           `json:"name" yaml:"name"`
	Steps int              `json:"steps" yaml:"steps"`
	Final model.Collection `json:"final" yaml:"final"`
}

// LoadScript reads a script from a YAML file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	sc, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// ParseScript decodes a YAML script. Unknown keys are rejected.
func ParseScript(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Script
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, errors.New("parse script: no steps")
	}
	return &sc, nil
}

// RunScript executes every step through sess and checks the expect block.
// It stops at the first failing step.
func RunScript(ctx context.Context, sess *Session, sc *Script) (*ScriptResult, error) {
	res := &ScriptResult{Name: sc.Name}
	for i, step := range sc.Steps {
		if err := sess.Exec(ctx, step); err != nil {
			return res, fmt.Errorf("step %d: %w", i+1, err)
		}
		res.Steps++
	}

	final, err := sess.store.Snapshot(ctx)
	if err != nil {
		return res, err
	}
	res.Final = final

	if sc.Expect != nil && !reflect.DeepEqual(final.Clone(), sc.Expect.Clone()) {
		return res, fmt.Errorf("%w: got %v, want %v", ErrExpectation, final, *sc.Expect)
	}
	return res, nil
}
