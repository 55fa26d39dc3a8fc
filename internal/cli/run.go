package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rcliao/recordbook/internal/session"
)

// NewRunCommand creates the command that replays YAML scripts.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script.yaml>...",
		Short: "Run session scripts",
		Long: "Run each YAML script against a fresh, empty store and print the final collection.\n" +
			"Exits non-zero if a step fails or a script's expect block does not match.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScripts(cmd, opts, args)
		},
	}

	cmd.Flags().BoolP("trace", "t", false, "Also print every notice and re-render while the script runs")

	return cmd
}

func runScripts(cmd *cobra.Command, opts *RootOptions, paths []string) error {
	trace, _ := cmd.Flags().GetBool("trace")
	out := cmd.OutOrStdout()

	r, err := session.NewRenderer(opts.cfg.Format)
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range paths {
		res, err := runScript(cmd, opts, path, trace)
		if res != nil {
			if rerr := r.Result(out, res); rerr != nil {
				return rerr
			}
		}
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %s: %v\n", path, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scripts failed", failed, len(paths))
	}
	return nil
}

func runScript(cmd *cobra.Command, opts *RootOptions, path string, trace bool) (*session.ScriptResult, error) {
	sc, err := session.LoadScript(path)
	if err != nil {
		return nil, err
	}

	var w io.Writer = io.Discard
	if trace {
		w = cmd.OutOrStdout()
	}
	sess, st, err := opts.openSession(w, trace)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	defer sess.Close()

	res, err := session.RunScript(cmd.Context(), sess, sc)
	if errors.Is(err, session.ErrExpectation) {
		slog.Warn("script expectation failed", "script", sc.Name)
	}
	return res, err
}
