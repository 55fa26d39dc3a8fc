// Package cli implements the recordbook CLI commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rcliao/recordbook/internal/config"
	"github.com/rcliao/recordbook/internal/gate"
	"github.com/rcliao/recordbook/internal/session"
	"github.com/rcliao/recordbook/internal/store"
)

// Version is set at build time.
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Backend string
	Format  string
	Verbose bool

	cfg config.Config
}

// NewRootCommand creates the top-level command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "recordbook",
		Short: "In-memory record book with confirmation-gated edits",
		Long: "A small record manager. Records live only for the session; every add, edit and\n" +
			"delete opens a form that changes nothing until it is confirmed.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Backend, "backend", "b", "", "Store backend: mem or sqlite (default: $RECORDBOOK_BACKEND or mem)")
	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json or yaml (default: $RECORDBOOK_FORMAT or text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Debug logging on stderr")

	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// resolve merges flags over the environment and installs the logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.Format != "" {
		cfg.Format = o.Format
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	lvl, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl})))
	return nil
}

// openSession builds a fresh store, gate and session writing to out.
func (o *RootOptions) openSession(out io.Writer, autoRender bool) (*session.Session, store.Store, error) {
	st, err := store.Open(o.cfg.Backend)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	r, err := session.NewRenderer(o.cfg.Format)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	sess := session.New(st, gate.New(st), out,
		session.WithRenderer(r),
		session.WithAutoRender(autoRender),
		session.WithLogger(slog.Default().With("backend", o.cfg.Backend)),
	)
	return sess, st, nil
}

// NewVersionCommand prints the build version.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
