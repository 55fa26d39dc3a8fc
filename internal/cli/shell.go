package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewShellCommand creates the interactive session command.
func NewShellCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Long:  "Read commands from stdin, one per line. Type help for the command list, quit to leave.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, opts)
		},
	}

	cmd.Flags().Bool("no-render", false, "Do not print the collection after each change")

	return cmd
}

func runShell(cmd *cobra.Command, opts *RootOptions) error {
	noRender, _ := cmd.Flags().GetBool("no-render")
	out := cmd.OutOrStdout()

	sess, st, err := opts.openSession(out, !noRender)
	if err != nil {
		return err
	}
	defer st.Close()
	defer sess.Close()

	interactive := isTerminal(cmd)
	prompt := func() {
		if interactive {
			fmt.Fprint(out, "> ")
		}
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	prompt()
	for scanner.Scan() {
		line := scanner.Text()
		if word := strings.TrimSpace(line); word == "quit" || word == "exit" {
			break
		}
		if err := sess.Exec(cmd.Context(), line); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
		prompt()
	}
	return scanner.Err()
}

// isTerminal reports whether the command reads from an interactive stdin.
func isTerminal(cmd *cobra.Command) bool {
	if cmd.InOrStdin() != os.Stdin {
		return false
	}
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
