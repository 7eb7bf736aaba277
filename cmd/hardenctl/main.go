// Command hardenctl is an operator tool for the hardening layer: it generates
// keys, encrypts and decrypts password-protected blobs, checks input against
// the validators and prints effective rate-limit policies.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:   "hardenctl",
		Short: "hardenctl - operator tool for the security hardening layer",
		Long: `hardenctl manages keys and checks configuration for the security hardening layer.

Usage:
  hardenctl <command> [flags]

Run 'hardenctl help <command>' for more details on a specific command.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	root.AddCommand(newKeygenCmd())
	root.AddCommand(newEncryptCmd())
	root.AddCommand(newDecryptCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newPoliciesCmd())
	return root
}

// errRejected is returned after a command has already reported the failure
var errRejected = errors.New("rejected")

// success prints a green check line
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.GreenString("✓")+" "+fmt.Sprintf(format, args...))
}

// failure prints a red cross line
func failure(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.RedString("✗")+" "+fmt.Sprintf(format, args...))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errRejected) {
			fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		}
		os.Exit(1)
	}
}
