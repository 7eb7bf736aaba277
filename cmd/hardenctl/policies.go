package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/journeyman-jobs/hardening"
	"github.com/journeyman-jobs/hardening/security"
)

func newPoliciesCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Print the effective rate-limit policies",
		Long: `Prints the rate-limit policies that apply after loading a TOML
configuration file. Without --config the built-in defaults are shown.

Examples:
  hardenctl policies
  hardenctl policies --config hardening.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := hardening.DefaultConfig()
			source := "built-in defaults"
			if configPath != "" {
				loaded, err := hardening.LoadConfigFile(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
				source = configPath
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, color.CyanString("Rate-limit policies")+" ("+source+"):")
			printPolicies(out, "Authenticated", cfg.RateLimit.Policies)
			printPolicies(out, "Anonymous", cfg.RateLimit.AnonymousPolicies)

			reads := "writes only"
			if cfg.RateLimit.LimitReads {
				reads = "reads and writes"
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  %-16s %s\n", "Limited:", color.GreenString(reads))
			fmt.Fprintf(out, "  %-16s %d\n", "Max query limit:", cfg.Query.MaxLimit)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	return cmd
}

func printPolicies(w io.Writer, title string, ps security.Policies) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  "+color.YellowString(title))
	for _, class := range ps.Classes() {
		fmt.Fprintf(w, "    %-8s %s\n", class, ps[class])
	}
}
