package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/journeyman-jobs/hardening/validation"
)

// validators maps a kind to a check returning the sanitized value
var validators = map[string]func(string) (string, error){
	"email": validation.SanitizeEmail,
	"password": func(s string) (string, error) {
		if err := validation.ValidatePassword(s); err != nil {
			return "", err
		}
		return strings.Repeat("*", len(s)), nil
	},
	"field":       validation.SanitizeFieldName,
	"document-id": validation.SanitizeDocumentID,
	"collection":  validation.ValidateCollectionPath,
	"local-number": func(s string) (string, error) {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return "", validation.NewError("localNumber", "must be a whole number")
		}
		l, err := validation.ValidateLocalNumber(n)
		if err != nil {
			return "", err
		}
		return l.String(), nil
	},
	"classification": func(s string) (string, error) {
		c, err := validation.ParseClassification(s)
		if err != nil {
			return "", err
		}
		return c.String(), nil
	},
	"wage": func(s string) (string, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return "", validation.NewError("wage", "must be a number")
		}
		w, err := validation.ValidateWage(f)
		if err != nil {
			return "", err
		}
		return w.String(), nil
	},
}

func validatorKinds() []string {
	kinds := make([]string, 0, len(validators))
	for k := range validators {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <kind> <value>",
		Short: "Check a value against an input validator",
		Long: fmt.Sprintf(`Runs a value through one of the input validators and prints the sanitized
result. Exits non-zero when the value is rejected.

Kinds: %s

Examples:
  hardenctl validate email " Foo@Example.COM "
  hardenctl validate classification "inside wireman"`, strings.Join(validatorKinds(), ", ")),
		Args:      cobra.ExactArgs(2),
		ValidArgs: validatorKinds(),
		RunE: func(cmd *cobra.Command, args []string) error {
			check, ok := validators[args[0]]
			if !ok {
				return fmt.Errorf("unknown kind %q (want one of: %s)", args[0], strings.Join(validatorKinds(), ", "))
			}

			out := cmd.OutOrStdout()
			sanitized, err := check(args[1])
			if err != nil {
				failure(out, "%s", validation.SanitizeForDisplay(err.Error()))
				return fmt.Errorf("%w: %w", errRejected, err)
			}
			success(out, "valid %s: %s", args[0], color.CyanString(validation.SanitizeForDisplay(sanitized)))
			return nil
		},
	}
}
