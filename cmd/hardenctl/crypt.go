package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/journeyman-jobs/hardening/security"
)

// defaultPasswordEnv names the environment variable holding the password
const defaultPasswordEnv = "HARDENCTL_PASSWORD"

type cryptFlags struct {
	passwordEnv string
	iterations  int
}

func (f *cryptFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.passwordEnv, "password-env", defaultPasswordEnv, "environment variable holding the password")
	cmd.Flags().IntVar(&f.iterations, "iterations", security.DefaultPBKDF2Iterations, "PBKDF2 iteration count")
}

func (f *cryptFlags) service() (*security.EncryptionService, string, error) {
	password := os.Getenv(f.passwordEnv)
	if password == "" {
		return nil, "", fmt.Errorf("password not set: export %s", f.passwordEnv)
	}
	svc, err := security.NewEncryptionService(security.EncryptionConfig{PBKDF2Iterations: f.iterations})
	if err != nil {
		return nil, "", err
	}
	return svc, password, nil
}

// inputText returns the single argument, or stdin when there is none
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func newEncryptCmd() *cobra.Command {
	var flags cryptFlags

	cmd := &cobra.Command{
		Use:   "encrypt [plaintext]",
		Short: "Encrypt text with a password",
		Long: `Encrypts text with AES-256-GCM under a PBKDF2-derived key and prints
base64(salt || iv || tag || ciphertext). Reads stdin when no argument is given.

Examples:
  HARDENCTL_PASSWORD=... hardenctl encrypt "union card 12345"
  echo secret | HARDENCTL_PASSWORD=... hardenctl encrypt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, password, err := flags.service()
			if err != nil {
				return err
			}
			plaintext, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			blob, err := svc.EncryptString(plaintext, password)
			if err != nil {
				return fmt.Errorf("failed to encrypt: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), blob)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newDecryptCmd() *cobra.Command {
	var flags cryptFlags

	cmd := &cobra.Command{
		Use:   "decrypt [blob]",
		Short: "Decrypt a blob produced by encrypt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, password, err := flags.service()
			if err != nil {
				return err
			}
			blob, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			plaintext, err := svc.DecryptString(strings.TrimSpace(blob), password)
			if err != nil {
				return fmt.Errorf("failed to decrypt: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), plaintext)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
