package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/journeyman-jobs/hardening/security"
)

const (
	privateKeyFile = "private.pem"
	publicKeyFile  = "public.pem"
)

func newKeygenCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "keygen <aes|rsa>",
		Short: "Generate an AES-256 key or an RSA key pair",
		Long: `Generates key material.

  aes  prints a random 32-byte AES-256 key as base64, suitable for
       encryption.token_cache_key
  rsa  writes a 2048-bit RSA key pair (private.pem, public.pem) to --out

Examples:
  hardenctl keygen aes
  hardenctl keygen rsa --out ./keys`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"aes", "rsa"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "aes":
				key, err := security.GenerateKey()
				if err != nil {
					return fmt.Errorf("failed to generate key: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), security.KeyToBase64(key))
				return nil
			case "rsa":
				return writeRSAKeyPair(cmd, outDir)
			default:
				return fmt.Errorf("unknown key type %q (want aes or rsa)", args[0])
			}
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for the RSA key pair")
	return cmd
}

func writeRSAKeyPair(cmd *cobra.Command, dir string) error {
	privPath := filepath.Join(dir, privateKeyFile)
	pubPath := filepath.Join(dir, publicKeyFile)
	for _, p := range []string{privPath, pubPath} {
		if _, err := os.Stat(p); err == nil {
			return fmt.Errorf("refusing to overwrite existing %s", p)
		}
	}

	priv, err := security.GenerateRSAKeyPair()
	if err != nil {
		return err
	}
	pub, err := security.MarshalPublicKeyPEM(&priv.PublicKey)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := os.WriteFile(privPath, security.MarshalPrivateKeyPEM(priv), 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, pub, 0o644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	out := cmd.OutOrStdout()
	success(out, "RSA key pair written")
	fmt.Fprintln(out, "  Private key: "+color.YellowString(privPath))
	fmt.Fprintln(out, "  Public key:  "+color.CyanString(pubPath))
	return nil
}
