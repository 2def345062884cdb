package app

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"changestore/internal/config"
)

// ReadPassphrase returns the encryption passphrase. The environment variable
// named by cfg.PassphraseEnv wins when set; otherwise the passphrase is read
// from the terminal without echo.
func ReadPassphrase(cfg config.EncryptionConfig, prompt string) (string, error) {
	if cfg.PassphraseEnv != "" {
		if p := os.Getenv(cfg.PassphraseEnv); p != "" {
			return p, nil
		}
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		if cfg.PassphraseEnv != "" {
			return "", fmt.Errorf("no passphrase: stdin is not a terminal and %s is unset", cfg.PassphraseEnv)
		}
		return "", fmt.Errorf("no passphrase: stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	p, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if len(p) == 0 {
		return "", fmt.Errorf("empty passphrase")
	}
	return string(p), nil
}
