package vault

import (
	"context"
	"fmt"

	"changestore/internal/config"
	"changestore/internal/store"
)

// NewVaultFromConfig creates a Vault implementation based on the vault config type.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig) (store.Vault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(), nil
	case "s3":
		return NewS3Vault(ctx, cfg)
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		return NewFileSystemVault(cfg.FSVaultRoot)
	default:
		return nil, fmt.Errorf("unknown vault type: %q", cfg.Type)
	}
}
