package vault

import (
	"context"
	"testing"

	"changestore/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.VaultConfig
		wantErr bool
	}{
		{name: "memory", cfg: config.VaultConfig{Type: "memory"}},
		{name: "filesystem", cfg: config.VaultConfig{Type: "filesystem", FSVaultRoot: t.TempDir()}},
		{name: "filesystem without root", cfg: config.VaultConfig{Type: "filesystem"}, wantErr: true},
		{name: "s3 without bucket", cfg: config.VaultConfig{Type: "s3"}, wantErr: true},
		{name: "s3 static key without secret", cfg: config.VaultConfig{
			Type:           "s3",
			S3Bucket:       "b",
			S3AccessKeyID:  "AKIA",
			S3SecretKeyEnv: "CHS_TEST_UNSET_SECRET",
		}, wantErr: true},
		{name: "unknown", cfg: config.VaultConfig{Type: "ftp"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewVaultFromConfig(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVaultFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && v == nil {
				t.Error("NewVaultFromConfig() returned nil vault")
			}
		})
	}
}
