package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for chs.
type Config struct {
	StoreID       string           `toml:"store_id"`
	BaseDir       string           `toml:"base_dir"`
	LogDir        string           `toml:"log_dir"`
	DefaultBranch string           `toml:"default_branch"`
	Database      DatabaseConfig   `toml:"database"`
	Vault         VaultConfig      `toml:"vault"`
	Encryption    EncryptionConfig `toml:"encryption"`
	Snapshots     SnapshotsConfig  `toml:"snapshots"`
	Writes        WritesConfig     `toml:"writes"`
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// VaultConfig represents configuration for the snapshot payload backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`

	// S3Endpoint overrides the service endpoint for S3-compatible stores.
	S3Endpoint string `toml:"s3_endpoint,omitempty"`

	// Static credentials; when S3AccessKeyID is empty the default AWS
	// credential chain is used. S3SecretKeyEnv names the environment variable
	// holding the secret key.
	S3AccessKeyID  string `toml:"s3_access_key_id,omitempty"`
	S3SecretKeyEnv string `toml:"s3_secret_key_env,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// EncryptionConfig selects at-rest encryption of snapshot payloads.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`

	// PassphraseEnv names an environment variable holding the passphrase, for
	// non-interactive use. When empty or unset the passphrase is prompted for.
	PassphraseEnv string `toml:"passphrase_env,omitempty"`
}

// SnapshotsConfig controls how snapshot payloads are stored.
type SnapshotsConfig struct {
	Compression string `toml:"compression"`  // "zstd" (default) or "none"
	VerifyDedup bool   `toml:"verify_dedup"` // compare bytes, not only sizes, on dedup hits
}

// WritesConfig controls the write path.
type WritesConfig struct {
	MaxRetries int `toml:"max_retries"` // leaf race retries; defaults to 3
}

// NewConfig creates a new Config with the provided values and defaults for a
// local store under baseDir.
func NewConfig(storeID, baseDir string) *Config {
	return &Config{
		StoreID:       storeID,
		BaseDir:       baseDir,
		LogDir:        filepath.Join(baseDir, "log"),
		DefaultBranch: "main",
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Vault: VaultConfig{
			Type:        "filesystem",
			FSVaultRoot: filepath.Join(baseDir, "vault"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "chs.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "chs.key"),
		},
		Snapshots: SnapshotsConfig{Compression: "zstd"},
		Writes:    WritesConfig{MaxRetries: 3},
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.StoreID == "" {
		return fmt.Errorf("store_id is required")
	}
	switch c.Snapshots.Compression {
	case "", "zstd", "none":
	default:
		return fmt.Errorf("unknown snapshots.compression: %q", c.Snapshots.Compression)
	}
	if c.Writes.MaxRetries < 0 {
		return fmt.Errorf("writes.max_retries must not be negative, got %d", c.Writes.MaxRetries)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
