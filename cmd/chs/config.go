package main

import (
	"fmt"

	"changestore/internal/app"
	"changestore/internal/config"
	"changestore/internal/encryption"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and the store database",
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		storeID := uuid.New().String()
		cfg := config.NewConfig(storeID, defaults["base_dir"])

		if encrypt {
			cfg.Encryption.Type = "age"
			enc := encryption.NewAgeEncryptor(cfg.Encryption)
			passphrase, err := app.ReadPassphrase(cfg.Encryption, "New passphrase: ")
			if err != nil {
				return err
			}
			if err := enc.Setup(passphrase); err != nil {
				return fmt.Errorf("setting up encryption keys: %w", err)
			}
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		status, err := app.MigrateDatabase(cfg)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Store ID: %s\n", storeID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Printf("Schema:   version %d\n", status.Current)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Store ID:       %s\n", cfg.StoreID)
		fmt.Printf("Base Dir:       %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:        %s\n", cfg.LogDir)
		fmt.Printf("Default Branch: %s\n", cfg.DefaultBranch)
		fmt.Printf("Database:       %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Vault:          %s\n", cfg.Vault.Type)
		fmt.Printf("Encryption:     %s\n", cfg.Encryption.Type)
		fmt.Printf("Compression:    %s\n", cfg.Snapshots.Compression)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the store database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		status, err := app.MigrateDatabase(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Schema at version %d\n", status.Current)
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		status, err := app.DatabaseStatus(cfg)
		if err != nil {
			return err
		}

		state := "up to date"
		switch {
		case status.Dirty:
			state = "dirty"
		case status.Current < status.Latest:
			state = fmt.Sprintf("%d migration(s) pending", status.Latest-status.Current)
		case status.Current > status.Latest:
			state = "ahead of this binary"
		}
		fmt.Printf("Schema version %d of %d: %s\n", status.Current, status.Latest, state)
		return nil
	},
}
