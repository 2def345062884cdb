package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"changestore/internal/app"
	"changestore/internal/config"
	"changestore/internal/store"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the config file from its default location.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Write", "Confirm").
func newApp(ctx context.Context, operation string) (*app.App, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// newUnlockedApp is newApp for commands that read snapshot content.
func newUnlockedApp(ctx context.Context, operation string) (*app.App, error) {
	a, err := newApp(ctx, operation)
	if err != nil {
		return nil, err
	}
	if err := a.Unlock(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func parseChangeID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid change id %q", s)
	}
	return id, nil
}

// readContent returns the content given by --content, or by --from-file where
// "-" reads stdin.
func readContent(cmd *cobra.Command) ([]byte, error) {
	content, _ := cmd.Flags().GetString("content")
	from, _ := cmd.Flags().GetString("from-file")

	switch {
	case from != "" && cmd.Flags().Changed("content"):
		return nil, fmt.Errorf("--content and --from-file are mutually exclusive")
	case from == "-":
		return io.ReadAll(cmd.InOrStdin())
	case from != "":
		return os.ReadFile(from)
	default:
		return []byte(content), nil
	}
}

func printChange(w io.Writer, c *store.Change, marker string) {
	fmt.Fprintf(w, "#%-6d %s  %-8s %s  %s  %s%s\n",
		c.ID,
		c.CreatedAt.Local().Format("2006-01-02 15:04:05.000"),
		c.Type,
		c.EntityID,
		short(c.SnapshotID, 12),
		short(c.BranchID, 8),
		marker,
	)
}

func short(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[:n]
}

var rootCmd = &cobra.Command{
	Use:          "chs",
	Short:        "Versioned, branch-aware change store",
	SilenceUsage: true,
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("encrypt", false, "Encrypt snapshot payloads with age")
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)

	// file subcommands
	fileCmd.AddCommand(fileOpenCmd)
	fileCmd.AddCommand(fileMetaCmd)
	fileCmd.AddCommand(fileLsCmd)

	// branch subcommands
	branchCmd.AddCommand(branchCreateCmd)
	branchCmd.AddCommand(branchLsCmd)
	branchCmd.AddCommand(branchRmCmd)

	// changeset subcommands
	changesetCmd.AddCommand(changesetCreateCmd)
	changesetCmd.AddCommand(changesetAddCmd)
	changesetCmd.AddCommand(changesetRemoveCmd)
	changesetCmd.AddCommand(changesetLabelCmd)
	changesetCmd.AddCommand(changesetUnlabelCmd)
	changesetCmd.AddCommand(changesetShowCmd)

	// discuss subcommands
	discussCmd.AddCommand(discussOpenCmd)
	discussCmd.AddCommand(discussCommentCmd)
	discussCmd.AddCommand(discussShowCmd)

	// entity commands
	writeCmd.Flags().StringP("content", "c", "", "Content to write")
	writeCmd.Flags().StringP("from-file", "f", "", "Read content from a file, - for stdin")
	writeCmd.Flags().StringP("type", "t", "update", "Change type")
	writeCmd.Flags().StringP("changeset", "s", "", "Add the change to this change set")
	for _, c := range []*cobra.Command{writeCmd, readCmd, logCmd, unconfirmedCmd} {
		c.Flags().StringP("branch", "b", "", "Branch name (default: the store's default branch)")
	}
	watchCmd.Flags().Duration("interval", defaultWatchInterval, "Poll interval when no file event arrives")
	fsckCmd.Flags().Bool("repair", false, "Rebuild the branch index when it disagrees with the change log")
	statsCmd.Flags().Bool("metrics", false, "Also print metrics in Prometheus text format")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(unconfirmCmd)
	rootCmd.AddCommand(unconfirmedCmd)
	rootCmd.AddCommand(changesetCmd)
	rootCmd.AddCommand(discussCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(fsckCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(statsCmd)
}
