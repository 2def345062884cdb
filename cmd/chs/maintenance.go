package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultWatchInterval = 2 * time.Second

// diff command
var diffCmd = &cobra.Command{
	Use:   "diff FROM_CHANGE_ID TO_CHANGE_ID",
	Short: "Show a line diff between two changes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseChangeID(args[0])
		if err != nil {
			return err
		}
		to, err := parseChangeID(args[1])
		if err != nil {
			return err
		}

		a, err := newUnlockedApp(cmd.Context(), "Diff")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Store().Diff(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		if !result.Changed() {
			fmt.Println("No differences.")
			return nil
		}
		fmt.Print(result.Unified())
		return nil
	},
}

// version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the store version",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Version")
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Println(a.Store().CurrentVersion())
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the store version whenever it changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")

		a, err := newApp(cmd.Context(), "Watch")
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Println(a.Store().CurrentVersion())
		return a.Watch(cmd.Context(), interval, func(v uint64) {
			fmt.Println(v)
		})
	},
}

// gc command
var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete snapshots nothing references",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "GarbageCollect")
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.Store().GarbageCollect(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d snapshot(s)\n", len(removed))
		return nil
	},
}

// fsck command
var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Check the branch index against the change log",
	RunE: func(cmd *cobra.Command, args []string) error {
		repair, _ := cmd.Flags().GetBool("repair")

		a, err := newApp(cmd.Context(), "Verify")
		if err != nil {
			return err
		}
		defer a.Close()

		mismatches, err := a.Store().Verify(cmd.Context())
		if err != nil {
			return err
		}
		if len(mismatches) == 0 {
			fmt.Println("Branch index is consistent.")
			return nil
		}

		for _, m := range mismatches {
			fmt.Println(m)
		}
		if !repair {
			return fmt.Errorf("%d inconsistent leaf pointer(s); run with --repair", len(mismatches))
		}

		n, err := a.Store().RebuildIndex(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Rebuilt branch index: %d leaf pointer(s)\n", n)
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Copy the database into the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Backup")
		if err != nil {
			return err
		}
		defer a.Close()

		version, err := a.Backup(cmd.Context())
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		fmt.Printf("Backed up database at version %d\n", version)
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMetrics, _ := cmd.Flags().GetBool("metrics")

		a, err := newApp(cmd.Context(), "Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Version:     %d\n", stats.Version)
		fmt.Printf("Files:       %d\n", stats.Files)
		fmt.Printf("Branches:    %d\n", stats.Branches)
		fmt.Printf("Changes:     %d\n", stats.Changes)
		fmt.Printf("Snapshots:   %d\n", stats.Snapshots)
		fmt.Printf("Change sets: %d\n", stats.ChangeSets)

		if withMetrics {
			fmt.Println()
			return a.WriteMetrics(os.Stdout)
		}
		return nil
	},
}
