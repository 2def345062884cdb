package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"changestore/internal/store"

	"github.com/spf13/cobra"
)

// file command
var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Manage files",
}

var fileOpenCmd = &cobra.Command{
	Use:   "open PATH",
	Short: "Register a file, or show the existing one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "OpenFile")
		if err != nil {
			return err
		}
		defer a.Close()

		file, err := a.OpenFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", file.ID, file.Path)
		return nil
	},
}

var fileMetaCmd = &cobra.Command{
	Use:   "meta PATH [KEY=VALUE...]",
	Short: "Show or set file metadata",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "SetFileMetadata")
		if err != nil {
			return err
		}
		defer a.Close()

		s := a.Store()
		file, err := s.FileByPath(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		for _, kv := range args[1:] {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("expected KEY=VALUE, got %q", kv)
			}
			if err := s.SetFileMetadata(cmd.Context(), file.ID, key, value); err != nil {
				return err
			}
		}

		if len(args) > 1 {
			if file, err = s.File(cmd.Context(), file.ID); err != nil {
				return err
			}
		}

		keys := make([]string, 0, len(file.Metadata))
		for k := range file.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s=%s\n", k, file.Metadata[k])
		}
		return nil
	},
}

var fileLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ListFiles")
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.Store().ListFiles(cmd.Context())
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No files.")
			return nil
		}
		for _, f := range files {
			fmt.Printf("%s  %s\n", f.ID, f.Path)
		}
		return nil
	},
}

// branch command
var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage branches",
}

var branchCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an empty branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "CreateBranch")
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.Store().CreateBranch(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created branch %s (%s)\n", b.Name, b.ID)
		return nil
	},
}

var branchLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List branches",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ListBranches")
		if err != nil {
			return err
		}
		defer a.Close()

		branches, err := a.Store().ListBranches(cmd.Context())
		if err != nil {
			return err
		}
		for _, b := range branches {
			marker := "  "
			if b.Name == a.Store().DefaultBranch() {
				marker = "* "
			}
			fmt.Printf("%s%s  %s\n", marker, b.Name, short(b.ID, 8))
		}
		return nil
	},
}

var branchRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Delete a branch; its changes stay in the log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "DeleteBranch")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store().DeleteBranch(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted branch %s\n", args[0])
		return nil
	},
}

// write command
var writeCmd = &cobra.Command{
	Use:   "write PATH ENTITY",
	Short: "Write the current value of an entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch, _ := cmd.Flags().GetString("branch")
		changeType, _ := cmd.Flags().GetString("type")
		setID, _ := cmd.Flags().GetString("changeset")

		content, err := readContent(cmd)
		if err != nil {
			return fmt.Errorf("reading content: %w", err)
		}

		a, err := newApp(cmd.Context(), "Write")
		if err != nil {
			return err
		}
		defer a.Close()

		// Byte-level dedup checks read stored payloads back.
		if a.Config().Snapshots.VerifyDedup {
			if err := a.Unlock(); err != nil {
				return err
			}
		}

		change, err := a.Write(cmd.Context(), args[0], args[1], changeType, branch, content)
		if err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		if setID != "" {
			if err := a.Store().AddChange(cmd.Context(), setID, change.ID); err != nil {
				return fmt.Errorf("adding change to change set: %w", err)
			}
		}

		printChange(os.Stdout, change, "")
		return nil
	},
}

// read command
var readCmd = &cobra.Command{
	Use:   "read PATH ENTITY",
	Short: "Print the current value of an entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch, _ := cmd.Flags().GetString("branch")

		a, err := newUnlockedApp(cmd.Context(), "Read")
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.Read(cmd.Context(), args[0], args[1], branch)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("entity %s has no changes in this branch", args[1])
		}
		_, err = os.Stdout.Write(entry.Content)
		return err
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log PATH ENTITY",
	Short: "View entity history",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch, _ := cmd.Flags().GetString("branch")

		a, err := newApp(cmd.Context(), "History")
		if err != nil {
			return err
		}
		defer a.Close()

		changes, err := a.History(cmd.Context(), args[0], args[1], branch)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			fmt.Println("No history.")
			return nil
		}

		leaf := store.LeafOf(changes)
		for _, c := range changes {
			marker := ""
			if c.ID == leaf.ID {
				marker = "  [current]"
			}
			if ok, err := a.Store().IsConfirmed(cmd.Context(), c); err != nil {
				return err
			} else if ok {
				marker += "  [confirmed]"
			}
			printChange(os.Stdout, c, marker)
		}
		return nil
	},
}

// confirm commands
var confirmCmd = &cobra.Command{
	Use:   "confirm CHANGE_ID",
	Short: "Mark a change as confirmed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseChangeID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "Confirm")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store().Confirm(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Confirmed change #%d\n", id)
		return nil
	},
}

var unconfirmCmd = &cobra.Command{
	Use:   "unconfirm CHANGE_ID",
	Short: "Remove the confirmation of a change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseChangeID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "Unconfirm")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store().Unconfirm(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Unconfirmed change #%d\n", id)
		return nil
	},
}

var unconfirmedCmd = &cobra.Command{
	Use:   "unconfirmed PATH",
	Short: "List current values that are not confirmed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch, _ := cmd.Flags().GetString("branch")

		a, err := newApp(cmd.Context(), "UnconfirmedChanges")
		if err != nil {
			return err
		}
		defer a.Close()

		changes, err := a.Unconfirmed(cmd.Context(), args[0], branch)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			fmt.Println("Everything is confirmed.")
			return nil
		}
		for _, c := range changes {
			printChange(os.Stdout, c, "")
		}
		return nil
	},
}
