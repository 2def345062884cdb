package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// changeset command
var changesetCmd = &cobra.Command{
	Use:     "changeset",
	Aliases: []string{"cs"},
	Short:   "Group changes and label them",
}

var changesetCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an empty change set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "CreateChangeSet")
		if err != nil {
			return err
		}
		defer a.Close()

		set, err := a.Store().CreateChangeSet(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", set.ID, set.Name)
		return nil
	},
}

var changesetAddCmd = &cobra.Command{
	Use:   "add SET_ID CHANGE_ID...",
	Short: "Add changes to a change set",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "AddChange")
		if err != nil {
			return err
		}
		defer a.Close()

		for _, arg := range args[1:] {
			id, err := parseChangeID(arg)
			if err != nil {
				return err
			}
			if err := a.Store().AddChange(cmd.Context(), args[0], id); err != nil {
				return err
			}
		}
		fmt.Printf("Added %d change(s)\n", len(args)-1)
		return nil
	},
}

var changesetRemoveCmd = &cobra.Command{
	Use:   "rm SET_ID CHANGE_ID...",
	Short: "Remove changes from a change set",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "RemoveChange")
		if err != nil {
			return err
		}
		defer a.Close()

		for _, arg := range args[1:] {
			id, err := parseChangeID(arg)
			if err != nil {
				return err
			}
			if err := a.Store().RemoveChange(cmd.Context(), args[0], id); err != nil {
				return err
			}
		}
		fmt.Printf("Removed %d change(s)\n", len(args)-1)
		return nil
	},
}

var changesetLabelCmd = &cobra.Command{
	Use:   "label SET_ID LABEL",
	Short: "Attach a label to a change set",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "AttachLabel")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Store().AttachLabel(cmd.Context(), args[0], args[1])
	},
}

var changesetUnlabelCmd = &cobra.Command{
	Use:   "unlabel SET_ID LABEL",
	Short: "Remove a label from a change set",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "RemoveLabel")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Store().RemoveLabel(cmd.Context(), args[0], args[1])
	},
}

var changesetShowCmd = &cobra.Command{
	Use:   "show SET_ID",
	Short: "Show a change set with its labels, changes and discussions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ShowChangeSet")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, s := cmd.Context(), a.Store()
		set, err := s.ChangeSet(ctx, args[0])
		if err != nil {
			return err
		}
		labels, err := s.ChangeSetLabels(ctx, set.ID)
		if err != nil {
			return err
		}
		changes, err := s.ChangeSetChanges(ctx, set.ID)
		if err != nil {
			return err
		}
		discussions, err := s.Discussions(ctx, set.ID)
		if err != nil {
			return err
		}

		names := make([]string, len(labels))
		for i, l := range labels {
			names[i] = l.Name
		}

		fmt.Printf("Change set %s  %s\n", set.ID, set.Name)
		fmt.Printf("Created:     %s\n", set.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Labels:      %s\n", strings.Join(names, ", "))
		fmt.Printf("Discussions: %d\n\n", len(discussions))
		for _, c := range changes {
			printChange(os.Stdout, c, "")
		}
		return nil
	},
}

// discuss command
var discussCmd = &cobra.Command{
	Use:   "discuss",
	Short: "Discuss change sets",
}

var discussOpenCmd = &cobra.Command{
	Use:   "open SET_ID",
	Short: "Open a discussion on a change set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "OpenDiscussion")
		if err != nil {
			return err
		}
		defer a.Close()

		d, err := a.Store().OpenDiscussion(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(d.ID)
		return nil
	},
}

var discussCommentCmd = &cobra.Command{
	Use:   "comment DISCUSSION_ID TEXT...",
	Short: "Add a comment to a discussion",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "AddComment")
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.Store().AddComment(cmd.Context(), args[0], strings.Join(args[1:], " "))
		return err
	},
}

var discussShowCmd = &cobra.Command{
	Use:   "show DISCUSSION_ID",
	Short: "Show the comments of a discussion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Comments")
		if err != nil {
			return err
		}
		defer a.Close()

		comments, err := a.Store().Comments(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(comments) == 0 {
			fmt.Println("No comments.")
			return nil
		}
		for _, c := range comments {
			fmt.Printf("%s  %s\n", c.CreatedAt.Local().Format("2006-01-02 15:04:05"), c.Body)
		}
		return nil
	},
}
