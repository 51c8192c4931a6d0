package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itsarapong/satang/internal/cli"
	"github.com/itsarapong/satang/internal/model"
	"github.com/itsarapong/satang/internal/storage"
)

func candidatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Manage auto-learned mapping proposals",
		Long: `Confident extractions with no vocabulary entry become candidates.
Candidates are promoted to mappings automatically once seen often enough,
or reviewed here by hand.`,
	}

	cmd.AddCommand(listCandidatesCmd())
	cmd.AddCommand(approveCandidateCmd())
	cmd.AddCommand(rejectCandidateCmd())
	cmd.AddCommand(reviewCandidatesCmd())

	return cmd
}

func listCandidatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending candidates",
		Long:  `Display pending candidates, most seen first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			status, _ := cmd.Flags().GetString("status")

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			candidates, err := store.ListCandidates(ctx, model.CandidateStatus(status))
			if err != nil {
				return fmt.Errorf("failed to list candidates: %w", err)
			}

			fmt.Println(cli.RenderCandidates(candidates))
			return nil
		},
	}

	cmd.Flags().String("status", string(model.CandidatePending), "filter by status (pending, approved, rejected)")

	return cmd
}

func approveCandidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>",
		Short: "Promote a candidate to an active mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			id, err := resolveCandidateID(ctx, store, args[0])
			if err != nil {
				return err
			}

			if err := store.ApproveCandidate(ctx, id); err != nil {
				return fmt.Errorf("failed to approve candidate: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Approved candidate %s", cli.ShortID(id))))
			return nil
		},
	}
}

func rejectCandidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <id>",
		Short: "Decline a candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			id, err := resolveCandidateID(ctx, store, args[0])
			if err != nil {
				return err
			}

			if err := store.RejectCandidate(ctx, id); err != nil {
				return fmt.Errorf("failed to reject candidate: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rejected candidate %s", cli.ShortID(id))))
			return nil
		},
	}
}

func reviewCandidatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Review pending candidates interactively",
		Long:  `Walk through pending candidates one by one and approve or reject each.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			candidates, err := store.ListCandidates(ctx, model.CandidatePending)
			if err != nil {
				return fmt.Errorf("failed to list candidates: %w", err)
			}
			if len(candidates) == 0 {
				fmt.Println(cli.FormatInfo("No pending candidates."))
				return nil
			}

			reader := cli.NewLineReader(os.Stdin)
			var approved, rejected int

			for i, c := range candidates {
				card := fmt.Sprintf("%s (%s, %s) → %s\nseen %d× · avg confidence %.2f",
					cli.BoldStyle.Render(c.Key), c.Language, c.Kind,
					c.SuggestedCategory, c.Occurrences, c.AvgConfidence)
				fmt.Println(cli.RenderBox(fmt.Sprintf("Candidate %d/%d", i+1, len(candidates)), card))

				fmt.Print(cli.FormatPrompt("[y]es approve · [n]o reject · [s]kip · [q]uit"))
				line, readErr := reader.ReadLine(ctx)
				if readErr != nil {
					if errors.Is(readErr, cli.ErrInputCancelled) || errors.Is(readErr, io.EOF) {
						break
					}
					return readErr
				}

				switch strings.ToLower(line) {
				case "y", "yes":
					if err := store.ApproveCandidate(ctx, c.ID); err != nil {
						return fmt.Errorf("failed to approve candidate: %w", err)
					}
					approved++
					fmt.Println(cli.FormatSuccess(fmt.Sprintf("Approved %q", c.Key)))
				case "n", "no":
					if err := store.RejectCandidate(ctx, c.ID); err != nil {
						return fmt.Errorf("failed to reject candidate: %w", err)
					}
					rejected++
					fmt.Println(cli.FormatWarning(fmt.Sprintf("Rejected %q", c.Key)))
				case "q", "quit":
					fmt.Println(cli.FormatInfo(fmt.Sprintf("Review finished: %d approved, %d rejected", approved, rejected)))
					return nil
				default:
					// Skip
				}
				fmt.Println()
			}

			fmt.Println(cli.FormatInfo(fmt.Sprintf("Review finished: %d approved, %d rejected", approved, rejected)))
			return nil
		},
	}
}

// resolveCandidateID matches a full or abbreviated candidate ID against
// the pending set.
func resolveCandidateID(ctx context.Context, store *storage.SQLiteStorage, id string) (string, error) {
	candidates, err := store.ListCandidates(ctx, model.CandidatePending)
	if err != nil {
		return "", fmt.Errorf("failed to list candidates: %w", err)
	}

	var matches []string
	for _, c := range candidates {
		if c.ID == id {
			return c.ID, nil
		}
		if strings.HasPrefix(c.ID, id) {
			matches = append(matches, c.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no pending candidate matches %q", id)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("candidate ID %q is ambiguous (%d matches)", id, len(matches))
	}
}
