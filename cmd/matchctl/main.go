// matchctl drives the works-matching backend from the command line: upload
// files and watch streamed progress, page through match reviews, and
// confirm or reject individual matches.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"works-matching-backend/internal/client"
	"works-matching-backend/internal/logger"

	"github.com/spf13/cobra"
)

// Short pause after the complete frame so the final progress line is
// readable before the batch summary prints.
const settleDelay = 1500 * time.Millisecond

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type app struct {
	serverURL string
	client    *client.Client
	batches   *client.BatchCache
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "matchctl",
		Short:         "Upload usage files and review work matches",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.client = client.New(a.serverURL, logger.NewNop())
			a.batches = client.NewBatchCache(a.client, 30*time.Second)
		},
	}
	root.PersistentFlags().StringVar(&a.serverURL, "server", envOr("MATCHCTL_SERVER", "http://localhost:8080"), "backend base URL")

	root.AddCommand(
		a.uploadCmd(),
		a.validateCmd(),
		a.batchesCmd(),
		a.batchCmd(),
		a.matchesCmd(),
		a.reviewCmd(),
		a.exportCmd(),
		a.deleteCmd(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (a *app) uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a usage file and stream matching progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := a.client.Upload(cmd.Context(), filepath.Base(args[0]), f, func(ev client.ProgressEvent) {
				switch ev.Stage {
				case client.StageMatchingProgress:
					fmt.Printf("\r[%5.1f%%] matching %d/%d (matched %d, flagged %d, unmatched %d)   ",
						ev.DisplayPercent, ev.Processed, ev.Total, ev.Matched, ev.Flagged, ev.Unmatched)
				case client.StageComplete:
					fmt.Printf("\r[100.0%%] %s%s\n", ev.Message, strings.Repeat(" ", 30))
				case client.StageError:
					fmt.Println()
				default:
					fmt.Printf("[%5.1f%%] %s\n", ev.DisplayPercent, ev.Message)
				}
			})
			if err != nil {
				return err
			}

			time.Sleep(settleDelay)

			batch, err := a.batches.Get(cmd.Context(), result.BatchID)
			if err != nil {
				return err
			}
			printBatch(batch)
			return nil
		},
	}
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Parse a file and report its record count without processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			v, err := a.client.Validate(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			if !v.Valid {
				return errors.New(v.Error)
			}

			fmt.Printf("Valid: %d records, columns: %s\n", v.TotalRecords, strings.Join(v.DetectedColumns, ", "))
			for _, rec := range v.SampleRecords {
				title := rec.WorkTitle
				if title == "" {
					title = rec.RecordingTitle
				}
				fmt.Printf("  row %d: %s / %s\n", rec.RowNumber, title, rec.Songwriter)
			}
			return nil
		},
	}
}

func (a *app) batchesCmd() *cobra.Command {
	var status string
	var page int

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List processing batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.client.ListBatches(cmd.Context(), page, client.PageSize, status)
			if err != nil {
				return err
			}
			for _, b := range list.Batches {
				fmt.Printf("%s  %-12s %-30s %d records\n", b.ID, b.Status, b.Filename, b.TotalRecords)
			}
			fmt.Printf("Page %d (%d total)\n", list.Page, list.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending/processing/completed/failed)")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func (a *app) batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <batch-id>",
		Short: "Show a batch's aggregate counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := a.batches.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printBatch(batch)
			return nil
		},
	}
}

func (a *app) matchesCmd() *cobra.Command {
	var view string
	var page int

	cmd := &cobra.Command{
		Use:   "matches <batch-id>",
		Short: "Page through a batch's matched, flagged, or unmatched records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := client.View(view)
			switch v {
			case client.ViewMatched, client.ViewFlagged, client.ViewUnmatched:
			default:
				return fmt.Errorf("unknown view %q", view)
			}

			pages := client.NewPageView(a.client, args[0])
			pages.SetView(v)
			pages.SetPage(page)

			pg, err := pages.Load(cmd.Context())
			if err != nil {
				return err
			}

			if v == client.ViewUnmatched {
				if pg.Total == 0 {
					fmt.Println("No unmatched records; batch fully matched.")
					return nil
				}
				for _, rec := range pg.Records {
					title := rec.WorkTitle
					if title == "" {
						title = rec.RecordingTitle
					}
					fmt.Printf("row %4d  %s / %s\n", rec.RowNumber, title, rec.Songwriter)
				}
			} else {
				for _, m := range pg.Matches {
					state := "pending"
					if m.IsConfirmed {
						state = "confirmed"
					} else if m.IsRejected {
						state = "rejected"
					}
					fmt.Printf("match %6d  %5.1f%% %-17s [%-6s] %-9s %s -> %s (%s)\n",
						m.ID, m.ConfidenceScore*100, m.MatchType, m.ConfidenceTier(), state,
						m.UsageRecord.WorkTitle, m.Work.Title, m.Work.WorkCode)
				}
			}

			fmt.Printf("Page %d of %d (%d total)\n", pg.Key.Page, pg.TotalPages(), pg.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&view, "view", "matched", "view: matched, flagged, or unmatched")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func (a *app) reviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review <batch-id> <match-id> confirm|reject",
		Short: "Confirm or reject a match",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			matchID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid match id %q", args[1])
			}

			pages := client.NewPageView(a.client, args[0])
			controller := client.NewReviewController(a.client, a.batches, pages, args[0])
			if err := controller.Review(cmd.Context(), matchID, args[2]); err != nil {
				return err
			}

			fmt.Printf("Match %d %sed.\n", matchID, args[2])
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <batch-id> unmatched|flagged",
		Short: "Download a batch's unmatched or flagged CSV export",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var exportURL string
			switch args[1] {
			case "unmatched":
				exportURL = a.client.ExportUnmatchedURL(args[0])
			case "flagged":
				exportURL = a.client.ExportFlaggedURL(args[0])
			default:
				return fmt.Errorf("unknown export %q", args[1])
			}

			if out == "" {
				out = fmt.Sprintf("%s_%s.csv", args[1], args[0])
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := a.client.DownloadExport(cmd.Context(), exportURL, f); err != nil {
				return err
			}
			fmt.Println("Wrote", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output path (default <kind>_<batch-id>.csv)")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <batch-id>",
		Short: "Delete a batch and every record derived from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(fmt.Sprintf("Delete batch %s and all its records?", args[0])) {
				fmt.Println("Aborted.")
				return nil
			}
			if err := a.client.DeleteBatch(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.batches.Invalidate(args[0])
			fmt.Println("Batch deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	return cmd
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func printBatch(b *client.Batch) {
	fmt.Printf("Batch %s (%s)\n", b.ID, b.Filename)
	fmt.Printf("  status:    %s\n", b.Status)
	if b.ErrorMessage != "" {
		fmt.Printf("  error:     %s\n", b.ErrorMessage)
	}
	fmt.Printf("  total:     %d\n", b.TotalRecords)
	fmt.Printf("  matched:   %d\n", b.MatchedRecords)
	fmt.Printf("  flagged:   %d\n", b.FlaggedRecords)
	fmt.Printf("  unmatched: %d\n", b.UnmatchedRecords)
}
