// ABOUTME: Check command running one poll pass, or one feed immediately
// ABOUTME: Announcements print as [output] line; a colored per-feed summary follows

package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/feedwatch/internal/poller"
)

var checkCmd = &cobra.Command{
	Use:   "check [name]",
	Short: "Run one check pass",
	Long: `Check every feed that is due and announce what changed.

With a feed name, that feed is checked right away even if it is not due
or is waiting out an error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		p, err := newPoller(out)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			feed, err := lookupFeed(args[0])
			if err != nil {
				return err
			}
			printReports(out, []*poller.FeedReport{p.CheckFeed(cmd.Context(), feed)})
			return nil
		}

		pass, err := p.RunPass(cmd.Context())
		if err != nil {
			return err
		}
		if pass.Skipped {
			fmt.Fprintln(out, "A check pass is already running")
			return nil
		}
		if pass.Feeds == 0 {
			fmt.Fprintln(out, "No feeds found. Add a feed with 'feedwatch feed add <name> <url>'")
			return nil
		}
		printReports(out, pass.Checked)

		faint := color.New(color.Faint).SprintFunc()
		fmt.Fprintf(out, "\nChecked %d of %d feed(s). %s\n", len(pass.Checked), pass.Feeds,
			faint(fmt.Sprintf("Next pass in %s.", pass.NextDelay)))
		return nil
	},
}

func printReports(out io.Writer, reports []*poller.FeedReport) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	for _, r := range reports {
		switch r.Status {
		case poller.StatusFailed:
			fmt.Fprintf(out, "%s %s: %v\n", red("x"), r.Feed, r.Err)
		case poller.StatusNotModified:
			fmt.Fprintf(out, "%s %s (not modified)\n", faint("-"), r.Feed)
		case poller.StatusLoaded:
			fmt.Fprintf(out, "%s %s loaded %d items\n", green("+"), r.Feed, r.ItemCount)
		default:
			fmt.Fprintf(out, "%s %s: %d new or updated\n", green("+"), r.Feed, r.Announced)
		}
		if r.Status != poller.StatusFailed && r.Err != nil {
			fmt.Fprintf(out, "  %s %v\n", red("warning:"), r.Err)
		}
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
