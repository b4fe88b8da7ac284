// ABOUTME: Recent command listing a feed's retained items with dates
// ABOUTME: Lines use the same formatting as announcements; an active error or unloaded feed is reported instead

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/feedwatch/internal/announce"
	"github.com/harper/feedwatch/internal/config"
)

var recentCmd = &cobra.Command{
	Use:   "recent <name> [count] [offset]",
	Short: "Show a feed's most recently loaded items",
	Args:  cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		count := config.DefaultRecentCount
		offset := 0
		var err error
		if len(args) > 1 {
			if count, err = nonNegative("count", args[1]); err != nil {
				return err
			}
		}
		if len(args) > 2 {
			if offset, err = nonNegative("offset", args[2]); err != nil {
				return err
			}
		}

		feed, err := lookupFeed(args[0])
		if err != nil {
			return err
		}
		style, err := announceStyle()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if feed.ErrorActive(time.Now()) {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(out, "%s: %s %s (retrying after %s)\n",
				feed.Label(), red("ERROR:"), feed.LastError, timeText(feed.ErrorExpires))
			return nil
		}
		lines := announce.Recent(feed, offset, count, style)
		if len(lines) == 0 {
			if feed.LastLoaded == nil {
				fmt.Fprintf(out, "%s has not loaded yet.\n", feed.Label())
			} else {
				fmt.Fprintf(out, "%s has no recent items.\n", feed.Label())
			}
			return nil
		}
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func nonNegative(kind, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", kind, s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must be non-negative, got %d", kind, n)
	}
	return n, nil
}

func init() {
	rootCmd.AddCommand(recentCmd)
}
