// ABOUTME: Feed management commands for adding, inspecting, editing and removing watched feeds
// ABOUTME: Covers names, TTL, owner, privacy and announcement outputs

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/feedwatch/internal/config"
	"github.com/harper/feedwatch/internal/models"
	"github.com/harper/feedwatch/internal/schedule"
	"github.com/harper/feedwatch/internal/storage"
)

var feedCmd = &cobra.Command{
	Use:     "feed",
	Aliases: []string{"f"},
	Short:   "Manage watched feeds",
	Long:    "Add, inspect, edit and remove the feeds feedwatch polls",
}

var feedAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Start watching a feed",
	Long: `Start watching an RSS, RDF or Atom feed under a short unique name.

The first successful check loads the feed's items without announcing them
and sends a load confirmation to each output instead.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, rawURL := args[0], args[1]
		outputs, _ := cmd.Flags().GetStringSlice("output")
		ttl, _ := cmd.Flags().GetInt("ttl")
		owner, _ := cmd.Flags().GetString("owner")
		private, _ := cmd.Flags().GetBool("private")

		if err := validWord("feed name", name); err != nil {
			return err
		}
		parsed, err := url.Parse(rawURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("feed URL must be an absolute http or https URL, got %q", rawURL)
		}

		if _, err := store.GetFeedByName(name); err == nil {
			return fmt.Errorf("feed already exists: %s", name)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to check for existing feed: %w", err)
		}

		feed := models.NewFeed(name, rawURL)
		feed.TTL = cfg.GetDefaultTTL()
		if cmd.Flags().Changed("ttl") {
			if err := feed.SetTTL(ttl); err != nil {
				return err
			}
		}
		feed.Owner = owner
		feed.Private = private
		for _, dest := range outputs {
			if err := validWord("output", dest); err != nil {
				return err
			}
			feed.AddOutput(dest)
		}

		if err := store.CreateFeed(feed); err != nil {
			return fmt.Errorf("failed to create feed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Added feed %s: %s\n", feed.Name, feed.URL)
		fmt.Fprintf(out, "Feed ID: %s\n", feed.ID)
		return nil
	},
}

var feedListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List watched feeds",
	Long:    "List watched feeds with their outputs, TTL and health. Private feeds are only shown to their owner when --as is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		viewer, _ := cmd.Flags().GetString("as")

		feeds, err := store.ListFeeds()
		if err != nil {
			return fmt.Errorf("failed to list feeds: %w", err)
		}

		visible := feeds[:0]
		for _, feed := range feeds {
			if viewer != "" && feed.Private && feed.Owner != viewer {
				continue
			}
			visible = append(visible, feed)
		}

		out := cmd.OutOrStdout()
		if len(visible) == 0 {
			fmt.Fprintln(out, "No feeds found. Add a feed with 'feedwatch feed add <name> <url>'")
			return nil
		}

		red := color.New(color.FgRed).SprintFunc()
		faint := color.New(color.Faint).SprintFunc()
		now := time.Now()

		fmt.Fprintf(out, "Found %d feed(s):\n\n", len(visible))
		for _, feed := range visible {
			marker := ""
			if feed.Private {
				marker = faint(" (private)")
			}
			fmt.Fprintf(out, "%s%s\n", feed.Label(), marker)
			fmt.Fprintf(out, "  URL: %s\n", feed.URL)
			fmt.Fprintf(out, "  Outputs: %s  TTL: %ds  Items: %d\n", outputsText(feed), feed.TTL, feed.ItemCount)
			if feed.ErrorActive(now) {
				fmt.Fprintf(out, "  %s %s\n", red("Error:"), feed.LastError)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var feedShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a feed's settings and health",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		feed, err := lookupFeed(args[0])
		if err != nil {
			return err
		}

		bold := color.New(color.Bold).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		out := cmd.OutOrStdout()
		now := time.Now()

		fmt.Fprintln(out, bold(feed.Label()))
		fmt.Fprintln(out, strings.Repeat("-", config.SeparatorWidth))
		fmt.Fprintf(out, "ID:          %s\n", feed.ID[:config.DisplayIDLength])
		fmt.Fprintf(out, "URL:         %s\n", feed.URL)
		fmt.Fprintf(out, "Outputs:     %s\n", outputsText(feed))
		fmt.Fprintf(out, "TTL:         %ds\n", feed.TTL)
		fmt.Fprintf(out, "Owner:       %s\n", orNone(feed.Owner))
		fmt.Fprintf(out, "Private:     %t\n", feed.Private)
		fmt.Fprintf(out, "Items:       %d\n", feed.ItemCount)
		fmt.Fprintf(out, "Last check:  %s\n", timeText(feed.LastCheck))
		fmt.Fprintf(out, "Last load:   %s\n", timeText(feed.LastLoaded))

		if feed.ErrorActive(now) {
			fmt.Fprintf(out, "Status:      %s %s\n", red("error"), feed.LastError)
			fmt.Fprintf(out, "Retry after: %s\n", timeText(feed.ErrorExpires))
		} else {
			next := schedule.NextDelay(feed, now)
			if next < 0 {
				next = 0
			}
			fmt.Fprintf(out, "Status:      %s, next check in %s\n", green("ok"), next.Round(time.Second))
		}
		return nil
	},
}

var feedRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Stop watching a feed",
	Long:    "Stop watching a feed and delete its retained items",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		feed, err := lookupFeed(args[0])
		if err != nil {
			return err
		}
		if err := store.DeleteFeed(feed.ID); err != nil {
			return fmt.Errorf("failed to delete feed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed feed: %s\n", feed.Label())
		return nil
	},
}

var feedRenameCmd = &cobra.Command{
	Use:   "rename <name> <display name>",
	Short: "Set a feed's display name",
	Long:  "Set a feed's display name. The next load replaces it if the feed's own title differs.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editFeed(cmd, args[0], func(feed *models.Feed) (string, error) {
			feed.DisplayName = strings.TrimSpace(strings.Join(args[1:], " "))
			return fmt.Sprintf("Feed %s is now %s", feed.Name, feed.Label()), nil
		})
	},
}

var feedSetTTLCmd = &cobra.Command{
	Use:   "set-ttl <name> <seconds>",
	Short: "Set a feed's polling interval",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		seconds, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid TTL %q: %w", args[1], err)
		}
		return editFeed(cmd, args[0], func(feed *models.Feed) (string, error) {
			if err := feed.SetTTL(seconds); err != nil {
				return "", err
			}
			return fmt.Sprintf("Feed %s is now checked every %ds", feed.Name, feed.TTL), nil
		})
	},
}

var feedSetOwnerCmd = &cobra.Command{
	Use:   "set-owner <name> <owner>",
	Short: "Set a feed's owner",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editFeed(cmd, args[0], func(feed *models.Feed) (string, error) {
			feed.Owner = args[1]
			return fmt.Sprintf("Feed %s is now owned by %s", feed.Name, feed.Owner), nil
		})
	},
}

var feedSetPrivateCmd = &cobra.Command{
	Use:   "set-private <name> <true|false>",
	Short: "Hide a feed from other users' listings",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		private, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid private flag %q: %w", args[1], err)
		}
		return editFeed(cmd, args[0], func(feed *models.Feed) (string, error) {
			feed.Private = private
			return fmt.Sprintf("Feed %s private: %t", feed.Name, feed.Private), nil
		})
	},
}

var feedOutputCmd = &cobra.Command{
	Use:   "output",
	Short: "Manage where a feed is announced",
}

var feedOutputAddCmd = &cobra.Command{
	Use:   "add <name> <destination>",
	Short: "Announce a feed to another destination",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest := args[1]
		if err := validWord("output", dest); err != nil {
			return err
		}
		return editFeed(cmd, args[0], func(feed *models.Feed) (string, error) {
			if !feed.AddOutput(dest) {
				return "", fmt.Errorf("feed %s already outputs to %s", feed.Name, dest)
			}
			return fmt.Sprintf("Feed %s outputs: %s", feed.Name, outputsText(feed)), nil
		})
	},
}

var feedOutputRemoveCmd = &cobra.Command{
	Use:     "remove <name> <destination>",
	Aliases: []string{"rm"},
	Short:   "Stop announcing a feed to a destination",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editFeed(cmd, args[0], func(feed *models.Feed) (string, error) {
			if !feed.RemoveOutput(args[1]) {
				return "", fmt.Errorf("feed %s does not output to %s", feed.Name, args[1])
			}
			return fmt.Sprintf("Feed %s outputs: %s", feed.Name, outputsText(feed)), nil
		})
	},
}

// editFeed loads a feed, applies edit and saves the record.
func editFeed(cmd *cobra.Command, name string, edit func(*models.Feed) (string, error)) error {
	feed, err := lookupFeed(name)
	if err != nil {
		return err
	}
	msg, err := edit(feed)
	if err != nil {
		return err
	}
	if err := store.UpdateFeed(feed); err != nil {
		return fmt.Errorf("failed to update feed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func outputsText(feed *models.Feed) string {
	if len(feed.Outputs) == 0 {
		return "(none)"
	}
	return strings.Join(feed.Outputs, ", ")
}

func timeText(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(config.DateFormatLong)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(feedCmd)
	feedCmd.AddCommand(feedAddCmd, feedListCmd, feedShowCmd, feedRemoveCmd, feedRenameCmd,
		feedSetTTLCmd, feedSetOwnerCmd, feedSetPrivateCmd, feedOutputCmd)
	feedOutputCmd.AddCommand(feedOutputAddCmd, feedOutputRemoveCmd)

	feedAddCmd.Flags().StringSliceP("output", "o", nil, "destination to announce to (repeatable)")
	feedAddCmd.Flags().Int("ttl", 0, "polling interval in seconds (default from config)")
	feedAddCmd.Flags().String("owner", "", "identifier of whoever added the feed")
	feedAddCmd.Flags().Bool("private", false, "hide the feed from other users' listings")

	feedListCmd.Flags().String("as", "", "list as this user, hiding other users' private feeds")
}
