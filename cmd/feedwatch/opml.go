// ABOUTME: OPML import and export commands for feed subscriptions
// ABOUTME: Folders become outputs on import; outputs become folders on export

package main

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/feedwatch/internal/models"
	"github.com/harper/feedwatch/internal/opml"
)

var feedImportCmd = &cobra.Command{
	Use:   "import <file.opml>",
	Short: "Watch every feed listed in an OPML file",
	Long: `Watch every feed listed in an OPML file. Feeds inside a folder announce
to an output named after the folder. Feeds whose URL is already watched are
skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputs, _ := cmd.Flags().GetStringSlice("output")
		for _, dest := range outputs {
			if err := validWord("output", dest); err != nil {
				return err
			}
		}

		doc, err := opml.ParseFile(args[0])
		if err != nil {
			return err
		}

		existing, err := store.ListFeeds()
		if err != nil {
			return fmt.Errorf("failed to list feeds: %w", err)
		}
		urls := map[string]bool{}
		names := map[string]bool{}
		for _, feed := range existing {
			urls[feed.URL] = true
			names[strings.ToLower(feed.Name)] = true
		}

		out := cmd.OutOrStdout()
		faint := color.New(color.Faint).SprintFunc()
		added := 0
		for _, entry := range doc.AllFeeds() {
			if urls[entry.URL] {
				fmt.Fprintf(out, "%s %s (already watched)\n", faint("-"), entry.URL)
				continue
			}

			feed := models.NewFeed(uniqueName(slugify(entry.Title), names), entry.URL)
			feed.TTL = cfg.GetDefaultTTL()
			if validWord("output", entry.Folder) == nil {
				feed.AddOutput(entry.Folder)
			}
			for _, dest := range outputs {
				feed.AddOutput(dest)
			}
			if err := store.CreateFeed(feed); err != nil {
				return fmt.Errorf("failed to create feed %s: %w", feed.Name, err)
			}

			urls[feed.URL] = true
			names[strings.ToLower(feed.Name)] = true
			added++
			fmt.Fprintf(out, "+ %s: %s\n", feed.Name, feed.URL)
		}

		fmt.Fprintf(out, "Imported %d feed(s)\n", added)
		return nil
	},
}

var feedExportCmd = &cobra.Command{
	Use:   "export [file.opml]",
	Short: "Write watched feeds as OPML",
	Long:  "Write watched feeds as OPML, to a file or to stdout. Each output becomes a folder.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		feeds, err := store.ListFeeds()
		if err != nil {
			return fmt.Errorf("failed to list feeds: %w", err)
		}

		doc := opml.FromFeeds("feedwatch feeds", feeds)
		if len(args) == 0 {
			return doc.Write(cmd.OutOrStdout())
		}
		if err := doc.WriteFile(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d feed(s) to %s\n", len(feeds), args[0])
		return nil
	},
}

// slugify turns a title into a lowercase name of letters, digits and dashes.
func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		return "feed"
	}
	return name
}

// uniqueName appends -2, -3, ... to base until it is not in taken.
func uniqueName(base string, taken map[string]bool) string {
	name := base
	for i := 2; taken[strings.ToLower(name)]; i++ {
		name = fmt.Sprintf("%s-%d", base, i)
	}
	return name
}

func init() {
	feedCmd.AddCommand(feedImportCmd, feedExportCmd)
	feedImportCmd.Flags().StringSliceP("output", "o", nil, "extra destination for every imported feed (repeatable)")
}
