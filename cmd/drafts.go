package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/drafts"
	"github.com/almostacms/almostacms/internal/sections/loader"
	"github.com/almostacms/almostacms/internal/site"
	"github.com/almostacms/almostacms/internal/ui/styles"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Inspect unsaved drafts and saved revisions",
	Long: `Unsaved edits and a revision per save are kept in a local SQLite
database (drafts.path, default ~/.config/almostacms/drafts.db) when
drafts.enabled or the local-drafts flag is on.`,
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unsaved drafts for the current site",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDrafts(cmd, func(ctx context.Context, ws *workspace, store *drafts.Store) error {
			list, err := store.ListDrafts(ctx, ws.siteKey)
			if err != nil {
				return err
			}
			writeDrafts(cmd.OutOrStdout(), list)
			return nil
		})
	},
}

var historyLimit int

var draftsHistoryCmd = &cobra.Command{
	Use:   "history <section-id>",
	Short: "Show saved revisions of a section, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDrafts(cmd, func(ctx context.Context, ws *workspace, store *drafts.Store) error {
			revs, err := store.History(ctx, ws.siteKey, args[0], historyLimit)
			if err != nil {
				return err
			}
			writeHistory(cmd.OutOrStdout(), revs)
			return nil
		})
	},
}

var draftsDiffCmd = &cobra.Command{
	Use:   "diff <revision> [other-revision]",
	Short: "Diff a revision against the current data file or another revision",
	Long: `Print a unified diff from a saved revision to the section's current data
file, or to a second revision. Revision ids may be abbreviated.

Examples:
  almostacms drafts diff 3f2a9c1e
  almostacms drafts diff 3f2a9c1e 81be0d44`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDrafts(cmd, func(ctx context.Context, ws *workspace, store *drafts.Store) error {
			from, err := store.Revision(ctx, args[0])
			if err != nil {
				return err
			}
			if len(args) == 2 {
				to, err := store.Revision(ctx, args[1])
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(),
					content.Unified(from.Document, to.Document, from.ShortID(), to.ShortID(), diffContextLines))
				return err
			}

			dataFile, err := ws.dataFileFor(ctx, from.SectionID)
			if err != nil {
				return err
			}
			raw, err := ws.loader.Source().Fetch(ctx, site.DataPath(dataFile))
			current := content.NullValue()
			switch {
			case err == nil:
				if current, err = content.Parse(raw); err != nil {
					return fmt.Errorf("%s: %w", dataFile, err)
				}
			case !errors.Is(err, site.ErrNotFound):
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(),
				content.Unified(from.Document, current, from.ShortID(), site.DataPath(dataFile), diffContextLines))
			return err
		})
	},
}

var draftsRestoreCmd = &cobra.Command{
	Use:   "restore <revision>",
	Short: "Save a revision back to its section's data file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDrafts(cmd, func(ctx context.Context, ws *workspace, store *drafts.Store) error {
			rev, err := store.Revision(ctx, args[0])
			if err != nil {
				return err
			}
			if rev.Site != ws.siteKey {
				return fmt.Errorf("revision %s belongs to %s, not %s", rev.ShortID(), rev.Site, ws.siteKey)
			}
			if err := restoreRevision(ctx, ws, rev); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s restored %s from %s\n",
				styles.SuccessStyle.Render("✓"), rev.SectionID, rev.ShortID())
			return nil
		})
	},
}

const diffContextLines = 3

func init() {
	draftsHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum revisions to show (0 for all)")

	draftsCmd.AddCommand(draftsListCmd, draftsHistoryCmd, draftsDiffCmd, draftsRestoreCmd)
	rootCmd.AddCommand(draftsCmd)
}

// withDrafts opens the workspace and a drafts store. The store is opened
// directly when the workspace runs without draft recording, so history stays
// readable after drafts are turned off.
func withDrafts(cmd *cobra.Command, fn func(context.Context, *workspace, *drafts.Store) error) error {
	ctx := cmd.Context()
	ws, err := openWorkspace(ctx, cfg)
	if err != nil {
		return err
	}
	defer ws.Close()

	store := ws.drafts
	if store == nil {
		store, err = drafts.Open(ctx, cfg.DraftsPath())
		if err != nil {
			return fmt.Errorf("opening drafts database: %w", err)
		}
		defer func() { _ = store.Close() }()
	}
	return fn(ctx, ws, store)
}

// dataFileFor finds the data file of sectionID in the manifest, falling back
// to <id>.json for sections no longer listed.
func (ws *workspace) dataFileFor(ctx context.Context, sectionID string) (string, error) {
	loaded, _, err := ws.loadSections(ctx)
	if err != nil {
		return "", err
	}
	if sec, ok := loader.ByID(loaded, sectionID); ok {
		return sec.DataFile, nil
	}
	return sectionID + ".json", nil
}

// restoreRevision routes the revision through a section session so the
// editor's checks run and the save is recorded like any other.
func restoreRevision(ctx context.Context, ws *workspace, rev drafts.Revision) error {
	loaded, _, err := ws.loadSections(ctx)
	if err != nil {
		return err
	}
	sec, ok := loader.ByID(loaded, rev.SectionID)
	if !ok {
		return fmt.Errorf("section %s is not in the site manifest", rev.SectionID)
	}

	s := ws.loader.Session(sec)
	defer s.Close()
	if err := s.Open(ctx); err != nil {
		if !errors.Is(err, site.ErrNotFound) {
			return err
		}
		if err := s.Seed(); err != nil {
			return err
		}
	}
	if err := s.Edit(rev.Document); err != nil {
		return err
	}
	if !s.Dirty() {
		return nil
	}
	if problems := s.Validate(); len(problems) > 0 {
		return fmt.Errorf("revision %s does not pass checks: %s", rev.ShortID(), problems[0])
	}
	return s.Save(ctx)
}

func writeDrafts(w io.Writer, list []drafts.Draft) {
	if len(list) == 0 {
		fmt.Fprintln(w, styles.MutedStyle.Render("no drafts"))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tUPDATED")
	for _, d := range list {
		fmt.Fprintf(tw, "%s\t%s\n", d.SectionID, d.UpdatedAt.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
}

func writeHistory(w io.Writer, revs []drafts.Revision) {
	if len(revs) == 0 {
		fmt.Fprintln(w, styles.MutedStyle.Render("no revisions"))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REVISION\tSAVED\tMESSAGE")
	for _, r := range revs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ShortID(), r.CreatedAt.Local().Format(time.DateTime), r.Message)
	}
	_ = tw.Flush()
}
