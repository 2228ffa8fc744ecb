package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/spx/internal/commands"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/urfave/cli/v3"
)

// OpsDelete unfollows owned playlists and removes them from the cache.
func (r *Runner) OpsDelete(ctx context.Context, cmd *cli.Command) error {
	c, err := r.facade()
	if err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	resp := r.withProgress(cmd, func(progress chan<- tasks.ProgressUpdate) commands.Response {
		return c.Delete(ctx, ids, progress)
	})
	return r.render(cmd, resp, func(data any) error {
		result, err := decodeData[*tasks.DeleteResult](data)
		if err != nil {
			return err
		}

		if result.Deleted > 0 {
			r.writePlain("%s\n", ui.Styles.OK("Deleted %d playlists", result.Deleted))
		}
		for _, id := range result.Failed {
			r.writePlain("%s\n", ui.Styles.Warn("Not deleted: %s", id))
		}
		return nil
	})
}

// OpsMerge merges playlists into a new private playlist.
func (r *Runner) OpsMerge(ctx context.Context, cmd *cli.Command) error {
	c, err := r.facade()
	if err != nil {
		return err
	}

	req := tasks.MergeRequest{
		PlaylistIDs:      cmd.Args().Slice(),
		Name:             cmd.String("name"),
		RemoveDuplicates: cmd.Bool("dedupe"),
		DeleteSources:    cmd.Bool("delete-sources"),
	}
	resp := r.withProgress(cmd, func(progress chan<- tasks.ProgressUpdate) commands.Response {
		return c.Merge(ctx, req, progress)
	})
	return r.render(cmd, resp, func(data any) error {
		result, err := decodeData[*tasks.MergeResult](data)
		if err != nil {
			return err
		}

		r.writePlain("%s\n", ui.Styles.OK("Created %q with %d tracks", result.Name, result.TrackCount))
		r.writePlain("ID: %s\n", result.PlaylistID)
		for _, id := range result.SkippedSources {
			r.writePlain("%s\n", ui.Styles.Warn("Skipped unreadable source %s", id))
		}
		if result.SourcesDeleted {
			r.writePlain("%s\n", ui.Styles.OK("Source playlists deleted"))
		}
		if len(result.SourcesKept) > 0 {
			r.writePlain("%s\n", ui.Styles.Warn("Kept unreadable sources: %s", strings.Join(result.SourcesKept, ", ")))
		}
		if result.SourceDeleteError != "" {
			r.writePlain("%s\n", ui.Styles.Warn("Sources not deleted: %s", result.SourceDeleteError))
		}
		return nil
	})
}

// OpsDedupe copies a playlist without its repeated tracks.
func (r *Runner) OpsDedupe(ctx context.Context, cmd *cli.Command) error {
	c, err := r.facade()
	if err != nil {
		return err
	}

	id := cmd.StringArg("id")
	resp := r.withProgress(cmd, func(progress chan<- tasks.ProgressUpdate) commands.Response {
		return c.RemoveDuplicates(ctx, id, progress)
	})
	return r.render(cmd, resp, func(data any) error {
		result, err := decodeData[*tasks.DedupeResult](data)
		if err != nil {
			return err
		}

		r.writePlain("%s\n", ui.Styles.OK("Created %q with %d unique tracks", result.Name, result.AddedCount))
		r.writePlain("ID: %s\n", result.PlaylistID)
		r.writePlain("Removed %d duplicates of %d tracks\n", result.DuplicatesRemoved, result.OriginalCount)
		if len(result.InvalidURIs) > 0 {
			r.writePlain("%s\n", ui.Styles.Warn("Skipped %d items that cannot be added: %s", len(result.InvalidURIs), strings.Join(result.InvalidURIs, ", ")))
		}
		return nil
	})
}

// OpsFix searches replacements for the unlinked tracks of a playlist and writes them to a new playlist.
func (r *Runner) OpsFix(ctx context.Context, cmd *cli.Command) error {
	c, err := r.facade()
	if err != nil {
		return err
	}

	id := cmd.StringArg("id")
	resp := r.withProgress(cmd, func(progress chan<- tasks.ProgressUpdate) commands.Response {
		return c.FixBrokenLinks(ctx, id, progress)
	})
	return r.render(cmd, resp, func(data any) error {
		result, err := decodeData[*tasks.RecoveryResult](data)
		if err != nil {
			return err
		}

		if result.PlaylistID != "" {
			r.writePlain("%s\n", ui.Styles.OK("Created %q with %d recovered tracks", result.Name, result.Recovered))
			r.writePlain("ID: %s\n", result.PlaylistID)
		}
		if result.Failed > 0 {
			r.writePlain("%s\n", ui.Styles.Warn("%d of %d tracks could not be recovered", result.Failed, result.Total))
			for _, t := range result.FailedTracks {
				r.writePlain("  #%d %s - %s (%s)\n", t.Position+1, orUnknown(t.Name), orUnknown(t.Artist), t.Reason)
			}
		}
		if result.ReportPath != "" {
			r.writePlain("Report: %s\n", result.ReportPath)
		}
		return nil
	})
}

// OpsRename renames one owned playlist.
func (r *Runner) OpsRename(ctx context.Context, cmd *cli.Command) error {
	c, err := r.facade()
	if err != nil {
		return err
	}

	resp := c.Rename(ctx, cmd.StringArg("id"), cmd.StringArg("name"))
	return r.render(cmd, resp, func(data any) error {
		change, err := decodeData[*tasks.RenameChange](data)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", ui.Styles.OK("Renamed %q to %q", change.From, change.To))
	})
}

// OpsBulkRename replaces a pattern in the names of owned playlists.
func (r *Runner) OpsBulkRename(ctx context.Context, cmd *cli.Command) error {
	c, err := r.facade()
	if err != nil {
		return err
	}

	find := cmd.String("find")
	if find == "" {
		return fmt.Errorf("%w: --find", shared.ErrMissingArgument)
	}

	ids := cmd.Args().Slice()
	resp := r.withProgress(cmd, func(progress chan<- tasks.ProgressUpdate) commands.Response {
		return c.BulkRename(ctx, ids, find, cmd.String("replace"), progress)
	})
	return r.render(cmd, resp, func(data any) error {
		result, err := decodeData[*tasks.RenameResult](data)
		if err != nil {
			return err
		}

		for _, ch := range result.Changes {
			r.writePlain("  %s → %s\n", ch.From, ch.To)
		}
		r.writePlain("%s\n", ui.Styles.OK("Renamed %d, skipped %d, failed %d", result.Renamed, result.Skipped, result.Failed))
		for _, f := range result.Failures {
			r.writePlain("%s\n", ui.Styles.Warn("%s: %s", f.PlaylistID, f.Reason))
		}
		return nil
	})
}

// History prints the most recent operations, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	c, err := r.facade()
	if err != nil {
		return err
	}

	resp := c.History(int(cmd.Int("limit")))
	return r.render(cmd, resp, func(data any) error {
		entries, err := decodeData[[]models.HistoryEntry](data)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return r.writePlain("No operations recorded yet.\n")
		}

		r.writeHeader("Operation history")
		for _, e := range entries {
			r.writePlain("%s  %-18s %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Kind, joinIDs(e.PlaylistIDs))
		}
		return nil
	})
}

// joinIDs lists at most three ids and a count of the rest.
func joinIDs(ids []string) string {
	if len(ids) <= 3 {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(ids[:3], ", "), len(ids)-3)
}
