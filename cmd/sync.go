package main

import (
	"context"

	"github.com/desertthunder/spx/internal/commands"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/urfave/cli/v3"
)

// SyncPlaylists mirrors the playlist listing into the cache, then runs the detail pass when --details is set.
func (r *Runner) SyncPlaylists(ctx context.Context, cmd *cli.Command) error {
	c, err := r.facade()
	if err != nil {
		return err
	}

	resp := r.withProgress(cmd, func(progress chan<- tasks.ProgressUpdate) commands.Response {
		return c.SyncPlaylists(ctx, progress)
	})
	if err := r.render(cmd, resp, r.printSyncResult); err != nil || !cmd.Bool("details") {
		return err
	}

	return r.SyncDetails(ctx, cmd)
}

// SyncDetails fills in durations, follower counts, and unlinked tracks for records that lack them.
func (r *Runner) SyncDetails(ctx context.Context, cmd *cli.Command) error {
	c, err := r.facade()
	if err != nil {
		return err
	}

	resp := r.withProgress(cmd, func(progress chan<- tasks.ProgressUpdate) commands.Response {
		return c.SyncDetails(ctx, progress)
	})
	return r.render(cmd, resp, r.printDetailResult)
}

func (r *Runner) printSyncResult(data any) error {
	result, err := decodeData[*tasks.SyncResult](data)
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Styles.OK("Synced %d of %d playlists", result.Synced, result.Total))
	if result.Failed > 0 {
		r.writePlain("%s\n", ui.Styles.Warn("%d playlists could not be cached", result.Failed))
	}
	if result.Removed > 0 {
		r.writePlain("Removed %d playlists no longer in your library\n", result.Removed)
	}
	return nil
}

func (r *Runner) printDetailResult(data any) error {
	result, err := decodeData[*tasks.DetailSyncResult](data)
	if err != nil {
		return err
	}

	if result.Total == 0 {
		return r.writePlain("%s\n", ui.Styles.OK("All playlist details are up to date"))
	}
	r.writePlain("%s\n", ui.Styles.OK("Fetched details for %d of %d playlists", result.Synced, result.Total))
	if result.Failed > 0 {
		r.writePlain("%s\n", ui.Styles.Warn("%d playlists failed; run 'spx sync details' to retry", result.Failed))
	}
	return nil
}
