package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// DeleteResult reports a batch delete.
type DeleteResult struct {
	Deleted    int      `json:"deleted"`
	DeletedIDs []string `json:"deleted_ids"`
	Failed     []string `json:"failed"`
	Success    bool     `json:"success"`
}

// Delete unfollows owned playlists and removes them from the cache.
//
// If any id is not cached or not owned, nothing is deleted: the result lists exactly those ids as failed
// and the error wraps [shared.ErrNotOwner]. Remote failures on individual ids are collected and the loop continues.
func (e *BulkEngine) Delete(ctx context.Context, ids []string, progress chan<- ProgressUpdate) (*DeleteResult, error) {
	if err := requireToken(ctx, e.tokens); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no playlists to delete", shared.ErrMissingArgument)
	}

	logger := e.logger.With("op", shared.GenerateID(), "kind", models.OpDelete)
	ids = uniqueIDs(ids)

	cached, err := e.cache.GetPlaylistsByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached playlists: %w", err)
	}
	owned := make(map[string]bool, len(cached))
	for _, rec := range cached {
		owned[rec.ID] = rec.IsOwner
	}

	disallowed := []string{}
	for _, id := range ids {
		if !owned[id] {
			disallowed = append(disallowed, id)
		}
	}

	if len(disallowed) > 0 {
		logger.Warn("delete rejected", "not_owned", disallowed)
		return &DeleteResult{DeletedIDs: []string{}, Failed: disallowed}, fmt.Errorf(
			"%w: can only delete playlists you own: %v", shared.ErrNotOwner, disallowed,
		)
	}

	result := &DeleteResult{DeletedIDs: []string{}, Failed: []string{}}
	for i, id := range ids {
		if err := e.client.UnfollowPlaylist(ctx, id); err != nil {
			result.Failed = append(result.Failed, id)
			logger.Warn("failed to delete playlist", "playlist", id, "error", err)
			sendProgress(progress, deleteUpdate(i+1, len(ids), id, err))
			continue
		}

		if err := e.cache.DeletePlaylist(id); err != nil {
			logger.Warn("playlist deleted remotely but not from cache", "playlist", id, "error", err)
		}

		result.DeletedIDs = append(result.DeletedIDs, id)
		sendProgress(progress, deleteUpdate(i+1, len(ids), id, nil))
	}

	result.Deleted = len(result.DeletedIDs)
	result.Success = len(result.Failed) == 0

	if result.Deleted > 0 {
		e.record(logger, models.OpDelete, result.DeletedIDs, map[string]any{
			"deleted": result.Deleted,
			"failed":  result.Failed,
		})
	}

	logger.Info("delete finished", "deleted", result.Deleted, "failed", len(result.Failed))
	return result, nil
}
