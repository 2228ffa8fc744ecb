package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// MergeRequest describes a merge of several playlists into a new one.
type MergeRequest struct {
	PlaylistIDs      []string `json:"playlist_ids"`
	Name             string   `json:"name"`
	RemoveDuplicates bool     `json:"remove_duplicates"`
	DeleteSources    bool     `json:"delete_sources"`
}

// MergeResult reports a merge.
type MergeResult struct {
	PlaylistID        string   `json:"playlist_id"`
	Name              string   `json:"name"`
	TrackCount        int      `json:"track_count"`
	SkippedSources    []string `json:"skipped_sources"`
	SourcesDeleted    bool     `json:"sources_deleted"`
	SourcesKept       []string `json:"sources_kept,omitempty"`
	SourceDeleteError string   `json:"source_delete_error,omitempty"`

	SourceDeletion *DeleteResult `json:"source_deletion,omitempty"`
}

// Merge concatenates the tracks of the source playlists, in id order, into a new private playlist.
//
// A source that cannot be read is skipped. With RemoveDuplicates a URI is kept only on its first
// occurrence across all sources. Only well-formed track URIs are added; if none remain nothing is created.
// With DeleteSources the sources that were read are deleted afterwards; skipped sources are kept and listed
// in SourcesKept. A deletion failure is reported but does not fail the merge.
func (e *BulkEngine) Merge(ctx context.Context, req MergeRequest, progress chan<- ProgressUpdate) (*MergeResult, error) {
	if err := requireToken(ctx, e.tokens); err != nil {
		return nil, err
	}
	if len(req.PlaylistIDs) < 2 {
		return nil, fmt.Errorf("%w: merge needs at least 2 playlists, got %d", shared.ErrTooFewPlaylists, len(req.PlaylistIDs))
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: merged playlist name is required", shared.ErrInvalidInput)
	}

	logger := e.logger.With("op", shared.GenerateID(), "kind", models.OpMerge)

	result := &MergeResult{Name: name, SkippedSources: []string{}}
	seen := make(map[string]bool)
	var uris []string
	var read []string

	for i, id := range req.PlaylistIDs {
		sendProgress(progress, fetchSourceUpdate(i+1, len(req.PlaylistIDs), id))

		tracks, err := fetchAllTracks(ctx, e.client, id, e.opts.TrackPageSize, e.opts.MaxConcurrentRequests)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.SkippedSources = append(result.SkippedSources, id)
			logger.Warn("skipping unreadable source", "playlist", id, "error", err)
			continue
		}
		read = append(read, id)
		uris = append(uris, trackURIs(tracks, req.RemoveDuplicates, seen)...)
	}

	valid := models.FilterValidURIs(uris)
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: merged playlists contain no valid track URIs", shared.ErrNoValidTracks)
	}

	user, err := e.client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}

	description := fmt.Sprintf("Merged from %d playlists", len(req.PlaylistIDs)-len(result.SkippedSources))
	newID, err := e.client.CreatePlaylist(ctx, name, description, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create merged playlist: %w", err)
	}

	if err := addInBatches(ctx, e.client, newID, valid, e.opts.AddBatchSize, progress); err != nil {
		return nil, fmt.Errorf("merged playlist %s created but incomplete: %w", newID, err)
	}

	result.PlaylistID = newID
	result.TrackCount = len(valid)
	sendProgress(progress, createPlaylistUpdate(name, newID, len(valid)))
	e.cacheCreated(logger, newID, name, user.Name(), len(valid))

	if req.DeleteSources {
		e.deleteSources(ctx, logger, read, result, progress)
	}

	e.record(logger, models.OpMerge, append(append([]string{}, req.PlaylistIDs...), newID), map[string]any{
		"name":              name,
		"new_playlist_id":   newID,
		"track_count":       result.TrackCount,
		"remove_duplicates": req.RemoveDuplicates,
		"delete_sources":    req.DeleteSources,
		"skipped_sources":   result.SkippedSources,
	})

	logger.Info("merge finished", "playlist", newID, "tracks", result.TrackCount, "skipped", len(result.SkippedSources))
	return result, nil
}

// deleteSources deletes the sources that were merged. Skipped sources never reached the new playlist and are kept.
func (e *BulkEngine) deleteSources(ctx context.Context, logger *log.Logger, read []string, result *MergeResult, progress chan<- ProgressUpdate) {
	if len(result.SkippedSources) > 0 {
		result.SourcesKept = append([]string{}, result.SkippedSources...)
		logger.Warn("keeping unreadable sources", "kept", result.SourcesKept)
	}

	deleted, err := e.Delete(ctx, read, progress)
	result.SourceDeletion = deleted
	switch {
	case err != nil:
		result.SourceDeleteError = err.Error()
		logger.Warn("merge succeeded but sources were not deleted", "error", err)
	case !deleted.Success:
		result.SourceDeleteError = fmt.Sprintf("failed to delete: %s", strings.Join(deleted.Failed, ", "))
		logger.Warn("merge succeeded but some sources were not deleted", "failed", deleted.Failed)
	default:
		result.SourcesDeleted = len(result.SourcesKept) == 0
	}
}
