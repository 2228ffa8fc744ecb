package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// DedupeResult reports a duplicate removal.
//
// OriginalCount - DuplicatesRemoved = UniqueCount over linked items. AddedCount is UniqueCount less the
// InvalidURIs that cannot be added to a playlist, such as local files and episodes.
type DedupeResult struct {
	SourceID          string   `json:"source_id"`
	PlaylistID        string   `json:"playlist_id"`
	Name              string   `json:"name"`
	OriginalCount     int      `json:"original_count"`
	UniqueCount       int      `json:"unique_count"`
	DuplicatesRemoved int      `json:"duplicates_removed"`
	AddedCount        int      `json:"added_count"`
	InvalidURIs       []string `json:"invalid_uris"`
}

// dedupeURIs keeps the first occurrence of each URI among linked items, returning the unique URIs,
// the number of linked items considered, and the number of repeats dropped.
func dedupeURIs(tracks []models.TrackRef) (unique []string, considered, removed int) {
	seen := make(map[string]bool)
	for _, t := range tracks {
		if t.Unlinked() {
			continue
		}
		considered++
		if seen[t.URI] {
			removed++
			continue
		}
		seen[t.URI] = true
		unique = append(unique, t.URI)
	}
	return unique, considered, removed
}

// RemoveDuplicates creates "{name} - No Duplicates" holding the first occurrence of every track.
//
// The source playlist is never modified. A playlist without duplicates fails with [shared.ErrNoDuplicates].
func (e *BulkEngine) RemoveDuplicates(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*DedupeResult, error) {
	if err := requireToken(ctx, e.tokens); err != nil {
		return nil, err
	}

	rec, err := e.cache.GetPlaylistByID(playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached playlist: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s is not cached, run a sync first", shared.ErrPlaylistNotFound, playlistID)
	}

	logger := e.logger.With("op", shared.GenerateID(), "kind", models.OpRemoveDuplicates)

	sendProgress(progress, fetchSourceUpdate(1, 1, playlistID))
	tracks, err := fetchAllTracks(ctx, e.client, playlistID, e.opts.TrackPageSize, e.opts.MaxConcurrentRequests)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tracks: %w", err)
	}

	unique, considered, removed := dedupeURIs(tracks)
	if removed == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoDuplicates, rec.Name)
	}

	valid := models.FilterValidURIs(unique)
	invalid := make([]string, 0, len(unique)-len(valid))
	for _, uri := range unique {
		if !models.ValidTrackURI(uri) {
			invalid = append(invalid, uri)
		}
	}
	if len(invalid) > 0 {
		logger.Warn("skipping URIs that cannot be added", "count", len(invalid))
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: %s has no valid track URIs", shared.ErrNoValidTracks, rec.Name)
	}

	user, err := e.client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}

	name := rec.Name + " - No Duplicates"
	description := fmt.Sprintf("%s without %d duplicate tracks", rec.Name, removed)
	newID, err := e.client.CreatePlaylist(ctx, name, description, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	if err := addInBatches(ctx, e.client, newID, valid, e.opts.AddBatchSize, progress); err != nil {
		return nil, fmt.Errorf("playlist %s created but incomplete: %w", newID, err)
	}

	sendProgress(progress, createPlaylistUpdate(name, newID, len(valid)))
	e.cacheCreated(logger, newID, name, user.Name(), len(valid))

	result := &DedupeResult{
		SourceID:          playlistID,
		PlaylistID:        newID,
		Name:              name,
		OriginalCount:     considered,
		UniqueCount:       len(unique),
		DuplicatesRemoved: removed,
		AddedCount:        len(valid),
		InvalidURIs:       invalid,
	}

	e.record(logger, models.OpRemoveDuplicates, []string{playlistID, newID}, result)
	logger.Info("duplicates removed", "source", playlistID, "playlist", newID, "removed", removed)
	return result, nil
}
