package tasks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// RenameChange is one applied rename.
type RenameChange struct {
	PlaylistID string `json:"playlist_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// RenameFailure is one rename that could not be applied.
type RenameFailure struct {
	PlaylistID string `json:"playlist_id"`
	Reason     string `json:"reason"`
}

// RenameResult reports a bulk rename.
type RenameResult struct {
	Renamed  int             `json:"renamed"`
	Skipped  int             `json:"skipped"`
	Failed   int             `json:"failed"`
	Changes  []RenameChange  `json:"changes"`
	Failures []RenameFailure `json:"failures"`
}

// BulkRename replaces every match of the find pattern in each playlist name.
//
// replace may reference groups with $1. Repeated ids are renamed once. Each id is handled independently:
// a name that does not change is skipped, a name that would become blank is rejected without a remote call.
func (e *BulkEngine) BulkRename(ctx context.Context, ids []string, find, replace string, progress chan<- ProgressUpdate) (*RenameResult, error) {
	if err := requireToken(ctx, e.tokens); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no playlists to rename", shared.ErrMissingArgument)
	}
	if find == "" {
		return nil, fmt.Errorf("%w: empty find pattern", shared.ErrInvalidPattern)
	}

	pattern, err := regexp.Compile(find)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidPattern, err)
	}

	logger := e.logger.With("op", shared.GenerateID(), "kind", models.OpBulkRename)
	ids = uniqueIDs(ids)

	result := &RenameResult{Changes: []RenameChange{}, Failures: []RenameFailure{}}
	fail := func(id, reason string) {
		result.Failures = append(result.Failures, RenameFailure{PlaylistID: id, Reason: reason})
		logger.Warn("rename failed", "playlist", id, "reason", reason)
	}

	for i, id := range ids {
		rec, err := e.cache.GetPlaylistByID(id)
		switch {
		case err != nil:
			fail(id, err.Error())
			continue
		case rec == nil:
			fail(id, "playlist not cached")
			continue
		case !rec.IsOwner:
			fail(id, "not owned by you")
			continue
		}

		renamed := pattern.ReplaceAllString(rec.Name, replace)
		if renamed == rec.Name {
			result.Skipped++
			continue
		}
		if strings.TrimSpace(renamed) == "" {
			fail(id, "new name would be blank")
			continue
		}

		if err := e.client.RenamePlaylist(ctx, id, renamed); err != nil {
			fail(id, err.Error())
			continue
		}
		if err := e.cache.UpdatePlaylistName(id, renamed); err != nil {
			logger.Warn("playlist renamed remotely but not in cache", "playlist", id, "error", err)
		}

		result.Changes = append(result.Changes, RenameChange{PlaylistID: id, From: rec.Name, To: renamed})
		sendProgress(progress, renameUpdate(i+1, len(ids), rec.Name, renamed))
	}

	result.Renamed = len(result.Changes)
	result.Failed = len(result.Failures)

	if result.Renamed > 0 {
		changed := make([]string, 0, result.Renamed)
		for _, c := range result.Changes {
			changed = append(changed, c.PlaylistID)
		}
		e.record(logger, models.OpBulkRename, changed, map[string]any{
			"find":    find,
			"replace": replace,
			"changes": result.Changes,
		})
	}

	logger.Info("bulk rename finished", "renamed", result.Renamed, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// Rename sets the name of a single owned playlist.
func (e *BulkEngine) Rename(ctx context.Context, playlistID, name string) (*RenameChange, error) {
	if err := requireToken(ctx, e.tokens); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: new name is required", shared.ErrInvalidInput)
	}

	rec, err := e.cache.GetPlaylistByID(playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached playlist: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s is not cached, run a sync first", shared.ErrPlaylistNotFound, playlistID)
	}
	if !rec.IsOwner {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotOwner, rec.Name)
	}

	change := &RenameChange{PlaylistID: playlistID, From: rec.Name, To: name}
	if name == rec.Name {
		return change, nil
	}

	logger := e.logger.With("op", shared.GenerateID(), "kind", models.OpRename)
	if err := e.client.RenamePlaylist(ctx, playlistID, name); err != nil {
		return nil, fmt.Errorf("failed to rename playlist: %w", err)
	}
	if err := e.cache.UpdatePlaylistName(playlistID, name); err != nil {
		logger.Warn("playlist renamed remotely but not in cache", "playlist", playlistID, "error", err)
	}

	e.record(logger, models.OpRename, []string{playlistID}, change)
	return change, nil
}
