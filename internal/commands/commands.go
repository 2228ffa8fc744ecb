package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/ratelimit"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
)

const defaultHistoryLimit = 50

// Response is the uniform result of every command.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PlaylistDetails is a cached playlist with its flagged tracks.
type PlaylistDetails struct {
	Playlist       models.PlaylistRecord  `json:"playlist"`
	UnlinkedTracks []models.UnlinkedTrack `json:"unlinked_tracks"`
}

// DetailsResult is returned by [Commands.PlaylistDetails].
type DetailsResult struct {
	Playlists []PlaylistDetails `json:"playlists"`
	NotFound  []string          `json:"not_found"`
}

// TagResult reports a tag update.
type TagResult struct {
	Updated int               `json:"updated"`
	Tags    map[string]string `json:"tags"`
	Failed  []string          `json:"failed"`
}

// Commands groups the engines and the cache behind envelope-returning methods.
type Commands struct {
	sync   *tasks.SyncEngine
	bulk   *tasks.BulkEngine
	cache  tasks.CacheStore
	logger *log.Logger
}

// New creates a Commands. A nil logger uses the default logger.
func New(sync *tasks.SyncEngine, bulk *tasks.BulkEngine, cache tasks.CacheStore, logger *log.Logger) *Commands {
	if logger == nil {
		logger = log.Default()
	}
	return &Commands{sync: sync, bulk: bulk, cache: cache, logger: logger}
}

func ok(data any) Response {
	return Response{Success: true, Data: data}
}

// fail converts err into the user-facing envelope.
func (c *Commands) fail(command string, err error) Response {
	if info := ratelimit.Classify(err); info.Limited {
		c.logger.Warn("rate limited", "command", command, "retry_after", info.RetryAfter)
		return Response{Error: info.Message}
	}
	c.logger.Error("command failed", "command", command, "error", err)
	return Response{Error: err.Error()}
}

// failWith returns an error envelope that still carries a partial result, when there is one.
func failWith[T any](c *Commands, command string, data *T, err error) Response {
	resp := c.fail(command, err)
	if data != nil {
		resp.Data = data
	}
	return resp
}

// SyncPlaylists runs the listing pass.
func (c *Commands) SyncPlaylists(ctx context.Context, progress chan<- tasks.ProgressUpdate) Response {
	result, err := c.sync.SyncAllPlaylists(ctx, progress)
	if err != nil {
		return c.fail("sync_playlists", err)
	}
	return ok(result)
}

// SyncDetails runs the detail pass.
func (c *Commands) SyncDetails(ctx context.Context, progress chan<- tasks.ProgressUpdate) Response {
	result, err := c.sync.SyncPlaylistDetails(ctx, progress)
	if err != nil {
		return failWith(c, "sync_details", result, err)
	}
	return ok(result)
}

// Playlists returns every cached playlist.
func (c *Commands) Playlists() Response {
	playlists, err := c.cache.GetAllPlaylists()
	if err != nil {
		return c.fail("playlists", err)
	}
	if playlists == nil {
		playlists = []models.PlaylistRecord{}
	}
	return ok(playlists)
}

// PlaylistDetails returns the cached records of ids with their unlinked tracks, in request order.
func (c *Commands) PlaylistDetails(ids []string) Response {
	if len(ids) == 0 {
		return c.fail("playlist_details", fmt.Errorf("%w: no playlist ids", shared.ErrMissingArgument))
	}

	cached, err := c.cache.GetPlaylistsByIDs(ids)
	if err != nil {
		return c.fail("playlist_details", err)
	}
	byID := make(map[string]models.PlaylistRecord, len(cached))
	for _, rec := range cached {
		byID[rec.ID] = rec
	}

	result := DetailsResult{Playlists: []PlaylistDetails{}, NotFound: []string{}}
	for _, id := range ids {
		rec, found := byID[id]
		if !found {
			result.NotFound = append(result.NotFound, id)
			continue
		}

		unlinked, err := c.cache.UnlinkedTracks(id)
		if err != nil {
			return c.fail("playlist_details", err)
		}
		if unlinked == nil {
			unlinked = []models.UnlinkedTrack{}
		}
		result.Playlists = append(result.Playlists, PlaylistDetails{Playlist: rec, UnlinkedTracks: unlinked})
	}
	return ok(result)
}

// UpdateTags sets or appends local tags on cached playlists.
//
// Tags are normalized. Replacing with an empty string clears them; appending nothing is rejected.
func (c *Commands) UpdateTags(ids []string, tags string, appendTags bool) Response {
	if len(ids) == 0 {
		return c.fail("tag", fmt.Errorf("%w: no playlists to tag", shared.ErrMissingArgument))
	}
	normalized := models.NormalizeTags(tags)
	if appendTags && normalized == "" {
		return c.fail("tag", fmt.Errorf("%w: no tags to append", shared.ErrInvalidInput))
	}

	result := TagResult{Tags: map[string]string{}, Failed: []string{}}
	var updated []string
	for _, id := range ids {
		rec, err := c.cache.GetPlaylistByID(id)
		if err != nil || rec == nil {
			result.Failed = append(result.Failed, id)
			continue
		}

		next := normalized
		if appendTags {
			next = models.MergeTags(rec.Tags, normalized)
		}
		if err := c.cache.UpdateTags(id, next); err != nil {
			c.logger.Warn("failed to update tags", "playlist", id, "error", err)
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Tags[id] = next
		updated = append(updated, id)
	}
	result.Updated = len(updated)

	if result.Updated > 0 {
		c.record(models.OpTag, updated, map[string]any{"tags": normalized, "append": appendTags})
	}
	return ok(result)
}

// Delete deletes owned playlists.
func (c *Commands) Delete(ctx context.Context, ids []string, progress chan<- tasks.ProgressUpdate) Response {
	result, err := c.bulk.Delete(ctx, ids, progress)
	if err != nil {
		return failWith(c, "delete", result, err)
	}
	return ok(result)
}

// Merge merges playlists into a new one.
func (c *Commands) Merge(ctx context.Context, req tasks.MergeRequest, progress chan<- tasks.ProgressUpdate) Response {
	result, err := c.bulk.Merge(ctx, req, progress)
	if err != nil {
		return c.fail("merge", err)
	}
	return ok(result)
}

// FixBrokenLinks recovers the unlinked tracks of a playlist.
func (c *Commands) FixBrokenLinks(ctx context.Context, id string, progress chan<- tasks.ProgressUpdate) Response {
	result, err := c.bulk.FixBrokenLinks(ctx, id, progress)
	if err != nil {
		return failWith(c, "fix_broken_links", result, err)
	}
	return ok(result)
}

// RemoveDuplicates copies a playlist without its repeated tracks.
func (c *Commands) RemoveDuplicates(ctx context.Context, id string, progress chan<- tasks.ProgressUpdate) Response {
	result, err := c.bulk.RemoveDuplicates(ctx, id, progress)
	if err != nil {
		return c.fail("remove_duplicates", err)
	}
	return ok(result)
}

// BulkRename applies a pattern replacement to playlist names.
func (c *Commands) BulkRename(ctx context.Context, ids []string, find, replace string, progress chan<- tasks.ProgressUpdate) Response {
	result, err := c.bulk.BulkRename(ctx, ids, find, replace, progress)
	if err != nil {
		return c.fail("bulk_rename", err)
	}
	return ok(result)
}

// Rename renames one owned playlist.
func (c *Commands) Rename(ctx context.Context, id, name string) Response {
	change, err := c.bulk.Rename(ctx, id, name)
	if err != nil {
		return c.fail("rename", err)
	}
	return ok(change)
}

// History returns the most recent operations, newest first. A non-positive limit uses the default.
func (c *Commands) History(limit int) Response {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	entries, err := c.cache.GetOperationHistory(limit)
	if err != nil {
		return c.fail("history", err)
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	return ok(entries)
}

func (c *Commands) record(kind models.OperationKind, ids []string, details any) {
	entry, err := models.NewHistoryEntry(kind, ids, details)
	if err != nil {
		c.logger.Warn("failed to build history entry", "error", err)
		return
	}
	entry.Timestamp = time.Now().UTC()
	if err := c.cache.LogOperation(entry); err != nil {
		c.logger.Warn("failed to record history", "kind", kind, "error", err)
	}
}

// SplitIDs splits a comma or whitespace separated id list, dropping empty entries.
func SplitIDs(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
