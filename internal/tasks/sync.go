package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
)

// SyncOptions tunes the listing and detail passes. Zero sizes fall back to defaults; a zero BatchDelay means no pause.
type SyncOptions struct {
	PageSize              int           // Playlists per listing page (default and max: 50)
	TrackPageSize         int           // Items per track page (default and max: 100)
	BatchSize             int           // Playlists fetched concurrently per detail batch (default: 5)
	BatchDelay            time.Duration // Pause between detail batches
	MaxConcurrentRequests int           // Concurrent track page fetches per playlist (default: 3)
}

// DefaultSyncOptions returns the options used when no configuration is given.
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		PageSize:              defaultPageSize,
		TrackPageSize:         defaultTrackPageSize,
		BatchSize:             defaultBatchSize,
		BatchDelay:            defaultBatchDelay,
		MaxConcurrentRequests: defaultConcurrency,
	}
}

// SyncOptionsFromConfig converts the sync config section.
func SyncOptionsFromConfig(c shared.SyncConfig) SyncOptions {
	return SyncOptions{
		PageSize:              c.PageSize,
		TrackPageSize:         c.TrackPageSize,
		BatchSize:             c.DetailBatchSize,
		BatchDelay:            c.BatchDelay(),
		MaxConcurrentRequests: c.MaxConcurrentRequests,
	}
}

func (o SyncOptions) withDefaults() SyncOptions {
	if o.PageSize <= 0 || o.PageSize > maxPageSize {
		o.PageSize = defaultPageSize
	}
	if o.TrackPageSize <= 0 || o.TrackPageSize > maxTrackPageSize {
		o.TrackPageSize = defaultTrackPageSize
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.BatchDelay < 0 {
		o.BatchDelay = 0
	}
	if o.MaxConcurrentRequests <= 0 {
		o.MaxConcurrentRequests = defaultConcurrency
	}
	return o
}

// SyncResult reports a listing pass.
type SyncResult struct {
	Total   int `json:"total"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Removed int `json:"removed"`
}

// DetailSyncResult reports a detail pass.
type DetailSyncResult struct {
	Total  int `json:"total"`
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// SyncEngine mirrors the remote playlist library into the cache.
type SyncEngine struct {
	client services.PlaylistClient
	tokens services.TokenProvider
	cache  CacheStore
	opts   SyncOptions
	logger *log.Logger
	now    func() time.Time
}

// NewSyncEngine creates a SyncEngine. A nil logger discards output.
func NewSyncEngine(client services.PlaylistClient, tokens services.TokenProvider, cache CacheStore, opts SyncOptions, logger *log.Logger) *SyncEngine {
	if logger == nil {
		logger = discardLogger()
	}
	return &SyncEngine{
		client: client,
		tokens: tokens,
		cache:  cache,
		opts:   opts.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// SyncAllPlaylists pages through the user's playlists and upserts a record for each.
//
// Offsets advance by the entries the provider returned, null ones included, so dropped entries neither
// repeat items nor end the listing early. Cached playlists missing from a complete listing are removed.
// A page error aborts the pass.
func (e *SyncEngine) SyncAllPlaylists(ctx context.Context, progress chan<- ProgressUpdate) (*SyncResult, error) {
	if err := requireToken(ctx, e.tokens); err != nil {
		return nil, err
	}

	logger := e.logger.With("op", shared.GenerateID(), "pass", "listing")

	user, err := e.client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}

	result := &SyncResult{}
	var seen []string
	offset := 0

	for {
		page, err := e.client.ListMyPlaylists(ctx, e.opts.PageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list playlists at offset %d: %w", offset, err)
		}
		if page.Scanned() == 0 {
			break
		}

		now := e.now()
		for _, summary := range page.Items {
			result.Total++
			seen = append(seen, summary.ID)

			if err := e.cache.UpsertPlaylist(summary.Record(user.ID, now)); err != nil {
				result.Failed++
				logger.Warn("failed to cache playlist", "playlist", summary.ID, "error", err)
				continue
			}
			result.Synced++
		}

		offset += page.Scanned()
		sendProgress(progress, listingPageUpdate(offset, max(page.Total, offset)))

		if !page.HasNext {
			break
		}
	}

	removed, err := e.cache.PrunePlaylists(seen)
	if err != nil {
		logger.Warn("failed to prune stale playlists", "error", err)
	}
	result.Removed = removed

	logger.Info("playlists synced", "total", result.Total, "synced", result.Synced, "failed", result.Failed, "removed", result.Removed)
	return result, nil
}

type detailOutcome struct {
	record   *models.PlaylistRecord
	unlinked []models.UnlinkedTrack
	err      error
}

// SyncPlaylistDetails enriches cached playlists that lack a duration.
//
// Playlists are processed in sequential batches, concurrently within a batch, with a pause between batches.
// A failure on one playlist is counted and never aborts the pass. After each batch progress receives
// the number of playlists completed so far.
func (e *SyncEngine) SyncPlaylistDetails(ctx context.Context, progress chan<- ProgressUpdate) (*DetailSyncResult, error) {
	if err := requireToken(ctx, e.tokens); err != nil {
		return nil, err
	}

	logger := e.logger.With("op", shared.GenerateID(), "pass", "details")

	pending, err := e.cache.PlaylistsMissingDetails()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached playlists: %w", err)
	}

	result := &DetailSyncResult{Total: len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	completed := 0
	for start := 0; start < len(pending); start += e.opts.BatchSize {
		if start > 0 {
			if err := sleep(ctx, e.opts.BatchDelay); err != nil {
				return result, err
			}
		}

		end := min(start+e.opts.BatchSize, len(pending))
		batch := pending[start:end]
		outcomes := make([]detailOutcome, len(batch))

		var wg sync.WaitGroup
		for i, rec := range batch {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcomes[i] = e.fetchDetails(ctx, rec)
			}()
		}
		wg.Wait()

		for i, out := range outcomes {
			id := batch[i].ID
			if out.err != nil {
				result.Failed++
				logger.Warn("failed to fetch playlist details", "playlist", id, "error", out.err)
				continue
			}
			if err := e.cache.UpsertPlaylist(out.record); err != nil {
				result.Failed++
				logger.Warn("failed to cache playlist details", "playlist", id, "error", err)
				continue
			}
			if err := e.cache.SaveUnlinkedTracks(id, out.unlinked); err != nil {
				result.Failed++
				logger.Warn("failed to cache unlinked tracks", "playlist", id, "error", err)
				continue
			}
			result.Synced++
		}

		completed = end
		sendProgress(progress, detailBatchUpdate(completed, result.Total))
	}

	logger.Info("playlist details synced", "total", result.Total, "synced", result.Synced, "failed", result.Failed)
	return result, nil
}

// fetchDetails reads a playlist's metadata and every item, and derives duration and unlinked tracks.
func (e *SyncEngine) fetchDetails(ctx context.Context, rec models.PlaylistRecord) detailOutcome {
	detail, err := e.client.GetPlaylist(ctx, rec.ID)
	if err != nil {
		return detailOutcome{err: err}
	}

	tracks, err := fetchAllTracks(ctx, e.client, rec.ID, e.opts.TrackPageSize, e.opts.MaxConcurrentRequests)
	if err != nil {
		return detailOutcome{err: err}
	}

	now := e.now()
	enriched := rec
	if detail.Name != "" {
		enriched.Name = detail.Name
	}
	enriched.Followers = detail.Followers
	enriched.SnapshotID = detail.SnapshotID
	enriched.TrackCount = len(tracks)
	enriched.LastSynced = now
	enriched.DurationMS = 0

	unlinked := []models.UnlinkedTrack{}
	for pos, t := range tracks {
		if !t.Missing {
			enriched.DurationMS += t.DurationMS
		}
		if reason := t.UnlinkedReason(); reason != "" {
			unlinked = append(unlinked, models.UnlinkedTrack{
				PlaylistID: rec.ID,
				Position:   pos,
				URI:        t.URI,
				Name:       t.Name,
				Artist:     t.Artist,
				Reason:     reason,
				FlaggedAt:  now,
			})
		}
	}
	enriched.UnlinkedCount = len(unlinked)

	return detailOutcome{record: &enriched, unlinked: unlinked}
}
