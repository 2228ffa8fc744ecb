package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/sync/errgroup"
)

// CacheStore is the local mirror the engines read and write. Implemented by repositories.Cache.
type CacheStore interface {
	UpsertPlaylist(p *models.PlaylistRecord) error
	GetAllPlaylists() ([]models.PlaylistRecord, error)
	GetPlaylistByID(id string) (*models.PlaylistRecord, error)
	GetPlaylistsByIDs(ids []string) ([]models.PlaylistRecord, error)
	PlaylistsMissingDetails() ([]models.PlaylistRecord, error)
	DeletePlaylist(id string) error
	PrunePlaylists(keep []string) (int, error)
	UpdateTags(id, tags string) error
	UpdatePlaylistName(id, name string) error
	SaveUnlinkedTracks(playlistID string, tracks []models.UnlinkedTrack) error
	UnlinkedTracks(playlistID string) ([]models.UnlinkedTrack, error)
	LogOperation(entry *models.HistoryEntry) error
	GetOperationHistory(limit int) ([]models.HistoryEntry, error)
}

const (
	defaultPageSize      = 50
	defaultTrackPageSize = 100
	maxPageSize          = 50
	maxTrackPageSize     = 100
	defaultBatchSize     = 5
	defaultBatchDelay    = 3 * time.Second
	defaultConcurrency   = 3
	defaultAddBatchSize  = 100
	defaultSearchDelay   = 250 * time.Millisecond
	defaultSearchLimit   = 10
)

// requireToken checks that an access token can be obtained before any remote or cache work.
func requireToken(ctx context.Context, tokens services.TokenProvider) error {
	if tokens == nil {
		return fmt.Errorf("%w: no token provider", shared.ErrNotAuthenticated)
	}
	if _, err := tokens.AccessToken(ctx); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return err
		}
		return fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
	}
	return nil
}

func discardLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

// fetchAllTracks reads every item of a playlist. The first page reveals the total and the page size the
// provider actually serves; remaining pages are fetched concurrently, at most limit at a time, and
// reassembled in offset order. A short page in the middle switches to sequential paging from there.
func fetchAllTracks(ctx context.Context, client services.PlaylistClient, playlistID string, pageSize, limit int) ([]models.TrackRef, error) {
	first, err := client.GetPlaylistTracks(ctx, playlistID, pageSize, 0)
	if err != nil {
		return nil, err
	}

	tracks := append([]models.TrackRef(nil), first.Items...)
	if len(first.Items) == 0 {
		return tracks, nil
	}

	step := len(first.Items)
	if first.Total <= step {
		if first.Total == 0 && first.HasNext {
			return fetchRemainingSequential(ctx, client, playlistID, step, tracks)
		}
		return tracks, nil
	}

	var offsets []int
	for offset := step; offset < first.Total; offset += step {
		offsets = append(offsets, offset)
	}

	pages := make([][]models.TrackRef, len(offsets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	for i, offset := range offsets {
		g.Go(func() error {
			page, err := client.GetPlaylistTracks(gctx, playlistID, step, offset)
			if err != nil {
				return err
			}
			pages[i] = page.Items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, page := range pages {
		tracks = append(tracks, page...)
		if len(page) < step && i < len(pages)-1 {
			return fetchRemainingSequential(ctx, client, playlistID, step, tracks)
		}
	}
	return tracks, nil
}

// fetchRemainingSequential pages from the end of tracks until the provider reports no next page.
func fetchRemainingSequential(ctx context.Context, client services.PlaylistClient, playlistID string, pageSize int, tracks []models.TrackRef) ([]models.TrackRef, error) {
	offset := len(tracks)
	for {
		page, err := client.GetPlaylistTracks(ctx, playlistID, pageSize, offset)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, page.Items...)
		offset += len(page.Items)
		if len(page.Items) == 0 || !page.HasNext {
			return tracks, nil
		}
	}
}

// addInBatches appends uris to a playlist in order, batchSize at a time.
func addInBatches(ctx context.Context, client services.PlaylistClient, playlistID string, uris []string, batchSize int, progress chan<- ProgressUpdate) error {
	if batchSize <= 0 {
		batchSize = defaultAddBatchSize
	}
	for start := 0; start < len(uris); start += batchSize {
		end := min(start+batchSize, len(uris))
		if err := client.AddTracksToPlaylist(ctx, playlistID, uris[start:end]); err != nil {
			return fmt.Errorf("failed to add tracks %d-%d: %w", start, end, err)
		}
		sendProgress(progress, addTracksUpdate(end, len(uris)))
	}
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// uniqueIDs returns ids without repeats, keeping first occurrences in order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// trackURIs returns the URIs of linked items, optionally keeping only the first occurrence of each.
func trackURIs(tracks []models.TrackRef, dedupe bool, seen map[string]bool) []string {
	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.Missing || t.URI == "" {
			continue
		}
		if dedupe {
			if seen[t.URI] {
				continue
			}
			seen[t.URI] = true
		}
		uris = append(uris, t.URI)
	}
	return uris
}
