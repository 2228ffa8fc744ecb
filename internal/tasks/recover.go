package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/time/rate"
)

// Failure reasons of broken-link recovery.
const (
	reasonMissingMetadata = "missing track metadata"
	reasonNoMatches       = "no matches found"
)

// RecoveryResult reports a broken-link recovery.
type RecoveryResult struct {
	SourceID     string               `json:"source_id"`
	PlaylistID   string               `json:"playlist_id,omitempty"`
	Name         string               `json:"name,omitempty"`
	Total        int                  `json:"total"`
	Recovered    int                  `json:"recovered"`
	Failed       int                  `json:"failed"`
	FailedTracks []models.FailedTrack `json:"failed_tracks"`
	ReportPath   string               `json:"report_path,omitempty"`
}

type brokenItem struct {
	position int
	track    models.TrackRef
}

// bestCandidate returns the most popular candidate, keeping provider order on ties.
func bestCandidate(candidates []models.SearchCandidate) (models.SearchCandidate, bool) {
	usable := make([]models.SearchCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.URI != "" {
			usable = append(usable, c)
		}
	}
	if len(usable) == 0 {
		return models.SearchCandidate{}, false
	}
	sort.SliceStable(usable, func(i, j int) bool { return usable[i].Popularity > usable[j].Popularity })
	return usable[0], true
}

// FixBrokenLinks searches the catalog for a replacement of every unlinked item and creates
// "{name} - Recovered" holding the replacements.
//
// Missing name or artist is filled from the unlinked tracks cached by the detail pass. Searches are
// spaced by the configured delay. Tracks that could not be recovered are written to a CSV report when a
// report directory is configured.
func (e *BulkEngine) FixBrokenLinks(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*RecoveryResult, error) {
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

	logger := e.logger.With("op", shared.GenerateID(), "kind", models.OpFixBrokenLinks)

	sendProgress(progress, fetchSourceUpdate(1, 1, playlistID))
	tracks, err := fetchAllTracks(ctx, e.client, playlistID, e.opts.TrackPageSize, e.opts.MaxConcurrentRequests)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tracks: %w", err)
	}

	var broken []brokenItem
	for pos, t := range tracks {
		if t.Unlinked() {
			broken = append(broken, brokenItem{position: pos, track: t})
		}
	}

	result := &RecoveryResult{SourceID: playlistID, Total: len(broken), FailedTracks: []models.FailedTrack{}}
	if len(broken) == 0 {
		return result, fmt.Errorf("%w: %s", shared.ErrNoUnlinkedTracks, rec.Name)
	}

	cached := make(map[int]models.UnlinkedTrack)
	if rows, err := e.cache.UnlinkedTracks(playlistID); err != nil {
		logger.Warn("failed to read cached unlinked tracks", "error", err)
	} else {
		for _, row := range rows {
			cached[row.Position] = row
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if e.opts.SearchDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(e.opts.SearchDelay), 1)
	}

	var recovered []string
	for i, item := range broken {
		name, artist := item.track.Name, item.track.Artist
		if fallback, ok := cached[item.position]; ok {
			if strings.TrimSpace(name) == "" {
				name = fallback.Name
			}
			if strings.TrimSpace(artist) == "" {
				artist = fallback.Artist
			}
		}

		fail := func(reason string) {
			result.FailedTracks = append(result.FailedTracks, models.FailedTrack{
				Position: item.position,
				Name:     name,
				Artist:   artist,
				URI:      item.track.URI,
				Reason:   reason,
			})
		}

		if strings.TrimSpace(name) == "" || strings.TrimSpace(artist) == "" {
			fail(reasonMissingMetadata)
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		sendProgress(progress, searchUpdate(i+1, len(broken), name, artist))

		candidates, err := e.client.SearchTracks(ctx, services.SearchQuery(name, artist), e.opts.SearchLimit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			fail("search failed: " + err.Error())
			continue
		}

		best, ok := bestCandidate(candidates)
		if !ok {
			fail(reasonNoMatches)
			continue
		}
		recovered = append(recovered, best.URI)
	}

	result.Recovered = len(recovered)
	result.Failed = len(result.FailedTracks)

	if result.Failed > 0 && e.opts.ReportDir != "" {
		path, err := formatter.WriteRecoveryReport(e.opts.ReportDir, playlistID, e.now(), result.FailedTracks)
		if err != nil {
			logger.Warn("failed to write recovery report", "error", err)
		} else {
			result.ReportPath = path
		}
	}

	if result.Recovered == 0 {
		return result, fmt.Errorf("%w: none of %d unlinked tracks in %s", shared.ErrNothingRecovered, result.Total, rec.Name)
	}

	valid := models.FilterValidURIs(recovered)
	if len(valid) == 0 {
		return result, fmt.Errorf("%w: replacements have no valid track URIs", shared.ErrNoValidTracks)
	}

	user, err := e.client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}

	name := rec.Name + " - Recovered"
	description := fmt.Sprintf("Recovered %d of %d unavailable tracks from %s", result.Recovered, result.Total, rec.Name)
	newID, err := e.client.CreatePlaylist(ctx, name, description, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	if err := addInBatches(ctx, e.client, newID, valid, e.opts.AddBatchSize, progress); err != nil {
		return nil, fmt.Errorf("playlist %s created but incomplete: %w", newID, err)
	}

	result.PlaylistID = newID
	result.Name = name
	sendProgress(progress, createPlaylistUpdate(name, newID, len(valid)))
	e.cacheCreated(logger, newID, name, user.Name(), len(valid))

	e.record(logger, models.OpFixBrokenLinks, []string{playlistID, newID}, map[string]any{
		"new_playlist_id": newID,
		"total":           result.Total,
		"recovered":       result.Recovered,
		"failed":          result.Failed,
		"report_path":     result.ReportPath,
	})

	logger.Info("broken links fixed", "source", playlistID, "playlist", newID, "recovered", result.Recovered, "failed", result.Failed)
	return result, nil
}
