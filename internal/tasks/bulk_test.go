package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/repositories"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	tu "github.com/desertthunder/spx/internal/testing"
)

// newBulk syncs the fake library into a fresh cache and returns a bulk engine over both.
func newBulk(t *testing.T, fake *tu.FakeSpotify, opts BulkOptions) (*BulkEngine, *repositories.Cache) {
	t.Helper()
	cache := setupCache(t)
	if _, err := NewSyncEngine(fake, testTokens, cache, fastSyncOptions(), nil).SyncAllPlaylists(context.Background(), nil); err != nil {
		t.Fatalf("listing pass failed: %v", err)
	}
	return NewBulkEngine(fake, testTokens, cache, opts, nil), cache
}

func historyKinds(t *testing.T, cache *repositories.Cache) []models.OperationKind {
	t.Helper()
	entries, err := cache.GetOperationHistory(50)
	if err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	kinds := make([]models.OperationKind, 0, len(entries))
	for _, e := range entries {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func uris(tracks []models.TrackRef) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.URI)
	}
	return out
}

// lookupCountingCache counts single and batched playlist lookups.
type lookupCountingCache struct {
	CacheStore
	single, batched *int
}

func (c lookupCountingCache) GetPlaylistByID(id string) (*models.PlaylistRecord, error) {
	*c.single++
	return c.CacheStore.GetPlaylistByID(id)
}

func (c lookupCountingCache) GetPlaylistsByIDs(ids []string) ([]models.PlaylistRecord, error) {
	*c.batched++
	return c.CacheStore.GetPlaylistsByIDs(ids)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("checks ownership with one cache query", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "A", testUser)
		fake.AddPlaylist("p2", "B", testUser)
		fake.AddPlaylist("p3", "C", testUser)
		_, cache := newBulk(t, fake, fastBulkOptions())

		var single, batched int
		engine := NewBulkEngine(fake, testTokens, lookupCountingCache{CacheStore: cache, single: &single, batched: &batched}, fastBulkOptions(), nil)

		if _, err := engine.Delete(ctx, []string{"p1", "p2", "p3"}, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if batched != 1 || single != 0 {
			t.Errorf("expected 1 batched lookup and no single lookups, got %d and %d", batched, single)
		}
	})

	t.Run("deletes owned playlists", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "A", testUser)
		fake.AddPlaylist("p2", "B", testUser)
		engine, cache := newBulk(t, fake, fastBulkOptions())

		result, err := engine.Delete(ctx, []string{"p1", "p2"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Deleted != 2 || !result.Success || len(result.Failed) != 0 {
			t.Errorf("unexpected result %+v", result)
		}
		if fake.Has("p1") || fake.Has("p2") {
			t.Error("expected playlists to be unfollowed")
		}
		if rec, _ := cache.GetPlaylistByID("p1"); rec != nil {
			t.Error("expected cache row to be deleted")
		}
		if kinds := historyKinds(t, cache); len(kinds) != 1 || kinds[0] != models.OpDelete {
			t.Errorf("expected one delete entry, got %v", kinds)
		}
	})

	t.Run("rejects the batch when any playlist is not owned", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "Mine", testUser)
		fake.AddPlaylist("p2", "Theirs", "someone")
		engine, cache := newBulk(t, fake, fastBulkOptions())

		result, err := engine.Delete(ctx, []string{"p1", "p2", "unknown"}, nil)
		if !errors.Is(err, shared.ErrNotOwner) {
			t.Fatalf("expected ErrNotOwner, got %v", err)
		}
		if fmt.Sprint(result.Failed) != "[p2 unknown]" || result.Deleted != 0 {
			t.Errorf("expected exactly the disallowed ids, got %+v", result)
		}
		if fake.CallCount("UnfollowPlaylist") != 0 {
			t.Error("expected no remote calls")
		}
		if !fake.Has("p1") {
			t.Error("expected owned playlist to survive")
		}
		if kinds := historyKinds(t, cache); len(kinds) != 0 {
			t.Errorf("expected no history, got %v", kinds)
		}
	})

	t.Run("collects remote failures", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "A", testUser)
		fake.AddPlaylist("p2", "B", testUser)
		fake.AddPlaylist("p3", "C", testUser)
		engine, cache := newBulk(t, fake, fastBulkOptions())
		fake.FailOn("UnfollowPlaylist", "p2", tu.ErrFake)

		result, err := engine.Delete(ctx, []string{"p1", "p2", "p3"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Deleted != 2 || result.Success || fmt.Sprint(result.Failed) != "[p2]" {
			t.Errorf("unexpected result %+v", result)
		}

		entries, _ := cache.GetOperationHistory(1)
		if fmt.Sprint(entries[0].PlaylistIDs) != "[p1 p3]" {
			t.Errorf("expected history to list only deleted ids, got %v", entries[0].PlaylistIDs)
		}
	})

	t.Run("repeated ids are deleted once", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "A", testUser)
		engine, _ := newBulk(t, fake, fastBulkOptions())

		result, err := engine.Delete(ctx, []string{"p1", "p1"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Deleted != 1 || fake.CallCount("UnfollowPlaylist") != 1 {
			t.Errorf("expected one deletion, got %+v", result)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		engine, _ := newBulk(t, newFake(), fastBulkOptions())
		if _, err := engine.Delete(ctx, nil, nil); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "A", testUser)
		engine, _ := newBulk(t, fake, fastBulkOptions())
		engine.tokens = services.StaticTokenProvider("")

		if _, err := engine.Delete(ctx, []string{"p1"}, nil); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if !fake.Has("p1") {
			t.Error("expected no side effects")
		}
	})
}

func TestMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("deduplicates across sources", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "A", testUser, tu.Track(1), tu.Track(2), tu.Track(3), tu.Track(2))
		fake.AddPlaylist("p2", "B", testUser, tu.Track(3), tu.Track(4), tu.Track(5))
		engine, cache := newBulk(t, fake, fastBulkOptions())

		result, err := engine.Merge(ctx, MergeRequest{PlaylistIDs: []string{"p1", "p2"}, Name: "Both", RemoveDuplicates: true}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.TrackCount != 5 {
			t.Errorf("expected 5 unique tracks, got %d", result.TrackCount)
		}

		merged := fake.Playlist(result.PlaylistID)
		want := []string{tu.TrackURI(1), tu.TrackURI(2), tu.TrackURI(3), tu.TrackURI(4), tu.TrackURI(5)}
		if fmt.Sprint(uris(merged.Tracks)) != fmt.Sprint(want) {
			t.Errorf("expected first-occurrence order %v, got %v", want, uris(merged.Tracks))
		}
		if merged.Summary.Public {
			t.Error("expected merged playlist to be private")
		}

		rec, _ := cache.GetPlaylistByID(result.PlaylistID)
		if rec == nil || !rec.IsOwner || rec.TrackCount != 5 || rec.Owner != "Test User" {
			t.Errorf("expected merged playlist to be cached as owned, got %+v", rec)
		}
		if kinds := historyKinds(t, cache); len(kinds) != 1 || kinds[0] != models.OpMerge {
			t.Errorf("expected one merge entry, got %v", kinds)
		}
	})

	t.Run("keeps duplicates without dedupe", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "A", testUser, tu.Track(1), tu.Track(2))
		fake.AddPlaylist("p2", "B", testUser, tu.Track(2))
		engine, _ := newBulk(t, fake, fastBulkOptions())

		result, err := engine.Merge(ctx, MergeRequest{PlaylistIDs: []string{"p1", "p2"}, Name: "All"}, nil)
		if err != nil || result.TrackCount != 3 {
			t.Errorf("expected 3 tracks, got %+v (%v)", result, err)
		}
	})

	t.Run("only malformed URIs creates nothing", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "A", testUser, models.TrackRef{URI: "spotify:local:a:b:c:1", ID: "x"})
		fake.AddPlaylist("p2", "B", testUser, models.TrackRef{URI: "spotify:episode:abc", ID: "y"})
		engine, cache := newBulk(t, fake, fastBulkOptions())

		_, err := engine.Merge(ctx, MergeRequest{PlaylistIDs: []string{"p1", "p2"}, Name: "Nope"}, nil)
		if !errors.Is(err, shared.ErrNoValidTracks) {
			t.Fatalf("expected ErrNoValidTracks, got %v", err)
		}
		if fake.CallCount("CreatePlaylist") != 0 {
			t.Error("expected no playlist to be created")
		}
		if kinds := historyKinds(t, cache); len(kinds) != 0 {
			t.Errorf("expected no history, got %v", kinds)
		}
	})

	t.Run("skips unreadable sources", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "A", testUser, tu.Track(1))
		fake.AddPlaylist("p2", "B", testUser, tu.Track(2))
		fake.AddPlaylist("p3", "C", testUser, tu.Track(3))
		engine, _ := newBulk(t, fake, fastBulkOptions())
		fake.FailOn("GetPlaylistTracks", "p2", tu.ErrFake)

		result, err := engine.Merge(ctx, MergeRequest{PlaylistIDs: []string{"p1", "p2", "p3"}, Name: "Partial"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if fmt.Sprint(result.SkippedSources) != "[p2]" || result.TrackCount != 2 {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("keeps unreadable sources when deleting sources", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "A", testUser, tu.Track(1))
		fake.AddPlaylist("p2", "B", testUser, tu.Track(2))
		fake.AddPlaylist("p3", "C", testUser, tu.Track(3))
		engine, cache := newBulk(t, fake, fastBulkOptions())
		fake.FailOn("GetPlaylistTracks", "p2", tu.ErrFake)

		result, err := engine.Merge(ctx, MergeRequest{PlaylistIDs: []string{"p1", "p2", "p3"}, Name: "Partial", DeleteSources: true}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if fmt.Sprint(result.SkippedSources) != "[p2]" || fmt.Sprint(result.SourcesKept) != "[p2]" {
			t.Errorf("expected p2 skipped and kept, got %+v", result)
		}
		if result.SourcesDeleted {
			t.Error("expected sources_deleted to be false while a source is kept")
		}
		if result.SourceDeletion == nil || fmt.Sprint(result.SourceDeletion.DeletedIDs) != "[p1 p3]" {
			t.Errorf("expected only p1 and p3 deleted, got %+v", result.SourceDeletion)
		}
		if !fake.Has("p2") || fake.Has("p1") || fake.Has("p3") {
			t.Error("expected only the merged sources to be unfollowed")
		}
		if rec, _ := cache.GetPlaylistByID("p2"); rec == nil {
			t.Error("expected p2 to stay cached")
		}
		if n := fake.CallCount("UnfollowPlaylist"); n != 2 {
			t.Errorf("expected 2 unfollow calls, got %d", n)
		}
	})

	t.Run("validation", func(t *testing.T) {
		engine, _ := newBulk(t, newFake(), fastBulkOptions())

		if _, err := engine.Merge(ctx, MergeRequest{PlaylistIDs: []string{"p1"}, Name: "X"}, nil); !errors.Is(err, shared.ErrTooFewPlaylists) {
			t.Errorf("expected ErrTooFewPlaylists, got %v", err)
		}
		if _, err := engine.Merge(ctx, MergeRequest{PlaylistIDs: []string{"p1", "p2"}, Name: "  "}, nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("source delete failure keeps the merge", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "A", testUser, tu.Track(1))
		fake.AddPlaylist("p2", "B", "someone", tu.Track(2))
		engine, _ := newBulk(t, fake, fastBulkOptions())

		result, err := engine.Merge(ctx, MergeRequest{PlaylistIDs: []string{"p1", "p2"}, Name: "M", DeleteSources: true}, nil)
		if err != nil {
			t.Fatalf("expected merge to succeed, got %v", err)
		}
		if result.SourcesDeleted || result.SourceDeleteError == "" {
			t.Errorf("expected a reported source delete error, got %+v", result)
		}
		if !fake.Has("p1") || !fake.Has(result.PlaylistID) {
			t.Error("expected sources and merged playlist to remain")
		}
	})
}

func TestRemoveDuplicates(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps first occurrences", func(t *testing.T) {
		fake := newFake()
		a, b, c := tu.Track(1), tu.Track(2), tu.Track(3)
		fake.AddPlaylist("p1", "Loops", testUser, a, b, a, c, b)
		engine, cache := newBulk(t, fake, fastBulkOptions())

		result, err := engine.RemoveDuplicates(ctx, "p1", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.OriginalCount != 5 || result.UniqueCount != 3 || result.DuplicatesRemoved != 2 || result.AddedCount != 3 {
			t.Errorf("unexpected counts %+v", result)
		}
		if len(result.InvalidURIs) != 0 {
			t.Errorf("expected no invalid URIs, got %v", result.InvalidURIs)
		}
		if result.Name != "Loops - No Duplicates" {
			t.Errorf("unexpected name %s", result.Name)
		}

		created := fake.Playlist(result.PlaylistID)
		if fmt.Sprint(uris(created.Tracks)) != fmt.Sprint([]string{a.URI, b.URI, c.URI}) {
			t.Errorf("unexpected tracks %v", uris(created.Tracks))
		}
		if len(fake.Playlist("p1").Tracks) != 5 {
			t.Error("expected source playlist to be untouched")
		}
		if kinds := historyKinds(t, cache); len(kinds) != 1 || kinds[0] != models.OpRemoveDuplicates {
			t.Errorf("expected one remove_duplicates entry, got %v", kinds)
		}
	})

	t.Run("skips unlinked items", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "Mixed", testUser, tu.Track(1), models.TrackRef{Missing: true}, models.TrackRef{Missing: true}, tu.Track(1))
		engine, _ := newBulk(t, fake, fastBulkOptions())

		result, err := engine.RemoveDuplicates(ctx, "p1", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.OriginalCount != 2 || result.DuplicatesRemoved != 1 {
			t.Errorf("unexpected counts %+v", result)
		}
	})

	t.Run("reports URIs that cannot be added", func(t *testing.T) {
		fake := newFake()
		episode := models.TrackRef{URI: "spotify:episode:ep1", ID: "ep1", Name: "Episode"}
		a, b := tu.Track(1), tu.Track(2)
		fake.AddPlaylist("p1", "Podcast Mix", testUser, a, episode, a, b, episode)
		engine, _ := newBulk(t, fake, fastBulkOptions())

		result, err := engine.RemoveDuplicates(ctx, "p1", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.OriginalCount-result.DuplicatesRemoved != result.UniqueCount {
			t.Errorf("expected original - removed = unique, got %+v", result)
		}
		if result.OriginalCount != 5 || result.UniqueCount != 3 || result.AddedCount != 2 {
			t.Errorf("unexpected counts %+v", result)
		}
		if fmt.Sprint(result.InvalidURIs) != "[spotify:episode:ep1]" {
			t.Errorf("expected the episode to be reported, got %v", result.InvalidURIs)
		}
		if got := fake.Playlist(result.PlaylistID).Tracks; len(got) != 2 {
			t.Errorf("expected 2 tracks added, got %d", len(got))
		}
	})

	t.Run("no duplicates", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "Unique", testUser, tu.Tracks(1, 3)...)
		engine, cache := newBulk(t, fake, fastBulkOptions())

		if _, err := engine.RemoveDuplicates(ctx, "p1", nil); !errors.Is(err, shared.ErrNoDuplicates) {
			t.Errorf("expected ErrNoDuplicates, got %v", err)
		}
		if fake.CallCount("CreatePlaylist") != 0 {
			t.Error("expected no playlist to be created")
		}
		if kinds := historyKinds(t, cache); len(kinds) != 0 {
			t.Errorf("expected no history, got %v", kinds)
		}
	})

	t.Run("not cached", func(t *testing.T) {
		engine, _ := newBulk(t, newFake(), fastBulkOptions())
		if _, err := engine.RemoveDuplicates(ctx, "missing", nil); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})
}

func TestFixBrokenLinks(t *testing.T) {
	ctx := context.Background()
	notPlayable := false

	t.Run("recovers with the most popular candidate", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "Old", testUser,
			tu.Track(1),
			models.TrackRef{URI: tu.TrackURI(2), ID: "x", Name: "Song", Artist: "Band", Playable: &notPlayable},
			models.TrackRef{URI: tu.TrackURI(3), ID: "y", Name: "Lost", Artist: "Nobody", Playable: &notPlayable},
			models.TrackRef{Missing: true},
		)
		fake.SetSearchResults(services.SearchQuery("Song", "Band"),
			models.SearchCandidate{URI: tu.TrackURI(20), Popularity: 10},
			models.SearchCandidate{URI: tu.TrackURI(21), Popularity: 80},
			models.SearchCandidate{URI: tu.TrackURI(22), Popularity: 80},
		)

		reports := t.TempDir()
		opts := fastBulkOptions()
		opts.ReportDir = reports
		engine, cache := newBulk(t, fake, opts)

		result, err := engine.FixBrokenLinks(ctx, "p1", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Total != 3 || result.Recovered != 1 || result.Failed != 2 {
			t.Errorf("unexpected counts %+v", result)
		}
		if result.Name != "Old - Recovered" {
			t.Errorf("unexpected name %s", result.Name)
		}

		created := fake.Playlist(result.PlaylistID)
		if len(created.Tracks) != 1 || created.Tracks[0].URI != tu.TrackURI(21) {
			t.Errorf("expected the first most popular candidate, got %v", uris(created.Tracks))
		}

		reasons := []string{result.FailedTracks[0].Reason, result.FailedTracks[1].Reason}
		if fmt.Sprint(reasons) != fmt.Sprint([]string{reasonNoMatches, reasonMissingMetadata}) {
			t.Errorf("unexpected failure reasons %v", reasons)
		}

		if result.ReportPath == "" || filepath.Dir(result.ReportPath) != reports {
			t.Fatalf("expected a report under %s, got %q", reports, result.ReportPath)
		}
		content, err := os.ReadFile(result.ReportPath)
		if err != nil || !strings.Contains(string(content), "Lost,Nobody") {
			t.Errorf("unexpected report content %q (%v)", content, err)
		}

		if kinds := historyKinds(t, cache); len(kinds) != 1 || kinds[0] != models.OpFixBrokenLinks {
			t.Errorf("expected one fix_broken_links entry, got %v", kinds)
		}
	})

	t.Run("falls back to cached metadata", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "Old", testUser, tu.Track(1), models.TrackRef{Missing: true})
		fake.SetSearchResults(services.SearchQuery("Cached", "Artist"), models.SearchCandidate{URI: tu.TrackURI(9)})
		engine, cache := newBulk(t, fake, fastBulkOptions())

		if err := cache.SaveUnlinkedTracks("p1", []models.UnlinkedTrack{
			{PlaylistID: "p1", Position: 1, Name: "Cached", Artist: "Artist", Reason: models.ReasonMissingTrack},
		}); err != nil {
			t.Fatalf("failed to seed unlinked tracks: %v", err)
		}

		result, err := engine.FixBrokenLinks(ctx, "p1", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Recovered != 1 {
			t.Errorf("expected cached metadata to be used, got %+v", result)
		}
	})

	t.Run("search errors are per track", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "Old", testUser,
			models.TrackRef{URI: tu.TrackURI(2), Name: "A", Artist: "X"},
			models.TrackRef{URI: tu.TrackURI(3), Name: "B", Artist: "Y"},
		)
		fake.FailOn("SearchTracks", services.SearchQuery("A", "X"), tu.ErrFake)
		fake.SetSearchResults(services.SearchQuery("B", "Y"), models.SearchCandidate{URI: tu.TrackURI(30)})
		engine, _ := newBulk(t, fake, fastBulkOptions())

		result, err := engine.FixBrokenLinks(ctx, "p1", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Recovered != 1 || !strings.HasPrefix(result.FailedTracks[0].Reason, "search failed: ") {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("no unlinked tracks", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "Fine", testUser, tu.Tracks(1, 3)...)
		engine, _ := newBulk(t, fake, fastBulkOptions())

		result, err := engine.FixBrokenLinks(ctx, "p1", nil)
		if !errors.Is(err, shared.ErrNoUnlinkedTracks) {
			t.Fatalf("expected ErrNoUnlinkedTracks, got %v", err)
		}
		if result.Total != 0 || fake.CallCount("SearchTracks") != 0 {
			t.Errorf("expected no searches, got %+v", result)
		}
	})

	t.Run("nothing recovered", func(t *testing.T) {
		fake := newFake()
		fake.AddPlaylist("p1", "Old", testUser, models.TrackRef{Missing: true}, models.TrackRef{URI: tu.TrackURI(1), Name: "Z", Artist: "Q"})
		engine, cache := newBulk(t, fake, fastBulkOptions())

		result, err := engine.FixBrokenLinks(ctx, "p1", nil)
		if !errors.Is(err, shared.ErrNothingRecovered) {
			t.Fatalf("expected ErrNothingRecovered, got %v", err)
		}
		if result.Total != 2 || fake.CallCount("CreatePlaylist") != 0 {
			t.Errorf("unexpected result %+v", result)
		}
		if kinds := historyKinds(t, cache); len(kinds) != 0 {
			t.Errorf("expected no history, got %v", kinds)
		}
	})
}

func TestBulkRename(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*BulkEngine, *tu.FakeSpotify, *repositories.Cache) {
		fake := newFake()
		fake.AddPlaylist("p1", "Summer 2023", testUser)
		fake.AddPlaylist("p2", "Winter 2023", testUser)
		fake.AddPlaylist("p3", "Borrowed 2023", "someone")
		engine, cache := newBulk(t, fake, fastBulkOptions())
		return engine, fake, cache
	}

	t.Run("replaces with group expansion", func(t *testing.T) {
		engine, fake, cache := setup(t)

		result, err := engine.BulkRename(ctx, []string{"p1", "p2", "p3", "missing"}, `(\w+) 2023`, "$1 '23", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Renamed != 2 || result.Skipped != 0 || result.Failed != 2 {
			t.Errorf("unexpected result %+v", result)
		}
		if got := fake.Playlist("p1").Summary.Name; got != "Summer '23" {
			t.Errorf("expected remote rename, got %s", got)
		}
		if rec, _ := cache.GetPlaylistByID("p2"); rec.Name != "Winter '23" {
			t.Errorf("expected cached rename, got %s", rec.Name)
		}
		if kinds := historyKinds(t, cache); len(kinds) != 1 || kinds[0] != models.OpBulkRename {
			t.Errorf("expected one bulk_rename entry, got %v", kinds)
		}
	})

	t.Run("repeated ids are renamed once", func(t *testing.T) {
		engine, fake, _ := setup(t)

		result, err := engine.BulkRename(ctx, []string{"p1", "p1"}, "^", "Best ", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Renamed != 1 || len(result.Changes) != 1 {
			t.Errorf("expected a single rename, got %+v", result)
		}
		if got := fake.Playlist("p1").Summary.Name; got != "Best Summer 2023" {
			t.Errorf("expected the pattern applied once, got %s", got)
		}
		if n := fake.CallCount("RenamePlaylist"); n != 1 {
			t.Errorf("expected 1 remote rename, got %d", n)
		}
	})

	t.Run("identical name is skipped", func(t *testing.T) {
		engine, fake, cache := setup(t)

		result, err := engine.BulkRename(ctx, []string{"p1"}, "Autumn", "Spring", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Renamed != 0 || result.Failed != 0 || result.Skipped != 1 {
			t.Errorf("unexpected result %+v", result)
		}
		if fake.CallCount("RenamePlaylist") != 0 {
			t.Error("expected no remote calls")
		}
		if kinds := historyKinds(t, cache); len(kinds) != 0 {
			t.Errorf("expected no history, got %v", kinds)
		}
	})

	t.Run("blank result fails without a remote call", func(t *testing.T) {
		engine, fake, _ := setup(t)

		result, err := engine.BulkRename(ctx, []string{"p1"}, ".*", "", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Failed != 1 || result.Renamed != 0 {
			t.Errorf("unexpected result %+v", result)
		}
		if fake.CallCount("RenamePlaylist") != 0 || fake.Playlist("p1").Summary.Name != "Summer 2023" {
			t.Error("expected playlist to be unchanged")
		}
	})

	t.Run("remote failure is per playlist", func(t *testing.T) {
		engine, fake, _ := setup(t)
		fake.FailOn("RenamePlaylist", "p1", tu.ErrFake)

		result, err := engine.BulkRename(ctx, []string{"p1", "p2"}, "2023", "2024", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Renamed != 1 || result.Failed != 1 || result.Failures[0].PlaylistID != "p1" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("invalid pattern", func(t *testing.T) {
		engine, fake, _ := setup(t)
		if _, err := engine.BulkRename(ctx, []string{"p1"}, "(", "x", nil); !errors.Is(err, shared.ErrInvalidPattern) {
			t.Errorf("expected ErrInvalidPattern, got %v", err)
		}
		if fake.CallCount("RenamePlaylist") != 0 {
			t.Error("expected no remote calls")
		}
	})

	t.Run("Rename", func(t *testing.T) {
		engine, fake, cache := setup(t)

		change, err := engine.Rename(ctx, "p1", "Beach")
		if err != nil || change.From != "Summer 2023" || change.To != "Beach" {
			t.Fatalf("unexpected change %+v (%v)", change, err)
		}
		if fake.Playlist("p1").Summary.Name != "Beach" {
			t.Error("expected remote rename")
		}
		if kinds := historyKinds(t, cache); len(kinds) != 1 || kinds[0] != models.OpRename {
			t.Errorf("expected one rename entry, got %v", kinds)
		}

		if _, err := engine.Rename(ctx, "p3", "Mine now"); !errors.Is(err, shared.ErrNotOwner) {
			t.Errorf("expected ErrNotOwner, got %v", err)
		}
		if _, err := engine.Rename(ctx, "p1", " "); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

// TestSyncMergeDelete runs a listing pass, merges two owned playlists sharing one track, and deletes the sources.
func TestSyncMergeDelete(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	fake.AddPlaylist("a", "A", testUser, tu.Tracks(1, 4)...)
	fake.AddPlaylist("b", "B", testUser, tu.Track(4), tu.Track(5), tu.Track(6))
	fake.AddPlaylist("c", "C", "someone", tu.Track(7))

	cache := setupCache(t)
	synced, err := NewSyncEngine(fake, testTokens, cache, fastSyncOptions(), nil).SyncAllPlaylists(ctx, nil)
	if err != nil {
		t.Fatalf("listing pass failed: %v", err)
	}
	if synced.Total != 3 || synced.Synced != 3 {
		t.Fatalf("expected 3/3 synced, got %+v", synced)
	}

	engine := NewBulkEngine(fake, testTokens, cache, fastBulkOptions(), nil)
	merged, err := engine.Merge(ctx, MergeRequest{PlaylistIDs: []string{"a", "b"}, Name: "A+B", RemoveDuplicates: true}, nil)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if merged.TrackCount != 6 || len(fake.Playlist(merged.PlaylistID).Tracks) != 6 {
		t.Fatalf("expected 6 tracks, got %d", merged.TrackCount)
	}

	deleted, err := engine.Delete(ctx, []string{"a", "b"}, nil)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted.Deleted != 2 || len(deleted.Failed) != 0 {
		t.Errorf("expected {deleted:2, failed:[]}, got %+v", deleted)
	}

	all, _ := cache.GetAllPlaylists()
	if len(all) != 2 {
		t.Errorf("expected merged and followed playlists to remain cached, got %d", len(all))
	}
	if kinds := historyKinds(t, cache); fmt.Sprint(kinds) != "[delete merge]" {
		t.Errorf("expected newest-first [delete merge], got %v", kinds)
	}
}

func TestBestCandidate(t *testing.T) {
	if _, ok := bestCandidate(nil); ok {
		t.Error("expected no candidate for empty input")
	}
	if _, ok := bestCandidate([]models.SearchCandidate{{URI: ""}}); ok {
		t.Error("expected candidates without URI to be ignored")
	}

	best, ok := bestCandidate([]models.SearchCandidate{
		{URI: "a", Popularity: 5},
		{URI: "b", Popularity: 9},
		{URI: "c", Popularity: 9},
	})
	if !ok || best.URI != "b" {
		t.Errorf("expected b, got %+v", best)
	}
}
