package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/repositories"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	tu "github.com/desertthunder/spx/internal/testing"
)

const testUser = "user1"

type fixture struct {
	commands *Commands
	fake     *tu.FakeSpotify
	cache    *repositories.Cache
}

func setup(t *testing.T) fixture {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cache := repositories.NewCache(db)
	fake := tu.NewFakeSpotify(testUser, "Test User")
	tokens := services.StaticTokenProvider("test_token")
	logger := log.New(io.Discard)

	syncEngine := tasks.NewSyncEngine(fake, tokens, cache, tasks.SyncOptions{BatchSize: 5}, logger)
	bulkEngine := tasks.NewBulkEngine(fake, tokens, cache, tasks.BulkOptions{}, logger)

	return fixture{
		commands: New(syncEngine, bulkEngine, cache, logger),
		fake:     fake,
		cache:    cache,
	}
}

func (f fixture) sync(t *testing.T) {
	t.Helper()
	if resp := f.commands.SyncPlaylists(context.Background(), nil); !resp.Success {
		t.Fatalf("sync failed: %s", resp.Error)
	}
}

func TestErrorMessages(t *testing.T) {
	t.Run("rate limit becomes a wait message", func(t *testing.T) {
		f := setup(t)
		f.fake.FailOn("ListMyPlaylists", "", &services.APIError{
			StatusCode: http.StatusTooManyRequests,
			Header:     http.Header{"Retry-After": []string{"120"}},
		})

		resp := f.commands.SyncPlaylists(context.Background(), nil)
		if resp.Success {
			t.Fatal("expected failure")
		}
		want := "Spotify rate limit reached. Please wait 2 minutes before trying again."
		if resp.Error != want {
			t.Errorf("expected %q, got %q", want, resp.Error)
		}
	})

	t.Run("rate limit without retry-after", func(t *testing.T) {
		f := setup(t)
		f.fake.FailOn("ListMyPlaylists", "", &services.APIError{StatusCode: http.StatusTooManyRequests})

		resp := f.commands.SyncPlaylists(context.Background(), nil)
		if !strings.Contains(resp.Error, "a few minutes") {
			t.Errorf("expected fallback wait, got %q", resp.Error)
		}
	})

	t.Run("other errors keep their text", func(t *testing.T) {
		f := setup(t)
		apiErr := &services.APIError{StatusCode: http.StatusInternalServerError, Message: "boom", Method: "GET", Endpoint: "/me"}
		f.fake.FailOn("ListMyPlaylists", "", apiErr)

		resp := f.commands.SyncPlaylists(context.Background(), nil)
		if resp.Success || !strings.Contains(resp.Error, apiErr.Error()) {
			t.Errorf("expected raw error text, got %q", resp.Error)
		}
		if strings.Contains(resp.Error, "rate limit") {
			t.Errorf("expected no rate limit message, got %q", resp.Error)
		}
	})

	t.Run("validation errors", func(t *testing.T) {
		f := setup(t)
		resp := f.commands.Merge(context.Background(), tasks.MergeRequest{PlaylistIDs: []string{"a"}, Name: "x"}, nil)
		if resp.Success || !strings.Contains(resp.Error, shared.ErrTooFewPlaylists.Error()) {
			t.Errorf("unexpected response %+v", resp)
		}
	})
}

func TestQueries(t *testing.T) {
	t.Run("Playlists on an empty cache", func(t *testing.T) {
		f := setup(t)
		resp := f.commands.Playlists()
		if !resp.Success {
			t.Fatalf("expected success, got %s", resp.Error)
		}
		if got := resp.Data.([]models.PlaylistRecord); len(got) != 0 {
			t.Errorf("expected no playlists, got %d", len(got))
		}
	})

	t.Run("PlaylistDetails", func(t *testing.T) {
		f := setup(t)
		f.fake.AddPlaylist("p1", "One", testUser, tu.Track(1), models.TrackRef{Missing: true})
		f.fake.AddPlaylist("p2", "Two", testUser, tu.Track(2))
		f.sync(t)
		if resp := f.commands.SyncDetails(context.Background(), nil); !resp.Success {
			t.Fatalf("detail sync failed: %s", resp.Error)
		}

		resp := f.commands.PlaylistDetails([]string{"p2", "nope", "p1"})
		if !resp.Success {
			t.Fatalf("expected success, got %s", resp.Error)
		}
		result := resp.Data.(DetailsResult)
		if len(result.Playlists) != 2 || result.Playlists[0].Playlist.ID != "p2" {
			t.Errorf("expected request order, got %+v", result.Playlists)
		}
		if len(result.Playlists[1].UnlinkedTracks) != 1 {
			t.Errorf("expected one unlinked track on p1, got %+v", result.Playlists[1].UnlinkedTracks)
		}
		if fmt.Sprint(result.NotFound) != "[nope]" {
			t.Errorf("unexpected not found %v", result.NotFound)
		}

		if resp := f.commands.PlaylistDetails(nil); resp.Success {
			t.Error("expected missing ids to fail")
		}
	})

	t.Run("History", func(t *testing.T) {
		f := setup(t)
		f.fake.AddPlaylist("p1", "One", testUser)
		f.sync(t)
		for _, tags := range []string{"a", "b", "c"} {
			f.commands.UpdateTags([]string{"p1"}, tags, true)
		}

		resp := f.commands.History(2)
		entries := resp.Data.([]models.HistoryEntry)
		if len(entries) != 2 || entries[0].ID < entries[1].ID {
			t.Errorf("expected 2 newest-first entries, got %+v", entries)
		}
		if all := f.commands.History(0).Data.([]models.HistoryEntry); len(all) != 3 {
			t.Errorf("expected default limit to return all 3 entries, got %d", len(all))
		}
	})
}

func TestUpdateTags(t *testing.T) {
	f := setup(t)
	f.fake.AddPlaylist("p1", "One", testUser)
	f.fake.AddPlaylist("p2", "Two", "someone")
	f.sync(t)

	resp := f.commands.UpdateTags([]string{"p1", "p2", "missing"}, "  chill  focus chill ", false)
	if !resp.Success {
		t.Fatalf("expected success, got %s", resp.Error)
	}
	result := resp.Data.(TagResult)
	if result.Updated != 2 || fmt.Sprint(result.Failed) != "[missing]" {
		t.Errorf("unexpected result %+v", result)
	}
	if result.Tags["p2"] != "chill focus" {
		t.Errorf("expected normalized tags on followed playlist, got %q", result.Tags["p2"])
	}

	resp = f.commands.UpdateTags([]string{"p1"}, "gym chill", true)
	if got := resp.Data.(TagResult).Tags["p1"]; got != "chill focus gym" {
		t.Errorf("expected appended tags, got %q", got)
	}

	rec, _ := f.cache.GetPlaylistByID("p1")
	if rec.Tags != "chill focus gym" {
		t.Errorf("expected cached tags, got %q", rec.Tags)
	}

	if resp := f.commands.UpdateTags([]string{"p1"}, "  ", true); resp.Success {
		t.Error("expected appending nothing to fail")
	}
	if resp := f.commands.UpdateTags([]string{"p1"}, "", false); !resp.Success {
		t.Errorf("expected clearing tags to succeed, got %s", resp.Error)
	}

	entries, _ := f.cache.GetOperationHistory(10)
	if len(entries) != 3 || entries[0].Kind != models.OpTag {
		t.Errorf("expected 3 tag entries, got %+v", entries)
	}
	if f.fake.CallCount("RenamePlaylist") != 0 || len(f.fake.Calls()) != 2 {
		t.Errorf("expected tags to stay local, got calls %v", f.fake.Calls())
	}
}

func TestMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("Delete reports rejected ids", func(t *testing.T) {
		f := setup(t)
		f.fake.AddPlaylist("p1", "Mine", testUser)
		f.fake.AddPlaylist("p2", "Theirs", "someone")
		f.sync(t)

		resp := f.commands.Delete(ctx, []string{"p1", "p2"}, nil)
		if resp.Success {
			t.Fatal("expected failure")
		}
		result, ok := resp.Data.(*tasks.DeleteResult)
		if !ok || fmt.Sprint(result.Failed) != "[p2]" {
			t.Errorf("expected partial result with p2, got %+v", resp.Data)
		}
	})

	t.Run("Delete partial failure is a success", func(t *testing.T) {
		f := setup(t)
		f.fake.AddPlaylist("p1", "A", testUser)
		f.fake.AddPlaylist("p2", "B", testUser)
		f.sync(t)
		f.fake.FailOn("UnfollowPlaylist", "p2", tu.ErrFake)

		resp := f.commands.Delete(ctx, []string{"p1", "p2"}, nil)
		if !resp.Success {
			t.Fatalf("expected success, got %s", resp.Error)
		}
		if result := resp.Data.(*tasks.DeleteResult); result.Deleted != 1 || result.Success {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("Merge then rename", func(t *testing.T) {
		f := setup(t)
		f.fake.AddPlaylist("p1", "A", testUser, tu.Track(1))
		f.fake.AddPlaylist("p2", "B", testUser, tu.Track(2))
		f.sync(t)

		resp := f.commands.Merge(ctx, tasks.MergeRequest{PlaylistIDs: []string{"p1", "p2"}, Name: "AB"}, nil)
		if !resp.Success {
			t.Fatalf("merge failed: %s", resp.Error)
		}
		merged := resp.Data.(*tasks.MergeResult)

		resp = f.commands.Rename(ctx, merged.PlaylistID, "Both")
		if !resp.Success || resp.Data.(*tasks.RenameChange).To != "Both" {
			t.Errorf("unexpected rename response %+v", resp)
		}

		resp = f.commands.BulkRename(ctx, []string{"p1", "p2"}, "^", "Old ", nil)
		if !resp.Success || resp.Data.(*tasks.RenameResult).Renamed != 2 {
			t.Errorf("unexpected bulk rename response %+v", resp)
		}
	})

	t.Run("RemoveDuplicates and FixBrokenLinks outcomes", func(t *testing.T) {
		f := setup(t)
		f.fake.AddPlaylist("p1", "A", testUser, tu.Track(1), tu.Track(1))
		f.sync(t)

		if resp := f.commands.RemoveDuplicates(ctx, "p1", nil); !resp.Success {
			t.Errorf("expected dedupe to succeed, got %s", resp.Error)
		}

		resp := f.commands.FixBrokenLinks(ctx, "p1", nil)
		if resp.Success || !strings.Contains(resp.Error, shared.ErrNoUnlinkedTracks.Error()) {
			t.Errorf("unexpected response %+v", resp)
		}
		if result, ok := resp.Data.(*tasks.RecoveryResult); !ok || result.Total != 0 {
			t.Errorf("expected the empty recovery result, got %+v", resp.Data)
		}
	})
}

func TestSplitIDs(t *testing.T) {
	got := SplitIDs(" a,b  c,,\td ")
	if fmt.Sprint(got) != "[a b c d]" {
		t.Errorf("unexpected ids %v", got)
	}
	if len(SplitIDs("")) != 0 {
		t.Error("expected no ids")
	}
}
