package testing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// ErrFake is a generic injected failure.
var ErrFake = errors.New("injected failure")

// FakePlaylist is a remote playlist held by [FakeSpotify].
type FakePlaylist struct {
	Summary   models.PlaylistSummary
	Followers int
	Tracks    []models.TrackRef
}

// FakeSpotify is an in-memory playlist provider satisfying services.PlaylistClient.
//
// Failures are injected per method, optionally scoped to a playlist id, with [FakeSpotify.FailOn].
type FakeSpotify struct {
	mu sync.Mutex

	User      models.UserProfile
	playlists map[string]*FakePlaylist
	order     []string
	failures  map[string]error
	searches  map[string][]models.SearchCandidate
	calls     []string
	nextID    int

	// Delay is slept inside every call, to observe concurrency.
	Delay       time.Duration
	inFlight    int
	MaxInFlight int
}

// NewFakeSpotify returns a provider whose current user is userID.
func NewFakeSpotify(userID, displayName string) *FakeSpotify {
	return &FakeSpotify{
		User:      models.UserProfile{ID: userID, DisplayName: displayName},
		playlists: make(map[string]*FakePlaylist),
		failures:  make(map[string]error),
		searches:  make(map[string][]models.SearchCandidate),
	}
}

// TrackURI returns a well-formed track URI for n.
func TrackURI(n int) string {
	return fmt.Sprintf("spotify:track:%022d", n)
}

// Track returns a playable track numbered n.
func Track(n int) models.TrackRef {
	playable := true
	return models.TrackRef{
		URI:        TrackURI(n),
		ID:         fmt.Sprintf("%022d", n),
		Name:       fmt.Sprintf("Track %d", n),
		Artist:     fmt.Sprintf("Artist %d", n),
		DurationMS: 1000,
		Playable:   &playable,
	}
}

// Tracks returns playable tracks numbered from..to inclusive.
func Tracks(from, to int) []models.TrackRef {
	out := make([]models.TrackRef, 0, to-from+1)
	for n := from; n <= to; n++ {
		out = append(out, Track(n))
	}
	return out
}

// AddPlaylist registers a playlist owned by ownerID.
func (f *FakeSpotify) AddPlaylist(id, name, ownerID string, tracks ...models.TrackRef) *FakePlaylist {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := &FakePlaylist{
		Summary: models.PlaylistSummary{
			ID:         id,
			Name:       name,
			OwnerID:    ownerID,
			OwnerName:  ownerID,
			SnapshotID: "snap-" + id,
		},
		Tracks: append([]models.TrackRef(nil), tracks...),
	}
	if _, ok := f.playlists[id]; !ok {
		f.order = append(f.order, id)
	}
	f.playlists[id] = p
	return p
}

// Playlist returns a copy of a playlist's state, or nil.
func (f *FakeSpotify) Playlist(id string) *FakePlaylist {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.playlists[id]
	if !ok {
		return nil
	}
	cp := *p
	cp.Tracks = append([]models.TrackRef(nil), p.Tracks...)
	return &cp
}

// Has reports whether the playlist still exists.
func (f *FakeSpotify) Has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.playlists[id]
	return ok
}

// FailOn makes method fail with err. An empty id fails every call.
func (f *FakeSpotify) FailOn(method, id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[failureKey(method, id)] = err
}

// SetSearchResults sets the candidates returned for query.
func (f *FakeSpotify) SetSearchResults(query string, candidates ...models.SearchCandidate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches[query] = candidates
}

// Calls returns the recorded calls as "Method:id" strings.
func (f *FakeSpotify) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many times method was called.
func (f *FakeSpotify) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if c == method || strings.HasPrefix(c, method+":") {
			n++
		}
	}
	return n
}

func failureKey(method, id string) string {
	if id == "" {
		return method
	}
	return method + ":" + id
}

// enter records the call and returns the injected failure, if any. The caller must call f.leave.
func (f *FakeSpotify) enter(ctx context.Context, method, id string) error {
	f.mu.Lock()
	f.calls = append(f.calls, failureKey(method, id))
	f.inFlight++
	f.MaxInFlight = max(f.MaxInFlight, f.inFlight)
	delay := f.Delay
	err := f.failures[failureKey(method, id)]
	if err == nil {
		err = f.failures[method]
	}
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (f *FakeSpotify) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *FakeSpotify) CurrentUser(ctx context.Context) (*models.UserProfile, error) {
	defer f.leave()
	if err := f.enter(ctx, "CurrentUser", ""); err != nil {
		return nil, err
	}
	user := f.User
	return &user, nil
}

func (f *FakeSpotify) ListMyPlaylists(ctx context.Context, limit, offset int) (*models.PlaylistPage, error) {
	defer f.leave()
	if err := f.enter(ctx, "ListMyPlaylists", ""); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	page := &models.PlaylistPage{Items: []models.PlaylistSummary{}, Total: len(f.order)}
	end := min(offset+limit, len(f.order))
	for i := offset; i < end; i++ {
		p := f.playlists[f.order[i]]
		summary := p.Summary
		summary.TrackCount = len(p.Tracks)
		page.Items = append(page.Items, summary)
	}
	page.Count = len(page.Items)
	page.HasNext = end < len(f.order)
	return page, nil
}

func (f *FakeSpotify) GetPlaylist(ctx context.Context, playlistID string) (*models.PlaylistDetail, error) {
	defer f.leave()
	if err := f.enter(ctx, "GetPlaylist", playlistID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.playlists[playlistID]
	if !ok {
		return nil, fmt.Errorf("playlist %s: %w", playlistID, shared.ErrPlaylistNotFound)
	}
	return &models.PlaylistDetail{
		ID:         p.Summary.ID,
		Name:       p.Summary.Name,
		OwnerID:    p.Summary.OwnerID,
		OwnerName:  p.Summary.OwnerName,
		Followers:  p.Followers,
		TrackCount: len(p.Tracks),
		SnapshotID: p.Summary.SnapshotID,
		Public:     p.Summary.Public,
	}, nil
}

func (f *FakeSpotify) GetPlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*models.TrackPage, error) {
	defer f.leave()
	if err := f.enter(ctx, "GetPlaylistTracks", playlistID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.playlists[playlistID]
	if !ok {
		return nil, fmt.Errorf("playlist %s: %w", playlistID, shared.ErrPlaylistNotFound)
	}

	page := &models.TrackPage{Items: []models.TrackRef{}, Total: len(p.Tracks)}
	end := min(offset+limit, len(p.Tracks))
	if offset < end {
		page.Items = append(page.Items, p.Tracks[offset:end]...)
	}
	page.HasNext = end < len(p.Tracks)
	return page, nil
}

func (f *FakeSpotify) CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error) {
	defer f.leave()
	if err := f.enter(ctx, "CreatePlaylist", ""); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := fmt.Sprintf("created%d", f.nextID)
	f.playlists[id] = &FakePlaylist{
		Summary: models.PlaylistSummary{
			ID:         id,
			Name:       name,
			OwnerID:    f.User.ID,
			OwnerName:  f.User.DisplayName,
			SnapshotID: "snap-" + id,
			Public:     public,
		},
	}
	f.order = append(f.order, id)
	return id, nil
}

func (f *FakeSpotify) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	defer f.leave()
	if err := f.enter(ctx, "AddTracksToPlaylist", playlistID); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.playlists[playlistID]
	if !ok {
		return fmt.Errorf("playlist %s: %w", playlistID, shared.ErrPlaylistNotFound)
	}
	for _, uri := range uris {
		playable := true
		p.Tracks = append(p.Tracks, models.TrackRef{
			URI:        uri,
			ID:         strings.TrimPrefix(uri, "spotify:track:"),
			Name:       uri,
			DurationMS: 1000,
			Playable:   &playable,
		})
	}
	return nil
}

func (f *FakeSpotify) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	defer f.leave()
	if err := f.enter(ctx, "UnfollowPlaylist", playlistID); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.playlists, playlistID)
	for i, id := range f.order {
		if id == playlistID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *FakeSpotify) RenamePlaylist(ctx context.Context, playlistID, name string) error {
	defer f.leave()
	if err := f.enter(ctx, "RenamePlaylist", playlistID); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.playlists[playlistID]
	if !ok {
		return fmt.Errorf("playlist %s: %w", playlistID, shared.ErrPlaylistNotFound)
	}
	p.Summary.Name = name
	return nil
}

func (f *FakeSpotify) SearchTracks(ctx context.Context, query string, limit int) ([]models.SearchCandidate, error) {
	defer f.leave()
	if err := f.enter(ctx, "SearchTracks", query); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	results := f.searches[query]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return append([]models.SearchCandidate(nil), results...), nil
}
