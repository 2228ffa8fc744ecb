package repositories

import (
	"errors"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/jmoiron/sqlx"
)

// Cache is the local store consumed by the sync engine, the bulk operations engine, and the command facade.
//
// It groups the playlist, history, and unlinked track repositories over a single database handle.
type Cache struct {
	playlists *PlaylistRepository
	history   *HistoryRepository
	unlinked  *UnlinkedTrackRepository
}

// NewCache creates a Cache backed by db. Migrations must already be applied.
func NewCache(db *sqlx.DB) *Cache {
	return &Cache{
		playlists: NewPlaylistRepository(db),
		history:   NewHistoryRepository(db),
		unlinked:  NewUnlinkedTrackRepository(db),
	}
}

// UpsertPlaylist creates or overwrites a cached playlist, preserving its tags.
func (c *Cache) UpsertPlaylist(p *models.PlaylistRecord) error {
	return c.playlists.Upsert(p)
}

// GetAllPlaylists returns every cached playlist.
func (c *Cache) GetAllPlaylists() ([]models.PlaylistRecord, error) {
	return c.playlists.List()
}

// GetPlaylistsByIDs returns the cached playlists among ids.
func (c *Cache) GetPlaylistsByIDs(ids []string) ([]models.PlaylistRecord, error) {
	return c.playlists.ListByIDs(ids)
}

// GetPlaylistByID returns the cached playlist, or nil when it is not cached.
func (c *Cache) GetPlaylistByID(id string) (*models.PlaylistRecord, error) {
	p, err := c.playlists.Get(id)
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		return nil, nil
	}
	return p, err
}

// PlaylistsMissingDetails returns the playlists whose duration has not been computed.
func (c *Cache) PlaylistsMissingDetails() ([]models.PlaylistRecord, error) {
	return c.playlists.ListMissingDetails()
}

// DeletePlaylist removes a cached playlist and its flagged tracks.
func (c *Cache) DeletePlaylist(id string) error {
	return c.playlists.Delete(id)
}

// PrunePlaylists removes cached playlists that are not in keep.
func (c *Cache) PrunePlaylists(keep []string) (int, error) {
	return c.playlists.DeleteExcept(keep)
}

// UpdateTags replaces the tags of a cached playlist.
func (c *Cache) UpdateTags(id, tags string) error {
	return c.playlists.UpdateTags(id, tags)
}

// UpdatePlaylistName replaces the cached name of a playlist.
func (c *Cache) UpdatePlaylistName(id, name string) error {
	return c.playlists.UpdateName(id, name)
}

// SaveUnlinkedTracks replaces the flagged tracks of a playlist.
func (c *Cache) SaveUnlinkedTracks(playlistID string, tracks []models.UnlinkedTrack) error {
	return c.unlinked.Replace(playlistID, tracks)
}

// UnlinkedTracks returns the flagged tracks of a playlist.
func (c *Cache) UnlinkedTracks(playlistID string) ([]models.UnlinkedTrack, error) {
	return c.unlinked.List(playlistID)
}

// LogOperation appends entry to the operation history.
func (c *Cache) LogOperation(entry *models.HistoryEntry) error {
	return c.history.Append(entry)
}

// GetOperationHistory returns up to limit history entries, newest first.
func (c *Cache) GetOperationHistory(limit int) ([]models.HistoryEntry, error) {
	return c.history.Recent(limit)
}
