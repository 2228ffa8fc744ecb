package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/jmoiron/sqlx"
)

const playlistColumns = `id, name, owner, is_owner, track_count, duration_ms, followers, tags, last_synced, snapshot_id, unlinked_count`

// PlaylistRepository persists [models.PlaylistRecord] rows keyed by the remote playlist id.
type PlaylistRepository struct {
	db *sqlx.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sqlx.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Upsert inserts the playlist or overwrites every sync-owned column of an existing row.
//
// The tags column is written only on insert, so local tags survive repeated syncs.
func (r *PlaylistRepository) Upsert(p *models.PlaylistRecord) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO playlists (` + playlistColumns + `)
		VALUES (:id, :name, :owner, :is_owner, :track_count, :duration_ms, :followers, :tags, :last_synced, :snapshot_id, :unlinked_count)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			owner = excluded.owner,
			is_owner = excluded.is_owner,
			track_count = excluded.track_count,
			duration_ms = excluded.duration_ms,
			followers = excluded.followers,
			last_synced = excluded.last_synced,
			snapshot_id = excluded.snapshot_id,
			unlinked_count = excluded.unlinked_count
	`

	if _, err := r.db.NamedExec(query, p); err != nil {
		return fmt.Errorf("failed to upsert playlist %s: %w", p.ID, err)
	}
	return nil
}

// Get retrieves a playlist by id, returning [shared.ErrPlaylistNotFound] when absent.
func (r *PlaylistRepository) Get(id string) (*models.PlaylistRecord, error) {
	var p models.PlaylistRecord
	err := r.db.Get(&p, `SELECT `+playlistColumns+` FROM playlists WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}
	return &p, nil
}

// List returns every cached playlist ordered by name.
func (r *PlaylistRepository) List() ([]models.PlaylistRecord, error) {
	playlists := []models.PlaylistRecord{}
	if err := r.db.Select(&playlists, `SELECT `+playlistColumns+` FROM playlists ORDER BY name COLLATE NOCASE, id`); err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return playlists, nil
}

// ListByIDs returns the cached playlists among ids. Unknown ids are ignored.
func (r *PlaylistRepository) ListByIDs(ids []string) ([]models.PlaylistRecord, error) {
	playlists := []models.PlaylistRecord{}
	if len(ids) == 0 {
		return playlists, nil
	}

	query, args, err := sqlx.In(`SELECT `+playlistColumns+` FROM playlists WHERE id IN (?) ORDER BY name COLLATE NOCASE, id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build playlist query: %w", err)
	}

	if err := r.db.Select(&playlists, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return playlists, nil
}

// ListMissingDetails returns the playlists the detail pass has not filled in yet.
func (r *PlaylistRepository) ListMissingDetails() ([]models.PlaylistRecord, error) {
	playlists := []models.PlaylistRecord{}
	if err := r.db.Select(&playlists, `SELECT `+playlistColumns+` FROM playlists WHERE duration_ms = 0 ORDER BY name COLLATE NOCASE, id`); err != nil {
		return nil, fmt.Errorf("failed to list playlists missing details: %w", err)
	}
	return playlists, nil
}

// Delete removes a playlist and its flagged tracks. Deleting an absent playlist is not an error.
func (r *PlaylistRepository) Delete(id string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM unlinked_tracks WHERE playlist_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete unlinked tracks for %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM playlists WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}

	return tx.Commit()
}

// DeleteExcept removes every playlist whose id is not in keep and returns how many were removed.
func (r *PlaylistRepository) DeleteExcept(keep []string) (int, error) {
	stale := []string{}
	if len(keep) == 0 {
		if err := r.db.Select(&stale, `SELECT id FROM playlists`); err != nil {
			return 0, fmt.Errorf("failed to list playlists: %w", err)
		}
	} else {
		query, args, err := sqlx.In(`SELECT id FROM playlists WHERE id NOT IN (?)`, keep)
		if err != nil {
			return 0, fmt.Errorf("failed to build prune query: %w", err)
		}
		if err := r.db.Select(&stale, r.db.Rebind(query), args...); err != nil {
			return 0, fmt.Errorf("failed to list stale playlists: %w", err)
		}
	}

	for _, id := range stale {
		if err := r.Delete(id); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

// UpdateTags replaces the tag string of a playlist.
func (r *PlaylistRepository) UpdateTags(id, tags string) error {
	return r.updateColumn(id, `UPDATE playlists SET tags = ? WHERE id = ?`, tags)
}

// UpdateName replaces the cached name of a playlist.
func (r *PlaylistRepository) UpdateName(id, name string) error {
	return r.updateColumn(id, `UPDATE playlists SET name = ? WHERE id = ?`, name)
}

func (r *PlaylistRepository) updateColumn(id, query, value string) error {
	result, err := r.db.Exec(query, value, id)
	if err != nil {
		return fmt.Errorf("failed to update playlist %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return nil
}
