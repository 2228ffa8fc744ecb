package repositories

import (
	"fmt"

	"github.com/desertthunder/spx/internal/models"
	"github.com/jmoiron/sqlx"
)

// UnlinkedTrackRepository stores the broken items found by the detail sync, one row per playlist position.
type UnlinkedTrackRepository struct {
	db *sqlx.DB
}

// NewUnlinkedTrackRepository creates a new UnlinkedTrackRepository with the given database connection
func NewUnlinkedTrackRepository(db *sqlx.DB) *UnlinkedTrackRepository {
	return &UnlinkedTrackRepository{db: db}
}

// Replace swaps the flagged tracks of a playlist for tracks in one transaction.
func (r *UnlinkedTrackRepository) Replace(playlistID string, tracks []models.UnlinkedTrack) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM unlinked_tracks WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("failed to clear unlinked tracks for %s: %w", playlistID, err)
	}

	for _, track := range tracks {
		track.PlaylistID = playlistID
		if _, err := tx.NamedExec(`
			INSERT INTO unlinked_tracks (playlist_id, position, uri, name, artist, reason, flagged_at)
			VALUES (:playlist_id, :position, :uri, :name, :artist, :reason, :flagged_at)
		`, track); err != nil {
			return fmt.Errorf("failed to insert unlinked track %d for %s: %w", track.Position, playlistID, err)
		}
	}

	return tx.Commit()
}

// List returns the flagged tracks of a playlist in position order.
func (r *UnlinkedTrackRepository) List(playlistID string) ([]models.UnlinkedTrack, error) {
	tracks := []models.UnlinkedTrack{}
	if err := r.db.Select(&tracks, `
		SELECT playlist_id, position, uri, name, artist, reason, flagged_at
		FROM unlinked_tracks
		WHERE playlist_id = ?
		ORDER BY position
	`, playlistID); err != nil {
		return nil, fmt.Errorf("failed to list unlinked tracks for %s: %w", playlistID, err)
	}
	return tracks, nil
}
