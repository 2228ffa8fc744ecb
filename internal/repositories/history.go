package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/jmoiron/sqlx"
)

// DefaultHistoryLimit is used when a non-positive limit is requested.
const DefaultHistoryLimit = 50

// historyRow is the column layout of operation_history; ids and details are stored as JSON text.
type historyRow struct {
	ID          int64     `db:"id"`
	Timestamp   time.Time `db:"timestamp"`
	Kind        string    `db:"kind"`
	PlaylistIDs string    `db:"playlist_ids"`
	Details     string    `db:"details"`
	CanUndo     bool      `db:"can_undo"`
}

// HistoryRepository appends to and reads the operation history. Rows are never updated or deleted.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new HistoryRepository with the given database connection
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts entry in a single statement and sets its id.
func (r *HistoryRepository) Append(entry *models.HistoryEntry) error {
	ids, err := json.Marshal(entry.PlaylistIDs)
	if err != nil {
		return fmt.Errorf("failed to encode playlist ids: %w", err)
	}

	details := string(entry.Details)
	if details == "" {
		details = "{}"
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	row := historyRow{
		Timestamp:   entry.Timestamp,
		Kind:        string(entry.Kind),
		PlaylistIDs: string(ids),
		Details:     details,
		CanUndo:     false,
	}

	result, err := r.db.NamedExec(`
		INSERT INTO operation_history (timestamp, kind, playlist_ids, details, can_undo)
		VALUES (:timestamp, :kind, :playlist_ids, :details, :can_undo)
	`, row)
	if err != nil {
		return fmt.Errorf("failed to log %s operation: %w", entry.Kind, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read history id: %w", err)
	}
	entry.ID = id
	entry.CanUndo = false
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *HistoryRepository) Recent(limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var rows []historyRow
	if err := r.db.Select(&rows, `
		SELECT id, timestamp, kind, playlist_ids, details, can_undo
		FROM operation_history
		ORDER BY id DESC
		LIMIT ?
	`, limit); err != nil {
		return nil, fmt.Errorf("failed to read operation history: %w", err)
	}

	entries := make([]models.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry := models.HistoryEntry{
			ID:        row.ID,
			Timestamp: row.Timestamp,
			Kind:      models.OperationKind(row.Kind),
			Details:   json.RawMessage(row.Details),
			CanUndo:   row.CanUndo,
		}
		if err := json.Unmarshal([]byte(row.PlaylistIDs), &entry.PlaylistIDs); err != nil {
			return nil, fmt.Errorf("failed to decode playlist ids of entry %d: %w", row.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
