package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// OperationKind names a mutating operation recorded in the history.
type OperationKind string

const (
	OpMerge            OperationKind = "merge"
	OpDelete           OperationKind = "delete"
	OpRename           OperationKind = "rename"
	OpBulkRename       OperationKind = "bulk_rename"
	OpTag              OperationKind = "tag"
	OpRemoveDuplicates OperationKind = "remove_duplicates"
	OpFixBrokenLinks   OperationKind = "fix_broken_links"
)

// HistoryEntry is an append-only record of a completed operation.
//
// Entries are never updated or deleted. CanUndo is always false.
type HistoryEntry struct {
	ID          int64           `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Kind        OperationKind   `json:"kind"`
	PlaylistIDs []string        `json:"playlist_ids"`
	Details     json.RawMessage `json:"details"`
	CanUndo     bool            `json:"can_undo"`
}

// NewHistoryEntry builds an entry for kind with details encoded as JSON.
func NewHistoryEntry(kind OperationKind, playlistIDs []string, details any) (*HistoryEntry, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history details: %w", err)
	}

	if playlistIDs == nil {
		playlistIDs = []string{}
	}

	return &HistoryEntry{
		Timestamp:   time.Now().UTC(),
		Kind:        kind,
		PlaylistIDs: playlistIDs,
		Details:     raw,
	}, nil
}
