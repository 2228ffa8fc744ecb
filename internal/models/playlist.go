package models

import (
	"strings"
	"time"
)

// PlaylistRecord is the cached representation of a remote playlist.
//
// The ID is the remote playlist id and is never generated locally.
// Tags are local-only and are never written by a sync.
type PlaylistRecord struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Owner         string    `db:"owner" json:"owner"`
	IsOwner       bool      `db:"is_owner" json:"is_owner"`
	TrackCount    int       `db:"track_count" json:"track_count"`
	DurationMS    int64     `db:"duration_ms" json:"duration_ms"`
	Followers     int       `db:"followers" json:"followers"`
	Tags          string    `db:"tags" json:"tags"`
	LastSynced    time.Time `db:"last_synced" json:"last_synced"`
	SnapshotID    string    `db:"snapshot_id" json:"snapshot_id"`
	UnlinkedCount int       `db:"unlinked_count" json:"unlinked_count"`
}

// NeedsDetails reports whether the detail pass has not yet filled in the record.
//
// Empty playlists legitimately keep a zero duration and are revisited on every detail pass.
func (p *PlaylistRecord) NeedsDetails() bool {
	return p.DurationMS == 0
}

// PlaylistSummary is a single item of the current user's playlist listing.
type PlaylistSummary struct {
	ID         string
	Name       string
	OwnerID    string
	OwnerName  string
	TrackCount int
	SnapshotID string
	Public     bool
}

// Record converts the summary into a [PlaylistRecord] for the given user.
//
// Detail-only fields (duration, followers, unlinked count) are left at zero.
func (s PlaylistSummary) Record(userID string, now time.Time) *PlaylistRecord {
	owner := s.OwnerName
	if owner == "" {
		owner = s.OwnerID
	}
	return &PlaylistRecord{
		ID:         s.ID,
		Name:       s.Name,
		Owner:      owner,
		IsOwner:    userID != "" && s.OwnerID == userID,
		TrackCount: s.TrackCount,
		LastSynced: now,
		SnapshotID: s.SnapshotID,
	}
}

// PlaylistDetail is the full metadata of a single playlist.
type PlaylistDetail struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	OwnerName   string
	Followers   int
	TrackCount  int
	SnapshotID  string
	Public      bool
}

// PlaylistPage is one page of the playlist listing.
//
// Count is the number of entries the provider returned, including null entries that were dropped from Items.
type PlaylistPage struct {
	Items   []PlaylistSummary
	Count   int
	Total   int
	HasNext bool
}

// Scanned is how far the page advances the listing offset.
func (p *PlaylistPage) Scanned() int {
	return max(p.Count, len(p.Items))
}

// UserProfile is the authenticated user.
type UserProfile struct {
	ID          string
	DisplayName string
}

// Name returns the display name, falling back to the id.
func (u *UserProfile) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

// NormalizeTags trims and collapses a whitespace separated tag string, dropping repeated tokens.
func NormalizeTags(tags string) string {
	seen := make(map[string]bool)
	var out []string
	for _, tag := range strings.Fields(tags) {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return strings.Join(out, " ")
}

// MergeTags appends the tokens of incoming to existing, keeping first-seen order.
func MergeTags(existing, incoming string) string {
	return NormalizeTags(existing + " " + incoming)
}
