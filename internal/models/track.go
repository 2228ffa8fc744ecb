package models

import (
	"regexp"
	"time"
)

var trackURIPattern = regexp.MustCompile(`^spotify:track:[0-9A-Za-z]{22}$`)

// Reasons a playlist item is considered unlinked.
const (
	ReasonMissingTrack = "track unavailable"
	ReasonMissingID    = "missing catalog id"
	ReasonNotPlayable  = "not playable"
	ReasonMissingURI   = "missing uri"
)

// TrackRef is a single playlist item as seen by the engines.
//
// Missing is set when the item has no track payload at all. Playable is nil when the provider did not report playability.
type TrackRef struct {
	URI        string `json:"uri"`
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	DurationMS int64  `json:"duration_ms"`
	Popularity int    `json:"popularity"`
	Playable   *bool  `json:"is_playable,omitempty"`
	Missing    bool   `json:"missing,omitempty"`
}

// UnlinkedReason returns the first matching reason the track is unlinked, or an empty string.
func (t TrackRef) UnlinkedReason() string {
	switch {
	case t.Missing:
		return ReasonMissingTrack
	case t.ID == "":
		return ReasonMissingID
	case t.Playable != nil && !*t.Playable:
		return ReasonNotPlayable
	case t.URI == "":
		return ReasonMissingURI
	default:
		return ""
	}
}

// Unlinked reports whether the track payload is missing, has no catalog id, is explicitly unplayable, or has no URI.
func (t TrackRef) Unlinked() bool {
	return t.UnlinkedReason() != ""
}

// TrackPage is one page of a playlist's items.
type TrackPage struct {
	Items   []TrackRef
	Total   int
	HasNext bool
}

// SearchCandidate is a catalog search hit.
type SearchCandidate struct {
	URI        string `json:"uri"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Popularity int    `json:"popularity"`
}

// UnlinkedTrack is a broken playlist item persisted by the detail pass.
type UnlinkedTrack struct {
	PlaylistID string    `db:"playlist_id" json:"playlist_id"`
	Position   int       `db:"position" json:"position"`
	URI        string    `db:"uri" json:"uri"`
	Name       string    `db:"name" json:"name"`
	Artist     string    `db:"artist" json:"artist"`
	Reason     string    `db:"reason" json:"reason"`
	FlaggedAt  time.Time `db:"flagged_at" json:"flagged_at"`
}

// ValidTrackURI reports whether uri is a well-formed catalog track URI.
//
// Local files and episodes are not valid.
func ValidTrackURI(uri string) bool {
	return trackURIPattern.MatchString(uri)
}

// FilterValidURIs returns the well-formed track URIs of uris, preserving order.
func FilterValidURIs(uris []string) []string {
	valid := make([]string, 0, len(uris))
	for _, uri := range uris {
		if ValidTrackURI(uri) {
			valid = append(valid, uri)
		}
	}
	return valid
}

// FailedTrack is an unlinked item that broken-link recovery could not replace.
type FailedTrack struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	URI      string `json:"uri"`
	Reason   string `json:"reason"`
}
