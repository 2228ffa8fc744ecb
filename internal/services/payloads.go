// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"strings"

	"github.com/desertthunder/spx/internal/models"
)

type spotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type spotifyFollowers struct {
	Total int `json:"total"`
}

type spotifyTracksRef struct {
	Total int `json:"total"`
}

// spotifyPlaylist covers both the simplified (listing) and full playlist objects.
type spotifyPlaylist struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Owner       *spotifyUser      `json:"owner"`
	Public      *bool             `json:"public"`
	Followers   *spotifyFollowers `json:"followers"`
	Tracks      *spotifyTracksRef `json:"tracks"`
	SnapshotID  string            `json:"snapshot_id"`
}

type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyTrack struct {
	ID         *string         `json:"id"`
	URI        string          `json:"uri"`
	Name       string          `json:"name"`
	Artists    []spotifyArtist `json:"artists"`
	DurationMS int64           `json:"duration_ms"`
	Popularity int             `json:"popularity"`
	IsPlayable *bool           `json:"is_playable"`
	IsLocal    bool            `json:"is_local"`
}

type spotifyPlaylistItem struct {
	AddedAt string        `json:"added_at"`
	Track   *spotifyTrack `json:"track"`
}

type spotifyPage[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

func (p *spotifyPage[T]) hasNext() bool {
	return p.Next != nil && *p.Next != ""
}

type spotifySearchResponse struct {
	Tracks *spotifyPage[spotifyTrack] `json:"tracks"`
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

type addTracksRequest struct {
	URIs []string `json:"uris"`
}

type renamePlaylistRequest struct {
	Name string `json:"name"`
}

type snapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

func (p spotifyPlaylist) owner() (id, name string) {
	if p.Owner == nil {
		return "", ""
	}
	return p.Owner.ID, p.Owner.DisplayName
}

func (p spotifyPlaylist) trackTotal() int {
	if p.Tracks == nil {
		return 0
	}
	return p.Tracks.Total
}

func toSummary(p spotifyPlaylist) models.PlaylistSummary {
	ownerID, ownerName := p.owner()
	return models.PlaylistSummary{
		ID:         p.ID,
		Name:       p.Name,
		OwnerID:    ownerID,
		OwnerName:  ownerName,
		TrackCount: p.trackTotal(),
		SnapshotID: p.SnapshotID,
		Public:     p.Public != nil && *p.Public,
	}
}

func toDetail(p spotifyPlaylist) *models.PlaylistDetail {
	ownerID, ownerName := p.owner()
	detail := &models.PlaylistDetail{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     ownerID,
		OwnerName:   ownerName,
		TrackCount:  p.trackTotal(),
		SnapshotID:  p.SnapshotID,
		Public:      p.Public != nil && *p.Public,
	}
	if p.Followers != nil {
		detail.Followers = p.Followers.Total
	}
	return detail
}

func firstArtist(artists []spotifyArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}

func toTrackRef(item spotifyPlaylistItem) models.TrackRef {
	if item.Track == nil {
		return models.TrackRef{Missing: true}
	}

	t := item.Track
	ref := models.TrackRef{
		URI:        t.URI,
		Name:       t.Name,
		Artist:     firstArtist(t.Artists),
		DurationMS: t.DurationMS,
		Popularity: t.Popularity,
		Playable:   t.IsPlayable,
	}
	if t.ID != nil {
		ref.ID = *t.ID
	}
	return ref
}

func toCandidate(t spotifyTrack) models.SearchCandidate {
	c := models.SearchCandidate{
		URI:        t.URI,
		Name:       t.Name,
		Artist:     firstArtist(t.Artists),
		Popularity: t.Popularity,
	}
	if t.ID != nil {
		c.ID = *t.ID
	}
	return c
}

// SearchQuery builds a field-filtered catalog query for a track name and artist.
func SearchQuery(name, artist string) string {
	clean := func(s string) string {
		return strings.Join(strings.Fields(strings.ReplaceAll(s, `"`, "")), " ")
	}
	return `track:"` + clean(name) + `" artist:"` + clean(artist) + `"`
}
