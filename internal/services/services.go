package services

import (
	"context"

	"github.com/desertthunder/spx/internal/models"
	"golang.org/x/oauth2"
)

// PlaylistClient is the remote playlist capability set used by the engines.
type PlaylistClient interface {
	// CurrentUser returns the authenticated user.
	CurrentUser(ctx context.Context) (*models.UserProfile, error)

	// ListMyPlaylists returns one page of the user's playlists.
	ListMyPlaylists(ctx context.Context, limit, offset int) (*models.PlaylistPage, error)

	// GetPlaylist returns the full metadata of a playlist.
	GetPlaylist(ctx context.Context, playlistID string) (*models.PlaylistDetail, error)

	// GetPlaylistTracks returns one page of a playlist's items.
	GetPlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*models.TrackPage, error)

	// CreatePlaylist creates an empty playlist owned by the current user and returns its id.
	CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error)

	// AddTracksToPlaylist appends uris to the end of a playlist, in order.
	AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error

	// UnfollowPlaylist removes a playlist from the user's library, which deletes owned playlists.
	UnfollowPlaylist(ctx context.Context, playlistID string) error

	// RenamePlaylist changes a playlist's name.
	RenamePlaylist(ctx context.Context, playlistID, name string) error

	// SearchTracks searches the catalog for tracks.
	SearchTracks(ctx context.Context, query string, limit int) ([]models.SearchCandidate, error)
}

// TokenProvider returns a valid access token or an error wrapping [shared.ErrNotAuthenticated].
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// OAuthService is implemented by clients that drive an authorization code flow.
type OAuthService interface {
	GetAuthURL(state string) string
	OAuthConfig() *oauth2.Config
}
