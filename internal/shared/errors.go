package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidPattern  = fmt.Errorf("invalid pattern")
	ErrTooFewPlaylists = fmt.Errorf("at least two playlists are required")
	ErrNotOwner        = fmt.Errorf("cannot modify playlists you do not own")

	// Operation outcome errors
	ErrNoValidTracks    = fmt.Errorf("no valid tracks")
	ErrNoDuplicates     = fmt.Errorf("no duplicate tracks found")
	ErrNoUnlinkedTracks = fmt.Errorf("no unlinked tracks found")
	ErrNothingRecovered = fmt.Errorf("no replacement tracks found")
	ErrCacheWriteFailed = fmt.Errorf("cache write failed")
)
