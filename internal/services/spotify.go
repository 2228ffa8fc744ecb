package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRedirectURI = "http://127.0.0.1:3000/callback"

	maxPlaylistPage = 50
	maxTrackPage    = 100
	maxAddBatch     = 100
	maxSearchLimit  = 50
)

var spotifyScopes = []string{
	"user-read-private",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
}

var _ PlaylistClient = (*SpotifyService)(nil)
var _ OAuthService = (*SpotifyService)(nil)

// SpotifyService implements [PlaylistClient] over the Spotify Web API.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	tokens     TokenProvider

	mu     sync.Mutex
	userID string
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points the client at a different API root, e.g. a test server.
func WithBaseURL(baseURL string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient sets the HTTP client used for API requests.
func WithHTTPClient(client *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.httpClient = client }
}

// WithRateLimit paces outgoing requests to rps requests per second. Zero or less disables pacing.
func WithRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithTokenProvider sets the source of access tokens.
func WithTokenProvider(tokens TokenProvider) SpotifyOption {
	return func(s *SpotifyService) { s.tokens = tokens }
}

// NewSpotifyService creates a client with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       spotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// OAuthConfig returns the underlying OAuth2 configuration.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// SetTokenProvider replaces the token source, e.g. after a login completes.
func (s *SpotifyService) SetTokenProvider(tokens TokenProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
	s.userID = ""
}

func (s *SpotifyService) tokenProvider() TokenProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

// doRequest performs an authenticated request against the API, encoding body and decoding into result when non-nil.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	tokens := s.tokenProvider()
	if tokens == nil {
		return shared.ErrNotAuthenticated
	}

	accessToken, err := tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp, method, endpoint, data)
	}

	if result != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// CurrentUser retrieves the authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*models.UserProfile, error) {
	var user spotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.userID = user.ID
	s.mu.Unlock()

	return &models.UserProfile{ID: user.ID, DisplayName: user.DisplayName}, nil
}

func (s *SpotifyService) currentUserID(ctx context.Context) (string, error) {
	s.mu.Lock()
	id := s.userID
	s.mu.Unlock()
	if id != "" {
		return id, nil
	}

	user, err := s.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// ListMyPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) ListMyPlaylists(ctx context.Context, limit, offset int) (*models.PlaylistPage, error) {
	limit = clamp(limit, maxPlaylistPage)
	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, max(offset, 0))

	var response spotifyPage[spotifyPlaylist]
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	page := &models.PlaylistPage{
		Items:   make([]models.PlaylistSummary, 0, len(response.Items)),
		Count:   len(response.Items),
		Total:   response.Total,
		HasNext: response.hasNext(),
	}
	for _, p := range response.Items {
		if p.ID == "" {
			continue
		}
		page.Items = append(page.Items, toSummary(p))
	}
	return page, nil
}

// GetPlaylist retrieves a playlist's metadata.
func (s *SpotifyService) GetPlaylist(ctx context.Context, playlistID string) (*models.PlaylistDetail, error) {
	endpoint := "/playlists/" + url.PathEscape(playlistID) +
		"?fields=" + url.QueryEscape("id,name,description,owner(id,display_name),public,followers(total),tracks(total),snapshot_id")

	var playlist spotifyPlaylist
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &playlist); err != nil {
		return nil, err
	}
	if playlist.ID == "" {
		playlist.ID = playlistID
	}
	return toDetail(playlist), nil
}

// GetPlaylistTracks retrieves one page of a playlist's items.
func (s *SpotifyService) GetPlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*models.TrackPage, error) {
	limit = clamp(limit, maxTrackPage)
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d&market=from_token",
		url.PathEscape(playlistID), limit, max(offset, 0))

	var response spotifyPage[spotifyPlaylistItem]
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	page := &models.TrackPage{
		Items:   make([]models.TrackRef, 0, len(response.Items)),
		Total:   response.Total,
		HasNext: response.hasNext(),
	}
	for _, item := range response.Items {
		page.Items = append(page.Items, toTrackRef(item))
	}
	return page, nil
}

// CreatePlaylist creates an empty playlist for the current user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error) {
	userID, err := s.currentUserID(ctx)
	if err != nil {
		return "", err
	}

	body := createPlaylistRequest{Name: name, Description: description, Public: public}
	var created spotifyPlaylist
	endpoint := "/users/" + url.PathEscape(userID) + "/playlists"
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: create playlist returned no id", shared.ErrAPIRequest)
	}
	return created.ID, nil
}

// AddTracksToPlaylist appends uris in request-sized chunks, preserving order.
func (s *SpotifyService) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	for start := 0; start < len(uris); start += maxAddBatch {
		end := min(start+maxAddBatch, len(uris))
		var snapshot snapshotResponse
		if err := s.doRequest(ctx, http.MethodPost, endpoint, addTracksRequest{URIs: uris[start:end]}, &snapshot); err != nil {
			return err
		}
	}
	return nil
}

// UnfollowPlaylist removes a playlist from the user's library.
func (s *SpotifyService) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/followers"
	return s.doRequest(ctx, http.MethodDelete, endpoint, nil, nil)
}

// RenamePlaylist changes a playlist's name.
func (s *SpotifyService) RenamePlaylist(ctx context.Context, playlistID, name string) error {
	endpoint := "/playlists/" + url.PathEscape(playlistID)
	return s.doRequest(ctx, http.MethodPut, endpoint, renamePlaylistRequest{Name: name}, nil)
}

// SearchTracks searches the catalog for tracks matching query.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]models.SearchCandidate, error) {
	limit = clamp(limit, maxSearchLimit)
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", fmt.Sprint(limit))

	var response spotifySearchResponse
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}
	if response.Tracks == nil {
		return []models.SearchCandidate{}, nil
	}

	candidates := make([]models.SearchCandidate, 0, len(response.Tracks.Items))
	for _, t := range response.Tracks.Items {
		if t.URI == "" {
			continue
		}
		candidates = append(candidates, toCandidate(t))
	}
	return candidates, nil
}

func clamp(n, upper int) int {
	if n <= 0 || n > upper {
		return upper
	}
	return n
}
