// Package services implements the remote playlist client and the auth collaborator over the Spotify Web API.
//
// # Playlist Client
//
// [PlaylistClient] is the capability set the sync and bulk operations engines need: list, read, create, append,
// rename, unfollow, and search. [SpotifyService] implements it with plain HTTP requests authorized by a
// [TokenProvider], paced by a token-bucket limiter.
//
// Payload conversion is total. Every field has a zero-value default, so partial or null payloads never fail a
// page; a playlist item without a track payload becomes a [models.TrackRef] with Missing set.
//
// # Errors
//
// Non-2xx responses are returned as [*APIError], which keeps the status code and response headers so the rate-limit
// classifier can read Retry-After. APIError unwraps to [shared.ErrNotAuthenticated] for 401,
// [shared.ErrPlaylistNotFound] for 404, and [shared.ErrAPIRequest] otherwise.
//
// # Auth
//
// [OAuthTokenProvider] hands out access tokens from a persisted [oauth2.Token], refreshing transparently and
// reporting refreshed tokens through a callback so they can be saved to the config file.
package services
