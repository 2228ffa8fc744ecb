// Package server exposes the command facade over a localhost JSON HTTP API and handles the OAuth callback
// of the login flow.
//
// # Router Infrastructure
//
// The [Router] interface defines routing with middleware support. [ChiRouter] implements it on top of chi,
// so paths may carry URL parameters such as /playlists/{id}/fix. [DefaultMiddleware] adds request ids,
// panic recovery, and [RequestLogger].
//
// # API
//
// [API] maps each route to one [commands.Commands] method and writes its [commands.Response] envelope:
//
//	POST /sync/playlists           listing pass
//	POST /sync/details             detail pass
//	GET  /playlists                cached playlists
//	GET  /playlists/details?ids=   cached playlists with unlinked tracks
//	POST /playlists/delete         {"ids": [...]}
//	POST /playlists/tags           {"ids": [...], "tags": "...", "append": true}
//	POST /playlists/merge          {"playlist_ids": [...], "name": "...", "remove_duplicates": true}
//	POST /playlists/rename         {"id": "...", "name": "..."} or {"ids": [...], "find": "...", "replace": "..."}
//	POST /playlists/{id}/dedupe    remove duplicates
//	POST /playlists/{id}/fix       fix broken links
//	GET  /history?limit=           operation history
//
// Failed commands answer 422 with the error in the envelope; malformed bodies answer 400.
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates the state parameter, exchanges the authorization code, and delivers exactly one
// [OAuthResult]. Only the first callback is processed.
//
// [Serve] runs any of these handlers until its context is cancelled.
package server
