// Package tasks mirrors the remote playlist library into the local cache and runs bulk mutations against it.
//
// # Sync
//
// [SyncEngine] has two passes that are never chained automatically:
//
//  1. [SyncEngine.SyncAllPlaylists] : listing pass
//     - Resolves the current user once, then pages through the user's playlists
//     - Upserts one record per playlist, overwriting every synced column but never tags
//     - Removes cached playlists that are absent from the complete listing
//
//  2. [SyncEngine.SyncPlaylistDetails] : detail pass
//     - Selects cached playlists without a duration
//     - Fetches them in sequential batches, concurrently within a batch, pausing between batches
//     - Stores duration, followers, and the unlinked tracks of each playlist
//
// # Bulk Operations
//
// [BulkEngine] validates against the cache before any remote call, mutates remotely, reflects the change
// into the cache, and appends one history entry per operation that changed something:
//
//   - [BulkEngine.Delete] unfollows owned playlists, all or nothing on ownership
//   - [BulkEngine.Merge] concatenates playlists into a new one, optionally deduplicated
//   - [BulkEngine.RemoveDuplicates] copies a playlist without repeated tracks
//   - [BulkEngine.FixBrokenLinks] searches replacements for unlinked tracks
//   - [BulkEngine.BulkRename] and [BulkEngine.Rename] rename owned playlists
//
// Per-item failures are collected in the result and never abort the loop.
//
// # Progress Reporting
//
// Long-running operations accept an optional channel of [ProgressUpdate]. Updates are sent with select and
// default, so a slow or absent reader never blocks an operation.
//
// # Track Fetching
//
// Playlist items are read page by page: the first page reveals the total and the remaining pages are fetched
// concurrently through an errgroup with a bounded limit, then reassembled in order.
package tasks
