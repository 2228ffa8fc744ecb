// Package repositories implements the local SQLite cache behind the sync and bulk operations engines.
//
// Repositories use [sqlx] with `db` struct tags on the models and one statement per write, so each upsert is atomic
// with respect to concurrent reads.
//
// Key Implementations:
//   - [PlaylistRepository] : Cached playlists keyed by remote id, upserted on every sync
//   - [HistoryRepository] : Append-only operation history with JSON encoded ids and details
//   - [UnlinkedTrackRepository] : Broken playlist items flagged by the detail sync
//   - [Cache] : Aggregates the three repositories behind the store interface consumed by the engines
//
// Sync writes never touch the tags column; tags are changed only through [PlaylistRepository.UpdateTags].
package repositories
