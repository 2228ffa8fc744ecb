// Package models defines the domain entities shared by the cache, the sync engine, and the bulk operations engine.
//
// The package contains three categories of types:
//
// 1. Persistent Entities: rows owned by the local SQLite cache
//   - [PlaylistRecord] : Cached remote playlist, keyed by the remote id
//   - [HistoryEntry] : Append-only audit row written after a mutating operation
//   - [UnlinkedTrack] : Track flagged as broken during a detail sync
//
// 2. Remote Data Transfer Objects: lightweight views over provider payloads
//   - [PlaylistSummary], [PlaylistDetail], [PlaylistPage] : playlist listing and detail data
//   - [TrackRef], [TrackPage] : playlist items, possibly without a track payload
//   - [SearchCandidate], [UserProfile] : search results and the current user
//
// 3. Helpers: [ValidTrackURI], [FilterValidURIs], [NormalizeTags], [MergeTags].
//
// Two tracks are considered the same track if and only if their URIs are byte-equal.
package models
