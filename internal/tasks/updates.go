package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or HTTP layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Completed steps within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylists Phase = iota
	FetchDetails
	DeletePlaylists
	FetchSources
	CreatePlaylist
	AddTracks
	SearchTracks
	RenamePlaylists
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchDetails:
		return "fetch_details"
	case DeletePlaylists:
		return "delete_playlists"
	case FetchSources:
		return "fetch_sources"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case SearchTracks:
		return "search_tracks"
	case RenamePlaylists:
		return "rename_playlists"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func listingPageUpdate(fetched, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    fetched,
		Total:   total,
		Message: fmt.Sprintf("Fetched %d of %d playlists...", fetched, total),
	}
}

func detailBatchUpdate(completed, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDetails,
		Step:    completed,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Playlist details synced", completed, total),
	}
}

func deleteUpdate(step, total int, id string, err error) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ Deleted %s", step, total, id)
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, id, err)
	}
	return ProgressUpdate{Phase: DeletePlaylists, Step: step, Total: total, Message: msg}
}

func fetchSourceUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSources,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching tracks of %s...", step, total, id),
	}
}

func createPlaylistUpdate(name, id string, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s, %d tracks)", name, id, tracks),
		Data:    id,
	}
}

func addTracksUpdate(added, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    added,
		Total:   total,
		Message: fmt.Sprintf("Added %d of %d tracks...", added, total),
	}
}

func searchUpdate(step, total int, name, artist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, artist, name),
	}
}

func renameUpdate(step, total int, from, to string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RenamePlaylists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s → %s", step, total, from, to),
	}
}
