// package formatter renders cached playlists and failed-recovery reports as CSV, Markdown, or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spx/internal/models"
)

// Supported export formats.
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// FormatDuration renders milliseconds as m:ss, or h:mm:ss past an hour.
func FormatDuration(ms int64) string {
	if ms <= 0 {
		return "0:00"
	}

	total := ms / 1000
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// Ownership describes whether the user owns a playlist.
func Ownership(isOwner bool) string {
	if isOwner {
		return "owned"
	}
	return "followed"
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// RecoveryReportCSV renders tracks with columns: Track, Artist, Original URI, Reason
func RecoveryReportCSV(tracks []models.FailedTrack) ([]byte, error) {
	rows := make([][]string, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, []string{t.Name, t.Artist, t.URI, t.Reason})
	}
	return writeCSV([]string{"Track", "Artist", "Original URI", "Reason"}, rows)
}

// WriteRecoveryReport writes the failed tracks of a recovery run under dir and returns the file path.
//
// The file is named failed_recovery_{playlistID}_{unix}.csv.
func WriteRecoveryReport(dir, playlistID string, at time.Time, tracks []models.FailedTrack) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("no report directory configured")
	}

	data, err := RecoveryReportCSV(tracks)
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("failed_recovery_%s_%d.csv", playlistID, at.Unix()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// PlaylistsToCSV renders cached playlists with columns: ID, Name, Owner, Ownership, Tracks, Duration, Followers, Tags, Last Synced
func PlaylistsToCSV(records []models.PlaylistRecord) ([]byte, error) {
	rows := make([][]string, 0, len(records))
	for _, p := range records {
		rows = append(rows, []string{
			p.ID,
			p.Name,
			p.Owner,
			Ownership(p.IsOwner),
			strconv.Itoa(p.TrackCount),
			FormatDuration(p.DurationMS),
			strconv.Itoa(p.Followers),
			p.Tags,
			p.LastSynced.UTC().Format(time.RFC3339),
		})
	}
	return writeCSV(
		[]string{"ID", "Name", "Owner", "Ownership", "Tracks", "Duration", "Followers", "Tags", "Last Synced"},
		rows,
	)
}

// PlaylistsToMarkdown renders cached playlists as a Markdown table.
func PlaylistsToMarkdown(records []models.PlaylistRecord) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Playlists\n\n")
	buf.WriteString(fmt.Sprintf("**Total**: %d\n\n", len(records)))
	buf.WriteString("| Name | Owner | Tracks | Duration | Tags |\n")
	buf.WriteString("| --- | --- | ---: | ---: | --- |\n")

	escape := strings.NewReplacer("|", `\|`, "\n", " ")
	for _, p := range records {
		buf.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s |\n",
			escape.Replace(p.Name), escape.Replace(p.Owner), p.TrackCount, FormatDuration(p.DurationMS), escape.Replace(p.Tags)))
	}
	return buf.Bytes()
}

// PlaylistsToText renders cached playlists one per line.
func PlaylistsToText(records []models.PlaylistRecord) []byte {
	var buf bytes.Buffer
	for i, p := range records {
		buf.WriteString(fmt.Sprintf("%d. %s (%d tracks, %s) [%s]\n", i+1, p.Name, p.TrackCount, FormatDuration(p.DurationMS), p.ID))
	}
	return buf.Bytes()
}

// WritePlaylistsExport writes records to path in format and returns the path.
func WritePlaylistsExport(records []models.PlaylistRecord, format, path string) (string, error) {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatCSV, "":
		data, err = PlaylistsToCSV(records)
	case FormatMarkdown:
		data = PlaylistsToMarkdown(records)
	case FormatText:
		data = PlaylistsToText(records)
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}
