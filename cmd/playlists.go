package main

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/desertthunder/spx/internal/commands"
	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/urfave/cli/v3"
)

// PlaylistsList prints the cached playlists, optionally filtered by ownership or tag.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	c, err := r.facade()
	if err != nil {
		return err
	}

	resp := c.Playlists()
	if resp.Success {
		records, err := decodeData[[]models.PlaylistRecord](resp.Data)
		if err != nil {
			return err
		}
		resp.Data = filterPlaylists(records, cmd.Bool("owned"), cmd.String("tag"), int(cmd.Int("limit")))
	}

	return r.render(cmd, resp, func(data any) error {
		records, err := decodeData[[]models.PlaylistRecord](data)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return r.writePlain("No cached playlists. Run 'spx sync playlists' first.\n")
		}

		r.writeHeader(fmt.Sprintf("Found %d playlists", len(records)))
		for i, p := range records {
			r.writePlain("%d. %s\n", i+1, p.Name)
			r.writePlain("   ID: %s\n", p.ID)
			r.writePlain("   Owner: %s (%s)\n", p.Owner, formatter.Ownership(p.IsOwner))
			r.writePlain("   Tracks: %d  Duration: %s\n", p.TrackCount, formatter.FormatDuration(p.DurationMS))
			if p.Tags != "" {
				r.writePlain("   Tags: %s\n", p.Tags)
			}
			if p.UnlinkedCount > 0 {
				r.writePlain("   %s\n", ui.Styles.Warn("%d unlinked tracks", p.UnlinkedCount))
			}
		}
		return nil
	})
}

// filterPlaylists keeps owned playlists when owned is set and playlists carrying tag when it is not empty.
func filterPlaylists(records []models.PlaylistRecord, owned bool, tag string, limit int) []models.PlaylistRecord {
	out := make([]models.PlaylistRecord, 0, len(records))
	for _, p := range records {
		if owned && !p.IsOwner {
			continue
		}
		if tag != "" && !slices.Contains(strings.Fields(p.Tags), tag) {
			continue
		}
		out = append(out, p)
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// PlaylistsShow prints cached playlists with their unlinked tracks.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	c, err := r.facade()
	if err != nil {
		return err
	}

	resp := c.PlaylistDetails(cmd.Args().Slice())
	return r.render(cmd, resp, func(data any) error {
		result, err := decodeData[commands.DetailsResult](data)
		if err != nil {
			return err
		}

		for _, d := range result.Playlists {
			p := d.Playlist
			r.writeHeader(p.Name)
			r.writePlain("ID:         %s\n", p.ID)
			r.writePlain("Owner:      %s (%s)\n", p.Owner, formatter.Ownership(p.IsOwner))
			r.writePlain("Tracks:     %d\n", p.TrackCount)
			r.writePlain("Duration:   %s\n", formatter.FormatDuration(p.DurationMS))
			r.writePlain("Followers:  %d\n", p.Followers)
			r.writePlain("Tags:       %s\n", p.Tags)
			if !p.LastSynced.IsZero() {
				r.writePlain("Synced:     %s\n", p.LastSynced.Local().Format("2006-01-02 15:04"))
			}

			if len(d.UnlinkedTracks) > 0 {
				r.writePlainln("%s", ui.Styles.Warn("%d unlinked tracks", len(d.UnlinkedTracks)))
				for _, t := range d.UnlinkedTracks {
					r.writePlain("  #%d %s - %s (%s)\n", t.Position+1, orUnknown(t.Name), orUnknown(t.Artist), t.Reason)
				}
			}
			r.writePlain("\n")
		}

		for _, id := range result.NotFound {
			r.writePlain("%s\n", ui.Styles.Warn("%s is not cached", id))
		}
		return nil
	})
}

// PlaylistsTag replaces or appends local tags on cached playlists.
func (r *Runner) PlaylistsTag(ctx context.Context, cmd *cli.Command) error {
	c, err := r.facade()
	if err != nil {
		return err
	}

	resp := c.UpdateTags(cmd.Args().Slice(), cmd.String("tags"), cmd.Bool("append"))
	return r.render(cmd, resp, func(data any) error {
		result, err := decodeData[commands.TagResult](data)
		if err != nil {
			return err
		}

		r.writePlain("%s\n", ui.Styles.OK("Updated tags on %d playlists", result.Updated))
		for id, tags := range result.Tags {
			r.writePlain("  %s: %s\n", id, orNone(tags))
		}
		for _, id := range result.Failed {
			r.writePlain("%s\n", ui.Styles.Warn("%s is not cached", id))
		}
		return nil
	})
}

// PlaylistsExport writes the cached playlists to a CSV, Markdown, or text file.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	c, err := r.facade()
	if err != nil {
		return err
	}

	resp := c.Playlists()
	if !resp.Success {
		return r.render(cmd, resp, nil)
	}
	records, err := decodeData[[]models.PlaylistRecord](resp.Data)
	if err != nil {
		return err
	}
	records = filterPlaylists(records, cmd.Bool("owned"), cmd.String("tag"), 0)

	format := strings.ToLower(cmd.String("format"))
	if format == "md" {
		format = formatter.FormatMarkdown
	}
	path := cmd.String("output")
	if path == "" {
		path = "playlists." + exportExtension(format)
	}

	written, err := formatter.WritePlaylistsExport(records, format, path)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	abs, _ := filepath.Abs(written)
	r.logger.Info("exported playlists", "count", len(records), "format", format, "path", abs)
	return r.writePlain("%s\n", ui.Styles.OK("Exported %d playlists to %s", len(records), written))
}

func exportExtension(format string) string {
	switch format {
	case formatter.FormatMarkdown:
		return "md"
	case formatter.FormatText:
		return "txt"
	default:
		return "csv"
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
