package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/desertthunder/spx/internal/tasks"
)

func TestBar(t *testing.T) {
	tc := []struct {
		step, total int
		filled      int
	}{
		{0, 10, 0},
		{5, 10, 10},
		{10, 10, 20},
		{15, 10, 20},
		{3, 0, 0},
	}

	for _, tt := range tc {
		bar := Bar(tt.step, tt.total)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("Bar(%d, %d) filled %d cells, want %d", tt.step, tt.total, got, tt.filled)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "·"); got != barWidth {
			t.Errorf("Bar(%d, %d) has width %d, want %d", tt.step, tt.total, got, barWidth)
		}
	}
}

func TestPalette(t *testing.T) {
	if got := Styles.OK("saved %d", 3); !strings.Contains(got, "✓ saved 3") {
		t.Errorf("unexpected OK rendering %q", got)
	}
	if got := Styles.Err("boom"); !strings.Contains(got, "✗ boom") {
		t.Errorf("unexpected Err rendering %q", got)
	}
	if got := Styles.Warn("careful"); !strings.Contains(got, "⚠ careful") {
		t.Errorf("unexpected Warn rendering %q", got)
	}
}

func TestPrintProgress(t *testing.T) {
	var out bytes.Buffer
	progress := make(chan tasks.ProgressUpdate, 3)
	progress <- tasks.ProgressUpdate{Phase: tasks.FetchDetails, Step: 1, Total: 2, Message: "first"}
	progress <- tasks.ProgressUpdate{Phase: tasks.CreatePlaylist, Message: "second"}
	close(progress)

	<-PrintProgress(&out, progress)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out.String())
	}
	if !strings.Contains(lines[0], "first") || !strings.Contains(lines[0], "fetch_details") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "→") || !strings.Contains(lines[1], "second") {
		t.Errorf("unexpected second line %q", lines[1])
	}
}
