package ui

import (
	"strings"
	"testing"

	"github.com/stalexteam/tmix/pkg/tmix"
)

func TestFilledRows(t *testing.T) {
	tests := []struct {
		percent float32
		want    int
	}{
		{0, 0},
		{4, 0},
		{6, 1},
		{50, 5},
		{100, 10},
		{153, 10},
		{-3, 0},
	}

	for _, tt := range tests {
		if got := filledRows(tt.percent, 10); got != tt.want {
			t.Errorf("filledRows(%.0f) = %d, want %d", tt.percent, got, tt.want)
		}
	}
}

func TestBarFillsFromTheBottom(t *testing.T) {
	rows := bar(30, 10)

	if len(rows) != 10 {
		t.Fatalf("bar() has %d rows, want 10", len(rows))
	}

	for i, row := range rows {
		want := emptyCell
		if i >= 7 {
			want = filledCell
		}

		if row != want {
			t.Errorf("row %d = %q, want %q", i, row, want)
		}
	}
}

func TestMeterStatus(t *testing.T) {
	tests := []struct {
		meter meter
		want  string
	}{
		{meter{percent: 42.4}, "42%"},
		{meter{percent: 42.4, muted: true, corked: true}, "muted"},
		{meter{percent: 42.4, corked: true}, "paused"},
	}

	for _, tt := range tests {
		if got := tt.meter.status(); got != tt.want {
			t.Errorf("status() = %q, want %q", got, tt.want)
		}
	}
}

func TestRenderText(t *testing.T) {
	snapshot := tmix.BuildSnapshot(
		[]tmix.SinkRecord{
			{Index: 1, Description: "Headphones", Volume: percentVolume(100), State: tmix.SinkIdle},
			{Index: 0, Name: "Speakers", Volume: percentVolume(50), Muted: true},
		},
		[]tmix.SinkInputRecord{
			{Index: 12, Sink: 1, Name: "Discord", Volume: percentVolume(30)},
			{Index: 10, Sink: 0, Name: "Firefox", Volume: percentVolume(80), Corked: true},
			{Index: 99, Sink: 7, Name: "Orphan", Volume: percentVolume(80)},
		},
	)

	text := RenderText(snapshot, "discord")

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) != 4 {
		t.Fatalf("RenderText() has %d lines, want 4:\n%s", len(lines), text)
	}

	if !strings.HasPrefix(lines[0], "sink 0: Speakers  50%") || !strings.Contains(lines[0], "[muted]") {
		t.Errorf("line 0 = %q", lines[0])
	}

	if !strings.HasPrefix(lines[1], "  #10 Firefox  80%") || !strings.Contains(lines[1], "[paused]") {
		t.Errorf("line 1 = %q", lines[1])
	}

	if !strings.HasPrefix(lines[2], "sink 1: Headphones  100%") {
		t.Errorf("line 2 = %q", lines[2])
	}

	if lines[3] != "(1 streams on unknown sinks)" {
		t.Errorf("line 3 = %q", lines[3])
	}

	if strings.Contains(text, "Discord") || strings.Contains(text, "Orphan") {
		t.Errorf("RenderText() shows hidden or dropped streams:\n%s", text)
	}
}

func TestRenderTextEmpty(t *testing.T) {
	if got := RenderText(tmix.BuildSnapshot(nil, nil)); got != "no sinks\n" {
		t.Errorf("RenderText() = %q, want %q", got, "no sinks\n")
	}
}
