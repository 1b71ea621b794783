package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stalexteam/tmix/pkg/tmix"
)

type fakeSource struct {
	snapshot tmix.Snapshot
	lastSeen map[uint32]time.Time
	updates  int
}

func (fs *fakeSource) Update() int {
	fs.updates++
	return 0
}

func (fs *fakeSource) Snapshot() tmix.Snapshot {
	return fs.snapshot
}

func (fs *fakeSource) LastSeen(index uint32) (time.Time, bool) {
	seen, ok := fs.lastSeen[index]
	return seen, ok
}

func percentVolume(percent int) tmix.ChannelVolumes {
	return tmix.ChannelVolumes{Values: []tmix.Volume{tmix.Volume(uint64(tmix.VolumeNorm) * uint64(percent) / 100)}}
}

func testSnapshot() tmix.Snapshot {
	return tmix.BuildSnapshot(
		[]tmix.SinkRecord{{Index: 0, Name: "Speakers", Volume: percentVolume(50)}},
		[]tmix.SinkInputRecord{
			{Index: 10, Sink: 0, Name: "Firefox", Volume: percentVolume(80)},
			{Index: 11, Sink: 0, Name: "Discord", Volume: percentVolume(40), Muted: true},
		},
	)
}

func tickModel(t *testing.T, m Model, now time.Time) Model {
	t.Helper()

	updated, cmd := m.Update(tickMsg(now))
	if cmd == nil {
		t.Fatal("tick didn't schedule the next one")
	}

	return updated.(Model)
}

func TestModelTickRefreshesSnapshot(t *testing.T) {
	source := &fakeSource{snapshot: testSnapshot()}
	m := tickModel(t, New(source, Options{}), time.Now())

	if source.updates != 1 {
		t.Errorf("source updated %d times, want 1", source.updates)
	}

	view := m.View()
	for _, want := range []string{"TMIX", "Speakers", "Firefox", "Discord", "80%", "muted"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() is missing %q:\n%s", want, view)
		}
	}
}

func TestModelEmptyView(t *testing.T) {
	m := New(&fakeSource{snapshot: tmix.BuildSnapshot(nil, nil)}, Options{})

	if view := m.View(); !strings.Contains(view, "waiting for audio streams") {
		t.Errorf("View() of an empty snapshot = %q", view)
	}
}

func TestModelKeys(t *testing.T) {
	m := New(&fakeSource{snapshot: testSnapshot()}, Options{ShowSinks: true})

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = updated.(Model)
	if m.options.ShowSinks {
		t.Error("'s' didn't turn sink meters off")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	m = updated.(Model)
	if !m.showHelp {
		t.Error("'?' didn't show the full help")
	}

	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("%s returned no command", msg)
		}

		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s didn't quit", msg)
		}
	}
}

func TestModelOptionsMessage(t *testing.T) {
	m := New(&fakeSource{snapshot: testSnapshot()}, Options{ShowSinks: true})

	updated, _ := m.Update(Options{HiddenStreams: []string{"discord"}})
	m = tickModel(t, updated.(Model), time.Now())

	if m.options.ShowSinks {
		t.Error("ShowSinks survived an options update that turned it off")
	}

	if m.options.RenderInterval != defaultRenderInterval {
		t.Errorf("RenderInterval = %s, want the default", m.options.RenderInterval)
	}

	if strings.Contains(m.View(), "Discord") {
		t.Error("hidden stream Discord is still drawn")
	}
}

func TestMetersFor(t *testing.T) {
	now := time.Now()
	source := &fakeSource{
		snapshot: testSnapshot(),
		lastSeen: map[uint32]time.Time{
			10: now,
			11: now.Add(-time.Minute),
		},
	}

	m := tickModel(t, New(source, Options{ShowSinks: true, StaleAfter: time.Second}), now)
	entry, _ := m.snapshot.Get(0)
	meters := m.metersFor(entry)

	if len(meters) != 3 {
		t.Fatalf("got %d meters, want the sink plus two streams", len(meters))
	}

	if !meters[0].sink || meters[0].label != "master" {
		t.Errorf("first meter = %+v, want the sink's", meters[0])
	}

	if meters[1].label != "Firefox" || meters[1].stale {
		t.Errorf("second meter = %+v, want a fresh Firefox", meters[1])
	}

	if meters[2].label != "Discord" || !meters[2].stale || !meters[2].muted {
		t.Errorf("third meter = %+v, want a stale, muted Discord", meters[2])
	}
}

func TestLabelChain(t *testing.T) {
	lookups := 0
	l := &labeler{
		lookup: func(pid int) (string, error) {
			lookups++
			if pid == 77 {
				return "mpv", nil
			}
			return "", errors.New("no such process")
		},
		processes: make(map[int]string),
	}

	tests := []struct {
		name  string
		input tmix.SinkInputRecord
		want  string
	}{
		{
			name:  "stream name",
			input: tmix.SinkInputRecord{Index: 1, Name: "Playback", Properties: map[string]string{"application.name": "Firefox"}},
			want:  "Playback",
		},
		{
			name:  "application name",
			input: tmix.SinkInputRecord{Index: 2, Properties: map[string]string{"application.name": "Firefox"}},
			want:  "Firefox",
		},
		{
			name:  "process binary",
			input: tmix.SinkInputRecord{Index: 3, ProcessBinary: "spotify", ProcessID: 77},
			want:  "spotify",
		},
		{
			name:  "process lookup",
			input: tmix.SinkInputRecord{Index: 4, ProcessID: 77},
			want:  "mpv",
		},
		{
			name:  "failed lookup",
			input: tmix.SinkInputRecord{Index: 5, ProcessID: 78},
			want:  "stream #5",
		},
		{
			name:  "nothing known",
			input: tmix.SinkInputRecord{Index: 6},
			want:  "stream #6",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.label(tt.input); got != tt.want {
				t.Errorf("label() = %q, want %q", got, tt.want)
			}
		})
	}

	// lookups are remembered, failures included
	l.label(tmix.SinkInputRecord{Index: 4, ProcessID: 77})
	l.label(tmix.SinkInputRecord{Index: 5, ProcessID: 78})

	if lookups != 2 {
		t.Errorf("process looked up %d times, want 2", lookups)
	}
}

func TestHidden(t *testing.T) {
	hiddenStreams := []string{"discord", "system sounds"}

	tests := []struct {
		label string
		want  bool
	}{
		{"Discord", true},
		{"System Sounds", true},
		{"Firefox", false},
		{"discord canary", false},
	}

	for _, tt := range tests {
		if got := hidden(tt.label, hiddenStreams); got != tt.want {
			t.Errorf("hidden(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}

	if hidden("Discord", nil) {
		t.Error("hidden() with no hidden streams = true")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"much too long", 8, "much to…"},
		{"ab", 1, "a"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
