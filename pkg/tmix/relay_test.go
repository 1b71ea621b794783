package tmix

import (
	"testing"
)

func TestRelayStateFromRecord(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   relayState
	}{
		{
			name:   "sink",
			record: SinkRecord{Index: 2, Description: "Speakers", Volume: volumeAt(50), Muted: true},
			want:   relayState{ID: "sink-2", Name: "Speakers", Value: 50, Muted: true},
		},
		{
			name:   "rounds to the nearest percent",
			record: SinkInputRecord{Index: 3, Name: "Music", Volume: ChannelVolumes{Values: []Volume{19005}}},
			want:   relayState{ID: "sink_input-3", Name: "Music", Value: 29},
		},
		{
			name:   "sink input",
			record: SinkInputRecord{Index: 17, Name: "Playback", Volume: volumeAt(100)},
			want:   relayState{ID: "sink_input-17", Name: "Playback", Value: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relayStateFromRecord(tt.record); got != tt.want {
				t.Errorf("relayStateFromRecord() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRelayObserveRemembersLatest(t *testing.T) {
	srv := NewRelayServer(testLogger())

	// not started, so nothing is broadcast, but state is still kept for later clients
	srv.Observe(sinkInput(5, 0, 20))
	srv.Observe(sinkInput(5, 0, 50))
	srv.Observe(sink(0, "Speakers", 100))

	states := srv.knownStates()
	if len(states) != 2 {
		t.Fatalf("knownStates() has %d entries, want 2", len(states))
	}

	for _, state := range states {
		if state.ID == "sink_input-5" && state.Value != 50 {
			t.Errorf("sink_input-5 value = %f, want 50", state.Value)
		}
	}

	if err := srv.Start(0); err != nil {
		t.Errorf("Start(0) error = %v, want nil for a disabled relay", err)
	}
	srv.Stop()
}
