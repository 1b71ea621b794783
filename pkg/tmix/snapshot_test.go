package tmix

import (
	"testing"
)

func TestBuildSnapshotDropsDanglingInputs(t *testing.T) {
	sinks := []SinkRecord{sink(0, "Speakers", 50)}
	inputs := []SinkInputRecord{
		sinkInput(10, 0, 80),
		sinkInput(11, 1, 40),
	}

	snap := BuildSnapshot(sinks, inputs)

	if snap.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", snap.Len())
	}

	entry, ok := snap.Get(0)
	if !ok {
		t.Fatal("sink 0 missing from snapshot")
	}

	if entry.Sink.Name != "Speakers" {
		t.Errorf("sink name = %q, want Speakers", entry.Sink.Name)
	}

	if len(entry.Inputs) != 1 || entry.Inputs[0].Index != 10 {
		t.Fatalf("sink 0 inputs = %v, want only input 10", entry.Inputs)
	}

	if snap.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", snap.Dropped())
	}

	for _, input := range snap.Inputs() {
		if input.Index == 11 {
			t.Error("input 11 should have been dropped")
		}
	}
}

func TestBuildSnapshotJoin(t *testing.T) {
	tests := []struct {
		name        string
		sinks       []SinkRecord
		inputs      []SinkInputRecord
		wantDropped int
	}{
		{
			name: "empty",
		},
		{
			name:  "sinks without inputs",
			sinks: []SinkRecord{sink(0, "a", 10), sink(3, "b", 20)},
		},
		{
			name:        "only dangling inputs",
			inputs:      []SinkInputRecord{sinkInput(1, 7, 50), sinkInput(2, 8, 50)},
			wantDropped: 2,
		},
		{
			name:  "several inputs per sink",
			sinks: []SinkRecord{sink(1, "a", 10), sink(2, "b", 20), sink(5, "c", 30)},
			inputs: []SinkInputRecord{
				sinkInput(40, 2, 10),
				sinkInput(12, 1, 10),
				sinkInput(13, 2, 10),
				sinkInput(99, 4, 10),
				sinkInput(7, 1, 10),
			},
			wantDropped: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := BuildSnapshot(tt.sinks, tt.inputs)

			// sink index set is exactly the input sink list's
			if snap.Len() != len(tt.sinks) {
				t.Fatalf("Len() = %d, want %d", snap.Len(), len(tt.sinks))
			}
			for _, s := range tt.sinks {
				entry, ok := snap.Get(s.Index)
				if !ok {
					t.Fatalf("sink %d missing", s.Index)
				}
				if entry.Inputs == nil {
					t.Errorf("sink %d has nil inputs, want empty slice", s.Index)
				}
			}

			sinkIndices := map[uint32]bool{}
			for _, s := range tt.sinks {
				sinkIndices[s.Index] = true
			}

			// every input with a known sink appears exactly once, under that sink
			for _, input := range tt.inputs {
				count := 0
				for _, entry := range snap.Entries() {
					for _, in := range entry.Inputs {
						if in.Index != input.Index {
							continue
						}
						count++
						if entry.Sink.Index != input.Sink {
							t.Errorf("input %d under sink %d, want %d", input.Index, entry.Sink.Index, input.Sink)
						}
					}
				}

				want := 0
				if sinkIndices[input.Sink] {
					want = 1
				}
				if count != want {
					t.Errorf("input %d appears %d times, want %d", input.Index, count, want)
				}
			}

			if snap.Dropped() != tt.wantDropped {
				t.Errorf("Dropped() = %d, want %d", snap.Dropped(), tt.wantDropped)
			}
		})
	}
}

func TestSnapshotEntriesAreOrdered(t *testing.T) {
	snap := BuildSnapshot(
		[]SinkRecord{sink(9, "c", 0), sink(2, "a", 0), sink(4, "b", 0)},
		[]SinkInputRecord{sinkInput(30, 2, 0), sinkInput(5, 2, 0), sinkInput(17, 2, 0)},
	)

	entries := snap.Entries()

	wantSinks := []uint32{2, 4, 9}
	for i, want := range wantSinks {
		if entries[i].Sink.Index != want {
			t.Fatalf("entry %d is sink %d, want %d", i, entries[i].Sink.Index, want)
		}
	}

	wantInputs := []uint32{5, 17, 30}
	for i, want := range wantInputs {
		if entries[0].Inputs[i].Index != want {
			t.Fatalf("input %d is %d, want %d", i, entries[0].Inputs[i].Index, want)
		}
	}

	indices := snap.Indices()
	if len(indices) != 3 || indices[0] != 2 || indices[2] != 9 {
		t.Errorf("Indices() = %v, want [2 4 9]", indices)
	}
}

func TestSnapshotEntriesDontAlias(t *testing.T) {
	snap := BuildSnapshot([]SinkRecord{sink(0, "a", 0)}, []SinkInputRecord{sinkInput(1, 0, 0)})

	entries := snap.Entries()
	entries[0].Inputs[0].Name = "changed"

	entry, _ := snap.Get(0)
	if entry.Inputs[0].Name == "changed" {
		t.Error("modifying Entries() result changed the snapshot")
	}
}

func TestSnapshotGetDoesntAlias(t *testing.T) {
	snap := BuildSnapshot([]SinkRecord{sink(0, "a", 0)}, []SinkInputRecord{sinkInput(1, 0, 0)})

	entry, _ := snap.Get(0)
	entry.Inputs[0].Muted = true
	entry.Inputs = append(entry.Inputs, sinkInput(2, 0, 0))

	again, _ := snap.Get(0)
	if again.Inputs[0].Muted {
		t.Error("modifying Get() result changed the snapshot")
	}

	if len(again.Inputs) != 1 {
		t.Errorf("snapshot has %d inputs after appending to a Get() result, want 1", len(again.Inputs))
	}
}
