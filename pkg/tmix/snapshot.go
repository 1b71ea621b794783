package tmix

import (
	"fmt"
	"sort"
	"time"
)

// SinkEntry is one sink along with the streams routed to it
type SinkEntry struct {
	Sink   SinkRecord
	Inputs []SinkInputRecord
}

// Snapshot is a point-in-time view of every sink and its inputs, keyed by sink index.
// It's never modified once built
type Snapshot struct {
	entries map[uint32]SinkEntry
	dropped int

	TakenAt time.Time
}

// BuildSnapshot joins inputs to their owning sinks. Inputs pointing at a sink that isn't in
// sinks are dropped: a sink going away before its streams do is normal on a live server
func BuildSnapshot(sinks []SinkRecord, inputs []SinkInputRecord) Snapshot {
	snap := Snapshot{
		entries: make(map[uint32]SinkEntry, len(sinks)),
		TakenAt: time.Now(),
	}

	for _, sink := range sinks {
		snap.entries[sink.Index] = SinkEntry{
			Sink:   sink,
			Inputs: []SinkInputRecord{},
		}
	}

	for _, input := range inputs {
		entry, ok := snap.entries[input.Sink]
		if !ok {
			snap.dropped++
			continue
		}

		entry.Inputs = append(entry.Inputs, input)
		snap.entries[input.Sink] = entry
	}

	return snap
}

// Len returns the number of sinks
func (s Snapshot) Len() int {
	return len(s.entries)
}

// Get returns the entry for a sink index. Its inputs are a copy, ordered by stream index
func (s Snapshot) Get(index uint32) (SinkEntry, bool) {
	entry, ok := s.entries[index]
	if !ok {
		return SinkEntry{}, false
	}

	return entry.sorted(), true
}

// Indices returns all sink indices in ascending order
func (s Snapshot) Indices() []uint32 {
	indices := make([]uint32, 0, len(s.entries))
	for index := range s.entries {
		indices = append(indices, index)
	}

	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	return indices
}

// Entries returns every sink entry ordered by sink index, with each entry's inputs
// ordered by stream index. Use this for anything that's drawn on screen
func (s Snapshot) Entries() []SinkEntry {
	entries := make([]SinkEntry, 0, len(s.entries))

	for _, index := range s.Indices() {
		entries = append(entries, s.entries[index].sorted())
	}

	return entries
}

func (e SinkEntry) sorted() SinkEntry {
	inputs := make([]SinkInputRecord, len(e.Inputs))
	copy(inputs, e.Inputs)
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Index < inputs[j].Index })

	return SinkEntry{Sink: e.Sink, Inputs: inputs}
}

// Inputs returns every input that made it into the snapshot, ordered by stream index
func (s Snapshot) Inputs() []SinkInputRecord {
	var inputs []SinkInputRecord
	for _, entry := range s.entries {
		inputs = append(inputs, entry.Inputs...)
	}

	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Index < inputs[j].Index })

	return inputs
}

// Dropped returns how many inputs referenced a sink that wasn't there
func (s Snapshot) Dropped() int {
	return s.dropped
}

func (s Snapshot) String() string {
	inputCount := 0
	for _, entry := range s.entries {
		inputCount += len(entry.Inputs)
	}

	return fmt.Sprintf("<%d sinks with %d inputs>", len(s.entries), inputCount)
}
