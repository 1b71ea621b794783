package ui

import (
	"fmt"
	"strings"

	"github.com/stalexteam/tmix/pkg/tmix"
)

// RenderText lists every sink and its streams as plain text. Streams whose label is in
// hiddenStreams (lowercase) are left out
func RenderText(snapshot tmix.Snapshot, hiddenStreams ...string) string {
	var b strings.Builder

	entries := snapshot.Entries()
	if len(entries) == 0 {
		b.WriteString("no sinks\n")
		return b.String()
	}

	labels := newLabeler()

	for _, entry := range entries {
		sink := entry.Sink
		fmt.Fprintf(&b, "sink %d: %s  %.0f%%  %s%s\n",
			sink.Index, sink.DisplayName(), sink.Volume.Percent(), sink.State, flags(sink.Muted, false))

		for _, input := range entry.Inputs {
			label := labels.label(input)
			if hidden(label, hiddenStreams) {
				continue
			}

			fmt.Fprintf(&b, "  #%d %s  %.0f%%%s\n",
				input.Index, label, input.Volume.Percent(), flags(input.Muted, input.Corked))
		}
	}

	if dropped := snapshot.Dropped(); dropped > 0 {
		fmt.Fprintf(&b, "(%d streams on unknown sinks)\n", dropped)
	}

	return b.String()
}

func flags(muted bool, corked bool) string {
	var f []string
	if muted {
		f = append(f, "muted")
	}

	if corked {
		f = append(f, "paused")
	}

	if len(f) == 0 {
		return ""
	}

	return "  [" + strings.Join(f, ", ") + "]"
}
