package ui

import (
	"fmt"
	"strings"

	"github.com/thoas/go-funk"

	"github.com/stalexteam/tmix/pkg/tmix"
	"github.com/stalexteam/tmix/pkg/tmix/util"
)

// labeler picks a display name for each stream. Process lookups are remembered per PID,
// failures included, since the same streams come around every frame
type labeler struct {
	lookup    func(pid int) (string, error)
	processes map[int]string
}

func newLabeler() *labeler {
	return &labeler{
		lookup:    util.ProcessName,
		processes: make(map[int]string),
	}
}

func (l *labeler) label(input tmix.SinkInputRecord) string {
	if input.Name != "" {
		return input.Name
	}

	if name := input.ApplicationName(); name != "" {
		return name
	}

	if input.ProcessBinary != "" {
		return input.ProcessBinary
	}

	if input.ProcessID > 0 {
		if name := l.processName(input.ProcessID); name != "" {
			return name
		}
	}

	return fmt.Sprintf("stream #%d", input.Index)
}

func (l *labeler) processName(pid int) string {
	if name, ok := l.processes[pid]; ok {
		return name
	}

	name, err := l.lookup(pid)
	if err != nil {
		name = ""
	}

	l.processes[pid] = name

	return name
}

// hidden reports whether a label is in the (already lowercased) hidden list
func hidden(label string, hiddenStreams []string) bool {
	if len(hiddenStreams) == 0 {
		return false
	}

	return funk.ContainsString(hiddenStreams, strings.ToLower(label))
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}

	if width <= 1 {
		return string(runes[:width])
	}

	return string(runes[:width-1]) + "…"
}
