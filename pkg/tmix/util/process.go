package util

import (
	"errors"
	"fmt"

	ps "github.com/mitchellh/go-ps"
)

var errNoSuchProcess = errors.New("no such process")

// ProcessName returns the executable name of the process with the given ID
func ProcessName(pid int) (string, error) {
	if pid <= 0 {
		return "", fmt.Errorf("find process %d: %w", pid, errNoSuchProcess)
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		return "", fmt.Errorf("find process %d: %w", pid, err)
	}

	// FindProcess doesn't consider a missing process an error
	if process == nil {
		return "", fmt.Errorf("find process %d: %w", pid, errNoSuchProcess)
	}

	return process.Executable(), nil
}
