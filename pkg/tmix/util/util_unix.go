//go:build !windows

package util

import (
	"os"
	"os/signal"
	"syscall"
)

// SetupDumpHandler notifies the returned channel on SIGUSR1, which is used to request a
// goroutine dump while debugging a stuck poll loop
func SetupDumpHandler() chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGUSR1)

	return c
}
