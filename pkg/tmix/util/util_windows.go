package util

import "os"

// SetupDumpHandler is a no-op on Windows, there's no SIGUSR1 to listen on
func SetupDumpHandler() chan os.Signal {
	return make(chan os.Signal)
}
