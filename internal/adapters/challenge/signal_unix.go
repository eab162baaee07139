//go:build !windows

package challenge

import (
	"os"
	"syscall"
)

func acknowledgeSignals() []os.Signal {
	return []os.Signal{syscall.SIGUSR1}
}
