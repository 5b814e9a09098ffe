package server

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-ps"
)

// ensureSingleInstance fails when another process runs the named executable.
// Two daemons would fight over the serial port and the speakers.
func ensureSingleInstance(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	if pid, found := findOther(processList, processName, os.Getpid()); found {
		return fmt.Errorf("%w: pid %d", ErrAlreadyRunning, pid)
	}

	return nil
}

// findOther returns the first process other than self running processName.
func findOther(processList []ps.Process, processName string, self int) (int, bool) {
	for _, process := range processList {
		if process.Pid() == self {
			continue
		}

		if process.Executable() == processName {
			return process.Pid(), true
		}
	}

	return 0, false
}
