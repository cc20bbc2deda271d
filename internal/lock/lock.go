package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/sparkify/dwh/internal/config"
)

const DefaultPath = ".dwh/dwh.lock"

// PathFor returns the lock file that guards the state file at stateFile.
// Commands sharing a state directory share a lock.
func PathFor(stateFile string) string {
	if stateFile == "" {
		return DefaultPath
	}
	return filepath.Join(filepath.Dir(stateFile), "dwh.lock")
}

// Acquire writes the current PID to the lock file. It fails if another
// live process holds the lock; a stale lock is taken over.
func Acquire(path string) error {
	if path == "" {
		path = DefaultPath
	}
	path = config.ExpandHome(path)

	if held, pid, err := IsHeld(path); err == nil && held && pid != os.Getpid() {
		return fmt.Errorf("another dwh command is running (PID %d); only one action can run at a time", pid)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// Release removes the lock file.
func Release(path string) error {
	if path == "" {
		path = DefaultPath
	}
	err := os.Remove(config.ExpandHome(path))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsHeld checks if the lock is currently held by a running process.
func IsHeld(path string) (bool, int, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(config.ExpandHome(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, 0, nil
	}
	return isProcessRunning(pid), pid, nil
}

func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
