package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the canonical runtime folder layout under the data path.
type Paths struct {
	Snapshots string // pebble snapshot store
	State     string // state root
	Sweeper   string // sweeper lock/artifacts
	Crash     string // crash dumps
	Abort     string // abort requests
	Telemetry string // telemetry jsonl sink
	Tmp       string
}

// PathsVar holds the resolved layout after EnsureStateDirs succeeds.
var PathsVar Paths

// EnsureStateDirs ensures the canonical runtime folder layout exists under
// the provided data path. It verifies paths are not symlinks and have
// restrictive permissions, and that they are writable by the process.
func EnsureStateDirs(dataPath string) error {
	p := Paths{
		Snapshots: filepath.Join(dataPath, "snapshots"),
		State:     filepath.Join(dataPath, "state"),
		Sweeper:   filepath.Join(dataPath, "state", "sweeper"),
		Crash:     filepath.Join(dataPath, "state", "crash"),
		Abort:     filepath.Join(dataPath, "state", "abort"),
		Telemetry: filepath.Join(dataPath, "state", "telemetry"),
		Tmp:       filepath.Join(dataPath, "state", "tmp"),
	}

	paths := []string{p.Snapshots, p.Sweeper, p.Crash, p.Abort, p.Telemetry, p.Tmp}

	for _, dir := range paths {
		// ensure parent exists
		if err := os.MkdirAll(filepath.Dir(dir), 0o700); err != nil {
			return fmt.Errorf("cannot create parent for %s: %w", dir, err)
		}

		// if path exists, reject symlinks and non-directories
		if fi, err := os.Lstat(dir); err == nil {
			if fi.Mode()&os.ModeSymlink != 0 {
				return fmt.Errorf("path is a symlink: %s", dir)
			}
			if !fi.IsDir() {
				return fmt.Errorf("path exists and is not a directory: %s", dir)
			}
		}

		// create directory if missing
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("cannot create path %s: %w", dir, err)
		}

		// writability check: create and remove a temp file
		tmp, err := os.CreateTemp(dir, ".validate-*")
		if err != nil {
			return fmt.Errorf("path not writable: %s: %w", dir, err)
		}
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	PathsVar = p
	return nil
}
