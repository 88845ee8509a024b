package engine

import (
	"fmt"
	"os"
	"path/filepath"
)

// fallbackDirName is used under the user's home directory when the
// configured root is not writable.
const fallbackDirName = "pyfinder-output"

// PrepareWorkingDir returns a writable, created working directory for
// eventID under root, falling back to ~/pyfinder-output/<eventID> and
// logging through the returned bool when root itself cannot be used.
func PrepareWorkingDir(root, eventID string) (dir string, usedFallback bool, err error) {
	dir = filepath.Join(root, eventID)
	if err := os.MkdirAll(dir, 0o755); err == nil && writable(dir) {
		return dir, false, nil
	}

	home, herr := os.UserHomeDir()
	if herr != nil {
		return "", false, fmt.Errorf("root %q unwritable and home directory unavailable: %w", root, herr)
	}

	fallback := filepath.Join(home, fallbackDirName, eventID)
	if err := os.MkdirAll(fallback, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create fallback working directory %q: %w", fallback, err)
	}
	return fallback, true, nil
}

func writable(dir string) bool {
	probe := filepath.Join(dir, ".write_probe")
	f, err := os.Create(probe)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}
