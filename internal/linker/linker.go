// Package linker materializes a resolved media identity as a hardlink,
// leaving the original file untouched.
package linker

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
)

// Result is the closed outcome set of a Link call (C2).
type Result string

const (
	Success           Result = "SUCCESS"
	FailedConflict    Result = "FAILED_CONFLICT"
	FailedCrossDevice Result = "FAILED_CROSS_DEVICE"
	FailedNoSource    Result = "FAILED_NO_SOURCE"
	FailedUnknown     Result = "FAILED_UNKNOWN"
)

// Link attempts to hardlink src to dst, classifying the outcome into the
// closed Result set. Preconditions are checked in order, matching the
// original's create_hardlink: src exists and is a regular file, dst does
// not already exist, dst's parent directories are created. No partial state
// is left at dst unless Success is returned.
func Link(src, dst string) Result {
	srcInfo, err := os.Lstat(src)
	if err != nil || !srcInfo.Mode().IsRegular() {
		return FailedNoSource
	}

	if _, err := os.Lstat(dst); err == nil {
		return FailedConflict
	} else if !os.IsNotExist(err) {
		return FailedUnknown
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		// A concurrent MkdirAll racing us to create the same directory is
		// not a failure; anything else is.
		if !errors.Is(err, os.ErrExist) {
			return FailedUnknown
		}
	}

	if err := os.Link(src, dst); err != nil {
		if errors.Is(err, syscall.EXDEV) {
			return FailedCrossDevice
		}
		if errors.Is(err, os.ErrExist) {
			return FailedConflict
		}
		return FailedUnknown
	}
	return Success
}
