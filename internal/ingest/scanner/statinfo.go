package scanner

import (
	"os"
	"syscall"
)

// statInodeDevice extracts (inode, device) from a FileInfo's platform-specific
// Sys() value. Returns ok=false if the platform doesn't expose a *syscall.Stat_t
// (e.g. non-Unix), in which case the caller treats the file as unidentifiable
// and skips it rather than risk inserting a duplicate row.
func statInodeDevice(fi os.FileInfo) (inode, device uint64, ok bool) {
	stat, okCast := fi.Sys().(*syscall.Stat_t)
	if !okCast {
		return 0, 0, false
	}
	return stat.Ino, uint64(stat.Dev), true
}
