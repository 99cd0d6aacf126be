//go:build unix

package states

import "syscall"

// statFS fills in the size and free-space figures for the filesystem
// holding path, returning false when the statfs call fails (an unmounted
// or permission-denied mount point).
func statFS(path string, fs *FSInfo) bool {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return false
	}
	bsize := uint64(st.Bsize)
	fs.SizeBytes = st.Blocks * bsize
	fs.FreeBytes = st.Bavail * bsize
	if fs.SizeBytes >= fs.FreeBytes {
		fs.UsedBytes = fs.SizeBytes - fs.FreeBytes
	}
	return true
}
