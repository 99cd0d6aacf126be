//go:build unix

package filesum

import (
	"os"
	"syscall"
)

// hardLinkID extracts the (device, inode) pair used to detect hard links.
// Files with only one remaining link (Nlink <= 1) skip the dedup set
// entirely since they cannot be seen twice.
func hardLinkID(info os.FileInfo) (devIno, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok || st.Nlink <= 1 {
		return devIno{}, false
	}
	return devIno{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true
}

// onDiskSize returns the actual disk usage of a file (block count * 512)
// and whether it is sparse (fewer blocks allocated than its nominal size
// implies), falling back to the nominal size when blocks undercount it — a
// sparse file's block count can undercount what `du` traditionally reports
// for very small files on some filesystems.
func onDiskSize(info os.FileInfo) (uint64, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return uint64(info.Size()), false
	}
	blocks := uint64(st.Blocks) * 512
	nominal := uint64(info.Size())
	sparse := blocks < nominal
	if sparse {
		return nominal, true
	}
	return blocks, false
}
