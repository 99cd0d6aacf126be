//go:build !unix

package filesum

import "os"

func hardLinkID(info os.FileInfo) (devIno, bool) {
	return devIno{}, false
}

func onDiskSize(info os.FileInfo) (uint64, bool) {
	return uint64(info.Size()), false
}
