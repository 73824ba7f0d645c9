package disk

import (
	"os"

	"golang.org/x/sys/unix"
)

// flushCaches drops the kernel buffer cache of a block device and syncs
// every filesystem.
func flushCaches(f *os.File, blockDevice bool) error {
	if blockDevice {
		if err := unix.IoctlSetInt(int(f.Fd()), unix.BLKFLSBUF, 0); err != nil {
			return err
		}
	}
	unix.Sync()
	return nil
}
