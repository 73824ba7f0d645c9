package mount

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/Rudd3r/sdprep/pkg/domain"
	"github.com/Rudd3r/sdprep/pkg/runner"
)

// Mounter attaches partitions of disk images through the loop driver.
type Mounter struct {
	Runner runner.Runner
	Log    *slog.Logger
}

func NewMounter(r runner.Runner, log *slog.Logger) *Mounter {
	return &Mounter{Runner: r, Log: log}
}

// Mount loop-mounts the filesystem starting offset bytes into image at
// mountpoint, creating the directory if needed.
func (m *Mounter) Mount(ctx context.Context, image, mountpoint string, offset int64) error {
	info, err := os.Stat(image)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", image, domain.ErrNotFound)
		}
		return fmt.Errorf("stat %s: %w", image, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", domain.ErrUsage, image)
	}
	if offset < 0 || offset >= info.Size() {
		return fmt.Errorf("offset %d outside image of %d bytes", offset, info.Size())
	}

	if err = os.MkdirAll(mountpoint, 0755); err != nil {
		return fmt.Errorf("create mountpoint: %w", err)
	}
	mounted, err := IsMountpoint(mountpoint)
	if err != nil {
		return err
	}
	if mounted {
		return fmt.Errorf("%s: %w", mountpoint, domain.ErrAlreadyMounted)
	}

	opts := "loop,rw,sync,offset=" + strconv.FormatInt(offset, 10)
	if _, err = m.Runner.Run(ctx, "mount", "-o", opts, image, mountpoint); err != nil {
		return fmt.Errorf("mount %s: %w", image, err)
	}
	m.log().Info("mounted", "image", image, "mountpoint", mountpoint, "offset", offset)
	return nil
}

// Umount detaches the filesystem at mountpoint.
func (m *Mounter) Umount(ctx context.Context, mountpoint string) error {
	mounted, err := IsMountpoint(mountpoint)
	if err != nil {
		return err
	}
	if !mounted {
		return fmt.Errorf("%s: %w", mountpoint, domain.ErrNotMounted)
	}
	if _, err = m.Runner.Run(ctx, "umount", mountpoint); err != nil {
		return fmt.Errorf("umount %s: %w", mountpoint, err)
	}
	m.log().Info("unmounted", "mountpoint", mountpoint)
	return nil
}

func (m *Mounter) log() *slog.Logger {
	if m.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.Log
}
