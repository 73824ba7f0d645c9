package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Rudd3r/sdprep/pkg/domain"
	"github.com/Rudd3r/sdprep/pkg/image"
	"github.com/Rudd3r/sdprep/pkg/mount"
	"github.com/Rudd3r/sdprep/pkg/runner"
)

var ErrAborted = errors.New("aborted by user")

var (
	// replaceable for testing
	isDeviceNode = func(info os.FileInfo) bool { return info.Mode()&os.ModeDevice != 0 }
	mountsOf     = mount.MountsOfDevice
)

type FlashOptions struct {
	BlockSize int64
	NoEject   bool
	// Confirm is asked once all checks pass. A nil Confirm writes without asking.
	Confirm func(image, device string) (bool, error)
}

// Flasher writes raw images onto whole-disk devices.
type Flasher struct {
	Runner   runner.Runner
	Log      *slog.Logger
	Reporter *image.Reporter
}

func NewFlasher(r runner.Runner, log *slog.Logger, reporter *image.Reporter) *Flasher {
	return &Flasher{Runner: r, Log: log, Reporter: reporter}
}

// Flash copies img onto device block by block, flushes every cache between
// the process and the card and finally ejects the device.
func (f *Flasher) Flash(ctx context.Context, img, device string, opts FlashOptions) error {
	if err := requireRegular(img); err != nil {
		return err
	}
	devInfo, err := os.Stat(device)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", device, domain.ErrNotFound)
		}
		return fmt.Errorf("stat %s: %w", device, err)
	}
	if !isDeviceNode(devInfo) {
		return fmt.Errorf("%w: %s is not a device node", domain.ErrUsage, device)
	}
	mounts, err := mountsOf(device)
	if err != nil {
		return err
	}
	if len(mounts) > 0 {
		return fmt.Errorf("%s is mounted at %s: %w", mounts[0].Source, mounts[0].Mountpoint, domain.ErrAlreadyMounted)
	}

	if opts.Confirm != nil {
		ok, err := opts.Confirm(img, device)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAborted
		}
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = domain.DefaultBlockSize
	}

	n, err := f.copy(ctx, img, device, devInfo.Mode()&os.ModeDevice != 0, opts.BlockSize)
	if err != nil {
		f.reporter().Error(err, "flash failed")
		return err
	}
	f.reporter().Complete(filepath.Base(img), n)
	f.log().Info("flashed", "image", img, "device", device, "bytes", n)

	if opts.NoEject {
		return nil
	}
	if _, err = f.Runner.Run(ctx, "eject", device); err != nil {
		return fmt.Errorf("eject %s: %w", device, err)
	}
	return nil
}

func (f *Flasher) copy(ctx context.Context, img, device string, blockDevice bool, blockSize int64) (int64, error) {
	src, err := os.Open(img)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", img, err)
	}
	defer func() { _ = src.Close() }()
	info, err := src.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", img, err)
	}

	dst, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s for writing: %w", device, err)
	}
	defer func() { _ = dst.Close() }()

	name := filepath.Base(img)
	f.reporter().Start(name, info.Size())
	pr := image.NewProgressReader(image.ContextReader(ctx, src), f.reporter(), name, info.Size())

	// hide ReadFrom so every write is one block
	n, err := io.CopyBuffer(struct{ io.Writer }{dst}, pr, make([]byte, blockSize))
	if err != nil {
		return n, fmt.Errorf("copy %s to %s: %w", img, device, err)
	}
	if n != info.Size() {
		return n, fmt.Errorf("short write to %s: %d of %d bytes", device, n, info.Size())
	}

	f.log().Debug("syncing", "device", device)
	if err = dst.Sync(); err != nil {
		return n, fmt.Errorf("fsync %s: %w", device, err)
	}
	if err = flushCaches(dst, blockDevice); err != nil {
		return n, fmt.Errorf("flush %s: %w", device, err)
	}
	if err = dst.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", device, err)
	}
	return n, nil
}

func (f *Flasher) reporter() *image.Reporter {
	if f.Reporter == nil {
		f.Reporter = image.NoOpReporter()
	}
	return f.Reporter
}

func (f *Flasher) log() *slog.Logger {
	if f.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.Log
}
