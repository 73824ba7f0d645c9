package disk

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/block"
)

// Device is a whole-disk block device that could receive an image.
type Device struct {
	Path       string
	Partitions int
	SizeBytes  uint64
	Model      string
	Removable  bool
}

var blockDisks = func() ([]*block.Disk, error) {
	info, err := ghw.Block()
	if err != nil {
		return nil, err
	}
	return info.Disks, nil
}

var virtualPrefixes = []string{"loop", "ram", "zram", "dm-", "sr", "nbd"}

// ListDevices returns candidate flash targets sorted by path.
func ListDevices() ([]Device, error) {
	disks, err := blockDisks()
	if err != nil {
		return nil, fmt.Errorf("read block devices: %w", err)
	}
	var devices []Device
	for _, d := range disks {
		if d == nil || d.DriveType == block.DriveTypeODD || isVirtual(d.Name) {
			continue
		}
		devices = append(devices, Device{
			Path:       "/dev/" + d.Name,
			Partitions: len(d.Partitions),
			SizeBytes:  d.SizeBytes,
			Model:      strings.TrimSpace(d.Model),
			Removable:  d.IsRemovable,
		})
	}
	slices.SortFunc(devices, func(a, b Device) int { return strings.Compare(a.Path, b.Path) })
	return devices, nil
}

func isVirtual(name string) bool {
	return slices.ContainsFunc(virtualPrefixes, func(p string) bool { return strings.HasPrefix(name, p) })
}

// PrintDevices writes the listing shown by the list command.
func PrintDevices(w io.Writer, devices []Device) error {
	if _, err := fmt.Fprintln(w, "Potentials:"); err != nil {
		return err
	}
	for _, d := range devices {
		line := fmt.Sprintf("- %s (%d partitions, %s", d.Path, d.Partitions, humanize.IBytes(d.SizeBytes))
		if d.Model != "" && d.Model != "unknown" {
			line += ", " + d.Model
		}
		if d.Removable {
			line += ", removable"
		}
		if _, err := fmt.Fprintln(w, line+")"); err != nil {
			return err
		}
	}
	return nil
}
