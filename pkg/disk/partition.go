package disk

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Rudd3r/sdprep/pkg/domain"
	"github.com/Rudd3r/sdprep/pkg/runner"
	diskfs "github.com/diskfs/go-diskfs"
)

// PartitionOffset returns the byte offset of a partition inside a raw image.
// Partitions are numbered from 1 in table order; 0 selects the last used slot.
func PartitionOffset(image string, partition int) (int64, error) {
	if err := requireRegular(image); err != nil {
		return 0, err
	}
	d, err := diskfs.Open(image, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return 0, fmt.Errorf("open image %s: %w", image, err)
	}
	defer func() { _ = d.Close() }()

	table, err := d.GetPartitionTable()
	if err != nil {
		return 0, fmt.Errorf("read partition table of %s: %w", image, err)
	}

	parts := table.GetPartitions()
	if partition == 0 {
		for i := len(parts) - 1; i >= 0; i-- {
			if parts[i] != nil && parts[i].GetSize() > 0 {
				return parts[i].GetStart(), nil
			}
		}
		return 0, fmt.Errorf("%s has no partitions: %w", image, domain.ErrNotFound)
	}
	if partition < 0 || partition > len(parts) {
		return 0, fmt.Errorf("partition %d of %s: %w", partition, image, domain.ErrNotFound)
	}
	p := parts[partition-1]
	if p == nil || p.GetSize() == 0 {
		return 0, fmt.Errorf("partition %d of %s is empty: %w", partition, image, domain.ErrNotFound)
	}
	return p.GetStart(), nil
}

// FdiskOffset computes the offset from `fdisk -l` output, for images whose
// table go-diskfs cannot read.
func FdiskOffset(ctx context.Context, r runner.Runner, image string, partition int) (int64, error) {
	if err := requireRegular(image); err != nil {
		return 0, err
	}
	out, err := r.Run(ctx, "fdisk", "-l", image)
	if err != nil {
		return 0, err
	}
	return ParseFdiskOffset(string(out), image, partition)
}

// ParseFdiskOffset multiplies the logical sector size by the start sector of
// the selected partition row. Rows are the lines that begin with image.
func ParseFdiskOffset(output, image string, partition int) (int64, error) {
	var sectorSize int64
	var starts []int64
	for _, line := range strings.Split(output, "\n") {
		if rest, ok := strings.CutPrefix(line, "Sector size (logical/physical):"); ok {
			fields := strings.Fields(rest)
			if len(fields) == 0 {
				return 0, fmt.Errorf("malformed sector size line %q", line)
			}
			n, err := strconv.ParseInt(fields[0], 10, 64)
			if err != nil || n <= 0 {
				return 0, fmt.Errorf("malformed sector size line %q", line)
			}
			sectorSize = n
			continue
		}
		if !strings.HasPrefix(line, image) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		start := fields[1]
		if start == "*" && len(fields) > 2 {
			start = fields[2]
		}
		n, err := strconv.ParseInt(start, 10, 64)
		if err != nil {
			// not a partition row
			continue
		}
		starts = append(starts, n)
	}

	if sectorSize == 0 {
		return 0, fmt.Errorf("no sector size in fdisk output for %s", image)
	}
	if len(starts) == 0 {
		return 0, fmt.Errorf("%s has no partitions: %w", image, domain.ErrNotFound)
	}
	if partition == 0 {
		partition = len(starts)
	}
	if partition < 1 || partition > len(starts) {
		return 0, fmt.Errorf("partition %d of %s: %w", partition, image, domain.ErrNotFound)
	}
	return starts[partition-1] * sectorSize, nil
}

func requireRegular(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", domain.ErrUsage, path)
	}
	return nil
}
