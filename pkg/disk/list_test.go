package disk

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jaypipes/ghw/pkg/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubBlockDisks(t *testing.T, disks []*block.Disk, err error) {
	t.Helper()
	orig := blockDisks
	blockDisks = func() ([]*block.Disk, error) { return disks, err }
	t.Cleanup(func() { blockDisks = orig })
}

func TestListDevices(t *testing.T) {
	stubBlockDisks(t, []*block.Disk{
		{Name: "sdb", SizeBytes: 32 * 1024 * 1024 * 1024, Model: "SD/MMC  ", IsRemovable: true,
			Partitions: []*block.Partition{{Name: "sdb1"}, {Name: "sdb2"}}},
		{Name: "loop0", SizeBytes: 1024},
		{Name: "sr0", DriveType: block.DriveTypeODD},
		{Name: "nvme0n1", SizeBytes: 512 * 1024 * 1024 * 1024, Model: "unknown",
			Partitions: []*block.Partition{{Name: "nvme0n1p1"}}},
		{Name: "zram0"},
		{Name: "dm-0"},
		nil,
	}, nil)

	devices, err := ListDevices()
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "/dev/nvme0n1", devices[0].Path)
	assert.Equal(t, Device{
		Path:       "/dev/sdb",
		Partitions: 2,
		SizeBytes:  32 * 1024 * 1024 * 1024,
		Model:      "SD/MMC",
		Removable:  true,
	}, devices[1])

	var out bytes.Buffer
	require.NoError(t, PrintDevices(&out, devices))
	assert.Equal(t, "Potentials:\n"+
		"- /dev/nvme0n1 (1 partitions, 512 GiB)\n"+
		"- /dev/sdb (2 partitions, 32 GiB, SD/MMC, removable)\n", out.String())
}

func TestListDevicesError(t *testing.T) {
	stubBlockDisks(t, nil, errors.New("no sysfs"))
	_, err := ListDevices()
	assert.ErrorContains(t, err, "no sysfs")
}

func TestPrintDevicesEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, PrintDevices(&out, nil))
	assert.Equal(t, "Potentials:\n", out.String())
}
