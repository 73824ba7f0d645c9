package disk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSparse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.img")

	size := int64(64 * 1024 * 1024)
	require.NoError(t, CreateSparse(path, size))

	stat, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, size, stat.Size())

	// recreating truncates
	require.NoError(t, CreateSparse(path, 1024))
	stat, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), stat.Size())
}

func TestCreateSparseErrors(t *testing.T) {
	assert.Error(t, CreateSparse("/nonexistent/directory/disk.img", 1024))
	assert.Error(t, CreateSparse(filepath.Join(t.TempDir(), "zero.img"), 0))
}
