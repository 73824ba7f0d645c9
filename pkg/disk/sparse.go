package disk

import (
	"fmt"
	"os"
)

// CreateSparse creates a zero-filled file of sizeBytes without allocating its blocks.
// It stands in for an SD card when no block device is at hand.
func CreateSparse(path string, sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("invalid sparse file size %d", sizeBytes)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create sparse file: %w", err)
	}
	if err = file.Truncate(sizeBytes); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to size sparse file: %w", err)
	}
	return file.Close()
}
