package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var sizePattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)\s*([kmgtpe]i?b?)?$`)

// ParseSizeBytes parses sizes like "4m", "512k" or "1.5GiB". Units are binary.
func ParseSizeBytes(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid size format: %q", s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}

	var multiplier int64 = 1
	if unit := matches[2]; unit != "" {
		multiplier = 1 << (10 * (strings.IndexByte("kmgtpe", unit[0]) + 1))
	}
	return int64(value * float64(multiplier)), nil
}

func FormatSizeBytes(bytes int64) string {
	if bytes < 0 {
		return "-" + FormatSizeBytes(-bytes)
	}

	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%db", bytes)
	}

	units := []string{"k", "m", "g", "t", "p", "e"}
	value := float64(bytes)
	i := -1
	for value >= unit && i < len(units)-1 {
		value /= unit
		i++
	}

	if value == float64(int64(value)) {
		return fmt.Sprintf("%d%s", int64(value), units[i])
	}
	return fmt.Sprintf("%.1f%s", value, units[i])
}
