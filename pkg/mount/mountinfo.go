package mount

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	mountInfoPath = "/proc/self/mountinfo"

	// readMountInfo is replaceable for testing.
	readMountInfo = defaultReadMountInfo
)

// MountInfoEntry represents a parsed line from /proc/self/mountinfo.
type MountInfoEntry struct {
	MountID    int
	ParentID   int
	Major      int
	Minor      int
	Root       string
	Mountpoint string
	Options    string
	FSType     string
	Source     string
	SuperOpts  string
}

func (e *MountInfoEntry) String() string {
	return fmt.Sprintf("TARGET=%s SOURCE=%s FSTYPE=%s OPTIONS=%s",
		e.Mountpoint, e.Source, e.FSType, e.Options)
}

func defaultReadMountInfo() ([]*MountInfoEntry, error) {
	return parseMountInfoFile(mountInfoPath)
}

func parseMountInfoFile(path string) ([]*MountInfoEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var entries []*MountInfoEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		entry, err := parseMountInfoLine(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// parseMountInfoLine parses one line of the form
// mount_id parent_id major:minor root mountpoint options [optional...] - fstype source super_options
func parseMountInfoLine(line string) (*MountInfoEntry, error) {
	left, right, ok := strings.Cut(line, " - ")
	if !ok {
		return nil, fmt.Errorf("malformed mountinfo line: no separator")
	}
	lf := strings.Fields(left)
	rf := strings.Fields(right)
	if len(lf) < 6 {
		return nil, fmt.Errorf("malformed mountinfo line: %d left fields, need >= 6", len(lf))
	}
	if len(rf) < 2 {
		return nil, fmt.Errorf("malformed mountinfo line: %d right fields, need >= 2", len(rf))
	}

	mountID, _ := strconv.Atoi(lf[0])
	parentID, _ := strconv.Atoi(lf[1])
	var major, minor int
	if _, err := fmt.Sscanf(lf[2], "%d:%d", &major, &minor); err != nil {
		return nil, fmt.Errorf("malformed major:minor field: %s", lf[2])
	}

	entry := &MountInfoEntry{
		MountID:    mountID,
		ParentID:   parentID,
		Major:      major,
		Minor:      minor,
		Root:       unescapeOctal(lf[3]),
		Mountpoint: unescapeOctal(lf[4]),
		Options:    lf[5],
		FSType:     rf[0],
		Source:     unescapeOctal(rf[1]),
	}
	if len(rf) >= 3 {
		entry.SuperOpts = rf[2]
	}
	return entry, nil
}

// unescapeOctal decodes the \040-style escapes the kernel uses for spaces,
// tabs, newlines and backslashes.
func unescapeOctal(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			o1, o2, o3 := s[i+1]-'0', s[i+2]-'0', s[i+3]-'0'
			if o1 <= 7 && o2 <= 7 && o3 <= 7 {
				b.WriteByte(o1*64 + o2*8 + o3)
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return filepath.Clean(path)
}

// IsMountpoint reports whether path is the target of a mount.
func IsMountpoint(path string) (bool, error) {
	entries, err := readMountInfo()
	if err != nil {
		return false, fmt.Errorf("read mountinfo: %w", err)
	}
	path = canonical(path)
	for _, e := range entries {
		if e.Mountpoint == path {
			return true, nil
		}
	}
	return false, nil
}

// MountsOfDevice returns every mount whose source is device or one of its partitions.
func MountsOfDevice(device string) ([]*MountInfoEntry, error) {
	entries, err := readMountInfo()
	if err != nil {
		return nil, fmt.Errorf("read mountinfo: %w", err)
	}
	device = canonical(device)
	var mounts []*MountInfoEntry
	for _, e := range entries {
		if isDeviceOrPartition(e.Source, device) {
			mounts = append(mounts, e)
		}
	}
	return mounts, nil
}

// isDeviceOrPartition matches /dev/sdb, /dev/sdb1 and /dev/mmcblk0p2 against
// /dev/sdb and /dev/mmcblk0, but not /dev/sdbc against /dev/sdb.
func isDeviceOrPartition(source, device string) bool {
	if source == device {
		return true
	}
	rest, ok := strings.CutPrefix(source, device)
	if !ok || rest == "" {
		return false
	}
	rest = strings.TrimPrefix(rest, "p")
	_, err := strconv.Atoi(rest)
	return err == nil
}
