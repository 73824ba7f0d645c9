package domain

import "errors"

var (
	// ErrUsage marks malformed invocations: wrong arity, unknown commands, unparsable values.
	ErrUsage = errors.New("usage error")
	// ErrPrivilege is returned when a privileged command is run by anyone but root.
	ErrPrivilege = errors.New("must be run as root")
	// ErrNotFound marks a missing file, backup or host table entry.
	ErrNotFound = errors.New("not found")
	// ErrExternalTool wraps a non-zero exit from mount, umount, dtc, fdisk or eject.
	ErrExternalTool = errors.New("external tool failed")

	ErrNotMounted     = errors.New("not mounted")
	ErrAlreadyMounted = errors.New("already mounted")
)

const (
	ExitOK        = 0
	ExitRuntime   = 1
	ExitUsage     = 2
	ExitPrivilege = 3
)

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, ErrPrivilege):
		return ExitPrivilege
	default:
		return ExitRuntime
	}
}
