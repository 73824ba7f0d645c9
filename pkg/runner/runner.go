package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/Rudd3r/sdprep/pkg/domain"
	"golang.org/x/sys/unix"
)

// Runner executes an external tool and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

var _ Runner = (*Exec)(nil)

var (
	geteuid  = unix.Geteuid
	lookPath = exec.LookPath
)

// Exec runs tools on the host with os/exec.
type Exec struct {
	Log *slog.Logger
	// Sudo prefixes every command with sudo unless the process already runs as root.
	Sudo bool
}

func New(log *slog.Logger, sudo bool) *Exec {
	return &Exec{Log: log, Sudo: sudo}
}

func (e *Exec) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	name, args = e.command(name, args)
	cmdline := strings.TrimSpace(name + " " + strings.Join(args, " "))
	e.log().Debug("EXEC", "cmd", cmdline)

	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		e.log().Debug("OUTPUT", "cmd", name, "output", strings.TrimSpace(string(out)))
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, fmt.Errorf("%s: %w", cmdline, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, fmt.Errorf("%s: %w: exit status %d: %s",
				cmdline, domain.ErrExternalTool, exitErr.ExitCode(), strings.TrimSpace(string(out)))
		}
		return out, fmt.Errorf("%s: %w: %v", cmdline, domain.ErrExternalTool, err)
	}
	return out, nil
}

func (e *Exec) command(name string, args []string) (string, []string) {
	if e.Sudo && geteuid() != 0 {
		return "sudo", append([]string{name}, args...)
	}
	return name, args
}

func (e *Exec) log() *slog.Logger {
	if e.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Log
}

// CheckTools verifies every tool can be found on PATH.
func CheckTools(tools ...string) error {
	var errs []error
	for _, tool := range tools {
		if _, err := lookPath(tool); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tool, domain.ErrNotFound))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("missing required tools: %w", errors.Join(errs...))
	}
	return nil
}
