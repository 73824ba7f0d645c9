package patcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/Rudd3r/sdprep/pkg/runner"
)

const (
	txDelayLine  = "allwinner,tx-delay-ps = <0x1f4>;"
	phandleLine  = "phandle = <0x88>;"
	txDelayInset = "\t\t\t"
)

// DeviceTreeCompiler converts between device-tree blobs and sources. Paths are host paths.
type DeviceTreeCompiler interface {
	Decompile(ctx context.Context, blob, source string) error
	Compile(ctx context.Context, source, blob string) error
}

var _ DeviceTreeCompiler = (*Dtc)(nil)

// Dtc drives the dtc binary.
type Dtc struct {
	Runner runner.Runner
	Path   string
}

func (d *Dtc) Decompile(ctx context.Context, blob, source string) error {
	if _, err := d.Runner.Run(ctx, d.path(), "-I", "dtb", "-O", "dts", "-o", source, blob); err != nil {
		return fmt.Errorf("decompile %s: %w", blob, err)
	}
	return nil
}

func (d *Dtc) Compile(ctx context.Context, source, blob string) error {
	if _, err := d.Runner.Run(ctx, d.path(), "-O", "dtb", "-o", blob, "-b", "0", source); err != nil {
		return fmt.Errorf("compile %s: %w", source, err)
	}
	return nil
}

func (d *Dtc) path() string {
	if d.Path == "" {
		return "dtc"
	}
	return d.Path
}

// FixTxDelay removes every tx-delay line and inserts one after each
// phandle-0x88 line.
func FixTxDelay(lines []string) []string {
	out := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == txDelayLine {
			continue
		}
		out = append(out, line)
		if trimmed == phandleLine {
			out = append(out, txDelayInset+txDelayLine)
		}
	}
	return out
}

// PatchDeviceTree sets the RGMII transmit delay in the board's device tree.
func (p *Patcher) PatchDeviceTree(ctx context.Context) (err error) {
	blob := p.opts.DeviceTree
	if err = p.ensureBackup(blob); err != nil {
		return err
	}

	source := strings.TrimSuffix(blob, ".dtb") + ".dts"
	defer func() {
		rmErr := p.fs.Remove(source)
		if rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()
	if err = p.dtc.Decompile(ctx, p.fs.HostPath(blob), p.fs.HostPath(source)); err != nil {
		return err
	}

	lines, err := p.readLines(source)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(lines, func(l string) bool { return strings.TrimSpace(l) == phandleLine }) {
		p.log.Warn("no phandle 0x88 node in device tree, tx delay not set", "path", blob)
	}
	if err = p.writeLines(source, FixTxDelay(lines)); err != nil {
		return err
	}
	return p.dtc.Compile(ctx, p.fs.HostPath(source), p.fs.HostPath(blob))
}
