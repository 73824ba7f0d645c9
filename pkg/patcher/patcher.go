// Package patcher rewrites the configuration of a mounted SOPINE root
// filesystem so the node boots with a static network identity.
package patcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/Rudd3r/sdprep/pkg/domain"
)

const BackupSuffix = ".bk0"

const (
	dhcpConfPath   = "etc/dhcp/dhclient.conf"
	hostsPath      = "etc/hosts"
	hostnamePath   = "etc/hostname"
	interfacesPath = "etc/network/interfaces"
	resolvConfPath = "etc/resolv.conf"
)

type Options struct {
	// Interface is the NIC configured statically. Defaults to eth0.
	Interface string
	// DeviceTree is the blob patched for RGMII timing, relative to the image root.
	DeviceTree string
	// ResolvConf also rewrites etc/resolv.conf with the target DNS server.
	ResolvConf bool
}

type Patcher struct {
	fs   domain.RootFS
	dtc  DeviceTreeCompiler
	log  *slog.Logger
	opts Options
}

func New(fsys domain.RootFS, dtc DeviceTreeCompiler, log *slog.Logger, opts Options) *Patcher {
	if opts.Interface == "" {
		opts.Interface = domain.DefaultInterface
	}
	if opts.DeviceTree == "" {
		opts.DeviceTree = domain.DefaultDeviceTree
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Patcher{fs: fsys, dtc: dtc, log: log, opts: opts}
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Update applies every patch for target in a fixed order. The first failure
// aborts the sequence; steps already applied are left in place and the .bk0
// siblings hold the original content.
func (p *Patcher) Update(ctx context.Context, target domain.Target, hosts domain.HostTable) error {
	steps := []step{
		{"dhcp", func(context.Context) error { return p.PatchDHCP(target) }},
		{"device tree", p.PatchDeviceTree},
		{"hosts", func(context.Context) error { return p.PatchHosts(hosts) }},
		{"network manager", func(context.Context) error { return p.DisableNetworkManager() }},
		{"hostname", func(context.Context) error { return p.PatchHostname(target) }},
		{"interfaces", func(context.Context) error { return p.PatchInterfaces(target) }},
	}
	if p.opts.ResolvConf {
		steps = append(steps, step{"resolv.conf", func(context.Context) error { return p.PatchResolvConf(target) }})
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.log.Info("patching", "step", s.name)
		if err := s.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// ensureBackup copies name to name.bk0 unless the backup already exists.
// The backup is never rewritten once created.
func (p *Patcher) ensureBackup(name string) error {
	if _, err := p.fs.Lstat(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, domain.ErrNotFound)
		}
		return fmt.Errorf("stat %s: %w", name, err)
	}

	backup := name + BackupSuffix
	if _, err := p.fs.Lstat(backup); err == nil {
		p.log.Debug("backup exists", "path", backup)
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", backup, err)
	}

	if err := p.fs.CopyFile(name, backup); err != nil {
		return fmt.Errorf("backup %s: %w", name, err)
	}
	p.log.Info("created backup", "path", backup)
	return nil
}

// rewrite backs up name, then replaces its lines with transform(lines).
func (p *Patcher) rewrite(name string, transform func(lines []string) []string) error {
	if err := p.ensureBackup(name); err != nil {
		return err
	}
	lines, err := p.readLines(name)
	if err != nil {
		return err
	}
	return p.writeLines(name, transform(lines))
}

// replace backs up name, then overwrites it with lines.
func (p *Patcher) replace(name string, lines ...string) error {
	if err := p.ensureBackup(name); err != nil {
		return err
	}
	return p.writeLines(name, lines)
}

func (p *Patcher) readLines(name string) ([]string, error) {
	data, err := p.fs.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return splitLines(string(data)), nil
}

func (p *Patcher) writeLines(name string, lines []string) error {
	if err := p.fs.WriteFile(name, []byte(joinLines(lines)), 0644); err != nil {
		return err
	}
	p.log.Debug("wrote file", "path", name, "lines", len(lines))
	return nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// joinLines terminates every line, including the last.
func joinLines(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
