// Package sdprep implements the commands of the sdprep CLI on top of the
// image, disk, mount and patcher packages.
package sdprep

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Rudd3r/sdprep/pkg/disk"
	"github.com/Rudd3r/sdprep/pkg/domain"
	"github.com/Rudd3r/sdprep/pkg/filesystem"
	"github.com/Rudd3r/sdprep/pkg/image"
	"github.com/Rudd3r/sdprep/pkg/mount"
	"github.com/Rudd3r/sdprep/pkg/patcher"
	"github.com/Rudd3r/sdprep/pkg/runner"
)

type Prep struct {
	ctx    context.Context
	cfg    *domain.Config
	log    *slog.Logger
	runner runner.Runner
	out    io.Writer

	checkTools  func(tools ...string) error
	listDevices func() ([]disk.Device, error)
	confirm     func(img, device string) (bool, error)
}

// NewPrep wires the commands to the host: tools are run through r and
// listings are written to out.
func NewPrep(ctx context.Context, log *slog.Logger, cfg *domain.Config, r runner.Runner, out io.Writer) *Prep {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Prep{
		ctx:         ctx,
		cfg:         cfg,
		log:         log,
		runner:      r,
		out:         out,
		checkTools:  runner.CheckTools,
		listDevices: disk.ListDevices,
		confirm:     disk.TerminalConfirm(os.Stdin, os.Stderr),
	}
}

func (s *Prep) Download(cmd *domain.CommandDownload) error {
	dir := cmd.OutputDir
	if dir == "" {
		dir = s.cfg.DownloadDir
	}
	_, err := image.NewDownloader(s.log).Download(s.ctx, cmd.URL, dir, cmd.SHA256)
	return err
}

func (s *Prep) Extract(cmd *domain.CommandExtract) error {
	path, err := image.Extract(s.ctx, cmd.File, cmd.Force, image.ConsoleReporter(s.log))
	if err != nil {
		return err
	}
	s.log.Info("extracted", "archive", cmd.File, "image", path)
	return nil
}

func (s *Prep) Mount(cmd *domain.CommandMount) error {
	if err := s.checkTools("mount"); err != nil {
		return err
	}
	var offset int64
	var err error
	if cmd.UseFdisk {
		offset, err = disk.FdiskOffset(s.ctx, s.runner, cmd.Image, cmd.Partition)
	} else {
		offset, err = disk.PartitionOffset(cmd.Image, cmd.Partition)
	}
	if err != nil {
		return fmt.Errorf("locate partition: %w", err)
	}
	s.log.Debug("partition offset", "image", cmd.Image, "partition", cmd.Partition, "offset", offset)
	return mount.NewMounter(s.runner, s.log).Mount(s.ctx, cmd.Image, cmd.Mountpoint, offset)
}

func (s *Prep) Update(cmd *domain.CommandUpdate) error {
	hosts, err := domain.HostTableFromArg(cmd.Hosts)
	if err != nil {
		return err
	}
	target, err := hosts.Resolve(cmd.Index, cmd.Netmask, cmd.Gateway, cmd.DNS)
	if err != nil {
		return err
	}

	dtcPath := s.cfg.DtcPath
	if err = s.checkTools(dtcPath); err != nil {
		return err
	}
	if mounted, err := mount.IsMountpoint(cmd.Mountpoint); err == nil && !mounted {
		s.log.Warn("not a mount point, patching the directory in place", "path", cmd.Mountpoint)
	}

	fsys, err := filesystem.NewOSFS(cmd.Mountpoint)
	if err != nil {
		return err
	}
	defer func() { _ = fsys.Close() }()

	opts := patcher.Options{
		Interface:  firstNonEmpty(cmd.Interface, s.cfg.Interface),
		DeviceTree: firstNonEmpty(cmd.DeviceTree, s.cfg.DeviceTree),
		ResolvConf: cmd.ResolvConf,
	}
	p := patcher.New(fsys, &patcher.Dtc{Runner: s.runner, Path: dtcPath}, s.log, opts)
	if err = p.Update(s.ctx, target, hosts); err != nil {
		return err
	}
	s.log.Info("updated", "hostname", target.Hostname, "ip", target.IP, "mountpoint", cmd.Mountpoint)
	return nil
}

func (s *Prep) Umount(cmd *domain.CommandUmount) error {
	if err := s.checkTools("umount"); err != nil {
		return err
	}
	return mount.NewMounter(s.runner, s.log).Umount(s.ctx, cmd.Mountpoint)
}

func (s *Prep) List(_ *domain.CommandList) error {
	devices, err := s.listDevices()
	if err != nil {
		return err
	}
	return disk.PrintDevices(s.out, devices)
}

func (s *Prep) Flash(cmd *domain.CommandFlash) error {
	if !cmd.NoEject {
		if err := s.checkTools("eject"); err != nil {
			return err
		}
	}
	opts := disk.FlashOptions{
		BlockSize: cmd.BlockSize,
		NoEject:   cmd.NoEject,
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = s.cfg.BlockSize
	}
	if !cmd.Yes {
		opts.Confirm = s.confirm
	}
	f := disk.NewFlasher(s.runner, s.log, image.ConsoleReporter(s.log))
	return f.Flash(s.ctx, cmd.Image, cmd.Device, opts)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
