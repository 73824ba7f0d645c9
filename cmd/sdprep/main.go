package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/Rudd3r/sdprep/pkg/args"
	"github.com/Rudd3r/sdprep/pkg/domain"
	"github.com/Rudd3r/sdprep/pkg/runner"
	"github.com/Rudd3r/sdprep/pkg/sdprep"

	flag "github.com/spf13/pflag"
)

func main() {
	(&args.Root{
		Name:        "sdprep",
		Description: "Prepare Armbian SD card images for SOPINE clusterboard nodes",
		Commands: []args.Command{
			&args.Cmd[domain.CommandDownload]{
				Names:            []string{"download"},
				Description:      "Download an image archive into the download directory",
				ShortDescription: "Download an image archive",
				Flags: func(cfg *domain.CommandDownload, flags *flag.FlagSet) {
					flags.StringVarP(
						&cfg.OutputDir,
						"output", "o", "",
						"Directory to save into (defaults to the configured download directory)",
					)
					flags.StringVar(
						&cfg.SHA256,
						"sha256", "",
						"Expected SHA-256 of the archive, hex encoded",
					)
				},
				PositionalArgs: []*args.PositionalArg[domain.CommandDownload]{
					args.Required("url", "HTTP(S) location of the archive", func(cfg *domain.CommandDownload, v string) error {
						cfg.URL = v
						return nil
					}),
				},
				Run: func(ctx context.Context, log *slog.Logger, cfg *domain.Config, cmdCfg *domain.CommandDownload) error {
					return newPrep(ctx, log, cfg).Download(cmdCfg)
				},
			},
			&args.Cmd[domain.CommandExtract]{
				Names:            []string{"extract"},
				Description:      "Decompress a .xz, .gz or .zst archive next to itself, keeping the archive",
				ShortDescription: "Decompress an image archive",
				Flags: func(cfg *domain.CommandExtract, flags *flag.FlagSet) {
					flags.BoolVarP(
						&cfg.Force,
						"force", "f", false,
						"Overwrite an existing decompressed image",
					)
				},
				PositionalArgs: []*args.PositionalArg[domain.CommandExtract]{
					args.Required("file", "Compressed image", func(cfg *domain.CommandExtract, v string) error {
						cfg.File = v
						return nil
					}),
				},
				Run: func(ctx context.Context, log *slog.Logger, cfg *domain.Config, cmdCfg *domain.CommandExtract) error {
					return newPrep(ctx, log, cfg).Extract(cmdCfg)
				},
			},
			&args.Cmd[domain.CommandMount]{
				Names:            []string{"mount"},
				Description:      "Loop-mount a partition of a raw image read-write",
				ShortDescription: "Mount an image partition",
				Flags: func(cfg *domain.CommandMount, flags *flag.FlagSet) {
					flags.IntVarP(
						&cfg.Partition,
						"partition", "p", 0,
						"Partition number, counted from 1 (defaults to the last partition)",
					)
					flags.BoolVar(
						&cfg.UseFdisk,
						"fdisk", false,
						"Find the partition offset by parsing fdisk -l output",
					)
				},
				PositionalArgs: []*args.PositionalArg[domain.CommandMount]{
					args.Required("image", "Raw disk image", func(cfg *domain.CommandMount, v string) error {
						cfg.Image = v
						return nil
					}),
					args.Required("mountpoint", "Directory to mount on, created when missing", func(cfg *domain.CommandMount, v string) error {
						cfg.Mountpoint = v
						return nil
					}),
				},
				Run: func(ctx context.Context, log *slog.Logger, cfg *domain.Config, cmdCfg *domain.CommandMount) error {
					return newPrep(ctx, log, cfg).Mount(cmdCfg)
				},
			},
			&args.Cmd[domain.CommandUpdate]{
				Names:            []string{"update"},
				Description:      "Give the mounted image the static network identity of one cluster node",
				ShortDescription: "Patch a mounted image for a node",
				Privileged:       true,
				Flags: func(cfg *domain.CommandUpdate, flags *flag.FlagSet) {
					flags.StringVar(
						&cfg.Interface,
						"interface", "",
						"Network interface to configure (defaults to "+domain.DefaultInterface+")",
					)
					flags.StringVar(
						&cfg.DeviceTree,
						"device-tree", "",
						"Device tree blob relative to the image root",
					)
					flags.BoolVar(
						&cfg.ResolvConf,
						"resolv-conf", false,
						"Also point etc/resolv.conf at DNS",
					)
				},
				PositionalArgs: updateArgs(),
				Run: func(ctx context.Context, log *slog.Logger, cfg *domain.Config, cmdCfg *domain.CommandUpdate) error {
					return newPrep(ctx, log, cfg).Update(cmdCfg)
				},
			},
			&args.Cmd[domain.CommandUmount]{
				Names:            []string{"umount", "unmount"},
				Description:      "Unmount an image mounted with the mount command",
				ShortDescription: "Unmount an image",
				PositionalArgs: []*args.PositionalArg[domain.CommandUmount]{
					args.Required("mountpoint", "Mount point", func(cfg *domain.CommandUmount, v string) error {
						cfg.Mountpoint = v
						return nil
					}),
				},
				Run: func(ctx context.Context, log *slog.Logger, cfg *domain.Config, cmdCfg *domain.CommandUmount) error {
					return newPrep(ctx, log, cfg).Umount(cmdCfg)
				},
			},
			&args.Cmd[domain.CommandList]{
				Names:            []string{"list", "ls"},
				Description:      "List block devices that could receive an image",
				ShortDescription: "List candidate devices",
				Run: func(ctx context.Context, log *slog.Logger, cfg *domain.Config, cmdCfg *domain.CommandList) error {
					return newPrep(ctx, log, cfg).List(cmdCfg)
				},
			},
			&args.Cmd[domain.CommandFlash]{
				Names:            []string{"flash"},
				Description:      "Write a raw image onto a whole-disk device. Everything on the device is lost.",
				ShortDescription: "Write an image to a device",
				Privileged:       true,
				Flags: func(cfg *domain.CommandFlash, flags *flag.FlagSet) {
					flags.BoolVarP(
						&cfg.Yes,
						"yes", "y", false,
						"Do not ask for confirmation",
					)
					flags.VarP(
						args.NewSizeBytes(domain.DefaultBlockSize, &cfg.BlockSize),
						"block-size", "b",
						"Size of each write",
					)
					flags.BoolVar(
						&cfg.NoEject,
						"no-eject", false,
						"Leave the device attached when done",
					)
				},
				PositionalArgs: []*args.PositionalArg[domain.CommandFlash]{
					args.Required("image", "Raw disk image", func(cfg *domain.CommandFlash, v string) error {
						cfg.Image = v
						return nil
					}),
					args.Required("device", "Target device, for example /dev/sdb", func(cfg *domain.CommandFlash, v string) error {
						cfg.Device = v
						return nil
					}),
				},
				Run: func(ctx context.Context, log *slog.Logger, cfg *domain.Config, cmdCfg *domain.CommandFlash) error {
					resetIfDefault(&cmdCfg.BlockSize, domain.DefaultBlockSize)
					return newPrep(ctx, log, cfg).Flash(cmdCfg)
				},
			},
		},
	}).Run()
}

func updateArgs() []*args.PositionalArg[domain.CommandUpdate] {
	field := func(name, description string, set func(cfg *domain.CommandUpdate, v string)) *args.PositionalArg[domain.CommandUpdate] {
		return args.Required(name, description, func(cfg *domain.CommandUpdate, v string) error {
			set(cfg, v)
			return nil
		})
	}
	return []*args.PositionalArg[domain.CommandUpdate]{
		field("mountpoint", "Mount point of the image", func(cfg *domain.CommandUpdate, v string) { cfg.Mountpoint = v }),
		field("hosts", "hostname:ip pairs separated by commas, or a YAML inventory", func(cfg *domain.CommandUpdate, v string) { cfg.Hosts = v }),
		args.Required("index", "Position of this node in HOSTS, counted from 0", func(cfg *domain.CommandUpdate, v string) error {
			if _, err := strconv.Atoi(v); err != nil {
				return err
			}
			cfg.Index = v
			return nil
		}),
		field("netmask", "IPv4 netmask", func(cfg *domain.CommandUpdate, v string) { cfg.Netmask = v }),
		field("gateway", "IPv4 default gateway", func(cfg *domain.CommandUpdate, v string) { cfg.Gateway = v }),
		field("dns", "IPv4 DNS server", func(cfg *domain.CommandUpdate, v string) { cfg.DNS = v }),
	}
}

func newPrep(ctx context.Context, log *slog.Logger, cfg *domain.Config) *sdprep.Prep {
	return sdprep.NewPrep(ctx, log, cfg, runner.New(log, cfg.UseSudo), os.Stdout)
}

func resetIfDefault[V comparable](value *V, def V) {
	var nilValue V
	if *value == def {
		*value = nilValue
	}
}
