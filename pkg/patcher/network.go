package patcher

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/Rudd3r/sdprep/pkg/domain"
)

// networkManagerLinks enable NetworkManager in the stock image.
var networkManagerLinks = []string{
	"etc/systemd/system/multi-user.target.wants/NetworkManager.service",
	"etc/systemd/system/network-online.target.wants/NetworkManager-wait-online.service",
	"etc/systemd/system/dbus-org.freedesktop.nm-dispatcher.service",
}

// DisableNetworkManager removes the unit links that start NetworkManager.
// Links that are already gone are skipped.
func (p *Patcher) DisableNetworkManager() error {
	for _, link := range networkManagerLinks {
		if _, err := p.fs.Lstat(link); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				p.log.Debug("link absent", "path", link)
				continue
			}
			return fmt.Errorf("stat %s: %w", link, err)
		}
		if err := p.fs.Remove(link); err != nil {
			return err
		}
		p.log.Info("removed link", "path", link)
	}
	return nil
}

func (p *Patcher) PatchHostname(target domain.Target) error {
	return p.replace(hostnamePath, target.Hostname)
}

func (p *Patcher) PatchInterfaces(target domain.Target) error {
	iface := p.opts.Interface
	return p.replace(interfacesPath,
		"auto "+iface,
		"allow-hotplug "+iface,
		"iface "+iface+" inet static",
		"    address "+target.IP,
		"    netmask "+target.Netmask,
		"    gateway "+target.Gateway,
		"    dns-nameservers "+target.DNS,
	)
}

// PatchResolvConf points the resolver at the target DNS server. A missing
// file is created; a symlink to a resolver stub is backed up as a link and
// replaced by a regular file.
func (p *Patcher) PatchResolvConf(target domain.Target) error {
	line := "nameserver " + target.DNS
	if _, err := p.fs.Lstat(resolvConfPath); errors.Is(err, fs.ErrNotExist) {
		return p.writeLines(resolvConfPath, []string{line})
	}
	return p.replace(resolvConfPath, line)
}
