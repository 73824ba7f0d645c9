package domain

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Host struct {
	Hostname string `yaml:"hostname"`
	IP       string `yaml:"ip"`
}

// HostTable is the ordered list of cluster nodes. Hostnames are unique and the
// position of an entry is how a node is selected.
type HostTable []Host

// Target is the resolved identity of the node an image is being prepared for.
type Target struct {
	Hostname string
	IP       string
	Netmask  string
	Gateway  string
	DNS      string
}

type inventory struct {
	Hosts []Host `yaml:"hosts"`
}

// ParseHostTable parses "andes0:192.168.1.10,andes1:192.168.1.11".
func ParseHostTable(s string) (HostTable, error) {
	var hosts HostTable
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, ip, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("%w: host entry %q is not hostname:ip", ErrUsage, pair)
		}
		hosts = append(hosts, Host{Hostname: strings.TrimSpace(name), IP: strings.TrimSpace(ip)})
	}
	if err := hosts.Validate(); err != nil {
		return nil, err
	}
	return hosts, nil
}

// LoadHostTable reads a YAML inventory of the form
//
//	hosts:
//	  - hostname: andes0
//	    ip: 192.168.1.10
func LoadHostTable(path string) (HostTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read host inventory: %w", err)
	}
	var inv inventory
	if err = yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("%w: parse host inventory %s: %v", ErrUsage, path, err)
	}
	hosts := HostTable(inv.Hosts)
	if err = hosts.Validate(); err != nil {
		return nil, err
	}
	return hosts, nil
}

// HostTableFromArg accepts either an inline host list or a path to a YAML inventory.
func HostTableFromArg(arg string) (HostTable, error) {
	if strings.HasSuffix(arg, ".yaml") || strings.HasSuffix(arg, ".yml") {
		return LoadHostTable(arg)
	}
	return ParseHostTable(arg)
}

func (h HostTable) Validate() error {
	if len(h) == 0 {
		return fmt.Errorf("%w: host table is empty", ErrUsage)
	}
	seen := make(map[string]struct{}, len(h))
	for _, host := range h {
		if host.Hostname == "" {
			return fmt.Errorf("%w: empty hostname for %s", ErrUsage, host.IP)
		}
		if _, ok := seen[host.Hostname]; ok {
			return fmt.Errorf("%w: duplicate hostname %s", ErrUsage, host.Hostname)
		}
		seen[host.Hostname] = struct{}{}
		if err := ValidateIPv4(host.IP); err != nil {
			return fmt.Errorf("host %s: %w", host.Hostname, err)
		}
	}
	return nil
}

// Resolve selects the entry at index and combines it with the shared network settings.
func (h HostTable) Resolve(index string, netmask, gateway, dns string) (Target, error) {
	i, err := strconv.Atoi(strings.TrimSpace(index))
	if err != nil {
		return Target{}, fmt.Errorf("%w: index %q is not a number", ErrUsage, index)
	}
	if i < 0 || i >= len(h) {
		return Target{}, fmt.Errorf("host index %d out of range [0,%d): %w", i, len(h), ErrNotFound)
	}
	for _, v := range []struct{ name, value string }{
		{"netmask", netmask},
		{"gateway", gateway},
		{"dns", dns},
	} {
		if err = ValidateIPv4(v.value); err != nil {
			return Target{}, fmt.Errorf("%s: %w", v.name, err)
		}
	}
	return Target{
		Hostname: h[i].Hostname,
		IP:       h[i].IP,
		Netmask:  netmask,
		Gateway:  gateway,
		DNS:      dns,
	}, nil
}

func ValidateIPv4(s string) error {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return fmt.Errorf("%w: %q is not an IPv4 address", ErrUsage, s)
	}
	return nil
}
