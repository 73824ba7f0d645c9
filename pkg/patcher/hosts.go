package patcher

import (
	"strings"

	"github.com/Rudd3r/sdprep/pkg/domain"
)

const hostsHeader = "# autogenerated table"

func hostsBlock(hosts domain.HostTable) []string {
	block := make([]string, 0, len(hosts)+1)
	block = append(block, hostsHeader)
	for _, h := range hosts {
		block = append(block, h.IP+" "+h.Hostname)
	}
	return block
}

// ReplaceHostsBlock regenerates the managed block: a header line followed by
// contiguous non-blank lines. The first block is replaced in place and any
// later one is dropped with its entries. Without a header, a blank line and
// the block are appended.
func ReplaceHostsBlock(lines []string, hosts domain.HostTable) []string {
	out := make([]string, 0, len(lines)+len(hosts)+2)
	replaced, inBlock := false, false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if inBlock {
			if trimmed != "" {
				continue
			}
			inBlock = false
		} else if trimmed == hostsHeader {
			inBlock = true
			if !replaced {
				out = append(out, hostsBlock(hosts)...)
				replaced = true
			}
			continue
		}
		out = append(out, line)
	}
	if !replaced {
		out = append(out, "")
		out = append(out, hostsBlock(hosts)...)
	}
	return out
}

// PatchHosts writes the cluster host table into etc/hosts.
func (p *Patcher) PatchHosts(hosts domain.HostTable) error {
	return p.rewrite(hostsPath, func(lines []string) []string {
		return ReplaceHostsBlock(lines, hosts)
	})
}
