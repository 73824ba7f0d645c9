package patcher

import (
	"fmt"
	"strings"

	"github.com/Rudd3r/sdprep/pkg/domain"
)

// StripAliasBlocks drops every region from a line trimming to "alias {" up to
// the next line trimming to "}". Braces are not counted: a nested "{" does not
// extend the region. A "}" outside a region is kept.
func StripAliasBlocks(lines []string) (kept []string, found bool) {
	inAlias := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if inAlias {
			if trimmed == "}" {
				inAlias = false
			}
			continue
		}
		if trimmed == "alias {" {
			inAlias = true
			found = true
			continue
		}
		kept = append(kept, line)
	}
	return kept, found
}

func aliasBlock(iface string, target domain.Target) []string {
	return []string{
		"alias {",
		fmt.Sprintf("  interface %q;", iface),
		fmt.Sprintf("  fixed-address %s;", target.IP),
		fmt.Sprintf("  option subnet-mask %s;", target.Netmask),
		"}",
	}
}

// PatchDHCP replaces any alias block in dhclient.conf with one for target.
func (p *Patcher) PatchDHCP(target domain.Target) error {
	return p.rewrite(dhcpConfPath, func(lines []string) []string {
		kept, found := StripAliasBlocks(lines)
		if found {
			p.log.Info("replacing existing dhcp alias", "path", dhcpConfPath)
		}
		return append(kept, aliasBlock(p.opts.Interface, target)...)
	})
}
