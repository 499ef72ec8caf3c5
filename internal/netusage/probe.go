package netusage

import (
	"context"
	"log"
	"strings"

	gopsutilnet "github.com/shirou/gopsutil/v3/net"
)

// linkType mirrors the three buckets spec §4.H categorizes MIB_IF_ROW2.Type
// into. The real Windows implementation reads this from GetIfTable2; this
// package only needs an interface-keyed classification, which is inherently
// platform-specific and out of scope per spec §1.
type linkType int

const (
	linkOther linkType = iota
	linkWifi
	linkCellular
)

// ifaceSnapshot is one interface's instantaneous reading.
type ifaceSnapshot struct {
	description string
	operUp      bool
	link        linkType
	inOctets    uint64
	outOctets   uint64
}

// InterfaceProbe is the external "enumerate network interfaces" collaborator.
// Like foreground.Prober, the canonical implementation is OS-specific
// (GetIfTable2 on Windows); this package supplies a best-effort
// gopsutil-based default that works cross-platform for testing and
// non-Windows development.
type InterfaceProbe interface {
	Snapshot(ctx context.Context) ([]ifaceSnapshot, error)
}

type gopsutilProbe struct {
	warnedOther bool
}

// NewDefaultProbe returns the gopsutil-backed InterfaceProbe.
func NewDefaultProbe() InterfaceProbe {
	return &gopsutilProbe{}
}

func (p *gopsutilProbe) Snapshot(ctx context.Context) ([]ifaceSnapshot, error) {
	ifaces, err := gopsutilnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	counters, err := gopsutilnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]gopsutilnet.IOCountersStat, len(counters))
	for _, c := range counters {
		byName[c.Name] = c
	}

	out := make([]ifaceSnapshot, 0, len(ifaces))
	for _, iface := range ifaces {
		desc := strings.TrimSpace(iface.Name)
		if desc == "" {
			continue
		}
		up := false
		for _, flag := range iface.Flags {
			if flag == "up" {
				up = true
				break
			}
		}
		if !up {
			continue
		}
		c, ok := byName[iface.Name]
		if !ok {
			continue
		}
		link := classify(iface.Name)
		if link == linkOther && !p.warnedOther {
			log.Printf("netusage: interface %q has an unrecognized link type, billing as wifi", desc)
			p.warnedOther = true
		}
		out = append(out, ifaceSnapshot{
			description: desc,
			operUp:      true,
			link:        link,
			inOctets:    c.BytesRecv,
			outOctets:   c.BytesSent,
		})
	}
	return out, nil
}

// classify applies a name-based heuristic standing in for MIB_IF_ROW2.Type
// on platforms without it.
func classify(name string) linkType {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "wi-fi"), strings.Contains(lower, "wifi"), strings.Contains(lower, "wlan"), strings.Contains(lower, "wireless"):
		return linkWifi
	case strings.Contains(lower, "cellular"), strings.Contains(lower, "wwan"), strings.Contains(lower, "mobile"):
		return linkCellular
	default:
		return linkOther
	}
}
