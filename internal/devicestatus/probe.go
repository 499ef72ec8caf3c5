package devicestatus

import (
	"context"
	"strings"
	"time"

	gopsutilnet "github.com/shirou/gopsutil/v3/net"
)

// vpnNameHints stands in for the Windows VPN_TYPES interface-type check
// (PPP, tunnel, and IKEv2 adapter types) on platforms without access to
// GetIfTable2.
var vpnNameHints = []string{"vpn", "tun", "tap", "ppp", "wg"}

type defaultProbe struct{}

// NewDefaultProbe returns the cross-platform best-effort HostProbe.
func NewDefaultProbe() HostProbe {
	return defaultProbe{}
}

func (defaultProbe) IsElevated(ctx context.Context) bool {
	return isElevated()
}

func (defaultProbe) HasActiveVPN(ctx context.Context) bool {
	ifaces, err := gopsutilnet.InterfacesWithContext(ctx)
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
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
		lower := strings.ToLower(iface.Name)
		for _, hint := range vpnNameHints {
			if strings.Contains(lower, hint) {
				return true
			}
		}
	}
	return false
}

// BatteryPercent has no dependency-backed cross-platform source in this
// stack (gopsutil's battery support is a separate, unvendored package), so
// the default probe always reports "unavailable", matching the original's
// own -1 fallback arm.
func (defaultProbe) BatteryPercent(ctx context.Context) float64 {
	return -1
}

func (defaultProbe) TimeZoneID(ctx context.Context) string {
	name, _ := time.Now().Zone()
	if name == "" {
		return "UTC"
	}
	return name
}
