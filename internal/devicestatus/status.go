// Package devicestatus builds the point-in-time DeviceStatus snapshot
// attached to the first chunk of an outgoing usage batch.
package devicestatus

import (
	"context"

	"github.com/nuscape/windows-agent/internal/batch"
)

// HostProbe is the external "read host state" collaborator: admin level,
// VPN presence, battery, and timezone are each inherently OS-specific
// (IsUserAnAdmin, GetIfTable2, GetSystemPowerStatus, GetTimeZoneInformation
// on Windows) and out of scope per spec §1. This package ships one
// best-effort cross-platform default built from the standard library plus
// gopsutil, swappable for a real Win32-backed implementation.
type HostProbe interface {
	IsElevated(ctx context.Context) bool
	HasActiveVPN(ctx context.Context) bool
	BatteryPercent(ctx context.Context) float64 // -1 when unavailable
	TimeZoneID(ctx context.Context) string
}

// Builder assembles a DeviceStatus from a HostProbe.
type Builder struct {
	probe HostProbe
}

// NewBuilder wraps probe.
func NewBuilder(probe HostProbe) *Builder {
	return &Builder{probe: probe}
}

// Build produces the status snapshot. Accessibility permission detection
// has no cross-platform analogue and spec §4.I has no Non-goal excluding
// it, but the original source itself hardcodes it false pending a real
// accessibility-service check; overlay permission is hardcoded true for
// the same reason the original does -- the Windows build this agent ships
// alongside never prompts for it separately from usage access.
func (b *Builder) Build(ctx context.Context) batch.DeviceStatus {
	return batch.DeviceStatus{
		UsageAccess:   b.probe.IsElevated(ctx),
		Accessibility: false,
		Overlay:       true,
		VPN:           b.probe.HasActiveVPN(ctx),
		BatteryPct:    b.probe.BatteryPercent(ctx),
		TimeZone:      b.probe.TimeZoneID(ctx),
	}
}
