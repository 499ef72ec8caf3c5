// Package batch defines the wire-level UsageBatch payload and splits
// oversized batches into upload-ready chunks. Batches are assembled by
// the agentrt collector.
package batch

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxPayloadBytes is the hard ceiling enforced at enqueue time (spec
	// invariant 1): a batch whose serialized form exceeds this is
	// dropped, not split.
	MaxPayloadBytes = 1_000_000

	// DefaultChunkSessionLimit and DefaultChunkByteLimit are the chunker
	// defaults used by the upload engine.
	DefaultChunkSessionLimit = 100
	DefaultChunkByteLimit    = 100_000
)

// UsageSession is a contiguous interval of foreground use of one
// application. JSON field names (windowStart/windowEnd/totalMs/fg) are
// normative and camelCase, unlike the rest of the payload.
type UsageSession struct {
	Package     string    `json:"package"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
	TotalMs     uint64    `json:"totalMs"`
	Foreground  bool      `json:"fg"`
}

// NetworkDelta is the bytes transferred on one interface between two
// samples. At most one of WifiBytes/CellularBytes is non-zero.
type NetworkDelta struct {
	Package        string    `json:"package"`
	SampledAt      time.Time `json:"sampled_at"`
	WifiBytes      uint64    `json:"wifi_bytes"`
	CellularBytes  uint64    `json:"cell_bytes"`
}

// DeviceStatus is a best-effort snapshot of volatile host facts.
type DeviceStatus struct {
	UsageAccess   bool    `json:"usage_access"`
	Accessibility bool    `json:"accessibility"`
	Overlay       bool    `json:"overlay"`
	VPN           bool    `json:"vpn"`
	BatteryPct    float64 `json:"battery_pct"`
	TimeZone      string  `json:"tz"`
}

// UsageBatch is the transmitted payload. On split (see Chunk), only the
// first chunk carries Status and NetworkDeltas; later chunks carry
// neither.
type UsageBatch struct {
	DeviceID      uuid.UUID      `json:"device_id"`
	SentAt        time.Time      `json:"sent_at"`
	Sessions      []UsageSession `json:"sessions"`
	NetworkDeltas []NetworkDelta `json:"net_deltas"`
	Status        *DeviceStatus  `json:"status,omitempty"`
}

// SizeFits reports whether the batch's serialized form is within
// MaxPayloadBytes. A serialization failure is reported as not fitting, so
// callers reject rather than enqueue something unrepresentable.
func (b UsageBatch) SizeFits() bool {
	n, err := b.jsonSize()
	return err == nil && n <= MaxPayloadBytes
}

func (b UsageBatch) jsonSize() (int, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
