package netusage

import (
	"context"
	"time"

	"github.com/nuscape/windows-agent/internal/batch"
)

// Collector turns successive interface snapshots into billed network
// deltas, persisting the latest cumulative totals after each run.
type Collector struct {
	store *CounterStore
	probe InterfaceProbe
}

// NewCollector builds a Collector over store using probe to enumerate
// interfaces.
func NewCollector(store *CounterStore, probe InterfaceProbe) *Collector {
	return &Collector{store: store, probe: probe}
}

// Collect snapshots all active interfaces, diffs them against the
// previously persisted totals, and returns one NetworkDelta per interface
// whose wifi or cellular byte count moved since the last run. Totals for
// interfaces absent from the probe's response are dropped from the
// persisted mapping (they no longer exist); a first-seen interface yields
// its full cumulative total as the delta, per spec §4.H step 2.
func (c *Collector) Collect(ctx context.Context) ([]batch.NetworkDelta, error) {
	now := time.Now().UTC()

	snaps, err := c.probe.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	previous := c.store.Load()
	totals := make(map[string]Counters, len(snaps))
	var deltas []batch.NetworkDelta

	for _, s := range snaps {
		var wifiTotal, cellTotal uint64
		total := s.inOctets + s.outOctets
		switch s.link {
		case linkWifi, linkOther:
			wifiTotal = total
		case linkCellular:
			cellTotal = total
		}

		totals[s.description] = Counters{
			WifiTotal: wifiTotal,
			CellTotal: cellTotal,
			SampledAt: now,
		}

		last, seen := previous[s.description]
		var deltaWifi, deltaCell uint64
		if seen {
			deltaWifi = saturatingSub(wifiTotal, last.WifiTotal)
			deltaCell = saturatingSub(cellTotal, last.CellTotal)
		} else {
			deltaWifi = wifiTotal
			deltaCell = cellTotal
		}

		if deltaWifi == 0 && deltaCell == 0 {
			continue
		}

		deltas = append(deltas, batch.NetworkDelta{
			Package:       "iface::" + s.description,
			SampledAt:     now,
			WifiBytes:     deltaWifi,
			CellularBytes: deltaCell,
		})
	}

	if err := c.store.Save(totals); err != nil {
		return nil, err
	}
	return deltas, nil
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
