package netusage

import (
	"context"
	"path/filepath"
	"testing"
)

type fakeProbe struct {
	snaps []ifaceSnapshot
}

func (f *fakeProbe) Snapshot(ctx context.Context) ([]ifaceSnapshot, error) {
	return f.snaps, nil
}

func wifiSnap(desc string, total uint64) ifaceSnapshot {
	return ifaceSnapshot{description: desc, operUp: true, link: linkWifi, inOctets: total, outOctets: 0}
}

// S5 -- counter reset yields zero, not wrap: prev wifi=1000, new wifi=500.
func TestCounterResetYieldsZeroAndSuppresses(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "network_counters.json"))

	first := NewCollector(store, &fakeProbe{snaps: []ifaceSnapshot{wifiSnap("wlan0", 1000)}})
	deltas, err := first.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(deltas) != 1 || deltas[0].WifiBytes != 1000 {
		t.Fatalf("first collect: got %+v, want one delta of 1000", deltas)
	}

	second := NewCollector(store, &fakeProbe{snaps: []ifaceSnapshot{wifiSnap("wlan0", 500)}})
	deltas, err = second.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(deltas) != 0 {
		t.Fatalf("expected counter reset to suppress the delta entirely, got %+v", deltas)
	}
}

func TestFreshInterfaceYieldsFullValue(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "network_counters.json"))
	c := NewCollector(store, &fakeProbe{snaps: []ifaceSnapshot{wifiSnap("eth0", 4096)}})

	deltas, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(deltas) != 1 || deltas[0].WifiBytes != 4096 || deltas[0].Package != "iface::eth0" {
		t.Fatalf("got %+v, want one full-value delta for eth0", deltas)
	}
}

func TestCellularBucketedSeparatelyFromWifi(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "network_counters.json"))
	snap := ifaceSnapshot{description: "cell0", operUp: true, link: linkCellular, inOctets: 200, outOctets: 50}
	c := NewCollector(store, &fakeProbe{snaps: []ifaceSnapshot{snap}})

	deltas, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(deltas) != 1 {
		t.Fatalf("got %d deltas, want 1", len(deltas))
	}
	if deltas[0].WifiBytes != 0 || deltas[0].CellularBytes != 250 {
		t.Fatalf("got %+v, want wifi=0 cell=250", deltas[0])
	}
}

// Invariant: an unrecognized link type bills as wifi rather than being
// dropped.
func TestUnrecognizedLinkTypeBillsAsWifi(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "network_counters.json"))
	snap := ifaceSnapshot{description: "eth1", operUp: true, link: linkOther, inOctets: 300, outOctets: 0}
	c := NewCollector(store, &fakeProbe{snaps: []ifaceSnapshot{snap}})

	deltas, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(deltas) != 1 || deltas[0].WifiBytes != 300 || deltas[0].CellularBytes != 0 {
		t.Fatalf("got %+v, want full amount billed to wifi", deltas)
	}
}

func TestSaturatingSub(t *testing.T) {
	if got := saturatingSub(5, 10); got != 0 {
		t.Errorf("saturatingSub(5,10) = %d, want 0", got)
	}
	if got := saturatingSub(10, 5); got != 5 {
		t.Errorf("saturatingSub(10,5) = %d, want 5", got)
	}
}
