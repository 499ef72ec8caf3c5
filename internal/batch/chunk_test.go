package batch

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func makeSessions(n int) []UsageSession {
	sessions := make([]UsageSession, n)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range sessions {
		start := base.Add(time.Duration(i) * time.Minute)
		sessions[i] = UsageSession{
			Package:     "app.exe",
			WindowStart: start,
			WindowEnd:   start.Add(5 * time.Second),
			TotalMs:     5000,
			Foreground:  true,
		}
	}
	return sessions
}

// TestChunkSplitPreservesMetadataPlacement is scenario S6: 250 sessions,
// non-empty network deltas and status, limits (100, huge byte cap).
// Expected 3 chunks of sizes 100/100/50; only chunk 0 carries metadata.
func TestChunkSplitPreservesMetadataPlacement(t *testing.T) {
	b := UsageBatch{
		DeviceID: uuid.New(),
		SentAt:   time.Now(),
		Sessions: makeSessions(250),
		NetworkDeltas: []NetworkDelta{
			{Package: "iface::eth0", SampledAt: time.Now(), WifiBytes: 100},
		},
		Status: &DeviceStatus{TimeZone: "UTC", BatteryPct: -1},
	}

	chunks, err := Chunk(b, 100, 1_000_000_000)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	wantSizes := []int{100, 100, 50}
	for i, want := range wantSizes {
		if got := len(chunks[i].Sessions); got != want {
			t.Errorf("chunk[%d] has %d sessions, want %d", i, got, want)
		}
	}

	if len(chunks[0].NetworkDeltas) != 1 {
		t.Errorf("chunk[0] should carry network deltas")
	}
	if chunks[0].Status == nil {
		t.Errorf("chunk[0] should carry status")
	}
	for i := 1; i < len(chunks); i++ {
		if len(chunks[i].NetworkDeltas) != 0 {
			t.Errorf("chunk[%d] should not carry network deltas", i)
		}
		if chunks[i].Status != nil {
			t.Errorf("chunk[%d] should not carry status", i)
		}
	}
}

// TestChunkConcatenationEqualsOriginal is invariant 4: concatenating all
// chunks' sessions reproduces the original session list.
func TestChunkConcatenationEqualsOriginal(t *testing.T) {
	b := UsageBatch{
		DeviceID: uuid.New(),
		SentAt:   time.Now(),
		Sessions: makeSessions(237),
	}
	chunks, err := Chunk(b, 100, 1_000_000_000)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	var total []UsageSession
	for _, c := range chunks {
		total = append(total, c.Sessions...)
	}
	if len(total) != len(b.Sessions) {
		t.Fatalf("got %d sessions across chunks, want %d", len(total), len(b.Sessions))
	}
	for i := range total {
		if total[i].WindowStart != b.Sessions[i].WindowStart {
			t.Fatalf("session %d mismatched after chunking", i)
		}
	}
}

// TestChunkEmptySessionsWithMetadata covers the "empty session list, but
// metadata present" edge case called out in spec.md's open questions: the
// chunker must still emit exactly one chunk carrying the metadata.
func TestChunkEmptySessionsWithMetadata(t *testing.T) {
	b := UsageBatch{
		DeviceID:      uuid.New(),
		SentAt:        time.Now(),
		Sessions:      nil,
		NetworkDeltas: []NetworkDelta{{Package: "iface::eth0", WifiBytes: 10}},
		Status:        &DeviceStatus{TimeZone: "UTC", BatteryPct: -1},
	}
	chunks, err := Chunk(b, DefaultChunkSessionLimit, DefaultChunkByteLimit)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if len(chunks[0].NetworkDeltas) != 1 {
		t.Fatalf("expected metadata to survive on the sole chunk")
	}
	if chunks[0].Status == nil {
		t.Fatalf("expected status to survive on the sole chunk")
	}
}

// TestChunkShrinksForOversizedWindow exercises the byte-ceiling shrink
// loop: a small max_bytes forces the chunker to shrink the window below
// max_sessions, but never below a single session.
func TestChunkShrinksForOversizedWindow(t *testing.T) {
	b := UsageBatch{
		DeviceID: uuid.New(),
		SentAt:   time.Now(),
		Sessions: makeSessions(10),
	}
	chunks, err := Chunk(b, 10, 400)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected the byte ceiling to force more than one chunk, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c.Sessions) == 0 {
			t.Fatalf("chunk has zero sessions")
		}
	}
}

func TestChunkEmptyBatchReturnsSingleChunk(t *testing.T) {
	b := UsageBatch{DeviceID: uuid.New(), SentAt: time.Now()}
	chunks, err := Chunk(b, 100, 100_000)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
}
