package foreground

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Prober is the external "current foreground package" collaborator
// described in spec §6. Its exact implementation is inherently
// OS-specific (Win32 GetForegroundWindow + GetWindowThreadProcessId on
// Windows) and is treated as out of scope by spec §1; this package only
// needs a concrete, swappable contract plus one reasonable default so the
// rest of the pipeline is independently testable.
type Prober interface {
	// ForegroundPackage returns the lower-case basename of the
	// executable that currently owns user attention, or ok=false when
	// nothing qualifies (no foreground window, PID zero, or filtered).
	ForegroundPackage(ctx context.Context) (pkg string, ok bool)
}

// cpuHeuristicProber is the cross-platform default: in the absence of a
// real windowing API, it treats the process whose CPU time grew the most
// since the previous sample, among names that pass ShouldTrack, as a
// stand-in for "foreground app". It is intentionally conservative -- a future Windows build should
// inject a Prober backed by GetForegroundWindow instead.
type cpuHeuristicProber struct {
	mu       sync.Mutex
	prevTime map[int32]float64 // pid -> cumulative CPU seconds at last sample
	warned   bool
}

// NewDefaultProber returns the CPU-heuristic Prober.
func NewDefaultProber() Prober {
	return &cpuHeuristicProber{prevTime: make(map[int32]float64)}
}

func (p *cpuHeuristicProber) ForegroundPackage(ctx context.Context) (string, bool) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		if !p.warned {
			log.Printf("foreground: process enumeration failed: %v", err)
			p.warned = true
		}
		return "", false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var bestPkg string
	var bestDelta float64
	seen := make(map[int32]float64, len(procs))

	for _, proc := range procs {
		times, err := proc.TimesWithContext(ctx)
		if err != nil {
			continue
		}
		cumulative := times.User + times.System
		seen[proc.Pid] = cumulative
		delta := cumulative - p.prevTime[proc.Pid]
		if delta <= 0 {
			continue
		}
		name, err := proc.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		pkg := Normalize(filepath.Base(name))
		if !strings.HasSuffix(pkg, ".exe") {
			pkg += ".exe"
		}
		if !ShouldTrack(pkg) {
			continue
		}
		if delta > bestDelta {
			bestDelta = delta
			bestPkg = pkg
		}
	}

	p.prevTime = seen
	if bestPkg == "" {
		return "", false
	}
	return bestPkg, true
}

// Scheduler cadence helper: SampleTick reads the probe once and applies
// the observation to the tracker at the given time.
func SampleTick(ctx context.Context, prober Prober, tracker *Tracker, now time.Time) {
	pkg, ok := prober.ForegroundPackage(ctx)
	tracker.Sample(pkg, ok, now)
}
