// Package agentrt wires the five stores and the collector/uploader
// components into the three independent scheduled tasks spec §4.M
// describes: sampler, collector, uploader.
package agentrt

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nuscape/windows-agent/internal/agentconfig"
	"github.com/nuscape/windows-agent/internal/batch"
	"github.com/nuscape/windows-agent/internal/devicestatus"
	"github.com/nuscape/windows-agent/internal/foreground"
	"github.com/nuscape/windows-agent/internal/metrics"
	"github.com/nuscape/windows-agent/internal/netusage"
	"github.com/nuscape/windows-agent/internal/queue"
	"github.com/nuscape/windows-agent/internal/runtimeconfig"
	"github.com/nuscape/windows-agent/internal/upload"
)

// Agent owns every store and component the three scheduled tasks share.
type Agent struct {
	cfg *runtimeconfig.Config

	tracker  *foreground.Tracker
	prober   foreground.Prober
	net      *netusage.Collector
	status   *devicestatus.Builder
	devices  *agentconfig.DeviceStore
	q        *queue.Store
	uploader *upload.Engine
}

// New assembles an Agent from its already-constructed dependencies. The
// caller (cmd/agent) owns loading the persisted stores and wires them here.
func New(
	cfg *runtimeconfig.Config,
	tracker *foreground.Tracker,
	prober foreground.Prober,
	netCollector *netusage.Collector,
	status *devicestatus.Builder,
	devices *agentconfig.DeviceStore,
	q *queue.Store,
	uploader *upload.Engine,
) *Agent {
	return &Agent{
		cfg:      cfg,
		tracker:  tracker,
		prober:   prober,
		net:      netCollector,
		status:   status,
		devices:  devices,
		q:        q,
		uploader: uploader,
	}
}

// Run spawns the sampler, collector, and uploader tasks and blocks until
// ctx is cancelled, at which point all three are given a chance to finish
// their in-flight tick before Run returns.
func (a *Agent) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		a.runSampler(ctx)
	}()
	go func() {
		defer wg.Done()
		a.runCollector(ctx)
	}()
	go func() {
		defer wg.Done()
		a.runUploader(ctx)
	}()

	wg.Wait()
}

// runSampler invokes sample_once on a fixed tick, with no initial
// immediate run -- the first useful sample only exists once the probe has
// observed the foreground window at least once.
func (a *Agent) runSampler(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			foreground.SampleTick(ctx, a.prober, a.tracker, time.Now())
		}
	}
}

// runCollector runs collect_and_store immediately, then on the configured
// cadence, per spec §4.M.
func (a *Agent) runCollector(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.CollectInterval)
	defer ticker.Stop()

	a.collectAndStore(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.collectAndStore(ctx)
		}
	}
}

// runUploader runs upload_pending immediately, then on the configured
// cadence.
func (a *Agent) runUploader(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.UploadInterval)
	defer ticker.Stop()

	a.uploadPending(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.uploadPending(ctx)
		}
	}
}

// collectAndStore drains the session tracker, differs the network
// counters, builds a device-status snapshot, and enqueues the resulting
// batch -- component J from spec §4.
func (a *Agent) collectAndStore(ctx context.Context) {
	now := time.Now()

	sessions := a.tracker.Drain(24*time.Hour, now)
	metrics.SessionsEmitted.Add(float64(len(sessions)))

	deltas, err := a.net.Collect(ctx)
	if err != nil {
		log.Printf("agentrt: network collection failed: %v", err)
		deltas = nil
	}
	for _, d := range deltas {
		metrics.NetworkDeltaBytes.WithLabelValues("wifi").Add(float64(d.WifiBytes))
		metrics.NetworkDeltaBytes.WithLabelValues("cellular").Add(float64(d.CellularBytes))
	}

	if len(sessions) == 0 && len(deltas) == 0 {
		return
	}

	deviceID, err := a.devices.GetOrCreate()
	if err != nil {
		log.Printf("agentrt: device id unavailable: %v", err)
		return
	}
	status := a.status.Build(ctx)

	b := batch.UsageBatch{
		DeviceID:      deviceID,
		SentAt:        now.UTC(),
		Sessions:      sessions,
		NetworkDeltas: deltas,
		Status:        &status,
	}
	if err := a.q.Enqueue(b); err != nil {
		log.Printf("agentrt: enqueue failed: %v", err)
	}
	metrics.QueueDepth.Set(float64(a.q.Size()))
}

// uploadPending runs the upload engine once and records its outcome.
func (a *Agent) uploadPending(ctx context.Context) {
	start := time.Now()
	result, err := a.uploader.UploadPending(ctx)
	metrics.UploadDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		log.Printf("agentrt: upload_pending error: %v", err)
		metrics.UploadAttempts.WithLabelValues("error").Inc()
		return
	}

	outcome := "success"
	if result.FailureReason != "" {
		outcome = string(result.FailureReason)
	}
	metrics.UploadAttempts.WithLabelValues(outcome).Inc()
	metrics.QueueDepth.Set(float64(a.q.Size()))

	if result.FailureReason != "" {
		log.Printf("agentrt: upload_pending stopped: %s (uploaded %d)", result.FailureReason, result.UploadedBatches)
	}
}
