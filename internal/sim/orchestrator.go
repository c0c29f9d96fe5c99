// Package sim runs detection for every device on each clock tick and hands
// the resulting events to the configured sinks.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"skywatch-sim/internal/clock"
	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/device"
	"skywatch-sim/internal/environment"
	"skywatch-sim/internal/gateway"
	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/logging"
	"skywatch-sim/internal/simerr"
	"skywatch-sim/internal/spatial"
	"skywatch-sim/internal/telemetry"
	"skywatch-sim/internal/triangulation"
)

// Orchestrator defaults.
const (
	DefaultDeadlineFraction = 0.8
	DefaultReportInterval   = 10 * time.Second
)

// Options tunes an Orchestrator.
type Options struct {
	AirspaceID         string
	Parallelism        int
	DeadlineFraction   float64 // share of the tick delta tasks may use
	DetectionThreshold float64
	ReportInterval     time.Duration
	Bounds             *spatial.Box
}

func (o Options) withDefaults() Options {
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.NumCPU()
	}
	if o.DeadlineFraction == 0 {
		o.DeadlineFraction = DefaultDeadlineFraction
	}
	if o.ReportInterval <= 0 {
		o.ReportInterval = DefaultReportInterval
	}
	return o
}

// Validate checks the tunables.
func (o Options) Validate() error {
	switch {
	case o.DeadlineFraction <= 0 || o.DeadlineFraction > 1:
		return simerr.Validation("deadline fraction %v outside (0,1]", o.DeadlineFraction)
	case o.DetectionThreshold < 0 || o.DetectionThreshold > 1:
		return simerr.Validation("detection threshold %v outside [0,1]", o.DetectionThreshold)
	}
	return nil
}

// Observer is implemented by environment providers that react to detections.
type Observer interface {
	Observe(detections int)
}

type task struct {
	ctx     context.Context
	sensor  detection.Detector
	spec    device.Spec
	targets []telemetry.Target
	env     environment.Snapshot
	out     chan<- taskResult
}

type taskResult struct {
	sensor  detection.Detector
	spec    device.Spec
	targets []string
	results []detection.Result
	err     error
}

type counters struct {
	ticks      int
	attempts   int
	detections int
	timeouts   int
	errors     int
	latency    time.Duration
}

// Orchestrator is a clock listener that evaluates every ready device against
// the current targets within a per-tick deadline.
type Orchestrator struct {
	opts      Options
	gw        gateway.Gateway
	env       environment.Provider
	sensors   *device.Registry[detection.Detector]
	index     *spatial.Index
	base      map[string]telemetry.Target
	ids       []string
	writer    EventWriter
	publisher Publisher

	mu      sync.RWMutex
	targets []telemetry.Target
	envSnap environment.Snapshot

	tasks     chan task
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	statsMu    sync.Mutex
	stats      counters
	lastReport time.Time

	now func() time.Time
}

var _ clock.Listener = (*Orchestrator)(nil)

// NewOrchestrator builds an orchestrator tracking targets through gw and
// starts its worker pool. Targets carry the static attributes (model,
// frequency, signature) that the gateway does not report.
func NewOrchestrator(opts Options, gw gateway.Gateway, env environment.Provider, sensors *device.Registry[detection.Detector], targets []telemetry.Target, writer EventWriter) (*Orchestrator, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if gw == nil {
		return nil, simerr.Validation("orchestrator needs a gateway")
	}
	if env == nil {
		env = environment.Static(environment.Default())
	}
	if sensors == nil {
		sensors = device.NewRegistry[detection.Detector]()
	}
	if writer == nil {
		writer = DiscardWriter{}
	}
	base := make(map[string]telemetry.Target, len(targets))
	ids := make([]string, 0, len(targets))
	for _, t := range targets {
		if t.ID == "" {
			return nil, simerr.Validation("target without id")
		}
		if _, dup := base[t.ID]; dup {
			return nil, simerr.Validation("duplicate target %s", t.ID)
		}
		base[t.ID] = t
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)

	o := &Orchestrator{
		opts:    opts,
		gw:      gw,
		env:     env,
		sensors: sensors,
		index:   spatial.New(opts.Bounds),
		base:    base,
		ids:     ids,
		writer:  writer,
		tasks:   make(chan task),
		quit:    make(chan struct{}),
		now:     time.Now,
	}
	o.lastReport = o.now()
	for i := 0; i < opts.Parallelism; i++ {
		o.wg.Add(1)
		go o.worker()
	}
	return o, nil
}

// SetPublisher attaches a live publisher. It must be called before the clock
// starts.
func (o *Orchestrator) SetPublisher(p Publisher) { o.publisher = p }

// Sensors returns the device registry.
func (o *Orchestrator) Sensors() *device.Registry[detection.Detector] { return o.sensors }

// Index returns the spatial index refreshed on every tick.
func (o *Orchestrator) Index() *spatial.Index { return o.index }

// Snapshot returns the targets seen on the last tick.
func (o *Orchestrator) Snapshot() []telemetry.Target {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]telemetry.Target, len(o.targets))
	copy(out, o.targets)
	return out
}

// Environment returns the environment used on the last tick.
func (o *Orchestrator) Environment() environment.Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.envSnap
}

// Close stops the worker pool. Ticks delivered afterwards are rejected.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		close(o.quit)
		o.wg.Wait()
	})
}

func (o *Orchestrator) closed() bool {
	select {
	case <-o.quit:
		return true
	default:
		return false
	}
}

// OnTick implements clock.Listener.
func (o *Orchestrator) OnTick(ctx context.Context, t clock.Tick) error {
	if o.closed() {
		return simerr.State("orchestrator for %s is closed", o.opts.AirspaceID)
	}
	start := o.now()
	log := logging.FromContext(ctx).With("airspace_id", o.opts.AirspaceID, "tick_id", t.ID)

	if st, ok := o.gw.(gateway.Stepper); ok {
		st.Step(t.Delta)
	}
	targets := o.syncTargets(ctx, log, t)
	env := o.env.At(t.SimTime)
	o.mu.Lock()
	o.envSnap = env
	o.mu.Unlock()

	deadline := time.Duration(float64(t.Delta) * o.opts.DeadlineFraction)
	tctx, cancel := context.WithTimeout(ctx, deadline)
	oc := o.dispatch(tctx, log, targets, env)
	cancel()

	events := o.events(t, oc.results)
	o.emit(log, events)
	if obs, ok := o.env.(Observer); ok {
		obs.Observe(len(events))
	}
	o.fuse(log, t, events, targets)

	o.statsMu.Lock()
	o.stats.ticks++
	o.stats.attempts += oc.attempts
	o.stats.detections += len(events)
	o.stats.timeouts += oc.timeouts
	o.stats.errors += oc.errors
	o.stats.latency += o.now().Sub(start)
	o.statsMu.Unlock()

	o.maybeReport(log)
	return nil
}

// syncTargets pulls fresh kinematics for every tracked target and replaces
// the cached snapshot wholesale. Failed fetches are left out of the tick.
func (o *Orchestrator) syncTargets(ctx context.Context, log *slog.Logger, t clock.Tick) []telemetry.Target {
	fetched := make([]*telemetry.Target, len(o.ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Parallelism)
	for i, id := range o.ids {
		g.Go(func() error {
			k, err := o.gw.Kinematics(gctx, id)
			if err != nil {
				log.Warn("target sync failed", "target_id", id, "err", err)
				return nil
			}
			tgt := k.Apply(o.base[id])
			tgt.Timestamp = t.Wall
			fetched[i] = &tgt
			return nil
		})
	}
	_ = g.Wait()

	targets := make([]telemetry.Target, 0, len(fetched))
	positions := make(map[string]geo.Position, len(fetched))
	for _, tgt := range fetched {
		if tgt == nil {
			continue
		}
		if !o.index.InBounds(tgt.Position) {
			log.Debug("target outside airspace", "target_id", tgt.ID)
			continue
		}
		targets = append(targets, *tgt)
		positions[tgt.ID] = tgt.Position
	}
	if err := o.index.Replace(positions); err != nil {
		log.Warn("spatial index update failed", "err", err)
	}

	o.mu.Lock()
	o.targets = targets
	o.mu.Unlock()
	return targets
}

type tickOutcome struct {
	results  []taskResult
	attempts int
	timeouts int
	errors   int
}

// dispatch submits one task per ready device and gathers what finishes
// before ctx expires.
func (o *Orchestrator) dispatch(ctx context.Context, log *slog.Logger, targets []telemetry.Target, env environment.Snapshot) tickOutcome {
	byID := make(map[string]telemetry.Target, len(targets))
	for _, tgt := range targets {
		byID[tgt.ID] = tgt
	}

	var jobs []task
	for _, s := range o.sensors.List() {
		if !s.Ready() {
			continue
		}
		spec := s.Snapshot().Spec
		cands := o.candidates(spec, byID)
		if len(cands) == 0 {
			continue
		}
		jobs = append(jobs, task{sensor: s, spec: spec, targets: cands, env: env})
	}

	var oc tickOutcome
	out := make(chan taskResult, len(jobs))
	submitted := 0
submit:
	for _, j := range jobs {
		j.ctx = ctx
		j.out = out
		select {
		case o.tasks <- j:
			submitted++
			oc.attempts += len(j.targets)
		case <-ctx.Done():
			break submit
		case <-o.quit:
			break submit
		}
	}
	oc.timeouts = len(jobs) - submitted

	received := 0
	accept := func(r taskResult) {
		received++
		switch {
		case r.err == nil:
			oc.results = append(oc.results, r)
		case errors.Is(r.err, context.DeadlineExceeded), errors.Is(r.err, context.Canceled):
			oc.timeouts++
		default:
			oc.errors++
			log.Error("detection task failed", "device_id", r.spec.ID, "targets", r.targets, "err", r.err)
		}
	}
	for received < submitted {
		select {
		case r := <-out:
			accept(r)
		case <-ctx.Done():
			// keep what already finished, abandon the rest
			for received < submitted {
				select {
				case r := <-out:
					accept(r)
				default:
					oc.timeouts += submitted - received
					log.Warn("tick deadline exceeded", "abandoned", submitted-received)
					return oc
				}
			}
		}
	}
	return oc
}

// candidates preselects the targets within reach of a device.
func (o *Orchestrator) candidates(spec device.Spec, byID map[string]telemetry.Target) []telemetry.Target {
	ids, err := o.index.WithinRadius(spec.Position, searchRadius(spec))
	if err != nil {
		return nil
	}
	out := make([]telemetry.Target, 0, len(ids))
	for _, id := range ids {
		if tgt, ok := byID[id]; ok {
			out = append(out, tgt)
		}
	}
	return out
}

func searchRadius(spec device.Spec) float64 {
	r := spec.RangeM
	if p, ok := spec.Params.(device.RadarParams); ok && p.MaxRangeM > r {
		r = p.MaxRangeM
	}
	return r
}

// worker runs tasks until Close. tasks is never closed, so a tick racing
// Close cannot send on a closed channel.
func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for {
		select {
		case t := <-o.tasks:
			t.out <- runTask(t)
		case <-o.quit:
			return
		}
	}
}

func runTask(t task) (res taskResult) {
	res.sensor = t.sensor
	res.spec = t.spec
	res.targets = make([]string, len(t.targets))
	for i, tgt := range t.targets {
		res.targets[i] = tgt.ID
	}
	if err := t.ctx.Err(); err != nil {
		res.err = err
		return res
	}
	defer func() {
		if r := recover(); r != nil {
			res.results = nil
			res.err = fmt.Errorf("device %s panicked: %v", t.spec.ID, r)
		}
	}()
	res.results, res.err = t.sensor.PerformDetection(t.ctx, t.targets, t.env)
	return res
}

type pairKey struct {
	device, target string
}

// events turns qualifying results into at most one event per device and
// target, ordered by device then target.
func (o *Orchestrator) events(t clock.Tick, results []taskResult) []detection.Event {
	stamp := detection.Stamp{TickID: t.ID, SimTime: t.SimTime, Wall: t.Wall}
	seen := make(map[pairKey]struct{})
	var out []detection.Event
	for _, r := range results {
		for _, res := range r.results {
			if res.Probability < o.opts.DetectionThreshold {
				continue
			}
			k := pairKey{r.spec.ID, res.TargetID}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			ev := detection.NewEvent(stamp, r.spec, res)
			r.sensor.Log().Append(ev)
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DetectorID != out[j].DetectorID {
			return out[i].DetectorID < out[j].DetectorID
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out
}

func (o *Orchestrator) emit(log *slog.Logger, events []detection.Event) {
	if err := writeEvents(o.writer, events); err != nil {
		log.Error("event write failed", "events", len(events), "err", err)
	}
	if o.publisher == nil {
		return
	}
	for _, ev := range events {
		if err := o.publisher.Publish(ev); err != nil {
			log.Debug("publish failed", "event_id", ev.ID, "err", err)
		}
	}
}

// fuse triangulates every target seen by at least two radio detectors.
func (o *Orchestrator) fuse(log *slog.Logger, t clock.Tick, events []detection.Event, targets []telemetry.Target) {
	byTarget := make(map[string][]triangulation.Observation)
	for _, ev := range events {
		if ev.Radio == nil {
			continue
		}
		s, err := o.sensors.Get(ev.DetectorID)
		if err != nil {
			continue
		}
		byTarget[ev.TargetID] = append(byTarget[ev.TargetID], triangulation.Observation{
			DetectorID:           ev.DetectorID,
			Receiver:             s.Snapshot().Position,
			Azimuth:              ev.Radio.Azimuth,
			Elevation:            ev.Radio.Elevation,
			SignalQuality:        ev.Radio.SignalQuality,
			DirectionAccuracyDeg: ev.Radio.DirectionAccuracyDeg,
		})
	}
	if len(byTarget) == 0 {
		return
	}
	truth := make(map[string]geo.Position, len(targets))
	for _, tgt := range targets {
		truth[tgt.ID] = tgt.Position
	}
	fw, _ := o.writer.(FusionWriter)

	ids := make([]string, 0, len(byTarget))
	for id := range byTarget {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		obs := byTarget[id]
		if len(obs) < 2 {
			continue
		}
		est, err := triangulation.Triangulate(obs)
		if err != nil {
			log.Warn("triangulation failed", "target_id", id, "err", err)
			continue
		}
		row := telemetry.FusionRow{
			AirspaceID: o.opts.AirspaceID,
			TickID:     t.ID,
			TargetID:   id,
			Estimate:   est,
			ErrorM:     geo.Distance(est, truth[id]),
			Timestamp:  t.Wall,
		}
		for _, ob := range obs {
			row.Detectors = append(row.Detectors, ob.DetectorID)
		}
		log.Debug("radio fix", "target_id", id, "receivers", len(obs), "error_m", row.ErrorM)
		if fw != nil {
			if err := fw.WriteFusion(row); err != nil {
				log.Error("fusion write failed", "target_id", id, "err", err)
			}
		}
	}
}

// maybeReport emits a PerformanceRow once per report interval and resets the
// counters.
func (o *Orchestrator) maybeReport(log *slog.Logger) {
	now := o.now()
	o.statsMu.Lock()
	elapsed := now.Sub(o.lastReport)
	if elapsed < o.opts.ReportInterval {
		o.statsMu.Unlock()
		return
	}
	row := o.performanceLocked(now, elapsed)
	o.stats = counters{}
	o.lastReport = now
	o.statsMu.Unlock()

	log.Info("detection performance",
		"ticks", row.Ticks,
		"attempts", row.Attempts,
		"detections", row.Detections,
		"timeouts", row.Timeouts,
		"errors", row.Errors,
		"success_rate", row.SuccessRate(),
		"avg_tick_latency", row.AvgTickLatency,
		"fps", row.FPS,
	)
	if sw, ok := o.writer.(StateWriter); ok {
		if err := sw.WriteState(row); err != nil {
			log.Error("state write failed", "err", err)
		}
	}
}

// Performance returns the counters accumulated since the last report.
func (o *Orchestrator) Performance() telemetry.PerformanceRow {
	now := o.now()
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return o.performanceLocked(now, now.Sub(o.lastReport))
}

func (o *Orchestrator) performanceLocked(now time.Time, elapsed time.Duration) telemetry.PerformanceRow {
	row := telemetry.PerformanceRow{
		AirspaceID: o.opts.AirspaceID,
		Ticks:      o.stats.ticks,
		Attempts:   o.stats.attempts,
		Detections: o.stats.detections,
		Timeouts:   o.stats.timeouts,
		Errors:     o.stats.errors,
		Timestamp:  now,
	}
	if o.stats.ticks > 0 {
		row.AvgTickLatency = o.stats.latency / time.Duration(o.stats.ticks)
	}
	if elapsed > 0 {
		row.FPS = float64(o.stats.ticks) / elapsed.Seconds()
	}
	return row
}
