package telemetry

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"skywatch-sim/internal/geo"
)

// Profile holds the flight envelope and signature of a drone model.
type Profile struct {
	SpeedMin, SpeedMax float64
	Drain              float64 // battery % per second
	Frequency          float64
	Signature          Signature
}

// ProfileFor returns the profile of a known model or a generic default.
func ProfileFor(model string) Profile {
	switch model {
	case "small-fpv":
		return Profile{SpeedMin: 15, SpeedMax: 30, Drain: 0.05, Frequency: 5.8e9,
			Signature: Signature{EmissionPowerDBm: 20, RCS: 0.01, SizeM: 0.25}}
	case "medium-uav":
		return Profile{SpeedMin: 10, SpeedMax: 25, Drain: 0.03, Frequency: 2.4e9,
			Signature: Signature{EmissionPowerDBm: 27, RCS: 0.1, SizeM: 0.6}}
	case "large-uav":
		return Profile{SpeedMin: 15, SpeedMax: 35, Drain: 0.02, Frequency: 2.4e9,
			Signature: Signature{EmissionPowerDBm: 30, RCS: 1.0, SizeM: 2.0}}
	default:
		return Profile{SpeedMin: 8, SpeedMax: 15, Drain: 0.04, Frequency: 2.4e9,
			Signature: Signature{EmissionPowerDBm: 20, RCS: 0.05, SizeM: 0.4}}
	}
}

// Drone holds runtime state for a synthetic drone.
type Drone struct {
	ID       string
	Model    string
	Position geo.Position
	Velocity geo.Velocity
	Heading  float64
	Battery  float64
	Status   Status
}

// Generator moves a set of synthetic drones with a seeded random walk. It
// stands in for the external simulator during offline runs.
type Generator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	drones  map[string]*Drone
	boundsM float64
	now     func() time.Time
}

// NewGenerator creates a generator for the given drones. boundsM limits the
// horizontal distance from the origin; drones beyond it turn back.
func NewGenerator(seed int64, boundsM float64, drones []Drone) *Generator {
	g := &Generator{
		rng:     rand.New(rand.NewSource(seed)),
		drones:  make(map[string]*Drone, len(drones)),
		boundsM: boundsM,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, d := range drones {
		d := d
		if d.Status == "" {
			d.Status = StatusHovering
		}
		if d.Battery == 0 {
			d.Battery = 100
		}
		g.drones[d.ID] = &d
	}
	return g
}

// IDs lists the generated drone ids in sorted order.
func (g *Generator) IDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.drones))
	for id := range g.drones {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Step advances every drone by dt seconds.
func (g *Generator) Step(dt float64) {
	if dt <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range g.sortedIDsLocked() {
		g.stepDrone(g.drones[id], dt)
	}
}

func (g *Generator) sortedIDsLocked() []string {
	ids := make([]string, 0, len(g.drones))
	for id := range g.drones {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *Generator) stepDrone(d *Drone, dt float64) {
	prof := ProfileFor(d.Model)
	d.Battery = math.Max(0, d.Battery-prof.Drain*dt)

	switch {
	case d.Status == StatusLanded:
		d.Velocity = geo.Velocity{}
		return
	case d.Battery <= 5:
		d.Status = StatusLanding
		d.Velocity = geo.Velocity{Down: 2}
		d.Position = d.Position.Advance(d.Velocity, dt)
		if d.Position.Down >= 0 {
			d.Position.Down = 0
			d.Velocity = geo.Velocity{}
			d.Status = StatusLanded
		}
		return
	}

	if g.boundsM > 0 && geo.HorizontalDistance(geo.Position{}, d.Position) > g.boundsM {
		home, _ := geo.Bearing(d.Position, geo.Position{Down: d.Position.Down})
		d.Heading = home
	} else {
		d.Heading = geo.NormalizeAzimuth(d.Heading + (g.rng.Float64()*30 - 15))
	}
	speed := prof.SpeedMin + g.rng.Float64()*(prof.SpeedMax-prof.SpeedMin)
	dir := geo.Direction(d.Heading, 0)
	climb := g.rng.Float64()*2 - 1
	d.Velocity = geo.Velocity{North: dir.X * speed, East: dir.Y * speed, Down: -climb}
	d.Position = d.Position.Advance(d.Velocity, dt)
	if d.Position.Down > 0 {
		d.Position.Down = 0
	}

	if d.Battery <= 20 {
		d.Status = StatusLowBattery
	} else {
		d.Status = StatusMoving
	}
}

// Snapshot returns the current state of drone id as a Target.
func (g *Generator) Snapshot(id string) (Target, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.drones[id]
	if !ok {
		return Target{}, false
	}
	prof := ProfileFor(d.Model)
	return Target{
		ID:          d.ID,
		Model:       d.Model,
		Position:    d.Position,
		Velocity:    d.Velocity,
		Orientation: geo.FromEuler(d.Heading, 0, 0),
		Status:      d.Status,
		Frequency:   prof.Frequency,
		Signature:   prof.Signature,
		Battery:     d.Battery,
		Timestamp:   g.now(),
	}, true
}
