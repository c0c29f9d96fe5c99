package scenario

func f(v float64) *float64 { return &v }

// BuiltIn returns predefined weather arcs.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"clear-day": {
			Name:        "Clear Day",
			Description: "Bright, dry conditions for the whole run.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Morning haze burns off.",
					Environment: Overrides{Clarity: f(0.9), LightIntensity: f(0.8)},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 30, Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "Full sun, unlimited visibility.",
					Environment: Overrides{Clarity: f(1), LightIntensity: f(1)},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 300, Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "Midday heat shimmer lowers clarity.",
					Environment: Overrides{Clarity: f(0.85), TemperatureC: f(31)},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 300, Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "Late afternoon light.",
					Environment: Overrides{LightIntensity: f(0.7)},
				},
			},
		},
		"fog-bank": {
			Name:        "Fog Bank",
			Description: "A fog bank rolls over the site and lifts once drones are being tracked again.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Humid air, visibility still fine.",
					Environment: Overrides{HumidityPct: f(75)},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 20, Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "Fog thickens over the valley.",
					Environment: Overrides{HumidityPct: f(92), VisibilityM: f(2000), Clarity: f(0.5)},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 60, Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "Dense fog, optical sensors nearly blind.",
					Environment: Overrides{HumidityPct: f(98), VisibilityM: f(200), Clarity: f(0.2), LightIntensity: f(0.5)},
					Triggers:    []Trigger{{Event: EventDetections, Value: 50, Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "Fog lifts.",
					Environment: Overrides{HumidityPct: f(70), VisibilityM: f(8000), Clarity: f(0.8)},
				},
			},
		},
		"night-storm": {
			Name:        "Night Storm",
			Description: "Dusk turns into a cold night with heavy rain.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Dusk.",
					Environment: Overrides{LightIntensity: f(0.4)},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 30, Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "Night falls, temperature drops below freezing.",
					Environment: Overrides{LightIntensity: f(0.05), TemperatureC: f(-3)},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 60, Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "Storm front with heavy rain and gusts.",
					Environment: Overrides{PrecipMMH: f(25), HumidityPct: f(95), WindSpeedMS: f(18), VisibilityM: f(1500), CloudCoverPct: f(100)},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 120, Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "Rain eases before dawn.",
					Environment: Overrides{PrecipMMH: f(1), LightIntensity: f(0.2)},
				},
			},
		},
	}
}
