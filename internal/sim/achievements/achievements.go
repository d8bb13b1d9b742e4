// Package achievements evaluates which achievements a game snapshot has earned.
package achievements

// ID is an opaque, stable achievement identifier. Display text lives in the
// i18n catalogs.
type ID string

const (
	FirstSteps      ID = "first_steps"
	Speedrunner     ID = "speedrunner"
	UnderPressure   ID = "under_pressure"
	ClimateAware    ID = "climate_aware"
	TechPioneer     ID = "tech_pioneer"
	GreenTransition ID = "green_transition"
	PerfectTiming   ID = "perfect_timing"
	PlanetSaver     ID = "planet_saver"
	TooLate         ID = "too_late"
	ClimateFailure  ID = "climate_failure"
)

// Default horizon, used when Progress leaves StartYear or EndYear at zero.
const (
	DefaultStartYear = 2025
	DefaultEndYear   = 2040
)

// Progress is the slice of game state the rules look at. StartYear and EndYear
// are the game's horizon.
type Progress struct {
	StartYear               int
	EndYear                 int
	Year                    int
	PhasedOut               int
	TotalFields             int
	GlobalTemperature       float64
	GoodInvestments         float64
	ClosedLifetimeEmissions float64
}

func (p Progress) start() int {
	if p.StartYear == 0 {
		return DefaultStartYear
	}
	return p.StartYear
}

func (p Progress) end() int {
	if p.EndYear == 0 {
		return DefaultEndYear
	}
	return p.EndYear
}

func (p Progress) share() float64 {
	if p.TotalFields <= 0 {
		return 0
	}
	return float64(p.PhasedOut) / float64(p.TotalFields)
}

type Def struct {
	ID   ID     `json:"id"`
	Rule string `json:"rule"`

	met func(Progress) bool
}

var defs = []Def{
	{ID: FirstSteps, Rule: "at least one field closed",
		met: func(p Progress) bool { return p.PhasedOut >= 1 }},
	{ID: Speedrunner, Rule: "10 fields closed within 5 years",
		met: func(p Progress) bool { return p.PhasedOut >= 10 && p.Year-p.start() <= 5 }},
	{ID: UnderPressure, Rule: "half of all fields closed with at most 5 years left",
		met: func(p Progress) bool { return p.share() >= 0.5 && p.end()-p.Year <= 5 }},
	{ID: ClimateAware, Rule: "temperature at or below 1.5 with 5 fields closed",
		met: func(p Progress) bool { return p.GlobalTemperature <= 1.5 && p.PhasedOut >= 5 }},
	{ID: TechPioneer, Rule: "200 billion NOK in green investments",
		met: func(p Progress) bool { return p.GoodInvestments >= 200 }},
	{ID: GreenTransition, Rule: "15 fields closed",
		met: func(p Progress) bool { return p.PhasedOut >= 15 }},
	{ID: PerfectTiming, Rule: "every field closed exactly in the final year",
		met: func(p Progress) bool { return p.TotalFields > 0 && p.PhasedOut == p.TotalFields && p.Year == p.end() }},
	{ID: PlanetSaver, Rule: "100 Gt lifetime emissions avoided",
		met: func(p Progress) bool { return p.ClosedLifetimeEmissions/1000 >= 100 }},
	{ID: TooLate, Rule: "final year reached with less than 80% closed",
		met: func(p Progress) bool { return p.Year >= p.end() && p.share() < 0.8 }},
	{ID: ClimateFailure, Rule: "temperature above 1.8",
		met: func(p Progress) bool { return p.GlobalTemperature > 1.8 }},
}

// All returns the definitions in evaluation order.
func All() []Def {
	out := make([]Def, len(defs))
	copy(out, defs)
	return out
}

func Known(id ID) bool {
	for _, d := range defs {
		if d.ID == id {
			return true
		}
	}
	return false
}

// Evaluate returns every achievement whose rule holds for p and that is not in
// held, in table order. It has no side effects.
func Evaluate(p Progress, held []ID) []ID {
	have := make(map[ID]struct{}, len(held))
	for _, id := range held {
		have[id] = struct{}{}
	}
	var out []ID
	for _, d := range defs {
		if _, ok := have[d.ID]; ok {
			continue
		}
		if d.met(p) {
			out = append(out, d.ID)
		}
	}
	return out
}
