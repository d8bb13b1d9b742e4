// Package fields derives gameplay field entities from projected series.
package fields

import (
	"math"

	"phaseout.no/internal/sim/dataset"
)

type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
	// StatusTransitioning is reserved; no action produces it yet.
	StatusTransitioning Status = "transitioning"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusClosed, StatusTransitioning:
		return true
	}
	return false
}

type Potential string

const (
	PotentialWind        Potential = "wind"
	PotentialSolar       Potential = "solar"
	PotentialDataCenter  Potential = "data_center"
	PotentialResearchHub Potential = "research_hub"
)

// Factory constants.
const (
	RemainingYears     = 15
	CostPerUnit        = 15
	MinPhaseOutCost    = 5
	ReferenceOilPrice  = 80.0
	BarrelsPerBoe      = 6.3
	NOKPerUSD          = 10.0
	WorkersPerUnit     = 120
	MinWorkers         = 25
	EmissionHistoryLen = 5
)

// DefaultCoord is the shelf centroid used when a field has no coordinates.
var DefaultCoord = dataset.Coord{Lon: 5, Lat: 62}

type Field struct {
	Name   string `json:"name"`
	Status Status `json:"status"`

	Production float64 `json:"production"`
	// Intensity is kg CO2e per boe at the latest recorded year.
	Intensity float64 `json:"intensity"`
	// Emissions are Mt CO2e, most recent first, at most five entries.
	Emissions []float64 `json:"emissions"`

	PhaseOutCost           float64 `json:"phaseOutCost"`
	YearlyRevenue          float64 `json:"yearlyRevenue"`
	TotalLifetimeEmissions float64 `json:"totalLifetimeEmissions"`
	Workers                int     `json:"workers"`

	TransitionPotential Potential     `json:"transitionPotential"`
	Coordinates         dataset.Coord `json:"coordinates"`
	ApproxLocation      bool          `json:"approxLocation,omitempty"`
}

func (f Field) Active() bool { return f.Status == StatusActive }

// LatestEmission returns emissions[0] or 0.
func (f Field) LatestEmission() float64 {
	if len(f.Emissions) == 0 {
		return 0
	}
	return f.Emissions[0]
}

// Close returns a closed copy of f with production and current emissions zeroed.
func (f Field) Close() Field {
	f.Status = StatusClosed
	f.Production = 0
	em := make([]float64, len(f.Emissions))
	copy(em, f.Emissions)
	if len(em) == 0 {
		em = []float64{0}
	}
	em[0] = 0
	f.Emissions = em
	return f
}

// Create derives a Field from its (projected) series. It never fails: missing
// data becomes zero and missing coordinates fall back to DefaultCoord with
// ApproxLocation set.
func Create(name string, ys dataset.YearSeries, coords dataset.Coordinates) Field {
	f := Field{Name: name, Status: StatusActive}

	// The latest key of a projected series is the horizon year, so production
	// reflects the projected output there while intensity comes from the last
	// year that recorded one.
	if latest, ok := ys.LatestYear(); ok {
		facts := ys[latest]
		f.Production = finite(value(facts.ProductionOil) + value(facts.ProductionGas))
	}
	f.Intensity = latestIntensity(ys)

	f.Emissions = recentEmissions(ys)
	f.TotalLifetimeEmissions = finite(f.Emissions[0] * RemainingYears)
	f.PhaseOutCost = math.Max(MinPhaseOutCost, math.Floor(f.Production*CostPerUnit))
	f.YearlyRevenue = math.Floor(f.Production * ReferenceOilPrice * BarrelsPerBoe * NOKPerUSD)
	f.Workers = max(MinWorkers, int(math.Floor(f.Production*WorkersPerUnit)))

	c, found := coords[name]
	if !found {
		c = DefaultCoord
		f.ApproxLocation = true
	}
	f.Coordinates = c
	f.TransitionPotential = PotentialFor(c.Lat, f.Production)
	return f
}

// PotentialFor is the decision table used once at creation.
func PotentialFor(lat, production float64) Potential {
	switch {
	case lat > 70:
		return PotentialWind
	case lat < 58:
		return PotentialSolar
	case production > 5:
		return PotentialDataCenter
	default:
		return PotentialResearchHub
	}
}

func recentEmissions(ys dataset.YearSeries) []float64 {
	years := ys.Years()
	out := make([]float64, 0, EmissionHistoryLen)
	for i := len(years) - 1; i >= 0 && len(out) < EmissionHistoryLen; i-- {
		if e := ys[years[i]].Emission; e != nil {
			out = append(out, finite(*e/1000))
		}
	}
	if len(out) == 0 {
		return []float64{0}
	}
	return out
}

func latestIntensity(ys dataset.YearSeries) float64 {
	years := ys.Years()
	for i := len(years) - 1; i >= 0; i-- {
		if v := ys[years[i]].EmissionIntensity; v != nil {
			return finite(*v)
		}
	}
	return 0
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
