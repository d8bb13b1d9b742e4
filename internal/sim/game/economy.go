package game

import (
	"math"

	"phaseout.no/internal/sim/achievements"
	"phaseout.no/internal/sim/fields"
)

// Category is an investment bucket. The set is fixed.
type Category string

const (
	WindPower       Category = "wind_power"
	SolarPower      Category = "solar_power"
	Hydrogen        Category = "hydrogen"
	CarbonCapture   Category = "carbon_capture"
	BatteryTech     Category = "battery_tech"
	GreenShipping   Category = "green_shipping"
	Research        Category = "research"
	Electrification Category = "electrification"

	OilExploration    Category = "oil_exploration"
	GasInfrastructure Category = "gas_infrastructure"
	FossilSubsidies   Category = "fossil_subsidies"
	CoalImports       Category = "coal_imports"
)

var goodCategories = []Category{
	WindPower, SolarPower, Hydrogen, CarbonCapture,
	BatteryTech, GreenShipping, Research, Electrification,
}

var badCategories = []Category{
	OilExploration, GasInfrastructure, FossilSubsidies, CoalImports,
}

// Categories lists all categories, good ones first.
func Categories() []Category {
	out := make([]Category, 0, len(goodCategories)+len(badCategories))
	out = append(out, goodCategories...)
	return append(out, badCategories...)
}

func (c Category) Good() bool {
	for _, g := range goodCategories {
		if g == c {
			return true
		}
	}
	return false
}

func (c Category) Valid() bool {
	if c.Good() {
		return true
	}
	for _, b := range badCategories {
		if b == c {
			return true
		}
	}
	return false
}

func GoodTotal(inv map[Category]float64) float64 {
	sum := 0.0
	for _, c := range goodCategories {
		sum += inv[c]
	}
	return sum
}

func BadTotal(inv map[Category]float64) float64 {
	sum := 0.0
	for _, c := range badCategories {
		sum += inv[c]
	}
	return sum
}

// TechRank is clamp((good-bad)/10, 0, 100).
func TechRank(inv map[Category]float64) float64 {
	return clamp((GoodTotal(inv)-BadTotal(inv))/10, 0, 100)
}

// Capacity is the number of fields one batch may close.
func Capacity(s State, r Rules) int {
	n := r.CapacityBase
	if r.CapacityRankStep > 0 {
		n += int(math.Floor(s.NorwayTechRank / r.CapacityRankStep))
	}
	if r.CapacityInvestStep > 0 {
		n += int(math.Floor(GoodTotal(s.Investments) / r.CapacityInvestStep))
	}
	return max(0, min(r.CapacityMax, MaxCapacity, n))
}

// ForeignDependency rises with fossil spending and falls with green spending.
func ForeignDependency(inv map[Category]float64, r Rules) float64 {
	return clamp(r.StartingForeignDependency+(BadTotal(inv)-GoodTotal(inv))/20, 0, 100)
}

// Sustainability blends the closed share with the tech rank into [0,100].
func Sustainability(s State) float64 {
	share := 0.0
	if len(s.Fields) > 0 {
		share = float64(s.PhasedOut()) / float64(len(s.Fields))
	}
	return math.Round(clamp(share*60+s.NorwayTechRank*0.4, 0, 100)*100) / 100
}

// Urgency is the climate cost multiplier for the current year.
func Urgency(year int, r Rules) float64 {
	timeLeft := float64(r.EndYear - year)
	u := (r.UrgencyWindow - timeLeft) / r.UrgencyDivisor
	if timeLeft < 0 {
		return math.Max(r.LateUrgency, u)
	}
	return math.Max(1, u)
}

// ClimateCost is the yearly debit for the current temperature anomaly.
func ClimateCost(s State, r Rules) float64 {
	d := s.GlobalTemperature - r.TemperatureFloor
	return d * d * r.ClimateCostFactor * Urgency(s.Year, r)
}

// Revenue is the yearly oil income of all active fields, in billion NOK.
func Revenue(s State) float64 {
	sum := 0.0
	for _, f := range s.Fields {
		if f.Status == fields.StatusActive {
			sum += f.YearlyRevenue
		}
	}
	return sum / 1000
}

// applyYear credits revenue and debits climate cost on s in place. The budget
// stays within [0, MaxBudget].
func applyYear(s *State, r Rules) {
	cost := ClimateCost(*s, r)
	s.Budget = clamp(finite(s.Budget+Revenue(*s)-cost), 0, MaxBudget)
	s.ClimateDamage = clamp(finite(s.ClimateDamage+cost), 0, MaxClimateDamage)
	s.SustainabilityScore = Sustainability(*s)
	s.YearlyPhaseOutCapacity = Capacity(*s, r)
}

func progress(s State, r Rules) achievements.Progress {
	closedLifetime := 0.0
	for _, f := range s.Fields {
		if f.Status == fields.StatusClosed {
			closedLifetime += f.TotalLifetimeEmissions
		}
	}
	return achievements.Progress{
		StartYear:               r.StartYear,
		EndYear:                 r.EndYear,
		Year:                    s.Year,
		PhasedOut:               s.PhasedOut(),
		TotalFields:             len(s.Fields),
		GlobalTemperature:       s.GlobalTemperature,
		GoodInvestments:         GoodTotal(s.Investments),
		ClosedLifetimeEmissions: closedLifetime,
	}
}

// unlock appends newly earned achievements and raises the modal for the last.
func unlock(s *State, r Rules) {
	earned := achievements.Evaluate(progress(*s, r), s.Achievements)
	if len(earned) == 0 {
		return
	}
	s.Achievements = append(s.Achievements, earned...)
	s.NewAchievement = earned[len(earned)-1]
	s.ShowAchievementModal = true
}

// Outcome grades a finished game by the share of closed fields.
func Outcome(s State, r Rules) Phase {
	share := 0.0
	if len(s.Fields) > 0 {
		share = float64(s.PhasedOut()) / float64(len(s.Fields))
	}
	switch {
	case share >= r.VictoryShare:
		return PhaseVictory
	case share >= r.PartialShare:
		return PhasePartialSuccess
	default:
		return PhaseDefeat
	}
}

// settle moves the phase after a gameplay action: terminal once the end year
// is reached, crisis while the anomaly is above the crisis line.
func settle(s *State, r Rules) {
	if s.Year >= r.EndYear {
		s.GamePhase = Outcome(*s, r)
		s.ShowGameOverModal = true
		return
	}
	if s.GlobalTemperature > r.CrisisTemperature {
		s.GamePhase = PhaseCrisis
		return
	}
	s.GamePhase = PhaseAction
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
