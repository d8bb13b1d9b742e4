package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"phaseout.no/internal/sim/game"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	StartYear int `yaml:"start_year"`
	EndYear   int `yaml:"end_year"`

	StartingBudget            float64 `yaml:"starting_budget"`
	StartingTemperature       float64 `yaml:"starting_temperature"`
	StartingForeignDependency float64 `yaml:"starting_foreign_dependency"`

	Climate  Climate  `yaml:"climate"`
	Capacity Capacity `yaml:"capacity"`
	Outcome  Outcome  `yaml:"outcome"`

	MaxChoices int `yaml:"max_choices"`
}

type Climate struct {
	TemperatureFloor  float64 `yaml:"temperature_floor"`
	TemperatureCap    float64 `yaml:"temperature_cap"`
	TemperatureStep   float64 `yaml:"temperature_step"`
	CoolingPerMt      float64 `yaml:"cooling_per_mt"`
	CrisisTemperature float64 `yaml:"crisis_temperature"`
	CostFactor        float64 `yaml:"cost_factor"`
	UrgencyWindow     float64 `yaml:"urgency_window"`
	UrgencyDivisor    float64 `yaml:"urgency_divisor"`
	LateUrgency       float64 `yaml:"late_urgency"`
}

type Capacity struct {
	Base       int     `yaml:"base"`
	Max        int     `yaml:"max"`
	RankStep   float64 `yaml:"rank_step"`
	InvestStep float64 `yaml:"invest_step"`
}

type Outcome struct {
	VictoryShare float64 `yaml:"victory_share"`
	PartialShare float64 `yaml:"partial_share"`
}

// Defaults mirrors game.DefaultRules.
func Defaults() Tuning {
	r := game.DefaultRules()
	return Tuning{
		ProtocolVersion:           "1.0",
		StartYear:                 r.StartYear,
		EndYear:                   r.EndYear,
		StartingBudget:            r.StartingBudget,
		StartingTemperature:       r.StartingTemperature,
		StartingForeignDependency: r.StartingForeignDependency,
		Climate: Climate{
			TemperatureFloor:  r.TemperatureFloor,
			TemperatureCap:    r.TemperatureCap,
			TemperatureStep:   r.TemperatureStep,
			CoolingPerMt:      r.CoolingPerMt,
			CrisisTemperature: r.CrisisTemperature,
			CostFactor:        r.ClimateCostFactor,
			UrgencyWindow:     r.UrgencyWindow,
			UrgencyDivisor:    r.UrgencyDivisor,
			LateUrgency:       r.LateUrgency,
		},
		Capacity: Capacity{
			Base:       r.CapacityBase,
			Max:        r.CapacityMax,
			RankStep:   r.CapacityRankStep,
			InvestStep: r.CapacityInvestStep,
		},
		Outcome: Outcome{
			VictoryShare: r.VictoryShare,
			PartialShare: r.PartialShare,
		},
		MaxChoices: r.MaxChoices,
	}
}

// Load reads a tuning file. Keys left out of the file keep their defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Defaults(), fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Defaults(), fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.EndYear <= t.StartYear {
		return fmt.Errorf("end_year %d must be after start_year %d", t.EndYear, t.StartYear)
	}
	if t.StartYear < game.MinYear || t.EndYear > game.MaxYear {
		return fmt.Errorf("years must lie within %d-%d", game.MinYear, game.MaxYear)
	}
	if t.StartingBudget < 0 || t.StartingBudget > game.MaxBudget {
		return fmt.Errorf("starting_budget must be within 0-%d", game.MaxBudget)
	}
	if t.Climate.TemperatureCap < t.Climate.TemperatureFloor {
		return fmt.Errorf("climate.temperature_cap below temperature_floor")
	}
	if t.Climate.TemperatureFloor < game.MinTemperature || t.Climate.TemperatureCap > game.MaxTemperature ||
		t.StartingTemperature < t.Climate.TemperatureFloor || t.StartingTemperature > t.Climate.TemperatureCap {
		return fmt.Errorf("temperatures must lie within %g-%g", game.MinTemperature, game.MaxTemperature)
	}
	if t.Climate.UrgencyDivisor <= 0 {
		return fmt.Errorf("climate.urgency_divisor must be > 0")
	}
	if t.Capacity.Max < t.Capacity.Base {
		return fmt.Errorf("capacity.max below capacity.base")
	}
	if t.Capacity.Max > game.MaxCapacity {
		return fmt.Errorf("capacity.max above %d", game.MaxCapacity)
	}
	if t.MaxChoices > game.MaxChoiceLog {
		return fmt.Errorf("max_choices above %d", game.MaxChoiceLog)
	}
	if t.Outcome.PartialShare > t.Outcome.VictoryShare {
		return fmt.Errorf("outcome.partial_share above victory_share")
	}
	return nil
}

func (t Tuning) Rules() game.Rules {
	return game.Rules{
		StartYear:                 t.StartYear,
		EndYear:                   t.EndYear,
		StartingBudget:            t.StartingBudget,
		StartingTemperature:       t.StartingTemperature,
		StartingForeignDependency: t.StartingForeignDependency,
		TemperatureFloor:          t.Climate.TemperatureFloor,
		TemperatureCap:            t.Climate.TemperatureCap,
		TemperatureStep:           t.Climate.TemperatureStep,
		CoolingPerMt:              t.Climate.CoolingPerMt,
		CrisisTemperature:         t.Climate.CrisisTemperature,
		ClimateCostFactor:         t.Climate.CostFactor,
		UrgencyWindow:             t.Climate.UrgencyWindow,
		UrgencyDivisor:            t.Climate.UrgencyDivisor,
		LateUrgency:               t.Climate.LateUrgency,
		CapacityBase:              t.Capacity.Base,
		CapacityMax:               t.Capacity.Max,
		CapacityRankStep:          t.Capacity.RankStep,
		CapacityInvestStep:        t.Capacity.InvestStep,
		VictoryShare:              t.Outcome.VictoryShare,
		PartialShare:              t.Outcome.PartialShare,
		MaxChoices:                t.MaxChoices,
	}
}
