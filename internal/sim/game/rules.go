package game

// Rules holds every tunable constant the reducer uses. Tuning files map onto
// it; DefaultRules is the shipped balance.
type Rules struct {
	StartYear int
	EndYear   int

	StartingBudget            float64
	StartingTemperature       float64
	StartingForeignDependency float64

	TemperatureFloor float64
	TemperatureCap   float64
	// TemperatureStep is the drift applied when a year is advanced manually.
	TemperatureStep float64
	// CoolingPerMt is the anomaly removed per Mt of current field emissions.
	CoolingPerMt      float64
	CrisisTemperature float64

	ClimateCostFactor float64
	UrgencyWindow     float64
	UrgencyDivisor    float64
	LateUrgency       float64

	CapacityBase       int
	CapacityMax        int
	CapacityRankStep   float64
	CapacityInvestStep float64

	VictoryShare float64
	PartialShare float64

	MaxChoices int
}

func DefaultRules() Rules {
	return Rules{
		StartYear: 2025,
		EndYear:   2040,

		StartingBudget:            15000,
		StartingTemperature:       1.3,
		StartingForeignDependency: 40,

		TemperatureFloor:  1.1,
		TemperatureCap:    3.0,
		TemperatureStep:   0.02,
		CoolingPerMt:      0.001,
		CrisisTemperature: 1.8,

		ClimateCostFactor: 500,
		UrgencyWindow:     15,
		UrgencyDivisor:    5,
		LateUrgency:       3,

		CapacityBase:       3,
		CapacityMax:        8,
		CapacityRankStep:   20,
		CapacityInvestStep: 100,

		VictoryShare: 0.8,
		PartialShare: 0.5,

		MaxChoices: 200,
	}
}
