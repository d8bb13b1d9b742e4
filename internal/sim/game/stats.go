package game

import "phaseout.no/internal/sim/fields"

// Stats is the read-only summary the presentation layers show.
type Stats struct {
	Year              int     `json:"year"`
	Budget            float64 `json:"budget"`
	Score             int     `json:"score"`
	GlobalTemperature float64 `json:"globalTemperature"`

	TotalFields int `json:"totalFields"`
	Active      int `json:"active"`
	Closed      int `json:"closed"`
	// CompletionPercent is closed/total*100.
	CompletionPercent float64 `json:"completionPercent"`
	// EmissionsReduced sums the lifetime emissions of closed fields, Mt CO2e.
	EmissionsReduced float64 `json:"emissionsReduced"`
	// AverageIntensity is the mean intensity of active fields, kg CO2e/boe.
	AverageIntensity float64 `json:"averageIntensity"`

	Capacity  int     `json:"capacity"`
	TechRank  float64 `json:"techRank"`
	GamePhase Phase   `json:"gamePhase"`
}

func StatsOf(s State, r Rules) Stats {
	st := Stats{
		Year:              s.Year,
		Budget:            s.Budget,
		Score:             s.Score,
		GlobalTemperature: s.GlobalTemperature,
		TotalFields:       len(s.Fields),
		Capacity:          Capacity(s, r),
		TechRank:          s.NorwayTechRank,
		GamePhase:         s.GamePhase,
	}
	intensity := 0.0
	for _, f := range s.Fields {
		switch f.Status {
		case fields.StatusActive:
			st.Active++
			intensity += f.Intensity
		case fields.StatusClosed:
			st.Closed++
			st.EmissionsReduced += f.TotalLifetimeEmissions
		}
	}
	if st.TotalFields > 0 {
		st.CompletionPercent = float64(st.Closed) / float64(st.TotalFields) * 100
	}
	if st.Active > 0 {
		st.AverageIntensity = finite(intensity / float64(st.Active))
	}
	return st
}
