// Package game is the phase-out state machine: a GameState aggregate, a closed
// action union and the pure reducer that moves between them.
package game

import (
	"log"
	"maps"
	"slices"

	"phaseout.no/internal/sim/achievements"
	"phaseout.no/internal/sim/dataset"
	"phaseout.no/internal/sim/fields"
	"phaseout.no/internal/sim/projection"
)

type Phase string

const (
	PhaseLearning       Phase = "learning"
	PhaseAction         Phase = "action"
	PhaseCrisis         Phase = "crisis"
	PhaseVictory        Phase = "victory"
	PhaseDefeat         Phase = "defeat"
	PhasePartialSuccess Phase = "partial_success"
)

func (p Phase) Terminal() bool {
	return p == PhaseVictory || p == PhaseDefeat || p == PhasePartialSuccess
}

func (p Phase) Valid() bool {
	switch p {
	case PhaseLearning, PhaseAction, PhaseCrisis, PhaseVictory, PhaseDefeat, PhasePartialSuccess:
		return true
	}
	return false
}

// Bounds of a persistable game. The reducer never produces a state outside
// them, so every reachable state survives a save and reload.
const (
	MinYear         = 2020
	MaxYear         = 2050
	MaxBudget       = 100000
	MaxTutorialStep = 100
	MaxFactLength   = 100
	MaxShownFacts   = 500
	MaxChoiceLog    = 1000
	MaxChoiceText   = 500
	MaxScore        = 10_000_000
	MaxCounter      = 1_000_000
	MaxCapacity     = 100

	MaxClimateDamage = 100_000_000
	MaxInvestment    = 1_000_000

	MinTemperature = 1.0
	MaxTemperature = 5.0
)

type View string

const (
	ViewMap          View = "map"
	ViewDashboard    View = "dashboard"
	ViewInvestments  View = "investments"
	ViewAchievements View = "achievements"
	ViewData         View = "data"
)

func (v View) Valid() bool {
	switch v {
	case ViewMap, ViewDashboard, ViewInvestments, ViewAchievements, ViewData:
		return true
	}
	return false
}

// Choice is one entry of the player's decision log.
type Choice struct {
	Year   int     `json:"year"`
	Kind   string  `json:"kind"`
	Target string  `json:"target,omitempty"`
	Amount float64 `json:"amount,omitempty"`
	Text   string  `json:"text"`
}

const (
	ChoicePhaseOut    = "phase_out"
	ChoiceBatch       = "batch_phase_out"
	ChoiceInvest      = "invest"
	ChoiceAdvanceYear = "advance_year"
)

type State struct {
	Fields []fields.Field `json:"gameFields"`

	Budget            float64 `json:"budget"`
	Score             int     `json:"score"`
	Year              int     `json:"year"`
	GlobalTemperature float64 `json:"globalTemperature"`

	// Shutdowns maps a field name to the year it was scheduled closed.
	Shutdowns   map[string]int       `json:"shutdowns"`
	Investments map[Category]float64 `json:"investments"`

	NorwayTechRank      float64 `json:"norwayTechRank"`
	ForeignDependency   float64 `json:"foreignDependency"`
	ClimateDamage       float64 `json:"climateDamage"`
	SustainabilityScore float64 `json:"sustainabilityScore"`
	SaturationLevel     float64 `json:"saturationLevel"`

	Achievements []achievements.ID `json:"achievements"`

	SelectedFields         []string `json:"selectedFields"`
	MultiPhaseOutMode      bool     `json:"multiPhaseOutMode"`
	YearlyPhaseOutCapacity int      `json:"yearlyPhaseOutCapacity"`
	// PendingDiscount is a one-shot cost multiplier in (0,1); 0 means none.
	PendingDiscount float64 `json:"pendingDiscount,omitempty"`

	GamePhase        Phase    `json:"gamePhase"`
	PlayerChoices    []Choice `json:"playerChoices"`
	GoodChoiceStreak int      `json:"goodChoiceStreak"`
	BadChoiceCount   int      `json:"badChoiceCount"`

	DataLayerUnlocked bool     `json:"dataLayerUnlocked"`
	TutorialStep      int      `json:"tutorialStep"`
	ShownFacts        []string `json:"shownFacts"`
	CurrentView       View     `json:"currentView"`

	SelectedField        string          `json:"selectedField,omitempty"`
	ShowFieldModal       bool            `json:"showFieldModal"`
	ShowAchievementModal bool            `json:"showAchievementModal"`
	NewAchievement       achievements.ID `json:"newAchievement,omitempty"`
	ShowBudgetWarning    bool            `json:"showBudgetWarning"`
	ShowGameOverModal    bool            `json:"showGameOverModal"`
}

// Clone returns a deep copy. Field emission slices are shared; nothing
// mutates them in place.
func (s State) Clone() State {
	out := s
	out.Fields = slices.Clone(s.Fields)
	out.Shutdowns = maps.Clone(s.Shutdowns)
	out.Investments = maps.Clone(s.Investments)
	out.Achievements = slices.Clone(s.Achievements)
	out.SelectedFields = slices.Clone(s.SelectedFields)
	out.PlayerChoices = slices.Clone(s.PlayerChoices)
	out.ShownFacts = slices.Clone(s.ShownFacts)
	if out.Shutdowns == nil {
		out.Shutdowns = map[string]int{}
	}
	if out.Investments == nil {
		out.Investments = map[Category]float64{}
	}
	return out
}

func (s State) fieldIndex(name string) int {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// FieldByName looks a field up by its unique name.
func (s State) FieldByName(name string) (fields.Field, bool) {
	if i := s.fieldIndex(name); i >= 0 {
		return s.Fields[i], true
	}
	return fields.Field{}, false
}

func (s State) PhasedOut() int {
	n := 0
	for _, f := range s.Fields {
		if f.Status == fields.StatusClosed {
			n++
		}
	}
	return n
}

func (s State) isSelected(name string) bool {
	return slices.Contains(s.SelectedFields, name)
}

// Scenario is the immutable world a game is played in: the balance rules,
// the extended dataset and the fields derived from it once.
type Scenario struct {
	Rules    Rules
	Extended dataset.Series
	Coords   dataset.Coordinates
	Fields   []fields.Field
}

// NewScenario projects the series and derives one field per series key, in
// name order. Fields without coordinates are logged.
func NewScenario(series dataset.Series, coords dataset.Coordinates, rules Rules, logger *log.Logger) Scenario {
	if logger == nil {
		logger = log.Default()
	}
	ext := projection.Project(series)
	names := ext.Names()
	fs := make([]fields.Field, 0, len(names))
	for _, name := range names {
		f := fields.Create(name, ext[name], coords)
		if f.ApproxLocation {
			logger.Printf("field %q has no coordinates; using approximate location", name)
		}
		fs = append(fs, f)
	}
	return Scenario{Rules: rules, Extended: ext, Coords: coords, Fields: fs}
}

// Fresh returns a brand-new game.
func (sc Scenario) Fresh() State {
	r := sc.Rules
	s := State{
		Fields:            append(make([]fields.Field, 0, len(sc.Fields)), sc.Fields...),
		Budget:            r.StartingBudget,
		Year:              r.StartYear,
		GlobalTemperature: r.StartingTemperature,
		Shutdowns:         map[string]int{},
		Investments:       map[Category]float64{},
		ForeignDependency: r.StartingForeignDependency,
		Achievements:      []achievements.ID{},
		SelectedFields:    []string{},
		GamePhase:         PhaseLearning,
		PlayerChoices:     []Choice{},
		ShownFacts:        []string{},
		CurrentView:       ViewMap,
	}
	for _, c := range Categories() {
		s.Investments[c] = 0
	}
	s.YearlyPhaseOutCapacity = Capacity(s, r)
	return s
}

// Schedule exposes the shutdown map in the form the projection aggregates use.
func (s State) Schedule() projection.Schedule {
	out := make(projection.Schedule, len(s.Shutdowns))
	for k, v := range s.Shutdowns {
		out[k] = v
	}
	return out
}
