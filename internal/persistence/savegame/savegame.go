// Package savegame converts a game into its persisted blob and back. The blob
// is lossy: field production and emissions are always re-derived on load.
package savegame

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"phaseout.no/internal/sim/achievements"
	"phaseout.no/internal/sim/fields"
	"phaseout.no/internal/sim/game"
)

const Version = 1

type FieldRecord struct {
	Name         string        `json:"name"`
	Status       fields.Status `json:"status"`
	PhaseOutCost float64       `json:"phaseOutCost,omitempty"`
	Production   float64       `json:"production,omitempty"`
}

type SaveData struct {
	Version  int    `json:"version"`
	SavedAt  string `json:"savedAt"`
	Fallback bool   `json:"fallback,omitempty"`

	GameFields []FieldRecord `json:"gameFields"`

	Budget       float64                   `json:"budget"`
	Score        int                       `json:"score"`
	Year         int                       `json:"year"`
	Achievements []achievements.ID         `json:"achievements"`
	Shutdowns    map[string]int            `json:"shutdowns"`
	Investments  map[game.Category]float64 `json:"investments,omitempty"`

	GlobalTemperature   *float64 `json:"globalTemperature,omitempty"`
	NorwayTechRank      *float64 `json:"norwayTechRank,omitempty"`
	ForeignDependency   *float64 `json:"foreignDependency,omitempty"`
	ClimateDamage       *float64 `json:"climateDamage,omitempty"`
	SustainabilityScore *float64 `json:"sustainabilityScore,omitempty"`
	SaturationLevel     *float64 `json:"saturationLevel,omitempty"`

	PlayerChoices          []game.Choice `json:"playerChoices,omitempty"`
	DataLayerUnlocked      *bool         `json:"dataLayerUnlocked,omitempty"`
	GamePhase              game.Phase    `json:"gamePhase,omitempty"`
	TutorialStep           *int          `json:"tutorialStep,omitempty"`
	ShownFacts             []string      `json:"shownFacts,omitempty"`
	BadChoiceCount         *int          `json:"badChoiceCount,omitempty"`
	GoodChoiceStreak       *int          `json:"goodChoiceStreak,omitempty"`
	CurrentView            game.View     `json:"currentView,omitempty"`
	MultiPhaseOutMode      *bool         `json:"multiPhaseOutMode,omitempty"`
	YearlyPhaseOutCapacity *int          `json:"yearlyPhaseOutCapacity,omitempty"`

	SelectedFields []FieldRecord `json:"selectedFields,omitempty"`
}

func ptr[T any](v T) *T { return &v }

// Build extracts the full persisted projection of s.
func Build(s game.State, now time.Time) SaveData {
	d := SaveData{
		Version:      Version,
		SavedAt:      now.UTC().Format(time.RFC3339),
		GameFields:   make([]FieldRecord, 0, len(s.Fields)),
		Budget:       s.Budget,
		Score:        s.Score,
		Year:         s.Year,
		Achievements: nonNil(s.Achievements),
		Shutdowns:    s.Shutdowns,
		Investments:  s.Investments,

		GlobalTemperature:   ptr(s.GlobalTemperature),
		NorwayTechRank:      ptr(s.NorwayTechRank),
		ForeignDependency:   ptr(s.ForeignDependency),
		ClimateDamage:       ptr(s.ClimateDamage),
		SustainabilityScore: ptr(s.SustainabilityScore),
		SaturationLevel:     ptr(s.SaturationLevel),

		PlayerChoices:          nonNil(s.PlayerChoices),
		DataLayerUnlocked:      ptr(s.DataLayerUnlocked),
		GamePhase:              s.GamePhase,
		TutorialStep:           ptr(s.TutorialStep),
		ShownFacts:             nonNil(s.ShownFacts),
		BadChoiceCount:         ptr(s.BadChoiceCount),
		GoodChoiceStreak:       ptr(s.GoodChoiceStreak),
		CurrentView:            s.CurrentView,
		MultiPhaseOutMode:      ptr(s.MultiPhaseOutMode),
		YearlyPhaseOutCapacity: ptr(s.YearlyPhaseOutCapacity),
	}
	if d.Shutdowns == nil {
		d.Shutdowns = map[string]int{}
	}
	for _, f := range s.Fields {
		d.GameFields = append(d.GameFields, FieldRecord{
			Name:         f.Name,
			Status:       f.Status,
			PhaseOutCost: f.PhaseOutCost,
			Production:   f.Production,
		})
	}
	for _, name := range s.SelectedFields {
		if f, ok := s.FieldByName(name); ok {
			d.SelectedFields = append(d.SelectedFields, FieldRecord{Name: name, Status: f.Status})
		}
	}
	return d
}

// Encode serialises the full payload.
func Encode(s game.State, now time.Time) ([]byte, error) {
	b, err := json.Marshal(Build(s, now))
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	return b, nil
}

// EncodeFallback serialises the reduced payload used when a full write fails:
// closed field statuses, budget, score, year, achievements and shutdowns.
func EncodeFallback(s game.State, now time.Time) ([]byte, error) {
	d := SaveData{
		Version:      Version,
		SavedAt:      now.UTC().Format(time.RFC3339),
		Fallback:     true,
		GameFields:   []FieldRecord{},
		Budget:       s.Budget,
		Score:        s.Score,
		Year:         s.Year,
		Achievements: nonNil(s.Achievements),
		Shutdowns:    s.Shutdowns,
	}
	if d.Shutdowns == nil {
		d.Shutdowns = map[string]int{}
	}
	for _, f := range s.Fields {
		if f.Status != fields.StatusActive {
			d.GameFields = append(d.GameFields, FieldRecord{Name: f.Name, Status: f.Status})
		}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode fallback save: %w", err)
	}
	return b, nil
}

// MalformedError reports a blob that is not a JSON object at all.
type MalformedError struct{ Err error }

func (e *MalformedError) Error() string { return "malformed save: " + e.Err.Error() }
func (e *MalformedError) Unwrap() error { return e.Err }

// Decode rebuilds a game from raw on top of fresh. fresh supplies the field
// set and every default; raw only contributes statuses and the scalars that
// pass validation. The returned state is always usable. A non-nil error is a
// *MalformedError and means nothing from raw was used.
func Decode(raw []byte, fresh game.State) (game.State, error) {
	s := fresh.Clone()
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return s, &MalformedError{Err: err}
	}
	if obj == nil {
		return s, &MalformedError{Err: fmt.Errorf("not an object")}
	}

	overlayStatuses(&s, obj)

	get := func(key string, dst any) bool {
		v, ok := obj[key]
		if !ok || !valid(compiledKeys[key], v) {
			return false
		}
		return json.Unmarshal(v, dst) == nil
	}

	var f64 float64
	var n int
	var b bool
	if get("budget", &f64) {
		s.Budget = f64
	}
	if get("score", &n) {
		s.Score = n
	}
	if get("year", &n) {
		s.Year = n
	}
	if get("globalTemperature", &f64) {
		s.GlobalTemperature = f64
	}
	if get("norwayTechRank", &f64) {
		s.NorwayTechRank = f64
	}
	if get("foreignDependency", &f64) {
		s.ForeignDependency = f64
	}
	if get("climateDamage", &f64) {
		s.ClimateDamage = f64
	}
	if get("sustainabilityScore", &f64) {
		s.SustainabilityScore = f64
	}
	if get("saturationLevel", &f64) {
		s.SaturationLevel = f64
	}
	if get("tutorialStep", &n) {
		s.TutorialStep = n
	}
	if get("badChoiceCount", &n) {
		s.BadChoiceCount = n
	}
	if get("goodChoiceStreak", &n) {
		s.GoodChoiceStreak = n
	}
	if get("yearlyPhaseOutCapacity", &n) {
		s.YearlyPhaseOutCapacity = n
	}
	if get("dataLayerUnlocked", &b) {
		s.DataLayerUnlocked = b
	}
	if get("multiPhaseOutMode", &b) {
		s.MultiPhaseOutMode = b
	}
	var phase game.Phase
	if get("gamePhase", &phase) {
		s.GamePhase = phase
	}
	var view game.View
	if get("currentView", &view) {
		s.CurrentView = view
	}

	var ids []achievements.ID
	if get("achievements", &ids) {
		s.Achievements = []achievements.ID{}
		for _, id := range ids {
			if achievements.Known(id) && !slices.Contains(s.Achievements, id) {
				s.Achievements = append(s.Achievements, id)
			}
		}
	}
	s.ShownFacts = decodeFacts(s.ShownFacts, obj["shownFacts"])
	var choices []game.Choice
	if get("playerChoices", &choices) {
		s.PlayerChoices = nonNil(choices)
	}
	var inv map[string]float64
	if get("investments", &inv) {
		for k, v := range inv {
			if c := game.Category(k); c.Valid() {
				s.Investments[c] = v
			}
		}
	}
	var shut map[string]int
	if get("shutdowns", &shut) {
		for name, year := range shut {
			if _, ok := s.FieldByName(name); ok {
				s.Shutdowns[name] = year
			}
		}
	}

	s.SelectedFields = decodeSelection(s, obj["selectedFields"])
	return s, nil
}

// overlayStatuses closes every field the save marks closed, or that appears in
// the saved shutdowns even when its own record is missing or corrupt.
func overlayStatuses(s *game.State, obj map[string]json.RawMessage) {
	status := map[string]fields.Status{}
	var records []json.RawMessage
	if raw, ok := obj["gameFields"]; ok && json.Unmarshal(raw, &records) == nil {
		for _, r := range records {
			if !valid(compiledRecord, r) {
				continue
			}
			var rec FieldRecord
			if json.Unmarshal(r, &rec) == nil {
				status[rec.Name] = rec.Status
			}
		}
	}
	var shut map[string]json.RawMessage
	if raw, ok := obj["shutdowns"]; ok && json.Unmarshal(raw, &shut) == nil {
		for name := range shut {
			if len(name) > 0 && len(name) <= 50 {
				status[name] = fields.StatusClosed
			}
		}
	}
	for i, f := range s.Fields {
		switch status[f.Name] {
		case fields.StatusClosed:
			s.Fields[i] = f.Close()
		case fields.StatusTransitioning:
			s.Fields[i].Status = fields.StatusTransitioning
		}
	}
}

func decodeSelection(s game.State, raw json.RawMessage) []string {
	out := []string{}
	var records []json.RawMessage
	if raw == nil || json.Unmarshal(raw, &records) != nil {
		return out
	}
	for _, r := range records {
		if !valid(compiledRecord, r) {
			continue
		}
		var rec FieldRecord
		if json.Unmarshal(r, &rec) != nil || slices.Contains(out, rec.Name) {
			continue
		}
		if f, ok := s.FieldByName(rec.Name); ok && f.Active() {
			out = append(out, rec.Name)
		}
	}
	return out
}

// decodeFacts keeps every usable fact and drops the rest one by one, so a
// single bad entry does not cost the player the facts already seen. def is
// returned when raw is missing or not an array.
func decodeFacts(def []string, raw json.RawMessage) []string {
	var items []json.RawMessage
	if raw == nil || json.Unmarshal(raw, &items) != nil || items == nil {
		return def
	}
	out := []string{}
	for _, it := range items {
		var f string
		if json.Unmarshal(it, &f) != nil || f == "" || utf8.RuneCountInString(f) > game.MaxFactLength {
			continue
		}
		if len(out) >= game.MaxShownFacts {
			break
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func valid(schema *jsonschema.Schema, raw json.RawMessage) bool {
	if schema == nil {
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return false
	}
	return schema.Validate(v) == nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
