package hints

import (
	"testing"

	"phaseout.no/internal/protocol"
	"phaseout.no/internal/sim/fields"
	"phaseout.no/internal/sim/game"
)

func scenario() game.Scenario {
	mk := func(name string, cost float64) fields.Field {
		return fields.Field{Name: name, Status: fields.StatusActive, Production: 1, Emissions: []float64{1}, PhaseOutCost: cost}
	}
	return game.Scenario{
		Rules:  game.DefaultRules(),
		Fields: []fields.Field{mk("Johan Sverdrup", 100), mk("Snorre", 50), mk("Statfjord", 20000)},
	}
}

func TestNearest(t *testing.T) {
	cands := []string{"Johan Sverdrup", "Snorre", "Statfjord", "Troll"}
	cases := map[string]string{
		"snore":     "Snorre",
		"statfjord": "Statfjord",
		"Trol":      "Troll",
		"johan":     "Johan Sverdrup",
		"Ekofisk":   "",
		"":          "",
	}
	for in, want := range cases {
		if got := Nearest(in, cands); got != want {
			t.Fatalf("Nearest(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecode(t *testing.T) {
	s := scenario().Fresh()

	if a, p := Decode([]byte(`{"type":"PHASE_OUT_FIELD","field":"Snorre"}`), s); p != nil || a.Kind() != game.KindPhaseOutField {
		t.Fatalf("valid action rejected: %v", p)
	}

	_, p := Decode([]byte(`{"type":"PHASE_OUT_FEILD","field":"Snorre"}`), s)
	if p == nil || p.Code != protocol.ErrUnknownAction || p.Suggestion != "PHASE_OUT_FIELD" {
		t.Fatalf("unknown type: %+v", p)
	}

	_, p = Decode([]byte(`{"type":"CLICK_FIELD","field":"Snore"}`), s)
	if p == nil || p.Code != protocol.ErrInvalidTarget || p.Suggestion != "Snorre" {
		t.Fatalf("unknown field: %+v", p)
	}

	_, p = Decode([]byte(`{"type":"MAKE_INVESTMENT","category":"wind_powr","amount":5}`), s)
	if p == nil || p.Code != protocol.ErrInvalidTarget || p.Suggestion != "wind_power" {
		t.Fatalf("unknown category: %+v", p)
	}

	_, p = Decode([]byte(`{"type":"MAKE_INVESTMENT","amount":"lots"}`), s)
	if p == nil || p.Code != protocol.ErrBadRequest {
		t.Fatalf("bad payload: %+v", p)
	}
}

func TestExplain(t *testing.T) {
	sc := scenario()
	r := sc.Rules
	s := sc.Fresh()

	if p := Explain(s, game.PhaseOutField{Field: "Statfjord"}, r); p.Code != protocol.ErrNoResource {
		t.Fatalf("expensive field: %+v", p)
	}
	closed := game.Reduce(s, game.PhaseOutField{Field: "Snorre"}, sc)
	if p := Explain(closed, game.PhaseOutField{Field: "Snorre"}, r); p.Code != protocol.ErrConflict {
		t.Fatalf("closed field: %+v", p)
	}

	full := s.Clone()
	full.SelectedFields = []string{"a", "b", "c"}
	if p := Explain(full, game.SelectFieldForMulti{Field: "Snorre"}, r); p.Code != protocol.ErrCapacity {
		t.Fatalf("capacity: %+v", p)
	}

	last := s.Clone()
	last.Year = game.MaxYear
	last.GamePhase = game.PhaseDefeat
	if p := Explain(last, game.AdvanceYear{}, r); p.Code != protocol.ErrGameOver {
		t.Fatalf("calendar end: %+v", p)
	}
	capped := s.Clone()
	capped.Investments = map[game.Category]float64{game.Research: game.MaxInvestment}
	if p := Explain(capped, game.MakeInvestment{Category: game.Research, Amount: 10}, r); p.Code != protocol.ErrCapacity {
		t.Fatalf("investment cap: %+v", p)
	}
	if p := Explain(s, game.HandleEvent{}, r); p.Code != protocol.ErrNoEffect {
		t.Fatalf("no-op: %+v", p)
	}
}
