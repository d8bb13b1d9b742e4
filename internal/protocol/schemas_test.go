package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"phaseout.no/internal/protocol"
	"phaseout.no/internal/sim/game"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func asAny(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"dashboard",
	  "locale":"nb",
	  "capabilities":{"stats":true,"max_queue":8}
	}`), &hello)
	validate(compile(t, "hello.schema.json"), hello)

	digest := strings.Repeat("ab", 32)
	validate(compile(t, "welcome.schema.json"), asAny(t, protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "0b6f1d9e-1111-4b8e-9c1a-7a2c5f0e9d11",
		GameParams:      protocol.GameParams{StartYear: 2025, EndYear: 2040, StartingBudget: 15000, Fields: 80, MaxCapacity: 8},
		ActionTypes:     []string{"PHASE_OUT_FIELD"},
		Digest:          digest,
	}))

	validate(compile(t, "ack.schema.json"), asAny(t, protocol.AckMsg{
		Type: protocol.TypeAck, ProtocolVersion: protocol.Version, AckFor: "A1",
		Accepted: false, Code: protocol.ErrNoResource, Message: "budget too low",
	}))
	validate(compile(t, "error.schema.json"), asAny(t, protocol.NewError(protocol.ErrUnknownAction, "unknown")))

	var act any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACT",
	  "protocol_version":"1.0",
	  "id":"A1",
	  "action":{"type":"MAKE_INVESTMENT","category":"wind_power","amount":250}
	}`), &act)
	validate(compile(t, "act.schema.json"), act)

	sc := game.Scenario{Rules: game.DefaultRules()}
	raw, _ := json.Marshal(sc.Fresh())
	validate(compile(t, "state.schema.json"), asAny(t, protocol.StateMsg{
		Type: protocol.TypeState, ProtocolVersion: protocol.Version, Seq: 3,
		Digest: game.Digest(sc.Fresh()), State: raw,
	}))
}

func TestSchemas_ActionCodecMatchesSchema(t *testing.T) {
	s := compile(t, "action.schema.json")
	samples := []game.Action{
		game.PhaseOutField{Field: "Troll"},
		game.PhaseOutSelectedFields{},
		game.ToggleMultiSelect{},
		game.SelectFieldForMulti{Field: "Troll"},
		game.DeselectFieldForMulti{Field: "Troll"},
		game.ClearSelectedFields{},
		game.AdvanceYear{},
		game.MakeInvestment{Category: game.Hydrogen, Amount: 10},
		game.RestartGame{},
		game.ClickField{Field: "Troll"},
		game.CloseFieldModal{},
		game.DismissBudgetWarning{},
		game.DismissAchievement{},
		game.CloseGameOver{},
		game.SetView{View: game.ViewDashboard},
		game.SetTutorialStep{Step: 1},
		game.MarkFactShown{Fact: "sverdrup"},
		game.SetDataLayer{Unlocked: true},
		game.HandleEvent{},
	}
	if len(samples) != len(game.Kinds()) {
		t.Fatalf("samples cover %d of %d kinds", len(samples), len(game.Kinds()))
	}
	for _, a := range samples {
		b, err := game.MarshalAction(a)
		if err != nil {
			t.Fatalf("%s: %v", a.Kind(), err)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatal(err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("%s: %v", a.Kind(), err)
		}
	}

	var bad any
	_ = json.Unmarshal([]byte(`{"type":"PHASE_OUT_FIELD"}`), &bad)
	if err := s.Validate(bad); err == nil {
		t.Fatalf("PHASE_OUT_FIELD without field should fail")
	}
}
