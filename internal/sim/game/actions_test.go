package game

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestActionCodec_RoundTrip(t *testing.T) {
	acts := []Action{
		PhaseOutField{Field: "Johan Sverdrup"},
		PhaseOutSelectedFields{},
		MakeInvestment{Category: Hydrogen, Amount: 12.5},
		SetView{View: ViewData},
		HandleEvent{},
	}
	for _, a := range acts {
		raw, err := MarshalAction(a)
		if err != nil {
			t.Fatalf("marshal %T: %v", a, err)
		}
		if !strings.Contains(string(raw), `"type":"`+string(a.Kind())+`"`) {
			t.Fatalf("missing type tag: %s", raw)
		}
		got, err := UnmarshalAction(raw)
		if err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if !reflect.DeepEqual(got, a) {
			t.Fatalf("round trip: got %#v want %#v", got, a)
		}
	}
}

func TestUnmarshalAction_Errors(t *testing.T) {
	if _, err := UnmarshalAction([]byte(`{"type":"LOAD_GAME_STATE"}`)); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if _, err := UnmarshalAction([]byte(`{"type":"MAKE_INVESTMENT","amount":"lots"}`)); err == nil {
		t.Fatalf("expected a payload error")
	}
	if _, err := UnmarshalAction([]byte(`not json`)); err == nil {
		t.Fatalf("expected a decode error")
	}
}

func TestKinds_AllDecodable(t *testing.T) {
	for _, k := range Kinds() {
		if _, ok := decoders[k]; !ok {
			t.Fatalf("no decoder for %s", k)
		}
	}
	if len(Kinds()) != len(decoders) {
		t.Fatalf("Kinds and decoders disagree: %d vs %d", len(Kinds()), len(decoders))
	}
}
