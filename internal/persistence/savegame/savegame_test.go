package savegame

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"phaseout.no/internal/persistence/kv"
	"phaseout.no/internal/sim/achievements"
	"phaseout.no/internal/sim/fields"
	"phaseout.no/internal/sim/game"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func scenario() game.Scenario {
	mk := func(name string, cost float64) fields.Field {
		return fields.Field{
			Name:                   name,
			Status:                 fields.StatusActive,
			Production:             2,
			Intensity:              8,
			Emissions:              []float64{1.5, 1.4},
			PhaseOutCost:           cost,
			YearlyRevenue:          3000,
			TotalLifetimeEmissions: 22.5,
			Workers:                240,
			TransitionPotential:    fields.PotentialWind,
		}
	}
	return game.Scenario{
		Rules:  game.DefaultRules(),
		Fields: []fields.Field{mk("Alvheim", 30), mk("Brage", 20), mk("Ekofisk", 60), mk("Troll", 90)},
	}
}

func played(sc game.Scenario) game.State {
	s := sc.Fresh()
	for _, a := range []game.Action{
		game.PhaseOutField{Field: "Brage"},
		game.MakeInvestment{Category: game.WindPower, Amount: 250},
		game.AdvanceYear{},
		game.ToggleMultiSelect{},
		game.SelectFieldForMulti{Field: "Troll"},
		game.MarkFactShown{Fact: "sverdrup"},
		game.SetView{View: game.ViewInvestments},
	} {
		s = game.Reduce(s, a, sc)
	}
	return s
}

func TestEncodeDecode_ReloadKeepsPersistedState(t *testing.T) {
	sc := scenario()
	s := played(sc)

	raw, err := Encode(s, testNow)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(raw, sc.Fresh())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if game.Digest(got) != game.Digest(s) {
		t.Fatalf("digest changed across reload")
	}
	for i := range s.Fields {
		if got.Fields[i].Status != s.Fields[i].Status {
			t.Fatalf("%s: status %s want %s", s.Fields[i].Name, got.Fields[i].Status, s.Fields[i].Status)
		}
	}
	if got.Budget != s.Budget || got.Year != s.Year || got.Score != s.Score {
		t.Fatalf("scalars: got %v/%d/%d want %v/%d/%d", got.Budget, got.Year, got.Score, s.Budget, s.Year, s.Score)
	}
	if !reflect.DeepEqual(got.Achievements, s.Achievements) || !reflect.DeepEqual(got.Shutdowns, s.Shutdowns) {
		t.Fatalf("achievements/shutdowns differ")
	}
	if !reflect.DeepEqual(got.Investments, s.Investments) {
		t.Fatalf("investments: %v vs %v", got.Investments, s.Investments)
	}
	if !reflect.DeepEqual(got.SelectedFields, []string{"Troll"}) || !got.MultiPhaseOutMode {
		t.Fatalf("selection: %v multi=%v", got.SelectedFields, got.MultiPhaseOutMode)
	}
	if got.CurrentView != game.ViewInvestments || len(got.PlayerChoices) != len(s.PlayerChoices) {
		t.Fatalf("view=%s choices=%d", got.CurrentView, len(got.PlayerChoices))
	}

	closed, _ := got.FieldByName("Brage")
	if closed.Production != 0 || closed.Emissions[0] != 0 {
		t.Fatalf("closed field should be re-derived then closed: %+v", closed)
	}
	open, _ := got.FieldByName("Troll")
	if open.Emissions[0] != 1.5 {
		t.Fatalf("active field should keep derived emissions: %+v", open)
	}
}

func TestEncode_OmitsTimeSeries(t *testing.T) {
	raw, err := Encode(played(scenario()), testNow)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte(`"emissions"`)) || bytes.Contains(raw, []byte(`"yearlyRevenue"`)) {
		t.Fatalf("time series leaked into the save: %s", raw)
	}
	if !bytes.Contains(raw, []byte(`"savedAt":"2026-03-01T12:00:00Z"`)) {
		t.Fatalf("missing timestamp: %s", raw)
	}
}

func TestDecode_OutOfRangeBudgetFallsBackToDefault(t *testing.T) {
	sc := scenario()
	raw := []byte(`{"budget":-50,"year":2031,"globalTemperature":9.5,"score":12}`)
	got, err := Decode(raw, sc.Fresh())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Budget != 15000 {
		t.Fatalf("budget: %v", got.Budget)
	}
	if got.GlobalTemperature != 1.3 {
		t.Fatalf("temperature: %v", got.GlobalTemperature)
	}
	if got.Year != 2031 || got.Score != 12 {
		t.Fatalf("valid keys should still apply: year=%d score=%d", got.Year, got.Score)
	}
}

func TestDecode_RejectsBadTypesPerKey(t *testing.T) {
	sc := scenario()
	long := strings.Repeat("x", 101)
	raw := []byte(`{
		"year": "2030",
		"tutorialStep": 2.5,
		"gamePhase": "winning",
		"achievements": ["first_steps", "` + long + `"],
		"shownFacts": ["a", "b"],
		"dataLayerUnlocked": true
	}`)
	got, err := Decode(raw, sc.Fresh())
	if err != nil {
		t.Fatal(err)
	}
	if got.Year != 2025 || got.TutorialStep != 0 || got.GamePhase != game.PhaseLearning {
		t.Fatalf("invalid scalars leaked: year=%d step=%d phase=%s", got.Year, got.TutorialStep, got.GamePhase)
	}
	if len(got.Achievements) != 0 {
		t.Fatalf("achievements with an over-long entry should be dropped: %v", got.Achievements)
	}
	if !reflect.DeepEqual(got.ShownFacts, []string{"a", "b"}) || !got.DataLayerUnlocked {
		t.Fatalf("valid keys lost: %v %v", got.ShownFacts, got.DataLayerUnlocked)
	}
}

func TestDecode_ShownFactsFilteredPerItem(t *testing.T) {
	long := strings.Repeat("x", game.MaxFactLength+1)
	raw := []byte(`{"shownFacts": ["sverdrup", 7, "", "` + long + `", "sverdrup", "johan castberg"]}`)
	got, err := Decode(raw, scenario().Fresh())
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"sverdrup", "johan castberg"}; !reflect.DeepEqual(got.ShownFacts, want) {
		t.Fatalf("facts: %q", got.ShownFacts)
	}

	got, _ = Decode([]byte(`{"shownFacts": "sverdrup"}`), scenario().Fresh())
	if len(got.ShownFacts) != 0 || got.ShownFacts == nil {
		t.Fatalf("non-array facts should fall back to the default: %#v", got.ShownFacts)
	}
}

// TestEncodeDecode_RandomPlayKeepsDigest reloads the game after every action
// of random play sessions and expects the same persisted projection back.
func TestEncodeDecode_RandomPlayKeepsDigest(t *testing.T) {
	sc := scenario()
	names := []string{"Alvheim", "Brage", "Ekofisk", "Troll", "Nowhere"}
	facts := []string{"sverdrup", "ø-" + strings.Repeat("ø", game.MaxFactLength-2), strings.Repeat("f", game.MaxFactLength+1), ""}
	views := []game.View{game.ViewMap, game.ViewDashboard, game.ViewInvestments, game.ViewAchievements, game.ViewData, "nowhere"}
	cats := game.Categories()
	rng := rand.New(rand.NewSource(11))

	for run := 0; run < 10; run++ {
		s := sc.Fresh()
		for step := 0; step < 150; step++ {
			name := names[rng.Intn(len(names))]
			var a game.Action
			switch rng.Intn(12) {
			case 0:
				a = game.PhaseOutField{Field: name}
			case 1:
				a = game.SelectFieldForMulti{Field: name}
			case 2:
				a = game.PhaseOutSelectedFields{}
			case 3:
				a = game.AdvanceYear{}
			case 4:
				a = game.MakeInvestment{Category: cats[rng.Intn(len(cats))], Amount: float64(rng.Intn(4000)) + rng.Float64()}
			case 5:
				a = game.ToggleMultiSelect{}
			case 6:
				a = game.ClickField{Field: name}
			case 7:
				a = game.SetTutorialStep{Step: rng.Intn(game.MaxTutorialStep+40) - 10}
			case 8:
				a = game.MarkFactShown{Fact: facts[rng.Intn(len(facts))]}
			case 9:
				a = game.MarkFactShown{Fact: fmt.Sprintf("fact %d", rng.Intn(50))}
			case 10:
				a = game.SetView{View: views[rng.Intn(len(views))]}
			default:
				a = game.SetDataLayer{Unlocked: rng.Intn(2) == 0}
			}
			s = game.Reduce(s, a, sc)

			raw, err := Encode(s, testNow)
			if err != nil {
				t.Fatalf("run %d step %d: encode: %v", run, step, err)
			}
			got, err := Decode(raw, sc.Fresh())
			if err != nil {
				t.Fatalf("run %d step %d: decode: %v", run, step, err)
			}
			if game.Digest(got) != game.Digest(s) {
				t.Fatalf("run %d step %d: reload after %T changed the game\n got %+v\nwant %+v", run, step, a, got, s)
			}
			for i, f := range s.Fields {
				if got.Fields[i].Status != f.Status {
					t.Fatalf("run %d step %d: %s reloaded as %s, want %s", run, step, f.Name, got.Fields[i].Status, f.Status)
				}
			}
		}
	}
}

func TestDecode_UnknownAndDuplicateAchievementsDropped(t *testing.T) {
	raw := []byte(`{"achievements":["first_steps","Første skritt","first_steps","too_late"]}`)
	got, _ := Decode(raw, scenario().Fresh())
	want := []achievements.ID{achievements.FirstSteps, achievements.TooLate}
	if !reflect.DeepEqual(got.Achievements, want) {
		t.Fatalf("achievements: %v", got.Achievements)
	}
}

func TestDecode_ShutdownImpliesClosed(t *testing.T) {
	raw := []byte(`{
		"gameFields": [{"name":"Alvheim","status":"closed"}, {"name":"Ekofisk","status":"bogus"}, 42],
		"shutdowns": {"Ekofisk": 2027, "Nowhere": 2030}
	}`)
	got, err := Decode(raw, scenario().Fresh())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Alvheim", "Ekofisk"} {
		if f, _ := got.FieldByName(name); f.Status != fields.StatusClosed {
			t.Fatalf("%s should be closed, got %s", name, f.Status)
		}
	}
	if f, _ := got.FieldByName("Troll"); f.Status != fields.StatusActive {
		t.Fatalf("Troll should stay active")
	}
	if _, ok := got.Shutdowns["Nowhere"]; ok {
		t.Fatalf("shutdown for an unknown field kept")
	}
	if got.Shutdowns["Ekofisk"] != 2027 {
		t.Fatalf("shutdowns: %v", got.Shutdowns)
	}
}

func TestDecode_Malformed(t *testing.T) {
	fresh := scenario().Fresh()
	for _, raw := range []string{`{not json`, `null`, `[1,2]`} {
		got, err := Decode([]byte(raw), fresh)
		var me *MalformedError
		if !errors.As(err, &me) {
			t.Fatalf("%s: expected MalformedError, got %v", raw, err)
		}
		if !reflect.DeepEqual(got, fresh) {
			t.Fatalf("%s: malformed save should yield fresh state", raw)
		}
	}
}

func TestEncodeFallback_ReducedPayload(t *testing.T) {
	sc := scenario()
	s := played(sc)
	raw, err := EncodeFallback(s, testNow)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["investments"]; ok {
		t.Fatalf("fallback should not carry investments")
	}
	got, err := Decode(raw, sc.Fresh())
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := got.FieldByName("Brage"); f.Status != fields.StatusClosed {
		t.Fatalf("fallback lost the closed status")
	}
	if got.Budget != s.Budget || got.Year != s.Year {
		t.Fatalf("fallback scalars: %v %d", got.Budget, got.Year)
	}
}

type flakyStore struct {
	*kv.Mem
	failAbove int
	failAll   bool
}

func (f *flakyStore) Set(ctx context.Context, key string, v []byte) error {
	if f.failAll || (f.failAbove > 0 && len(v) > f.failAbove) {
		return errors.New("quota exceeded")
	}
	return f.Mem.Set(ctx, key, v)
}

func TestSlot_SaveFallsBackThenLogs(t *testing.T) {
	sc := scenario()
	s := played(sc)
	full, _ := Encode(s, testNow)
	small, _ := EncodeFallback(s, testNow)
	if len(small) >= len(full) {
		t.Fatalf("fallback payload is not smaller")
	}

	var buf bytes.Buffer
	store := &flakyStore{Mem: kv.NewMem(), failAbove: len(small)}
	slot := &Slot{Store: store, Clock: fixedClock{testNow}, Logger: log.New(&buf, "", 0)}
	slot.Save(s)

	raw, err := store.Get(context.Background(), DefaultKey)
	if err != nil {
		t.Fatalf("nothing stored: %v", err)
	}
	if !bytes.Contains(raw, []byte(`"fallback":true`)) {
		t.Fatalf("expected fallback payload, got %s", raw)
	}

	buf.Reset()
	store.failAll = true
	slot.Save(s)
	if !strings.Contains(buf.String(), "fallback payload failed") {
		t.Fatalf("double failure not logged: %q", buf.String())
	}
}

func TestSlot_LoadPaths(t *testing.T) {
	sc := scenario()
	fresh := sc.Fresh()
	store := kv.NewMem()
	slot := &Slot{Store: store, Key: "k", Clock: fixedClock{testNow}, Logger: log.New(&bytes.Buffer{}, "", 0)}

	if got := slot.Load(fresh); !reflect.DeepEqual(got, fresh) {
		t.Fatalf("missing key should yield fresh")
	}

	_ = store.Set(context.Background(), "k", []byte("{{{"))
	if got := slot.Load(fresh); !reflect.DeepEqual(got, fresh) {
		t.Fatalf("corrupt save should yield fresh")
	}
	if _, err := store.Get(context.Background(), "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("corrupt save should be removed: %v", err)
	}

	s := played(sc)
	slot.Save(s)
	if got := slot.Load(fresh); game.Digest(got) != game.Digest(s) {
		t.Fatalf("saved game not restored")
	}
	slot.Clear()
	if got := slot.Load(fresh); !reflect.DeepEqual(got, fresh) {
		t.Fatalf("cleared slot should yield fresh")
	}
}

type brokenStore struct {
	*kv.Mem
	err error
}

func (b *brokenStore) Get(context.Context, string) ([]byte, error) { return nil, b.err }

func TestSlot_LoadUnreadableValue(t *testing.T) {
	sc := scenario()
	fresh := sc.Fresh()
	ctx := context.Background()

	files, err := kv.OpenFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(files.Dir, hex.EncodeToString([]byte("k"))+".json.zst"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	slot := &Slot{Store: files, Key: "k", Clock: fixedClock{testNow}, Logger: log.New(&buf, "", 0)}
	if got := slot.Load(fresh); !reflect.DeepEqual(got, fresh) {
		t.Fatalf("unreadable save should yield fresh")
	}
	if _, err := files.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("unreadable save should be removed: %v", err)
	}
	if !strings.Contains(buf.String(), "clearing saved game") {
		t.Fatalf("removal not logged: %q", buf.String())
	}

	down := &brokenStore{Mem: kv.NewMem(), err: errors.New("database is locked")}
	_ = down.Mem.Set(ctx, "k", []byte(`{"year":2030}`))
	slot = &Slot{Store: down, Key: "k", Clock: fixedClock{testNow}, Logger: log.New(&bytes.Buffer{}, "", 0)}
	if got := slot.Load(fresh); !reflect.DeepEqual(got, fresh) {
		t.Fatalf("failing store should yield fresh")
	}
	if _, err := down.Mem.Get(ctx, "k"); err != nil {
		t.Fatalf("a store error that is not corruption must keep the save: %v", err)
	}
}

func TestSlot_WithEngine(t *testing.T) {
	sc := scenario()
	store := kv.NewMem()
	slot := &Slot{Store: store, Clock: fixedClock{testNow}, Logger: log.New(&bytes.Buffer{}, "", 0)}

	e := game.NewEngine(sc, game.EngineOptions{Persister: slot})
	e.Dispatch(game.PhaseOutField{Field: "Alvheim"})

	resumed := game.NewEngine(sc, game.EngineOptions{Persister: slot})
	if f, _ := resumed.State().FieldByName("Alvheim"); f.Status != fields.StatusClosed {
		t.Fatalf("engine did not resume the saved game")
	}
	resumed.Dispatch(game.RestartGame{})
	if _, err := store.Get(context.Background(), DefaultKey); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("restart should clear the save: %v", err)
	}
}
