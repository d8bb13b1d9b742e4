package actionlog

import (
	"bytes"
	"log"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"phaseout.no/internal/sim/fields"
	"phaseout.no/internal/sim/game"
)

func testScenario() game.Scenario {
	mk := func(name string, prod float64) fields.Field {
		return fields.Field{
			Name:          name,
			Status:        fields.StatusActive,
			Production:    prod,
			Emissions:     []float64{prod / 2},
			PhaseOutCost:  prod * 15,
			YearlyRevenue: prod * 5040,
		}
	}
	return game.Scenario{
		Rules:  game.DefaultRules(),
		Fields: []fields.Field{mk("Gina Krog", 3), mk("Gullfaks", 12), mk("Oseberg", 8)},
	}
}

func TestWriter_EngineLogReplays(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	sc := testScenario()
	e := game.NewEngine(sc, game.EngineOptions{ActionLog: w, Logger: log.New(&bytes.Buffer{}, "", 0)})

	e.Dispatch(game.PhaseOutField{Field: "Gina Krog"})
	e.Dispatch(game.MakeInvestment{Category: game.Research, Amount: 400})
	e.Dispatch(game.PhaseOutField{Field: "Nowhere"})
	e.Dispatch(game.AdvanceYear{})
	want := e.Dispatch(game.SetView{View: game.ViewData})
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := ReadDir(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("entries: %d", len(entries))
	}
	for i, en := range entries {
		if en.Seq != uint64(i+1) {
			t.Fatalf("entry %d has seq %d", i, en.Seq)
		}
	}
	if entries[0].Year != 2025 || !strings.Contains(string(entries[0].Action), `"PHASE_OUT_FIELD"`) {
		t.Fatalf("first entry: %+v", entries[0])
	}

	n, got, err := Verify(sc, sc.Fresh(), entries)
	if err != nil || n != 5 {
		t.Fatalf("verify: n=%d err=%v", n, err)
	}
	if game.Digest(got) != game.Digest(want) {
		t.Fatalf("replayed state differs from engine state")
	}

	entries[2].Digest = "00"
	if n, _, err := Verify(sc, sc.Fresh(), entries); err == nil || n != 2 {
		t.Fatalf("tampered log should fail at entry 2: n=%d err=%v", n, err)
	}
}

func TestWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	at := time.Date(2026, 5, 17, 9, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return at }

	if err := w.Append(1, 2025, []byte(`{"type":"ADVANCE_YEAR_MANUALLY"}`), "a"); err != nil {
		t.Fatal(err)
	}
	at = at.Add(2 * time.Minute)
	if err := w.Append(2, 2026, []byte(`{"type":"ADVANCE_YEAR_MANUALLY"}`), "b"); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	files, err := Files(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("files: %v", files)
	}
	if filepath.Base(files[0]) != "actions-2026-05-17-09.jsonl.zst" {
		t.Fatalf("unexpected name %s", files[0])
	}
	entries, err := ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[1].Digest != "b" || entries[1].At != "2026-05-17T10:01:00Z" {
		t.Fatalf("entries: %+v", entries)
	}
}

func TestWriter_ReopenAppends(t *testing.T) {
	dir := t.TempDir()
	fixed := func() time.Time { return time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC) }
	for i := 1; i <= 2; i++ {
		w := NewWriter(dir)
		w.now = fixed
		if err := w.Append(uint64(i), 2025, []byte(`{"type":"CLEAR_SELECTED_FIELDS"}`), "d"); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[1].Seq != 2 {
		t.Fatalf("entries after reopen: %+v", entries)
	}
}
