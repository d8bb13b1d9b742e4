package dataset

import "testing"

func TestEmbedded_LoadsFieldsAndCoordinates(t *testing.T) {
	s, err := Embedded()
	if err != nil {
		t.Fatalf("Embedded: %v", err)
	}
	if len(s) < 20 {
		t.Fatalf("expected at least 20 fields, got %d", len(s))
	}
	ys, ok := s["Johan Sverdrup"]
	if !ok {
		t.Fatalf("missing Johan Sverdrup")
	}
	latest, ok := ys.LatestYear()
	if !ok || latest != 2022 {
		t.Fatalf("latest year: got %d ok=%v", latest, ok)
	}
	if ys[2022].ProductionOil == nil {
		t.Fatalf("expected oil production in 2022")
	}

	coords, err := EmbeddedCoordinates()
	if err != nil {
		t.Fatalf("EmbeddedCoordinates: %v", err)
	}
	if _, ok := coords["Troll"]; !ok {
		t.Fatalf("missing Troll coordinates")
	}
	if _, ok := coords["Yme"]; ok {
		t.Fatalf("Yme is expected to have no coordinates")
	}
}

func TestNames_Sorted(t *testing.T) {
	s := Series{"b": {}, "a": {}, "c": {}}
	got := s.Names()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("names: %v", got)
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := Series{"A": {2020: {ProductionOil: Float(1)}}}
	c := s.Clone()
	*c["A"][2020].ProductionOil = 5
	if *s["A"][2020].ProductionOil != 1 {
		t.Fatalf("clone shares pointers with source")
	}
}

func TestFromTable_CompactsRows(t *testing.T) {
	rows := [][]any{
		{"Felt", "År", "GWh", "Olje", "Gass", "", "Utslipp", "", "Intensitet"},
		{"", "", "", "MSm3", "GSm3", "", "kt", "", "kg/boe"},
		{"Alpha", 2020.0, 10.0, 1.5, 0.0, nil, 120.0, nil, 8.1},
		{"Alpha", 2021.0, 10.0, "1,25", nil, nil, 110.0, nil, 0},
		{"Beta", "2021", nil, nil, 3.0, nil, nil, nil, nil},
		{"", 2021.0, nil, 1.0},
		{"Gamma", 2019.0, nil, 0, 0, nil, 0, nil, 0},
	}
	s := FromTable(rows)

	a := s["Alpha"]
	if len(a) != 2 {
		t.Fatalf("Alpha years: %v", a.Years())
	}
	if a[2020].ProductionGas != nil {
		t.Fatalf("zero gas should be dropped")
	}
	if a[2021].ProductionOil == nil || *a[2021].ProductionOil != 1.25 {
		t.Fatalf("comma decimal not parsed: %+v", a[2021])
	}
	if a[2021].EmissionIntensity != nil {
		t.Fatalf("zero intensity should be dropped")
	}
	if b := s["Beta"][2021]; b.ProductionGas == nil || *b.ProductionGas != 3 {
		t.Fatalf("Beta gas: %+v", b)
	}
	if g, ok := s["Gamma"]; !ok || len(g) != 0 {
		t.Fatalf("Gamma should exist with no years: %+v", g)
	}
	if _, ok := s[""]; ok {
		t.Fatalf("unnamed row should be skipped")
	}
}

func TestDecode_IntegerYearKeys(t *testing.T) {
	s, err := Decode([]byte(`{"X":{"2019":{"productionGas":2.5},"2021":{"emission":40}},"Y":null}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	years := s["X"].Years()
	if len(years) != 2 || years[0] != 2019 || years[1] != 2021 {
		t.Fatalf("years: %v", years)
	}
	if s["Y"] == nil {
		t.Fatalf("null series should decode to empty map")
	}
}
