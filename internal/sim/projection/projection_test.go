package projection

import (
	"math"
	"testing"

	"phaseout.no/internal/sim/dataset"
)

func fiveYearOil(vals ...float64) dataset.YearSeries {
	ys := dataset.YearSeries{}
	for i, v := range vals {
		ys[2018+i] = dataset.Facts{ProductionOil: dataset.Float(v)}
	}
	return ys
}

func TestProject_DeclineFromFiveYearAverage(t *testing.T) {
	s := dataset.Series{"A": fiveYearOil(10, 12, 8, 10, 10)}
	ext := Project(s)

	const avg = 10.0
	for n := 0; n <= HorizonYear-StartYear; n++ {
		f, ok := ext["A"][StartYear+n]
		if !ok || f.ProductionOil == nil {
			t.Fatalf("missing projection for %d", StartYear+n)
		}
		want := avg * math.Pow(0.9, float64(n))
		if want < SnapThreshold {
			want = 0
		}
		if math.Abs(*f.ProductionOil-want) > 0.005 {
			t.Fatalf("year %d: got %.4f want %.4f", StartYear+n, *f.ProductionOil, want)
		}
		if f.ProductionGas != nil {
			t.Fatalf("gas must not be fabricated for an oil-only field")
		}
	}
	if _, ok := s["A"][StartYear]; ok {
		t.Fatalf("Project mutated its input")
	}
}

func TestProject_AnchorUsesOnlyMostRecentFiveYears(t *testing.T) {
	ys := fiveYearOil(100, 1, 1, 1, 1, 1)
	v, ok := Anchor(ys, true)
	if !ok {
		t.Fatalf("expected active")
	}
	if v != 1 {
		t.Fatalf("anchor: got %v want 1", v)
	}
}

func TestProject_SkipsUndefinedYearsInAverage(t *testing.T) {
	ys := dataset.YearSeries{
		2020: {ProductionGas: dataset.Float(4)},
		2021: {Emission: dataset.Float(10)},
		2022: {ProductionGas: dataset.Float(2)},
	}
	v, ok := Anchor(ys, false)
	if !ok || v != 3 {
		t.Fatalf("anchor: got %v ok=%v", v, ok)
	}
}

func TestProject_InactiveResourceNotProjected(t *testing.T) {
	s := dataset.Series{
		"Stopped": {
			2020: {ProductionOil: dataset.Float(3), ProductionGas: dataset.Float(1)},
			2022: {ProductionGas: dataset.Float(1)},
		},
	}
	ext := Project(s)
	f := ext["Stopped"][StartYear]
	if f.ProductionOil != nil {
		t.Fatalf("oil stopped before latest year but got projected %v", *f.ProductionOil)
	}
	if f.ProductionGas == nil || *f.ProductionGas != 1 {
		t.Fatalf("gas should be projected from anchor 1")
	}
}

func TestProject_DoesNotOverwriteRecordedYears(t *testing.T) {
	s := dataset.Series{
		"A": {
			2022: {ProductionOil: dataset.Float(5)},
			2024: {ProductionOil: dataset.Float(42)},
		},
	}
	ext := Project(s)
	if got := *ext["A"][2024].ProductionOil; got != 42 {
		t.Fatalf("recorded 2024 overwritten: %v", got)
	}
}

func TestDecay_SnapsToZero(t *testing.T) {
	if got := Decay(0.011, 1); got != 0 {
		t.Fatalf("0.011*0.9=0.0099 should snap to 0, got %v", got)
	}
	if got := Decay(0.02, 0); got != 0.02 {
		t.Fatalf("n=0 should keep value, got %v", got)
	}
	if got := Decay(math.Inf(1), 3); got != 0 {
		t.Fatalf("non-finite should become 0, got %v", got)
	}
}

func TestAggregate_RespectsSchedule(t *testing.T) {
	s := dataset.Series{
		"A": {2030: {ProductionOil: dataset.Float(1), Emission: dataset.Float(10)}, 2031: {ProductionOil: dataset.Float(1), Emission: dataset.Float(10)}},
		"B": {2030: {ProductionGas: dataset.Float(2), Emission: dataset.Float(5)}, 2031: {ProductionGas: dataset.Float(2), Emission: dataset.Float(5)}},
	}
	totals := Aggregate(s, Schedule{"A": 2030})
	if len(totals) != 2 {
		t.Fatalf("years: %d", len(totals))
	}
	if totals[0].Oil != 1 || totals[0].Emission != 15 {
		t.Fatalf("2030 (shutdown year is inclusive): %+v", totals[0])
	}
	if totals[1].Oil != 0 || totals[1].Gas != 2 || totals[1].Emission != 5 {
		t.Fatalf("2031 should exclude A: %+v", totals[1])
	}
}

func TestAggregate_RoundsToTwoDecimals(t *testing.T) {
	s := dataset.Series{
		"A": {2020: {ProductionOil: dataset.Float(1.23456), Emission: dataset.Float(math.NaN())}},
	}
	got := Aggregate(s, nil)[0]
	if got.Oil != 1.23 {
		t.Fatalf("oil: %v", got.Oil)
	}
	if got.Emission != 0 {
		t.Fatalf("NaN emission should count as 0, got %v", got.Emission)
	}
}

func TestIncome_HistoricalReferencePrices(t *testing.T) {
	s := dataset.Series{
		"A": {
			2022: {ProductionOil: dataset.Float(1)},
			2023: {ProductionOil: dataset.Float(1)},
		},
	}
	live := Prices{Oil: 100, Gas: 0}
	inc := Income(s, live, nil, true)
	// 1 MSm3 = 6.29e6 bbl; *80 USD *10 NOK / 1e9 = 5.032 bn NOK.
	if inc[0].Year != 2022 || inc[0].Oil != 5.03 {
		t.Fatalf("2022 should use reference price: %+v", inc[0])
	}
	if inc[1].Oil != 6.29 {
		t.Fatalf("2023 should use live price: %+v", inc[1])
	}

	all := Income(s, live, nil, false)
	if all[0].Oil != 6.29 {
		t.Fatalf("without historical mode 2022 uses live price: %+v", all[0])
	}
}

func TestIncome_GasConversion(t *testing.T) {
	s := dataset.Series{"G": {2030: {ProductionGas: dataset.Float(1)}}}
	inc := Income(s, Prices{Gas: 58}, nil, false)
	// 1e9 Sm3 * 0.0353 / 5.8 boe * 58 USD * 10 / 1e9 = 3.53
	if inc[0].Gas != 3.53 || inc[0].Total != 3.53 {
		t.Fatalf("gas income: %+v", inc[0])
	}
}

func TestAvoided(t *testing.T) {
	s := dataset.Series{
		"A": {2030: {Emission: dataset.Float(10)}, 2031: {Emission: dataset.Float(10)}, 2032: {Emission: dataset.Float(10)}},
	}
	if got := Avoided(s, Schedule{"A": 2030}); got != 20 {
		t.Fatalf("avoided: %v", got)
	}
}
