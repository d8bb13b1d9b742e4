package projection

import (
	"sort"

	"phaseout.no/internal/sim/dataset"
)

// Schedule maps field name -> the last year the field produces. Fields not in
// the schedule are never shut down within the horizon.
type Schedule map[string]int

func (s Schedule) ShutdownYear(field string) int {
	if y, ok := s[field]; ok {
		return y
	}
	return HorizonYear
}

// YearTotals are per-year sums across all fields still producing that year.
type YearTotals struct {
	Year              int     `json:"year"`
	Oil               float64 `json:"oil"`
	Gas               float64 `json:"gas"`
	Emission          float64 `json:"emission"`
	EmissionIntensity float64 `json:"emissionIntensity"`
	// Intensity is derived from the sums (kg CO2e per boe).
	Intensity float64 `json:"intensity"`
}

// Unit conversions.
const (
	BarrelsPerSm3     = 6.29
	MMBtuPerSm3       = 0.0353
	MMBtuPerBoe       = 5.8
	NOKPerUSD         = 10.0
	ReferenceOilPrice = 80.0
	ReferenceGasPrice = 50.0
)

// Prices are in USD per barrel of oil equivalent.
type Prices struct {
	Oil float64 `json:"oil"`
	Gas float64 `json:"gas"`
}

var ReferencePrices = Prices{Oil: ReferenceOilPrice, Gas: ReferenceGasPrice}

// YearIncome is in billion NOK.
type YearIncome struct {
	Year  int     `json:"year"`
	Oil   float64 `json:"oil"`
	Gas   float64 `json:"gas"`
	Total float64 `json:"total"`
}

func years(s dataset.Series) []int {
	seen := map[int]struct{}{}
	for _, ys := range s {
		for y := range ys {
			seen[y] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

func add(dst *float64, v *float64) {
	if v != nil {
		*dst += finite(*v)
	}
}

// Aggregate sums every fact across fields for each year, skipping years after
// a field's scheduled shutdown.
func Aggregate(s dataset.Series, sched Schedule) []YearTotals {
	names := s.Names()
	out := make([]YearTotals, 0, HorizonYear-2000)
	for _, y := range years(s) {
		var t YearTotals
		t.Year = y
		for _, name := range names {
			if y > sched.ShutdownYear(name) {
				continue
			}
			f, ok := s[name][y]
			if !ok {
				continue
			}
			add(&t.Oil, f.ProductionOil)
			add(&t.Gas, f.ProductionGas)
			add(&t.Emission, f.Emission)
			add(&t.EmissionIntensity, f.EmissionIntensity)
		}
		t.Intensity = round2(intensity(t.Emission, t.Oil+t.Gas))
		t.Oil = round2(t.Oil)
		t.Gas = round2(t.Gas)
		t.Emission = round2(t.Emission)
		t.EmissionIntensity = round2(t.EmissionIntensity)
		out = append(out, t)
	}
	return out
}

// intensity converts kt CO2e and million Sm3 o.e. to kg per boe.
func intensity(emissionKt, productionMSm3 float64) float64 {
	if productionMSm3 <= 0 {
		return 0
	}
	return finite(emissionKt / (productionMSm3 * BarrelsPerSm3))
}

// Income prices the scheduled production. With historicalOnly, years up to
// LastHistoricalYear use ReferencePrices regardless of p.
func Income(s dataset.Series, p Prices, sched Schedule, historicalOnly bool) []YearIncome {
	totals := Aggregate(s, sched)
	out := make([]YearIncome, 0, len(totals))
	for _, t := range totals {
		price := p
		if historicalOnly && t.Year <= LastHistoricalYear {
			price = ReferencePrices
		}
		oilNOK := oilIncome(t.Oil, price.Oil)
		gasNOK := gasIncome(t.Gas, price.Gas)
		out = append(out, YearIncome{
			Year:  t.Year,
			Oil:   round2(oilNOK),
			Gas:   round2(gasNOK),
			Total: round2(oilNOK + gasNOK),
		})
	}
	return out
}

// oilIncome: million Sm3 -> barrels -> USD -> billion NOK.
func oilIncome(mSm3, usdPerBoe float64) float64 {
	barrels := mSm3 * 1e6 * BarrelsPerSm3
	return finite(barrels * usdPerBoe * NOKPerUSD / 1e9)
}

// gasIncome: billion Sm3 -> Sm3 -> MMBtu -> boe -> USD -> billion NOK.
func gasIncome(gSm3, usdPerBoe float64) float64 {
	boe := gSm3 * 1e9 * MMBtuPerSm3 / MMBtuPerBoe
	return finite(boe * usdPerBoe * NOKPerUSD / 1e9)
}

// Avoided is the total emission (kt) avoided by sched compared with letting
// every field produce to the horizon.
func Avoided(s dataset.Series, sched Schedule) float64 {
	base := Aggregate(s, nil)
	withSched := Aggregate(s, sched)
	total := 0.0
	for i := range base {
		total += base[i].Emission - withSched[i].Emission
	}
	return round2(total)
}
