// Package dataset holds the per-field historical production and emission
// series the simulation is derived from.
package dataset

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

//go:embed data/historical.json data/coordinates.json
var embedded embed.FS

// Facts are the recorded values for one field in one year. A nil pointer means
// "no recorded data", never zero.
type Facts struct {
	ProductionOil     *float64 `json:"productionOil,omitempty"`
	ProductionGas     *float64 `json:"productionGas,omitempty"`
	Emission          *float64 `json:"emission,omitempty"`
	EmissionIntensity *float64 `json:"emissionIntensity,omitempty"`
}

func (f Facts) Empty() bool {
	return f.ProductionOil == nil && f.ProductionGas == nil && f.Emission == nil && f.EmissionIntensity == nil
}

func (f Facts) clone() Facts {
	return Facts{
		ProductionOil:     clonePtr(f.ProductionOil),
		ProductionGas:     clonePtr(f.ProductionGas),
		Emission:          clonePtr(f.Emission),
		EmissionIntensity: clonePtr(f.EmissionIntensity),
	}
}

// YearSeries maps year -> facts. Years are sparse.
type YearSeries map[int]Facts

// Series maps field name -> yearly facts (the historical dataset).
type Series map[string]YearSeries

// Coord is a lon/lat pair used only for presentation and the potential table.
type Coord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type Coordinates map[string]Coord

// Years returns the recorded years in ascending order.
func (ys YearSeries) Years() []int {
	out := make([]int, 0, len(ys))
	for y := range ys {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// LatestYear returns the highest recorded year, or false when the series is empty.
func (ys YearSeries) LatestYear() (int, bool) {
	best, ok := 0, false
	for y := range ys {
		if !ok || y > best {
			best, ok = y, true
		}
	}
	return best, ok
}

func (ys YearSeries) Clone() YearSeries {
	out := make(YearSeries, len(ys))
	for y, f := range ys {
		out[y] = f.clone()
	}
	return out
}

// Names returns field names in canonical (sorted) order.
func (s Series) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s Series) Clone() Series {
	out := make(Series, len(s))
	for name, ys := range s {
		out[name] = ys.Clone()
	}
	return out
}

// Decode parses the compacted JSON format: {"Field": {"2021": {"productionOil": 1.2}}}.
func Decode(b []byte) (Series, error) {
	var s Series
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}
	for name, ys := range s {
		if ys == nil {
			s[name] = YearSeries{}
		}
	}
	return s, nil
}

func Load(path string) (Series, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

func DecodeCoordinates(b []byte) (Coordinates, error) {
	var c Coordinates
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode coordinates: %w", err)
	}
	return c, nil
}

func LoadCoordinates(path string) (Coordinates, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeCoordinates(b)
}

// Embedded returns the dataset bundled with the binary.
func Embedded() (Series, error) {
	b, err := embedded.ReadFile("data/historical.json")
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

func EmbeddedCoordinates() (Coordinates, error) {
	b, err := embedded.ReadFile("data/coordinates.json")
	if err != nil {
		return nil, err
	}
	return DecodeCoordinates(b)
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v. Handy for building series in code and tests.
func Float(v float64) *float64 { return &v }
