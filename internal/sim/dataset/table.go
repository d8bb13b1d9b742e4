package dataset

import (
	"strconv"
	"strings"
)

// Column layout of the raw spreadsheet export.
const (
	colField     = 0
	colYear      = 1
	colOil       = 3
	colGas       = 4
	colEmission  = 6
	colIntensity = 8

	headerRows = 2
)

// FromTable compacts the raw spreadsheet rows into a Series. The first two
// rows are headers. Falsy facts (missing, empty, zero, unparsable) are dropped
// so that absence keeps meaning "no recorded data".
func FromTable(rows [][]any) Series {
	out := Series{}
	for i, row := range rows {
		if i < headerRows || len(row) <= colYear {
			continue
		}
		name := strings.TrimSpace(cellString(row, colField))
		year, ok := cellInt(row, colYear)
		if name == "" || !ok {
			continue
		}

		facts := Facts{
			ProductionOil:     cellFloat(row, colOil),
			ProductionGas:     cellFloat(row, colGas),
			Emission:          cellFloat(row, colEmission),
			EmissionIntensity: cellFloat(row, colIntensity),
		}
		ys := out[name]
		if ys == nil {
			ys = YearSeries{}
			out[name] = ys
		}
		if facts.Empty() {
			continue
		}
		prev := ys[year]
		ys[year] = merge(prev, facts)
	}
	return out
}

// merge keeps earlier values and fills gaps from later duplicate rows.
func merge(a, b Facts) Facts {
	if a.ProductionOil == nil {
		a.ProductionOil = b.ProductionOil
	}
	if a.ProductionGas == nil {
		a.ProductionGas = b.ProductionGas
	}
	if a.Emission == nil {
		a.Emission = b.Emission
	}
	if a.EmissionIntensity == nil {
		a.EmissionIntensity = b.EmissionIntensity
	}
	return a
}

func cellString(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func cellInt(row []any, i int) (int, bool) {
	p := cellFloat(row, i)
	if p == nil {
		return 0, false
	}
	return int(*p), true
}

func cellFloat(row []any, i int) *float64 {
	if i >= len(row) || row[i] == nil {
		return nil
	}
	var f float64
	switch v := row[i].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if f == 0 || f != f {
		return nil
	}
	return &f
}
