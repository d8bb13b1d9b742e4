// Package projection extends incomplete historical series to a fixed horizon
// with a declining-average model and aggregates them per year.
package projection

import (
	"math"

	"github.com/shopspring/decimal"

	"phaseout.no/internal/sim/dataset"
)

const (
	// StartYear is the first projected year; LastHistoricalYear precedes it.
	StartYear          = 2023
	LastHistoricalYear = StartYear - 1
	HorizonYear        = 2040

	DeclineRate   = 0.10
	SnapThreshold = 0.01
	AnchorWindow  = 5
)

type resource int

const (
	oil resource = iota
	gas
)

func (r resource) get(f dataset.Facts) *float64 {
	if r == oil {
		return f.ProductionOil
	}
	return f.ProductionGas
}

func (r resource) set(f *dataset.Facts, v float64) {
	if r == oil {
		f.ProductionOil = &v
		return
	}
	f.ProductionGas = &v
}

// Project returns a deep copy of s where every still-producing resource is
// extended from StartYear to HorizonYear. Years that already hold recorded
// data are left untouched.
func Project(s dataset.Series) dataset.Series {
	out := s.Clone()
	for name, ys := range s {
		ext := out[name]
		for _, r := range []resource{oil, gas} {
			anchorValue, active := Anchor(ys, r == oil)
			if !active {
				continue
			}
			for y := StartYear; y <= HorizonYear; y++ {
				if _, recorded := ys[y]; recorded {
					continue
				}
				f := ext[y]
				r.set(&f, Decay(anchorValue, y-StartYear))
				ext[y] = f
			}
		}
	}
	return out
}

// Anchor reports whether the resource (oil when forOil, else gas) is still
// produced, i.e. recorded in the latest year, and if so the mean of its
// recorded values over the most recent AnchorWindow years.
func Anchor(ys dataset.YearSeries, forOil bool) (float64, bool) {
	r := gas
	if forOil {
		r = oil
	}
	latest, ok := ys.LatestYear()
	if !ok || r.get(ys[latest]) == nil {
		return 0, false
	}
	years := ys.Years()
	if len(years) > AnchorWindow {
		years = years[len(years)-AnchorWindow:]
	}
	sum, n := 0.0, 0
	for _, y := range years {
		if v := r.get(ys[y]); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return finite(sum / float64(n)), true
}

// Decay applies n years of constant decline to v and snaps to exactly 0 once
// the result drops below SnapThreshold.
func Decay(v float64, n int) float64 {
	if n < 0 {
		n = 0
	}
	out := finite(v * math.Pow(1-DeclineRate, float64(n)))
	if out < SnapThreshold {
		return 0
	}
	return out
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// round2 is applied to every published aggregate.
func round2(v float64) float64 {
	return decimal.NewFromFloat(finite(v)).Round(2).InexactFloat64()
}
