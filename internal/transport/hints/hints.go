// Package hints turns raw client actions into game actions and explains why
// an action had no effect. Both transports share it.
package hints

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"phaseout.no/internal/protocol"
	"phaseout.no/internal/sim/game"
)

// Problem is a client-facing rejection.
type Problem struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (p *Problem) Error() string {
	if p.Suggestion != "" {
		return fmt.Sprintf("%s: %s (did you mean %q?)", p.Code, p.Message, p.Suggestion)
	}
	return p.Code + ": " + p.Message
}

func limit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

// Nearest returns the candidate closest to word, or "" when nothing is close
// enough. Matching is case-insensitive; ties go to the lexically smaller one.
func Nearest(word string, candidates []string) string {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return ""
	}
	type scored struct {
		val  string
		dist int
	}
	var out []scored
	for _, c := range candidates {
		lc := strings.ToLower(c)
		switch {
		case lc == w:
			out = append(out, scored{c, 0})
		case strings.HasPrefix(lc, w) && len(w) >= 3:
			out = append(out, scored{c, 1})
		default:
			d := levenshtein.ComputeDistance(w, lc)
			if d <= limit(len(lc)) {
				out = append(out, scored{c, d})
			}
		}
	}
	if len(out) == 0 {
		return ""
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].dist == out[j].dist {
			return out[i].val < out[j].val
		}
		return out[i].dist < out[j].dist
	})
	return out[0].val
}

func fieldNames(s game.State) []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

func kindNames() []string {
	ks := game.Kinds()
	out := make([]string, 0, len(ks))
	for _, k := range ks {
		out = append(out, string(k))
	}
	return out
}

func categoryNames() []string {
	cs := game.Categories()
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, string(c))
	}
	return out
}

func target(a game.Action) (string, bool) {
	switch act := a.(type) {
	case game.PhaseOutField:
		return act.Field, true
	case game.SelectFieldForMulti:
		return act.Field, true
	case game.DeselectFieldForMulti:
		return act.Field, true
	case game.ClickField:
		return act.Field, true
	}
	return "", false
}

// Decode parses raw and checks that it names things that exist in s.
func Decode(raw json.RawMessage, s game.State) (game.Action, *Problem) {
	a, err := game.UnmarshalAction(raw)
	if err != nil {
		if errors.Is(err, game.ErrUnknownAction) {
			var head struct {
				Type string `json:"type"`
			}
			_ = json.Unmarshal(raw, &head)
			return nil, &Problem{
				Code:       protocol.ErrUnknownAction,
				Message:    fmt.Sprintf("unknown action type %q", head.Type),
				Suggestion: Nearest(head.Type, kindNames()),
			}
		}
		return nil, &Problem{Code: protocol.ErrBadRequest, Message: err.Error()}
	}
	if name, ok := target(a); ok {
		if _, found := s.FieldByName(name); !found {
			return nil, &Problem{
				Code:       protocol.ErrInvalidTarget,
				Message:    fmt.Sprintf("no field named %q", name),
				Suggestion: Nearest(name, fieldNames(s)),
			}
		}
	}
	if inv, ok := a.(game.MakeInvestment); ok && !inv.Category.Valid() {
		return nil, &Problem{
			Code:       protocol.ErrInvalidTarget,
			Message:    fmt.Sprintf("no investment category %q", inv.Category),
			Suggestion: Nearest(string(inv.Category), categoryNames()),
		}
	}
	return a, nil
}

// Explain says why a left prev unchanged. It is only meaningful when the
// dispatch was a no-op.
func Explain(prev game.State, a game.Action, r game.Rules) *Problem {
	switch act := a.(type) {
	case game.AdvanceYear:
		if prev.Year >= game.MaxYear {
			return &Problem{Code: protocol.ErrGameOver, Message: fmt.Sprintf("the calendar ends in %d", game.MaxYear)}
		}
	case game.PhaseOutField:
		f, _ := prev.FieldByName(act.Field)
		if !f.Active() {
			return &Problem{Code: protocol.ErrConflict, Message: fmt.Sprintf("%s is already %s", f.Name, f.Status)}
		}
		return &Problem{Code: protocol.ErrNoResource, Message: fmt.Sprintf("%s costs %.0f, budget is %.0f", f.Name, f.PhaseOutCost, prev.Budget)}
	case game.MakeInvestment:
		if !(act.Amount > 0) {
			return &Problem{Code: protocol.ErrBadRequest, Message: "amount must be positive"}
		}
		if prev.Investments[act.Category]+act.Amount > game.MaxInvestment {
			return &Problem{Code: protocol.ErrCapacity, Message: fmt.Sprintf("%s is capped at %d", act.Category, game.MaxInvestment)}
		}
		return &Problem{Code: protocol.ErrNoResource, Message: fmt.Sprintf("investing %.0f exceeds budget %.0f", act.Amount, prev.Budget)}
	case game.SelectFieldForMulti:
		f, _ := prev.FieldByName(act.Field)
		switch {
		case !f.Active():
			return &Problem{Code: protocol.ErrConflict, Message: fmt.Sprintf("%s is already %s", f.Name, f.Status)}
		case len(prev.SelectedFields) >= game.Capacity(prev, r):
			return &Problem{Code: protocol.ErrCapacity, Message: fmt.Sprintf("at most %d fields can be selected this year", game.Capacity(prev, r))}
		}
		return &Problem{Code: protocol.ErrConflict, Message: fmt.Sprintf("%s is already selected", f.Name)}
	case game.DeselectFieldForMulti:
		return &Problem{Code: protocol.ErrConflict, Message: fmt.Sprintf("%s is not selected", act.Field)}
	}
	return &Problem{Code: protocol.ErrNoEffect, Message: fmt.Sprintf("%s changed nothing", a.Kind())}
}
