package game

import (
	"fmt"
	"math"
	"slices"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"phaseout.no/internal/sim/fields"
)

// Reduce returns the state that follows s after a. It never mutates s;
// invalid actions return s unchanged.
func Reduce(s State, a Action, sc Scenario) State {
	if a == nil {
		return s
	}
	r := sc.Rules

	switch act := a.(type) {
	case RestartGame:
		return sc.Fresh()
	case PhaseOutField:
		return phaseOut(s, act.Field, r)
	case PhaseOutSelectedFields:
		return phaseOutSelected(s, r)
	case AdvanceYear:
		return advanceYear(s, r)
	case MakeInvestment:
		return invest(s, act, r)

	case ToggleMultiSelect:
		n := s.Clone()
		n.MultiPhaseOutMode = !s.MultiPhaseOutMode
		if !n.MultiPhaseOutMode {
			n.SelectedFields = []string{}
		}
		return n
	case SelectFieldForMulti:
		return selectField(s, act.Field, r)
	case DeselectFieldForMulti:
		if !s.isSelected(act.Field) {
			return s
		}
		n := s.Clone()
		n.SelectedFields = slices.DeleteFunc(n.SelectedFields, func(name string) bool { return name == act.Field })
		return n
	case ClearSelectedFields:
		n := s.Clone()
		n.SelectedFields = []string{}
		return n

	case ClickField:
		if s.fieldIndex(act.Field) < 0 {
			return s
		}
		if s.MultiPhaseOutMode {
			if s.isSelected(act.Field) {
				return Reduce(s, DeselectFieldForMulti{Field: act.Field}, sc)
			}
			return selectField(s, act.Field, r)
		}
		n := s.Clone()
		n.SelectedField = act.Field
		n.ShowFieldModal = true
		return n
	case CloseFieldModal:
		n := s.Clone()
		n.SelectedField = ""
		n.ShowFieldModal = false
		return n
	case DismissBudgetWarning:
		n := s.Clone()
		n.ShowBudgetWarning = false
		return n
	case DismissAchievement:
		n := s.Clone()
		n.ShowAchievementModal = false
		n.NewAchievement = ""
		return n
	case CloseGameOver:
		n := s.Clone()
		n.ShowGameOverModal = false
		return n
	case SetView:
		if !act.View.Valid() {
			return s
		}
		n := s.Clone()
		n.CurrentView = act.View
		return n
	case SetTutorialStep:
		if act.Step < 0 || act.Step > MaxTutorialStep {
			return s
		}
		n := s.Clone()
		n.TutorialStep = act.Step
		return n
	case MarkFactShown:
		if act.Fact == "" || utf8.RuneCountInString(act.Fact) > MaxFactLength ||
			len(s.ShownFacts) >= MaxShownFacts || slices.Contains(s.ShownFacts, act.Fact) {
			return s
		}
		n := s.Clone()
		n.ShownFacts = append(n.ShownFacts, act.Fact)
		return n
	case SetDataLayer:
		n := s.Clone()
		n.DataLayerUnlocked = act.Unlocked
		return n
	case HandleEvent:
		return s
	}
	return s
}

func phaseOut(s State, name string, r Rules) State {
	i := s.fieldIndex(name)
	if i < 0 || s.Fields[i].Status == fields.StatusClosed {
		return s
	}
	f := s.Fields[i]
	cost := f.PhaseOutCost
	discounted := s.PendingDiscount > 0 && s.PendingDiscount < 1
	if discounted {
		cost *= s.PendingDiscount
	}
	if s.Budget < cost {
		return s
	}

	n := s.Clone()
	if discounted {
		n.PendingDiscount = 0
	}
	n.Budget -= cost
	n.addScore(f.TotalLifetimeEmissions)
	closeField(&n, i, r)
	n.recordChoice(r, Choice{
		Year:   s.Year,
		Kind:   ChoicePhaseOut,
		Target: name,
		Amount: cost,
		Text:   fmt.Sprintf("Phased out %s for %s bn NOK", name, humanize.Comma(int64(math.Round(cost)))),
	})
	n.GoodChoiceStreak = min(MaxCounter, n.GoodChoiceStreak+1)
	n.BadChoiceCount = max(0, n.BadChoiceCount-1)

	applyYear(&n, r)
	unlock(&n, r)
	settle(&n, r)
	return n
}

// closeField lowers the anomaly by the field's current emissions, schedules
// the shutdown for next year and closes the field.
func closeField(s *State, i int, r Rules) {
	f := s.Fields[i]
	s.GlobalTemperature = math.Max(math.Max(r.TemperatureFloor, MinTemperature), s.GlobalTemperature-f.LatestEmission()*r.CoolingPerMt)
	s.Shutdowns[f.Name] = s.Year + 1
	s.Fields[i] = f.Close()
	s.SelectedFields = slices.DeleteFunc(s.SelectedFields, func(name string) bool { return name == f.Name })
}

func phaseOutSelected(s State, r Rules) State {
	var picked []int
	for _, name := range s.SelectedFields {
		i := s.fieldIndex(name)
		if i < 0 || !s.Fields[i].Active() || s.Fields[i].PhaseOutCost > s.Budget {
			continue
		}
		picked = append(picked, i)
	}
	if c := Capacity(s, r); len(picked) > c {
		picked = picked[:c]
	}
	total, saved := 0.0, 0.0
	for _, i := range picked {
		total += s.Fields[i].PhaseOutCost
		saved += s.Fields[i].TotalLifetimeEmissions
	}

	n := s.Clone()
	n.SelectedFields = []string{}
	n.MultiPhaseOutMode = false
	if len(picked) == 0 || total > s.Budget {
		n.ShowBudgetWarning = true
		return n
	}

	n.Budget -= total
	n.addScore(saved)
	names := make([]string, 0, len(picked))
	for _, i := range picked {
		closeField(&n, i, r)
		names = append(names, n.Fields[i].Name)
	}
	n.recordChoice(r, Choice{
		Year:   s.Year,
		Kind:   ChoiceBatch,
		Target: fmt.Sprintf("%d fields", len(names)),
		Amount: total,
		Text: fmt.Sprintf("Phased out %s (%s) for %s bn NOK",
			english.WordSeries(names, "and"), english.Plural(len(names), "field", ""), humanize.Comma(int64(math.Round(total)))),
	})
	n.GoodChoiceStreak = min(MaxCounter, n.GoodChoiceStreak+len(names))
	n.BadChoiceCount = max(0, n.BadChoiceCount-len(names))
	if len(picked) > 1 && n.Year < MaxYear {
		n.Year++
	}

	applyYear(&n, r)
	unlock(&n, r)
	settle(&n, r)
	return n
}

// advanceYear applies the year's consequences whether or not the game is
// over. The calendar stops at MaxYear.
func advanceYear(s State, r Rules) State {
	if s.Year >= MaxYear {
		return s
	}
	n := s.Clone()
	applyYear(&n, r)
	n.recordChoice(r, Choice{
		Year: s.Year,
		Kind: ChoiceAdvanceYear,
		Text: fmt.Sprintf("Let %d pass with %s still producing",
			s.Year, english.Plural(len(s.Fields)-s.PhasedOut(), "field", "")),
	})
	n.Year++
	n.GlobalTemperature = math.Min(math.Min(r.TemperatureCap, MaxTemperature), n.GlobalTemperature+r.TemperatureStep)
	n.GoodChoiceStreak = 0
	n.BadChoiceCount = min(MaxCounter, n.BadChoiceCount+1)

	unlock(&n, r)
	settle(&n, r)
	return n
}

func invest(s State, act MakeInvestment, r Rules) State {
	if !act.Category.Valid() || !(act.Amount > 0) || math.IsInf(act.Amount, 0) || s.Budget < act.Amount {
		return s
	}
	if s.Investments[act.Category]+act.Amount > MaxInvestment {
		return s
	}
	n := s.Clone()
	n.Budget -= act.Amount
	n.Investments[act.Category] += act.Amount
	n.NorwayTechRank = TechRank(n.Investments)
	n.ForeignDependency = ForeignDependency(n.Investments, r)
	n.YearlyPhaseOutCapacity = Capacity(n, r)
	n.recordChoice(r, Choice{
		Year:   s.Year,
		Kind:   ChoiceInvest,
		Target: string(act.Category),
		Amount: act.Amount,
		Text:   fmt.Sprintf("Invested %s bn NOK in %s", humanize.Commaf(act.Amount), act.Category),
	})
	if act.Category.Good() {
		n.GoodChoiceStreak = min(MaxCounter, n.GoodChoiceStreak+1)
	} else {
		n.GoodChoiceStreak = 0
		n.BadChoiceCount = min(MaxCounter, n.BadChoiceCount+1)
	}
	if n.GamePhase == PhaseLearning {
		n.GamePhase = PhaseAction
	}
	unlock(&n, r)
	return n
}

func selectField(s State, name string, r Rules) State {
	i := s.fieldIndex(name)
	if i < 0 || !s.Fields[i].Active() || s.isSelected(name) {
		return s
	}
	if len(s.SelectedFields) >= Capacity(s, r) {
		return s
	}
	n := s.Clone()
	n.SelectedFields = append(n.SelectedFields, name)
	return n
}

// addScore credits the lifetime emissions a closure keeps in the ground.
func (s *State) addScore(lifetime float64) {
	s.Score = min(MaxScore, s.Score+int(math.Floor(lifetime/1000)))
}

func (s *State) recordChoice(r Rules, c Choice) {
	if utf8.RuneCountInString(c.Text) > MaxChoiceText {
		c.Text = string([]rune(c.Text)[:MaxChoiceText])
	}
	limit := r.MaxChoices
	if limit <= 0 || limit > MaxChoiceLog {
		limit = MaxChoiceLog
	}
	s.PlayerChoices = append(s.PlayerChoices, c)
	if len(s.PlayerChoices) > limit {
		s.PlayerChoices = slices.Clone(s.PlayerChoices[len(s.PlayerChoices)-limit:])
	}
}
