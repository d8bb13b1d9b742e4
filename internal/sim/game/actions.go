package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

type Kind string

const (
	KindPhaseOutField          Kind = "PHASE_OUT_FIELD"
	KindPhaseOutSelectedFields Kind = "PHASE_OUT_SELECTED_FIELDS"
	KindToggleMultiSelect      Kind = "TOGGLE_MULTI_SELECT"
	KindSelectFieldForMulti    Kind = "SELECT_FIELD_FOR_MULTI"
	KindDeselectFieldForMulti  Kind = "DESELECT_FIELD_FOR_MULTI"
	KindClearSelectedFields    Kind = "CLEAR_SELECTED_FIELDS"
	KindAdvanceYear            Kind = "ADVANCE_YEAR_MANUALLY"
	KindMakeInvestment         Kind = "MAKE_INVESTMENT"
	KindRestartGame            Kind = "RESTART_GAME"

	KindClickField         Kind = "CLICK_FIELD"
	KindCloseFieldModal    Kind = "CLOSE_FIELD_MODAL"
	KindDismissBudgetWarn  Kind = "DISMISS_BUDGET_WARNING"
	KindDismissAchievement Kind = "DISMISS_ACHIEVEMENT"
	KindCloseGameOver      Kind = "CLOSE_GAME_OVER"
	KindSetView            Kind = "SET_VIEW"
	KindSetTutorialStep    Kind = "SET_TUTORIAL_STEP"
	KindMarkFactShown      Kind = "MARK_FACT_SHOWN"
	KindSetDataLayer       Kind = "SET_DATA_LAYER"
	KindHandleEvent        Kind = "HANDLE_EVENT"
)

// Action is the closed set of transitions the reducer understands.
type Action interface {
	Kind() Kind
	sealed()
}

type PhaseOutField struct {
	Field string `json:"field"`
}

type PhaseOutSelectedFields struct{}

type ToggleMultiSelect struct{}

type SelectFieldForMulti struct {
	Field string `json:"field"`
}

type DeselectFieldForMulti struct {
	Field string `json:"field"`
}

type ClearSelectedFields struct{}

type AdvanceYear struct{}

type MakeInvestment struct {
	Category Category `json:"category"`
	Amount   float64  `json:"amount"`
}

type RestartGame struct{}

// ClickField opens the detail modal, or toggles selection in multi mode.
type ClickField struct {
	Field string `json:"field"`
}

type CloseFieldModal struct{}
type DismissBudgetWarning struct{}
type DismissAchievement struct{}
type CloseGameOver struct{}

type SetView struct {
	View View `json:"view"`
}

type SetTutorialStep struct {
	Step int `json:"step"`
}

type MarkFactShown struct {
	Fact string `json:"fact"`
}

type SetDataLayer struct {
	Unlocked bool `json:"unlocked"`
}

// HandleEvent is reserved for random events and currently changes nothing.
type HandleEvent struct {
	Event string `json:"event,omitempty"`
}

func (PhaseOutField) Kind() Kind          { return KindPhaseOutField }
func (PhaseOutSelectedFields) Kind() Kind { return KindPhaseOutSelectedFields }
func (ToggleMultiSelect) Kind() Kind      { return KindToggleMultiSelect }
func (SelectFieldForMulti) Kind() Kind    { return KindSelectFieldForMulti }
func (DeselectFieldForMulti) Kind() Kind  { return KindDeselectFieldForMulti }
func (ClearSelectedFields) Kind() Kind    { return KindClearSelectedFields }
func (AdvanceYear) Kind() Kind            { return KindAdvanceYear }
func (MakeInvestment) Kind() Kind         { return KindMakeInvestment }
func (RestartGame) Kind() Kind            { return KindRestartGame }
func (ClickField) Kind() Kind             { return KindClickField }
func (CloseFieldModal) Kind() Kind        { return KindCloseFieldModal }
func (DismissBudgetWarning) Kind() Kind   { return KindDismissBudgetWarn }
func (DismissAchievement) Kind() Kind     { return KindDismissAchievement }
func (CloseGameOver) Kind() Kind          { return KindCloseGameOver }
func (SetView) Kind() Kind                { return KindSetView }
func (SetTutorialStep) Kind() Kind        { return KindSetTutorialStep }
func (MarkFactShown) Kind() Kind          { return KindMarkFactShown }
func (SetDataLayer) Kind() Kind           { return KindSetDataLayer }
func (HandleEvent) Kind() Kind            { return KindHandleEvent }

func (PhaseOutField) sealed()          {}
func (PhaseOutSelectedFields) sealed() {}
func (ToggleMultiSelect) sealed()      {}
func (SelectFieldForMulti) sealed()    {}
func (DeselectFieldForMulti) sealed()  {}
func (ClearSelectedFields) sealed()    {}
func (AdvanceYear) sealed()            {}
func (MakeInvestment) sealed()         {}
func (RestartGame) sealed()            {}
func (ClickField) sealed()             {}
func (CloseFieldModal) sealed()        {}
func (DismissBudgetWarning) sealed()   {}
func (DismissAchievement) sealed()     {}
func (CloseGameOver) sealed()          {}
func (SetView) sealed()                {}
func (SetTutorialStep) sealed()        {}
func (MarkFactShown) sealed()          {}
func (SetDataLayer) sealed()           {}
func (HandleEvent) sealed()            {}

var ErrUnknownAction = errors.New("unknown action type")

func decodeAs[T Action](raw []byte) (Action, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var decoders = map[Kind]func([]byte) (Action, error){
	KindPhaseOutField:          decodeAs[PhaseOutField],
	KindPhaseOutSelectedFields: decodeAs[PhaseOutSelectedFields],
	KindToggleMultiSelect:      decodeAs[ToggleMultiSelect],
	KindSelectFieldForMulti:    decodeAs[SelectFieldForMulti],
	KindDeselectFieldForMulti:  decodeAs[DeselectFieldForMulti],
	KindClearSelectedFields:    decodeAs[ClearSelectedFields],
	KindAdvanceYear:            decodeAs[AdvanceYear],
	KindMakeInvestment:         decodeAs[MakeInvestment],
	KindRestartGame:            decodeAs[RestartGame],
	KindClickField:             decodeAs[ClickField],
	KindCloseFieldModal:        decodeAs[CloseFieldModal],
	KindDismissBudgetWarn:      decodeAs[DismissBudgetWarning],
	KindDismissAchievement:     decodeAs[DismissAchievement],
	KindCloseGameOver:          decodeAs[CloseGameOver],
	KindSetView:                decodeAs[SetView],
	KindSetTutorialStep:        decodeAs[SetTutorialStep],
	KindMarkFactShown:          decodeAs[MarkFactShown],
	KindSetDataLayer:           decodeAs[SetDataLayer],
	KindHandleEvent:            decodeAs[HandleEvent],
}

// Kinds lists every wire action type.
func Kinds() []Kind {
	return []Kind{
		KindPhaseOutField, KindPhaseOutSelectedFields, KindToggleMultiSelect,
		KindSelectFieldForMulti, KindDeselectFieldForMulti, KindClearSelectedFields,
		KindAdvanceYear, KindMakeInvestment, KindRestartGame,
		KindClickField, KindCloseFieldModal, KindDismissBudgetWarn, KindDismissAchievement,
		KindCloseGameOver, KindSetView, KindSetTutorialStep, KindMarkFactShown,
		KindSetDataLayer, KindHandleEvent,
	}
}

// MarshalAction encodes a as a JSON object tagged with "type".
func MarshalAction(a Action) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("marshal action: nil")
	}
	body, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", a.Kind(), err)
	}
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("marshal %s: %w", a.Kind(), err)
	}
	m["type"] = json.RawMessage(strconv.Quote(string(a.Kind())))
	return json.Marshal(m)
}

// UnmarshalAction decodes a "type"-tagged JSON object.
func UnmarshalAction(raw []byte) (Action, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	dec, ok := decoders[head.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, head.Type)
	}
	a, err := dec(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Type, err)
	}
	return a, nil
}
