// Package httpapi serves read-only views of the game and an action endpoint.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"phaseout.no/internal/i18n"
	"phaseout.no/internal/protocol"
	"phaseout.no/internal/sim/achievements"
	"phaseout.no/internal/sim/fields"
	"phaseout.no/internal/sim/game"
	"phaseout.no/internal/sim/projection"
	"phaseout.no/internal/transport/hints"
)

const maxActionBytes = 16 * 1024

type Options struct {
	Catalog *i18n.Catalog
	// Sessions and Dropped feed /metrics when a websocket server runs alongside.
	Sessions func() int
	Dropped  func() uint64
}

type API struct {
	engine *game.Engine
	cat    *i18n.Catalog
	opts   Options
}

func New(e *game.Engine, opts Options) *API {
	return &API{engine: e, cat: opts.Catalog, opts: opts}
}

// Routes mounts every endpoint on a fresh router.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", a.metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", a.state)
		r.Get("/stats", a.stats)
		r.Get("/fields", a.fieldList)
		r.Get("/fields/{name}", a.field)
		r.Get("/projection", a.projection)
		r.Get("/achievements", a.achievements)
		r.Get("/investments", a.investments)
		r.Post("/actions", a.action)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: encode: %v", err)
	}
}

func writeProblem(w http.ResponseWriter, status int, p *hints.Problem) {
	writeJSON(w, status, p)
}

func (a *API) lang(r *http.Request) string {
	if a.cat == nil {
		return i18n.Fallback
	}
	if l := r.URL.Query().Get("lang"); l != "" {
		return a.cat.Match(l)
	}
	return a.cat.Match(r.Header.Get("Accept-Language"))
}

type stateResponse struct {
	Seq    uint64     `json:"seq"`
	Digest string     `json:"digest"`
	State  game.State `json:"state"`
}

func (a *API) state(w http.ResponseWriter, r *http.Request) {
	cur := a.engine.Current()
	writeJSON(w, http.StatusOK, stateResponse{Seq: cur.Seq, Digest: cur.Digest, State: cur.State})
}

type statsResponse struct {
	game.Stats
	PhaseName string `json:"phaseName"`
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	st := game.StatsOf(a.engine.State(), a.engine.Scenario().Rules)
	resp := statsResponse{Stats: st, PhaseName: string(st.GamePhase)}
	if a.cat != nil {
		resp.PhaseName = a.cat.Phase(a.lang(r), st.GamePhase)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) fieldList(w http.ResponseWriter, r *http.Request) {
	want := fields.Status(r.URL.Query().Get("status"))
	if want != "" && !want.Valid() {
		writeProblem(w, http.StatusBadRequest, &hints.Problem{
			Code:       protocol.ErrBadRequest,
			Message:    fmt.Sprintf("unknown status %q", want),
			Suggestion: hints.Nearest(string(want), []string{"active", "closed", "transitioning"}),
		})
		return
	}
	s := a.engine.State()
	out := make([]fields.Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if want == "" || f.Status == want {
			out = append(out, f)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) field(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s := a.engine.State()
	f, ok := s.FieldByName(name)
	if !ok {
		names := make([]string, 0, len(s.Fields))
		for _, f := range s.Fields {
			names = append(names, f.Name)
		}
		writeProblem(w, http.StatusNotFound, &hints.Problem{
			Code:       protocol.ErrInvalidTarget,
			Message:    fmt.Sprintf("no field named %q", name),
			Suggestion: hints.Nearest(name, names),
		})
		return
	}
	type fieldResponse struct {
		fields.Field
		ShutdownYear int  `json:"shutdownYear,omitempty"`
		Selected     bool `json:"selected"`
	}
	resp := fieldResponse{Field: f, ShutdownYear: s.Shutdowns[f.Name]}
	for _, n := range s.SelectedFields {
		if n == f.Name {
			resp.Selected = true
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type projectionResponse struct {
	Prices  projection.Prices       `json:"prices"`
	Totals  []projection.YearTotals `json:"totals"`
	Income  []projection.YearIncome `json:"income"`
	Avoided float64                 `json:"avoided"`
}

func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number", key)
	}
	return f, nil
}

// projection aggregates the extended dataset under the current shutdown
// schedule. Prices may be overridden with ?oil= and ?gas= (USD per boe);
// ?historical=1 limits income to recorded years.
func (a *API) projection(w http.ResponseWriter, r *http.Request) {
	p := projection.ReferencePrices
	var err error
	if p.Oil, err = queryFloat(r, "oil", p.Oil); err == nil {
		p.Gas, err = queryFloat(r, "gas", p.Gas)
	}
	if err != nil {
		writeProblem(w, http.StatusBadRequest, &hints.Problem{Code: protocol.ErrBadRequest, Message: err.Error()})
		return
	}
	historical, _ := strconv.ParseBool(r.URL.Query().Get("historical"))

	ext := a.engine.Scenario().Extended
	sched := a.engine.State().Schedule()
	writeJSON(w, http.StatusOK, projectionResponse{
		Prices:  p,
		Totals:  projection.Aggregate(ext, sched),
		Income:  projection.Income(ext, p, sched, historical),
		Avoided: projection.Avoided(ext, sched),
	})
}

type achievementView struct {
	i18n.Achievement
	Earned bool `json:"earned"`
}

func (a *API) achievements(w http.ResponseWriter, r *http.Request) {
	held := map[achievements.ID]bool{}
	for _, id := range a.engine.State().Achievements {
		held[id] = true
	}
	lang := a.lang(r)
	defs := achievements.All()
	out := make([]achievementView, 0, len(defs))
	for _, d := range defs {
		v := achievementView{Achievement: i18n.Achievement{ID: d.ID, Name: string(d.ID), Rule: d.Rule}, Earned: held[d.ID]}
		if a.cat != nil {
			v.Achievement = a.cat.Achievement(lang, d)
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

type investmentView struct {
	Category game.Category `json:"category"`
	Name     string        `json:"name"`
	Good     bool          `json:"good"`
	Amount   float64       `json:"amount"`
}

func (a *API) investments(w http.ResponseWriter, r *http.Request) {
	s := a.engine.State()
	lang := a.lang(r)
	out := make([]investmentView, 0, len(game.Categories()))
	for _, c := range game.Categories() {
		name := string(c)
		if a.cat != nil {
			name = a.cat.Category(lang, c)
		}
		out = append(out, investmentView{Category: c, Name: name, Good: c.Good(), Amount: s.Investments[c]})
	}
	writeJSON(w, http.StatusOK, out)
}

type actionResponse struct {
	Accepted bool           `json:"accepted"`
	Seq      uint64         `json:"seq"`
	Digest   string         `json:"digest"`
	Problem  *hints.Problem `json:"problem,omitempty"`
	State    *game.State    `json:"state,omitempty"`
}

// action dispatches one "type"-tagged action. 200 means the game changed,
// 409 that it decoded but had no effect, 422 that it could not be applied.
func (a *API) action(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxActionBytes+1))
	if err != nil || len(body) > maxActionBytes {
		writeProblem(w, http.StatusRequestEntityTooLarge, &hints.Problem{Code: protocol.ErrProtoBadRequest, Message: "action body too large"})
		return
	}
	act, prob := hints.Decode(body, a.engine.State())
	if prob != nil {
		writeProblem(w, http.StatusUnprocessableEntity, prob)
		return
	}
	res := a.engine.Apply(act)
	resp := actionResponse{Accepted: res.Changed, Seq: res.Seq, Digest: res.Digest}
	if !res.Changed {
		resp.Problem = hints.Explain(res.Prev, act, a.engine.Scenario().Rules)
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	resp.State = &res.State
	writeJSON(w, http.StatusOK, resp)
}

// metrics writes the minimal Prometheus exposition format.
func (a *API) metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	m := a.engine.Metrics()
	st := game.StatsOf(a.engine.State(), a.engine.Scenario().Rules)

	fmt.Fprintf(w, "# HELP phaseout_actions_total Actions dispatched.\n")
	fmt.Fprintf(w, "# TYPE phaseout_actions_total counter\n")
	fmt.Fprintf(w, "phaseout_actions_total %d\n", m.Dispatched)

	fmt.Fprintf(w, "# HELP phaseout_actions_rejected_total Actions that left the game unchanged.\n")
	fmt.Fprintf(w, "# TYPE phaseout_actions_rejected_total counter\n")
	fmt.Fprintf(w, "phaseout_actions_rejected_total %d\n", m.Rejected)

	fmt.Fprintf(w, "# HELP phaseout_restarts_total Games restarted.\n")
	fmt.Fprintf(w, "# TYPE phaseout_restarts_total counter\n")
	fmt.Fprintf(w, "phaseout_restarts_total %d\n", m.Restarts)

	fmt.Fprintf(w, "# HELP phaseout_game_year Current game year.\n")
	fmt.Fprintf(w, "# TYPE phaseout_game_year gauge\n")
	fmt.Fprintf(w, "phaseout_game_year %d\n", st.Year)

	fmt.Fprintf(w, "# HELP phaseout_game_budget Remaining budget, billion NOK.\n")
	fmt.Fprintf(w, "# TYPE phaseout_game_budget gauge\n")
	fmt.Fprintf(w, "phaseout_game_budget %g\n", st.Budget)

	fmt.Fprintf(w, "# HELP phaseout_game_temperature Global temperature anomaly, degrees C.\n")
	fmt.Fprintf(w, "# TYPE phaseout_game_temperature gauge\n")
	fmt.Fprintf(w, "phaseout_game_temperature %g\n", st.GlobalTemperature)

	fmt.Fprintf(w, "# HELP phaseout_game_fields Fields by status.\n")
	fmt.Fprintf(w, "# TYPE phaseout_game_fields gauge\n")
	fmt.Fprintf(w, "phaseout_game_fields{status=%q} %d\n", fields.StatusActive, st.Active)
	fmt.Fprintf(w, "phaseout_game_fields{status=%q} %d\n", fields.StatusClosed, st.Closed)

	if a.opts.Sessions != nil {
		fmt.Fprintf(w, "# HELP phaseout_ws_sessions Connected websocket clients.\n")
		fmt.Fprintf(w, "# TYPE phaseout_ws_sessions gauge\n")
		fmt.Fprintf(w, "phaseout_ws_sessions %d\n", a.opts.Sessions())
	}
	if a.opts.Dropped != nil {
		fmt.Fprintf(w, "# HELP phaseout_ws_dropped_total STATE messages dropped on full queues.\n")
		fmt.Fprintf(w, "# TYPE phaseout_ws_dropped_total counter\n")
		fmt.Fprintf(w, "phaseout_ws_dropped_total %d\n", a.opts.Dropped())
	}
}
