package game

import (
	"log"
	"reflect"
	"sync"
	"sync/atomic"
)

// Persister stores and restores the single saved game. Implementations must
// not fail the caller: errors degrade and are logged.
type Persister interface {
	Save(s State)
	Load(fresh State) State
	Clear()
}

// ActionLogger receives every dispatched action with the digest of the state
// it produced.
type ActionLogger interface {
	Append(seq uint64, year int, action []byte, digest string) error
}

type EngineOptions struct {
	Persister Persister
	ActionLog ActionLogger
	Logger    *log.Logger
}

// Engine owns one game and serialises every transition.
type Engine struct {
	mu    sync.Mutex
	sc    Scenario
	state State
	seq   uint64

	persist Persister
	alog    ActionLogger
	logger  *log.Logger

	subsMu sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int

	dispatched atomic.Uint64
	rejected   atomic.Uint64
	restarts   atomic.Uint64
}

// NewEngine starts from the persisted game when there is one.
func NewEngine(sc Scenario, opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	e := &Engine{
		sc:      sc,
		persist: opts.Persister,
		alog:    opts.ActionLog,
		logger:  logger,
		subs:    map[int]func(Snapshot){},
	}
	fresh := sc.Fresh()
	if e.persist != nil {
		e.state = e.persist.Load(fresh)
	} else {
		e.state = fresh
	}
	return e
}

func (e *Engine) Scenario() Scenario { return e.sc }

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Result describes one dispatch.
type Result struct {
	Prev    State
	State   State
	Seq     uint64
	Digest  string
	Changed bool
}

// Dispatch reduces a against the current state, persists the result and
// notifies subscribers. It returns the new state. RestartGame clears the saved
// game instead of writing one.
func (e *Engine) Dispatch(a Action) State {
	return e.Apply(a).State
}

// Apply is Dispatch with the details transports need to answer a client.
func (e *Engine) Apply(a Action) Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.state
	next := Reduce(prev, a, e.sc)
	e.state = next
	e.seq++
	seq := e.seq
	e.dispatched.Add(1)

	changed := !reflect.DeepEqual(prev, next)
	digest := Digest(next)
	if _, restart := a.(RestartGame); restart {
		e.restarts.Add(1)
		if e.persist != nil {
			e.persist.Clear()
		}
	} else {
		if !changed {
			e.rejected.Add(1)
		}
		if e.persist != nil {
			e.persist.Save(next)
		}
	}
	if e.alog != nil && a != nil {
		if raw, err := MarshalAction(a); err != nil {
			e.logger.Printf("action log: %v", err)
		} else if err := e.alog.Append(seq, prev.Year, raw, digest); err != nil {
			e.logger.Printf("action log: %v", err)
		}
	}
	e.notify(Snapshot{Seq: seq, Digest: digest, State: next.Clone()})
	return Result{Prev: prev.Clone(), State: next.Clone(), Seq: seq, Digest: digest, Changed: changed}
}

// Snapshot is what subscribers receive after each dispatch.
type Snapshot struct {
	Seq    uint64
	Digest string
	State  State
}

// Current returns the state with its sequence number and digest.
func (e *Engine) Current() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{Seq: e.seq, Digest: Digest(e.state), State: e.state.Clone()}
}

// Subscribe registers fn to receive every new state, in dispatch order. fn runs
// under the engine lock and must not call back into the engine. The returned
// func removes it.
func (e *Engine) Subscribe(fn func(Snapshot)) func() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	return func() {
		e.subsMu.Lock()
		delete(e.subs, id)
		e.subsMu.Unlock()
	}
}

func (e *Engine) notify(s Snapshot) {
	e.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subsMu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

type EngineMetrics struct {
	Dispatched uint64
	Rejected   uint64
	Restarts   uint64
	Seq        uint64
}

func (e *Engine) Metrics() EngineMetrics {
	e.mu.Lock()
	seq := e.seq
	e.mu.Unlock()
	return EngineMetrics{
		Dispatched: e.dispatched.Load(),
		Rejected:   e.rejected.Load(),
		Restarts:   e.restarts.Load(),
		Seq:        seq,
	}
}
