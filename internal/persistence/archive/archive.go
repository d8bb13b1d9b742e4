// Package archive keeps the final save of every finished game under
// `<dir>/game_<NNN>/`.
package archive

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"phaseout.no/internal/persistence/savegame"
	"phaseout.no/internal/sim/game"
)

type Meta struct {
	Game         int        `json:"game"`
	Outcome      game.Phase `json:"outcome"`
	Year         int        `json:"year"`
	Score        int        `json:"score"`
	Budget       float64    `json:"budget"`
	Temperature  float64    `json:"temperature"`
	Closed       int        `json:"closed"`
	Fields       int        `json:"fields"`
	Achievements int        `json:"achievements"`
	Seq          uint64     `json:"seq"`
	Digest       string     `json:"digest"`
	Save         string     `json:"save"`
	CreatedAt    string     `json:"created_at"`
}

// Archiver watches engine snapshots and archives a game the moment it turns
// terminal. A game already terminal when watching starts is not archived
// again.
type Archiver struct {
	dir string
	log *log.Logger
	now func() time.Time

	mu       sync.Mutex
	terminal bool
}

func New(dir string, logger *log.Logger) *Archiver {
	if logger == nil {
		logger = log.Default()
	}
	return &Archiver{dir: dir, log: logger, now: time.Now}
}

// Watch subscribes to e and returns the unsubscribe func.
func (a *Archiver) Watch(e *game.Engine) func() {
	a.mu.Lock()
	a.terminal = e.Current().State.GamePhase.Terminal()
	a.mu.Unlock()
	return e.Subscribe(a.Observe)
}

// Observe runs under the engine lock.
func (a *Archiver) Observe(snap game.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	terminal := snap.State.GamePhase.Terminal()
	was := a.terminal
	a.terminal = terminal
	if !terminal || was {
		return
	}
	m, err := a.archive(snap)
	if err != nil {
		a.log.Printf("archive: %v", err)
		return
	}
	a.log.Printf("archive: game %d ended %s in %d (score=%d closed=%d/%d)", m.Game, m.Outcome, m.Year, m.Score, m.Closed, m.Fields)
}

func (a *Archiver) archive(snap game.Snapshot) (Meta, error) {
	existing, err := List(a.dir)
	if err != nil {
		return Meta{}, err
	}
	n := 1
	if len(existing) > 0 {
		n = existing[len(existing)-1].Game + 1
	}
	gameDir := filepath.Join(a.dir, fmt.Sprintf("game_%03d", n))
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		return Meta{}, err
	}

	now := a.now()
	raw, err := savegame.Encode(snap.State, now)
	if err != nil {
		return Meta{}, fmt.Errorf("encode: %w", err)
	}
	if err := os.WriteFile(filepath.Join(gameDir, "final.json"), raw, 0o644); err != nil {
		return Meta{}, err
	}

	s := snap.State
	m := Meta{
		Game:         n,
		Outcome:      s.GamePhase,
		Year:         s.Year,
		Score:        s.Score,
		Budget:       s.Budget,
		Temperature:  s.GlobalTemperature,
		Closed:       s.PhasedOut(),
		Fields:       len(s.Fields),
		Achievements: len(s.Achievements),
		Seq:          snap.Seq,
		Digest:       snap.Digest,
		Save:         "final.json",
		CreatedAt:    now.UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Meta{}, err
	}
	if err := os.WriteFile(filepath.Join(gameDir, "meta.json"), b, 0o644); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// List reads every archived game's meta in game order. A missing dir is an
// empty archive.
func List(dir string) ([]Meta, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Meta
	for _, e := range ents {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "game_") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name(), "meta.json"))
		if err != nil {
			continue
		}
		var m Meta
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Game < out[j].Game })
	return out, nil
}
