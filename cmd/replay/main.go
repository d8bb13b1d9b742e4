package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"phaseout.no/internal/persistence/actionlog"
	"phaseout.no/internal/persistence/savegame"
	"phaseout.no/internal/sim/dataset"
	"phaseout.no/internal/sim/game"
	"phaseout.no/internal/sim/tuning"
)

func main() {
	var (
		actionsDir = flag.String("actions", "./data/actions", "dir containing actions-*.jsonl.zst")
		savePath   = flag.String("save", "", "saved game JSON to start from (default: fresh game)")
		configDir  = flag.String("configs", "./configs", "config directory")
		seriesPath = flag.String("dataset", "", "field series JSON (default: embedded dataset)")
		coordsPath = flag.String("coords", "", "field coordinates JSON (default: embedded)")
		fromSeq    = flag.Uint64("from_seq", 0, "first seq to replay (inclusive, optional)")
		toSeq      = flag.Uint64("to_seq", 0, "last seq to replay (inclusive, optional)")
	)
	flag.Parse()

	quiet := log.New(&bytes.Buffer{}, "", 0)

	tune, err := tuning.Load(filepath.Join(*configDir, "tuning.yaml"))
	if err != nil && !os.IsNotExist(err) {
		fail("load tuning", err)
	}
	series, err := loadSeries(*seriesPath)
	if err != nil {
		fail("load dataset", err)
	}
	coords, err := loadCoords(*coordsPath)
	if err != nil {
		fail("load coordinates", err)
	}
	sc := game.NewScenario(series, coords, tune.Rules(), quiet)

	start := sc.Fresh()
	if p := strings.TrimSpace(*savePath); p != "" {
		raw, err := os.ReadFile(p)
		if err != nil {
			fail("read save", err)
		}
		if start, err = savegame.Decode(raw, start); err != nil {
			fail("decode save", err)
		}
	}

	all, err := actionlog.ReadDir(*actionsDir)
	if err != nil {
		fail("read actions", err)
	}
	entries := make([]actionlog.Entry, 0, len(all))
	for _, e := range all {
		if e.Seq < *fromSeq {
			continue
		}
		if *toSeq != 0 && e.Seq > *toSeq {
			break
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no actions found in", *actionsDir)
		os.Exit(1)
	}

	n, end, err := actionlog.Verify(sc, start, entries)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay failed after %d actions: %v\n", n, err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d actions (seq %d-%d)\n", n, entries[0].Seq, entries[len(entries)-1].Seq)
	fmt.Printf("year=%d phase=%s budget=%s closed=%d/%d temperature=%.2f digest=%s\n",
		end.Year, end.GamePhase, humanize.Commaf(end.Budget), end.PhasedOut(), len(end.Fields), end.GlobalTemperature, game.Digest(end))
}

func loadSeries(path string) (dataset.Series, error) {
	if p := strings.TrimSpace(path); p != "" {
		return dataset.Load(p)
	}
	return dataset.Embedded()
}

func loadCoords(path string) (dataset.Coordinates, error) {
	if p := strings.TrimSpace(path); p != "" {
		return dataset.LoadCoordinates(p)
	}
	return dataset.EmbeddedCoordinates()
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
