package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"phaseout.no/internal/persistence/kv"
	"phaseout.no/internal/persistence/savegame"
	"phaseout.no/internal/sim/dataset"
	"phaseout.no/internal/sim/game"
)

func openStore(backend, dataDir string) (kv.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "sqlite":
		return kv.OpenSQLite(filepath.Join(dataDir, "save", "game.sqlite"))
	case "file":
		return kv.OpenFile(filepath.Join(dataDir, "save"))
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", backend)
	}
}

// saveCmd inspects or edits the saved game while the server is stopped.
//
//	admin save [-data dir] [-store sqlite|file] [-key k] show|keys|export|import|clear
func saveCmd(args []string) {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	backend := fs.String("store", "sqlite", "save-game backend: sqlite or file")
	key := fs.String("key", savegame.DefaultKey, "save-game key")
	path := fs.String("file", "", "file for export/import (default: stdout/stdin)")
	_ = fs.Parse(args)

	op := "show"
	if fs.NArg() > 0 {
		op = strings.TrimSpace(fs.Arg(0))
	}

	st, err := openStore(*backend, *dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer st.Close()
	ctx := context.Background()

	switch op {
	case "keys":
		keys, err := st.Keys(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "keys:", err)
			os.Exit(1)
		}
		for _, k := range keys {
			fmt.Println(k)
		}

	case "show":
		raw, err := st.Get(ctx, *key)
		if errors.Is(err, kv.ErrNotFound) {
			fmt.Println("no saved game")
			return
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "get:", err)
			os.Exit(1)
		}
		s, err := decode(raw)
		if err != nil {
			fmt.Fprintln(os.Stderr, "decode:", err)
			os.Exit(1)
		}
		var meta struct {
			SavedAt string `json:"savedAt"`
		}
		_ = json.Unmarshal(raw, &meta)
		fmt.Printf("key=%s size=%s saved_at=%s\n", *key, humanize.Bytes(uint64(len(raw))), meta.SavedAt)
		fmt.Printf("year=%d phase=%s budget=%s score=%d closed=%d/%d temperature=%.2f achievements=%d digest=%s\n",
			s.Year, s.GamePhase, humanize.Commaf(s.Budget), s.Score, s.PhasedOut(), len(s.Fields),
			s.GlobalTemperature, len(s.Achievements), game.Digest(s))

	case "export":
		raw, err := st.Get(ctx, *key)
		if err != nil {
			fmt.Fprintln(os.Stderr, "get:", err)
			os.Exit(1)
		}
		if *path == "" {
			_, _ = os.Stdout.Write(raw)
			return
		}
		if err := os.WriteFile(*path, raw, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write:", err)
			os.Exit(1)
		}

	case "import":
		var raw []byte
		if *path == "" {
			raw, err = readAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		if _, err := decode(raw); err != nil {
			fmt.Fprintln(os.Stderr, "refusing to import:", err)
			os.Exit(1)
		}
		if err := st.Set(ctx, *key, raw); err != nil {
			fmt.Fprintln(os.Stderr, "set:", err)
			os.Exit(1)
		}
		fmt.Printf("imported %s into %s\n", humanize.Bytes(uint64(len(raw))), *key)

	case "clear":
		if err := st.Remove(ctx, *key); err != nil {
			fmt.Fprintln(os.Stderr, "remove:", err)
			os.Exit(1)
		}
		fmt.Println("cleared", *key)

	default:
		fmt.Fprintln(os.Stderr, "unknown save op:", op)
		os.Exit(2)
	}
}

// decode overlays raw on a fresh game built from the embedded dataset.
func decode(raw []byte) (game.State, error) {
	series, err := dataset.Embedded()
	if err != nil {
		return game.State{}, err
	}
	coords, err := dataset.EmbeddedCoordinates()
	if err != nil {
		return game.State{}, err
	}
	sc := game.NewScenario(series, coords, game.DefaultRules(), log.New(&bytes.Buffer{}, "", 0))
	return savegame.Decode(raw, sc.Fresh())
}

func readAll(f *os.File) ([]byte, error) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(f)
	return buf.Bytes(), err
}
