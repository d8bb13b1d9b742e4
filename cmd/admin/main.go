package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"phaseout.no/internal/persistence/actionlog"
	"phaseout.no/internal/persistence/archive"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "save":
			saveCmd(os.Args[2:])
			return
		case "archives":
			archivesCmd(os.Args[2:])
			return
		case "tail":
			tailCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "restart":
			restartCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the action log files with their sizes.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	files, err := actionlog.Files(filepath.Join(*dataDir, "actions"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	var total uint64
	for _, p := range files {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		total += uint64(fi.Size())
		fmt.Printf("%s\t%s\n", filepath.Base(p), humanize.Bytes(uint64(fi.Size())))
	}
	fmt.Printf("%d files, %s\n", len(files), humanize.Bytes(total))
}

// tailCmd prints the last n logged actions.
func tailCmd(args []string) {
	fs := flag.NewFlagSet("tail", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	n := fs.Int("n", 20, "number of actions")
	_ = fs.Parse(args)

	entries, err := actionlog.ReadDir(filepath.Join(*dataDir, "actions"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	if *n > 0 && len(entries) > *n {
		entries = entries[len(entries)-*n:]
	}
	for _, e := range entries {
		fmt.Printf("%6d  %d  %s  %s  %s\n", e.Seq, e.Year, e.At, shortDigest(e.Digest), strings.TrimSpace(string(e.Action)))
	}
}

// archivesCmd lists finished games.
func archivesCmd(args []string) {
	fs := flag.NewFlagSet("archives", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	games, err := archive.List(filepath.Join(*dataDir, "archives"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, m := range games {
		fmt.Printf("game_%03d  %-15s  year=%d score=%d closed=%d/%d temperature=%.2f  %s\n",
			m.Game, m.Outcome, m.Year, m.Score, m.Closed, m.Fields, m.Temperature, m.CreatedAt)
	}
	fmt.Printf("%d finished games\n", len(games))
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
