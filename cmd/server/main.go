package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"phaseout.no/internal/i18n"
	"phaseout.no/internal/persistence/actionlog"
	"phaseout.no/internal/persistence/archive"
	"phaseout.no/internal/persistence/savegame"
	"phaseout.no/internal/sim/dataset"
	"phaseout.no/internal/sim/game"
	"phaseout.no/internal/sim/tuning"
	"phaseout.no/internal/transport/httpapi"
	"phaseout.no/internal/transport/ws"
)

func main() {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[server] .env: %v", err)
	}

	var (
		addr       = flag.String("addr", envString("PHASEOUT_ADDR", ":8080"), "http listen address")
		configDir  = flag.String("configs", envString("PHASEOUT_CONFIGS", "./configs"), "config directory")
		dataDir    = flag.String("data", envString("PHASEOUT_DATA", "./data"), "runtime data directory")
		tuningPath = flag.String("tuning", envString("PHASEOUT_TUNING", ""), "path to tuning.yaml (default: <configs>/tuning.yaml)")
		store      = flag.String("store", envString("PHASEOUT_STORE", "sqlite"), "save-game backend: sqlite, file or mem")
		saveKey    = flag.String("save_key", envString("PHASEOUT_SAVE_KEY", savegame.DefaultKey), "save-game key")
		seriesPath = flag.String("dataset", envString("PHASEOUT_DATASET", ""), "field series JSON (default: embedded dataset)")
		coordsPath = flag.String("coords", envString("PHASEOUT_COORDS", ""), "field coordinates JSON (default: embedded)")
		noLog      = flag.Bool("disable_action_log", envBool("PHASEOUT_DISABLE_ACTION_LOG", false), "do not record dispatched actions")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
	}

	series, coords, err := loadDataset(*seriesPath, *coordsPath)
	if err != nil {
		logger.Fatalf("load dataset: %v", err)
	}
	sc := game.NewScenario(series, coords, tune.Rules(), logger)
	logger.Printf("scenario: %d fields, %d-%d", len(sc.Fields), sc.Rules.StartYear, sc.Rules.EndYear)

	kvs, err := openStore(*store, *dataDir)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer kvs.Close()
	slot := &savegame.Slot{Store: kvs, Key: *saveKey, Clock: savegame.RealClock{}, Logger: logger}

	opts := game.EngineOptions{Persister: slot, Logger: logger}
	if !*noLog {
		alog := actionlog.NewWriter(filepath.Join(*dataDir, "actions"))
		defer alog.Close()
		opts.ActionLog = alog
	}
	engine := game.NewEngine(sc, opts)
	defer archive.New(filepath.Join(*dataDir, "archives"), logger).Watch(engine)()
	cur := engine.Current()
	logger.Printf("game: year=%d phase=%s closed=%d digest=%s", cur.State.Year, cur.State.GamePhase, cur.State.PhasedOut(), cur.Digest[:12])

	cat, err := i18n.Load()
	if err != nil {
		logger.Fatalf("load i18n: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	wsSrv := ws.NewServer(engine, logger)
	defer wsSrv.Close()

	r := chi.NewRouter()
	r.Mount("/", httpapi.New(engine, httpapi.Options{
		Catalog:  cat,
		Sessions: wsSrv.Sessions,
		Dropped:  wsSrv.Dropped,
	}).Routes())
	r.Get("/v1/ws", wsSrv.Handler())

	if envBool("PHASEOUT_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		// Local-only admin endpoints.
		r.Post("/admin/v1/restart", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			res := engine.Apply(game.RestartGame{})
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "seq": res.Seq, "digest": res.Digest})
		})
	} else {
		logger.Printf("admin endpoints disabled (PHASEOUT_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("PHASEOUT_ENABLE_PPROF_HTTP", false) {
		r.HandleFunc("/debug/pprof/", pprof.Index)
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func loadDataset(seriesPath, coordsPath string) (dataset.Series, dataset.Coordinates, error) {
	var (
		series dataset.Series
		coords dataset.Coordinates
		err    error
	)
	if p := strings.TrimSpace(seriesPath); p != "" {
		series, err = dataset.Load(p)
	} else {
		series, err = dataset.Embedded()
	}
	if err != nil {
		return nil, nil, err
	}
	if p := strings.TrimSpace(coordsPath); p != "" {
		coords, err = dataset.LoadCoordinates(p)
	} else {
		coords, err = dataset.EmbeddedCoordinates()
	}
	if err != nil {
		return nil, nil, err
	}
	return series, coords, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
