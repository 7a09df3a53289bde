package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"ankispeech/pkg/anki"
	"ankispeech/pkg/config"
	"ankispeech/pkg/db"
	"ankispeech/pkg/db/maintenance"
	"ankispeech/pkg/logging"
	"ankispeech/pkg/override"
	"ankispeech/pkg/persona"
	"ankispeech/pkg/probe"
	"ankispeech/pkg/request"
	"ankispeech/pkg/store"
	"ankispeech/pkg/tracker"
)

// app holds the collaborators shared by the commands that talk to Anki.
type app struct {
	cfg       *config.Config
	tracker   *tracker.Tracker
	anki      *anki.Client
	personas  *persona.Table
	overrides *override.Table
	// store is nil when the audio cache is disabled.
	store store.Store

	closers []func()
}

// startLogging initializes logging and returns the cleanup function.
func startLogging(cfg *config.Config) (func(), error) {
	cleanup, err := logging.Init(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cleanup, nil
}

// openApp performs the startup checks shared by process and preview. A
// failed critical check is fatal for the run; extra adds command-specific
// checks.
func openApp(ctx context.Context, cfg *config.Config, extra ...probe.Probe) (*app, error) {
	a := &app{cfg: cfg, tracker: tracker.New()}

	cleanup, err := startLogging(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, cleanup)

	rc := request.New(cfg.Request, a.tracker, logging.RequestLogger)
	a.anki = anki.New(cfg.Anki, rc)

	probes := []probe.Probe{
		{Name: "AnkiConnect", Critical: true, Check: func(ctx context.Context) error {
			if err := a.anki.Ping(ctx); err != nil {
				return fmt.Errorf("not reachable at %s (is Anki running with the AnkiConnect add-on?): %w", cfg.Anki.URL, err)
			}
			return nil
		}},
		{Name: "Personas", Critical: true, Check: func(context.Context) error {
			t, err := persona.Load(cfg.Files.Personas)
			if errors.Is(err, persona.ErrNotFound) {
				return fmt.Errorf("%w (create it with 'ankispeech persona add')", err)
			}
			a.personas = t
			return err
		}},
	}
	if cfg.Cache.Enabled {
		// The cache is an optimization; a broken database only disables it.
		probes = append(probes, probe.Probe{Name: "Audio cache", Check: func(ctx context.Context) error {
			st, err := openStore(ctx, cfg.Cache)
			if err != nil {
				return err
			}
			a.store = st
			a.closers = append(a.closers, func() { _ = st.Close() })
			return nil
		}})
	}
	probes = append(probes, extra...)

	if err := probe.Check(ctx, probes...); err != nil {
		a.Close()
		return nil, err
	}

	a.overrides = override.LoadOrEmpty(cfg.Files.Overrides)
	slog.Info("Configuration loaded", "personas", a.personas.Len(), "overrides", a.overrides.Len(), "engine", cfg.TTS.Engine, "cache", a.store != nil)
	return a, nil
}

// connectAnki creates the AnkiConnect client and checks that it answers.
func connectAnki(ctx context.Context, cfg *config.Config, t *tracker.Tracker) (*anki.Client, error) {
	rc := request.New(cfg.Request, t, logging.RequestLogger)
	c := anki.New(cfg.Anki, rc)
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("AnkiConnect not reachable at %s (is Anki running with the AnkiConnect add-on?): %w", cfg.Anki.URL, err)
	}
	return c, nil
}

func openStore(ctx context.Context, cfg config.CacheConfig) (*store.SQLiteStore, error) {
	d, err := db.Init(cfg.Path)
	if err != nil {
		return nil, err
	}
	maintenance.Run(ctx, d, cfg.MaxAge.Std())
	return store.NewSQLiteStore(d), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// confirm asks a yes/no question; anything but y or yes declines.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
