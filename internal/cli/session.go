package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/dukerupert/basket/internal/ai"
	"github.com/dukerupert/basket/internal/config"
	"github.com/dukerupert/basket/internal/database"
	"github.com/dukerupert/basket/internal/engine"
	"github.com/dukerupert/basket/internal/localstore"
	"github.com/dukerupert/basket/internal/logging"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/remote"
	"github.com/dukerupert/basket/internal/shopping"
)

const flushTimeout = 10 * time.Second

// app is one client session: config, local database and a running engine.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	settings *localstore.Settings
	prefs    model.Preferences
	engine   *engine.Engine
	logger   *slog.Logger
	out      io.Writer
	errOut   io.Writer
	format   string
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return config.Load(path)
}

// openApp restores the local model and, unless --offline is set, signs in
// and syncs with the family. A failed sign in is reported and the command
// carries on with the local model.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger := logging.Setup(cmd.ErrOrStderr(), logging.Options{Level: level})

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := database.OpenLocal(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	store := localstore.New(db, time.Local)
	settings := store.Settings()
	prefs, err := settings.Preferences()
	if err != nil {
		db.Close()
		return nil, err
	}

	tag, err := language.Parse(cfg.Language)
	if err != nil {
		tag = language.English
	}

	client := remote.NewClient(cfg.Server, remote.WithLogger(logger))
	eng, err := engine.New(client,
		engine.WithLocalStore(store),
		engine.WithGateway(newGateway(cfg, prefs, logger)),
		engine.WithLogger(logger),
		engine.WithStateOptions(shopping.WithLanguage(tag)),
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		db:       db,
		settings: settings,
		prefs:    prefs,
		engine:   eng,
		logger:   logger,
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		format:   opts.Format,
	}

	if opts.Offline {
		eng.Rollover()
		return a, nil
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(a.errOut, "working offline: %v (run basket init)\n", err)
		eng.Rollover()
		return a, nil
	}
	id := model.Identity{Email: cfg.Identity.Email, Name: cfg.Identity.Name, Secret: cfg.Identity.Secret}
	if _, err := eng.Connect(cmd.Context(), id); err != nil {
		logger.Debug("connect failed", "error", err)
	}
	a.printNotices()
	return a, nil
}

// newGateway picks the assistant: the remote model when it is enabled and
// has a key, the keyword table otherwise.
func newGateway(cfg *config.Config, prefs model.Preferences, logger *slog.Logger) ai.Gateway {
	key := cfg.AI.APIKey()
	if !prefs.AIEnabled || key == "" {
		return ai.Keyword{}
	}
	return ai.NewClient(ai.Config{
		BaseURL:    cfg.AI.BaseURL,
		APIKey:     key,
		Models:     cfg.AI.Models,
		MaxRetries: cfg.AI.MaxRetries,
	}, logger.With("component", "ai"))
}

// close waits for queued remote writes, reports anything that failed and
// shuts the session down.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := a.engine.Flush(ctx); err != nil && !errors.Is(err, engine.ErrNotConnected) {
		fmt.Fprintf(a.errOut, "some changes were not sent: %v\n", err)
	}
	a.printNotices()
	a.engine.Close()
	a.db.Close()
}

func (a *app) printNotices() {
	for {
		select {
		case n := <-a.engine.Notices():
			fmt.Fprintf(a.errOut, "! %s\n", n.Message)
		default:
			return
		}
	}
}

// withApp runs fn inside an open session.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(a *app) error) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}
