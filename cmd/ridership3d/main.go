package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/ridership3d/internal/common/config"
	"github.com/ridership3d/internal/common/db"
	"github.com/ridership3d/internal/common/discord"
	"github.com/ridership3d/internal/common/logger"
	"github.com/ridership3d/internal/render"
	"github.com/ridership3d/internal/ridership/pipeline"
	"github.com/ridership3d/internal/ridership/source"
	"github.com/ridership3d/internal/ridership/view"
)

const version = "1.0.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "ridership3d",
		Usage:   "3D station ridership maps from transit CSV files",
		Version: version,
		Before: func(c *cli.Context) error {
			// .env is optional; real environment variables win.
			_ = godotenv.Load()
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			renderCommand(),
			pruneCommand(),
		},
	}
}

// env holds what every command needs after configuration is loaded.
type env struct {
	cfg     *config.Config
	log     logger.Logger
	db      *db.DB
	history *db.History
}

// setup loads configuration and opens the history store. With requireMap
// set, a missing map key stops the command before any data is touched.
func setup(ctx context.Context, requireMap bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, configExit(err)
	}
	if requireMap {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateHistory()
	}
	if err != nil {
		return nil, configExit(err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLogLevel(cfg.Logging.Level)
	logCfg.FilePath = cfg.Logging.FilePath
	if cfg.Logging.DiscordURL != "" {
		logCfg.Alerts = discord.NewClient(cfg.Logging.DiscordURL, "ridership3d")
	}
	log := logger.NewFromConfig(logCfg)

	e := &env{cfg: cfg, log: log}
	if cfg.History.Driver == "" {
		return e, nil
	}

	database, err := db.New(cfg.History.Driver, cfg.HistoryDSN(), log)
	if err != nil {
		return nil, fmt.Errorf("connecting history store: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating history store: %w", err)
	}
	e.db = database
	e.history = db.NewHistory(database)
	return e, nil
}

func (e *env) Close() {
	if e.db != nil {
		e.db.Close()
	}
}

func configExit(err error) error {
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return cli.Exit(cfgErr.Error(), 2)
	}
	return err
}

// newPipeline wires the pipeline from configuration.
func (e *env) newPipeline() *pipeline.Pipeline {
	cfg := e.cfg
	opts := pipeline.Options{
		Schema:       cfg.Data.SchemaKind,
		UploadPolicy: cfg.Data.UploadPolicy,
		FixedPolicy:  cfg.Data.FixedPolicy,
		PreviewRows:  cfg.Data.PreviewRows,
		CacheSize:    cfg.Cache.Size,
		CacheTTL:     cfg.Cache.TTL,
		View:         viewSettings(cfg.View),
		Builder:      render.NewBuilder(cfg.Map.Style, cfg.Map.MapboxAPIKey),
	}
	if e.history != nil {
		opts.History = e.history
	}
	return pipeline.New(opts, e.log)
}

// fixedSource prefers the remote URL when one is configured.
func (e *env) fixedSource() source.Source {
	if e.cfg.Data.URL != "" {
		return source.NewRemote(e.cfg.Data.URL, "", e.log)
	}
	return source.NewFile(e.cfg.Data.Path)
}

func viewSettings(v config.ViewConfig) view.Settings {
	return view.Settings{
		ElevationScale: v.ElevationScale,
		Fixed: view.Camera{
			Zoom:    v.Fixed.Zoom,
			Pitch:   v.Fixed.Pitch,
			Bearing: v.Fixed.Bearing,
		},
		Upload: view.Camera{
			Latitude:  v.Upload.Latitude,
			Longitude: v.Upload.Longitude,
			Anchored:  true,
			Zoom:      v.Upload.Zoom,
			Pitch:     v.Upload.Pitch,
			Bearing:   v.Upload.Bearing,
		},
	}
}
