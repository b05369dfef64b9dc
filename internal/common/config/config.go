package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ridership3d/internal/ridership/view"
	"github.com/ridership3d/pkg/ridership/models"
)

type Config struct {
	Map      MapConfig
	Data     DataConfig
	Server   ServerConfig
	Cache    CacheConfig
	History  HistoryConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	View     ViewConfig
}

// MapConfig holds the tile provider settings handed to the renderer.
type MapConfig struct {
	MapboxAPIKey string
	Style        string
	// ChartFont is an optional TrueType font with CJK glyphs for chart labels.
	ChartFont string
}

type DataConfig struct {
	Path          string
	URL           string // optional remote CSV for the fixed dataset
	SchemaKind    models.SchemaKind
	UploadPolicy  models.NullPolicy
	FixedPolicy   models.NullPolicy
	PreviewRows   int
	MaxUploadSize int64
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// HistoryConfig controls the optional load-history store.
type HistoryConfig struct {
	Driver        string // "", "sqlite" or "postgres"
	DSN           string
	Retention     time.Duration
	PruneInterval time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type LoggingConfig struct {
	Level      string
	FilePath   string
	DiscordURL string
}

// ViewConfig holds the camera defaults of both variants.
type ViewConfig struct {
	ElevationScale float64
	Fixed          CameraConfig
	Upload         CameraConfig
}

// CameraConfig is a default camera. Latitude/Longitude are only used by the
// upload variant, which anchors on a fixed point instead of the data mean.
type CameraConfig struct {
	Latitude  float64
	Longitude float64
	Zoom      float64
	Pitch     float64
	Bearing   float64
}

// ConfigError reports a missing or invalid setting.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("config: %s is not set", e.Key)
	}
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

func Load() (*Config, error) {
	cfg := &Config{
		Map: MapConfig{
			MapboxAPIKey: os.Getenv("MAPBOX_API_KEY"),
			Style:        getEnv("MAP_STYLE", "mapbox://styles/mapbox/light-v10"),
			ChartFont:    getEnv("CHART_FONT", ""),
		},
		Data: DataConfig{
			Path:          getEnv("DATA_PATH", "data/mrt_ridership.csv"),
			URL:           getEnv("DATA_URL", ""),
			PreviewRows:   getIntEnv("PREVIEW_ROWS", 20),
			MaxUploadSize: int64(getIntEnv("MAX_UPLOAD_BYTES", 10<<20)),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8081"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		},
		Cache: CacheConfig{
			Size: getIntEnv("CACHE_SIZE", 64),
			TTL:  getDurationEnv("CACHE_TTL", 10*time.Minute),
		},
		History: HistoryConfig{
			Driver:        getEnv("HISTORY_DRIVER", ""),
			DSN:           getEnv("HISTORY_DSN", ""),
			Retention:     getDurationEnv("HISTORY_RETENTION", 30*24*time.Hour),
			PruneInterval: getDurationEnv("HISTORY_PRUNE_INTERVAL", 24*time.Hour),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "ridership3d"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE", "ridership3d.log"),
			DiscordURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		},
		View: ViewConfig{
			ElevationScale: getFloatEnv("ELEVATION_SCALE", 0.01),
			Fixed: CameraConfig{
				Zoom:    9.0,
				Pitch:   50,
				Bearing: 0,
			},
			Upload: CameraConfig{
				// Taipei Main Station
				Latitude:  25.0478,
				Longitude: 121.5170,
				Zoom:      10,
				Pitch:     50,
				Bearing:   0,
			},
		},
	}

	var err error
	if cfg.Data.SchemaKind, err = models.ParseSchemaKind(getEnv("SCHEMA_KIND", "multi")); err != nil {
		return nil, &ConfigError{Key: "SCHEMA_KIND", Reason: err.Error()}
	}
	if cfg.Data.UploadPolicy, err = models.ParseNullPolicy(getEnv("UPLOAD_NULL_POLICY", "strict")); err != nil {
		return nil, &ConfigError{Key: "UPLOAD_NULL_POLICY", Reason: err.Error()}
	}
	if cfg.Data.FixedPolicy, err = models.ParseNullPolicy(getEnv("FIXED_NULL_POLICY", "lenient")); err != nil {
		return nil, &ConfigError{Key: "FIXED_NULL_POLICY", Reason: err.Error()}
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks the preconditions that must hold before any data is read.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Map.MapboxAPIKey) == "" {
		return &ConfigError{Key: "MAPBOX_API_KEY"}
	}
	if err := c.ValidateRanges(); err != nil {
		return err
	}
	return c.ValidateHistory()
}

// ValidateRanges checks numeric settings against the ranges the pipeline and
// view sliders accept.
func (c *Config) ValidateRanges() error {
	if c.Data.PreviewRows < 0 {
		return &ConfigError{Key: "PREVIEW_ROWS", Reason: fmt.Sprintf("%d is negative", c.Data.PreviewRows)}
	}
	if c.Data.MaxUploadSize <= 0 {
		return &ConfigError{Key: "MAX_UPLOAD_BYTES", Reason: fmt.Sprintf("%d is not positive", c.Data.MaxUploadSize)}
	}
	if c.Cache.Size < 0 {
		return &ConfigError{Key: "CACHE_SIZE", Reason: fmt.Sprintf("%d is negative", c.Cache.Size)}
	}
	if err := checkRange("ELEVATION_SCALE", c.View.ElevationScale, view.MinElevationScale, view.MaxElevationScale); err != nil {
		return err
	}
	cameras := []struct {
		prefix string
		cam    CameraConfig
	}{
		{"view.fixed", c.View.Fixed},
		{"view.upload", c.View.Upload},
	}
	for _, cc := range cameras {
		if err := checkRange(cc.prefix+".pitch", cc.cam.Pitch, view.MinPitch, view.MaxPitch); err != nil {
			return err
		}
		if err := checkRange(cc.prefix+".bearing", cc.cam.Bearing, view.MinBearing, view.MaxBearing); err != nil {
			return err
		}
		if err := checkRange(cc.prefix+".zoom", cc.cam.Zoom, 0, 24); err != nil {
			return err
		}
	}
	if err := checkRange("view.upload.latitude", c.View.Upload.Latitude, -90, 90); err != nil {
		return err
	}
	return checkRange("view.upload.longitude", c.View.Upload.Longitude, -180, 180)
}

func checkRange(key string, v, lo, hi float64) error {
	if math.IsNaN(v) || v < lo || v > hi {
		return &ConfigError{Key: key, Reason: fmt.Sprintf("%v is outside [%v, %v]", v, lo, hi)}
	}
	return nil
}

// ValidateHistory checks the history store settings only.
func (c *Config) ValidateHistory() error {
	switch c.History.Driver {
	case "", "sqlite", "postgres":
	default:
		return &ConfigError{Key: "HISTORY_DRIVER", Reason: fmt.Sprintf("unsupported driver %q", c.History.Driver)}
	}
	if c.History.Driver == "sqlite" && c.History.DSN == "" {
		return &ConfigError{Key: "HISTORY_DSN", Reason: "sqlite history needs a database path"}
	}
	return nil
}

// HistoryDSN returns the DSN for the configured history driver.
func (c *Config) HistoryDSN() string {
	if c.History.DSN != "" || c.History.Driver != "postgres" {
		return c.History.DSN
	}
	return c.Database.ConnectionString()
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
