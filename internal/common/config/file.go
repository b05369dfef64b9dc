package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ridership3d/pkg/ridership/models"
)

// fileConfig mirrors the YAML overlay. Unset keys keep the env-derived value.
type fileConfig struct {
	DataPath   *string `yaml:"data_path"`
	DataURL    *string `yaml:"data_url"`
	SchemaKind *string `yaml:"schema_kind"`
	View       struct {
		ElevationScale *float64   `yaml:"elevation_scale"`
		Fixed          cameraFile `yaml:"fixed"`
		Upload         cameraFile `yaml:"upload"`
	} `yaml:"view"`
}

type cameraFile struct {
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`
	Zoom      *float64 `yaml:"zoom"`
	Pitch     *float64 `yaml:"pitch"`
	Bearing   *float64 `yaml:"bearing"`
}

// ApplyFile overlays the YAML file at path onto c.
func (c *Config) ApplyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	if err := yaml.NewDecoder(f).Decode(&fc); err != nil {
		return fmt.Errorf("decoding config file %s: %w", path, err)
	}

	setString(&c.Data.Path, fc.DataPath)
	setString(&c.Data.URL, fc.DataURL)
	if fc.SchemaKind != nil {
		kind, err := models.ParseSchemaKind(*fc.SchemaKind)
		if err != nil {
			return &ConfigError{Key: "schema_kind", Reason: err.Error()}
		}
		c.Data.SchemaKind = kind
	}
	setFloat(&c.View.ElevationScale, fc.View.ElevationScale)
	fc.View.Fixed.apply(&c.View.Fixed)
	fc.View.Upload.apply(&c.View.Upload)
	return nil
}

func (f cameraFile) apply(dst *CameraConfig) {
	setFloat(&dst.Latitude, f.Latitude)
	setFloat(&dst.Longitude, f.Longitude)
	setFloat(&dst.Zoom, f.Zoom)
	setFloat(&dst.Pitch, f.Pitch)
	setFloat(&dst.Bearing, f.Bearing)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
