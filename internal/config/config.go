// Package config handles sculptor configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/sculptor/internal/logger"
)

// Errors returned by Validate.
var (
	ErrInvalidWindow    = errors.New("invalid window size")
	ErrInvalidDimension = errors.New("index dimension out of range")
	ErrInvalidBudget    = errors.New("budget must be positive")
	ErrInvalidShape     = errors.New("unknown mesh shape")
	ErrInvalidLevel     = errors.New("unknown log level")
)

// Mesh shapes accepted in MeshConfig.Shape.
const (
	ShapeSphere      = "sphere"
	ShapeIcosahedron = "icosahedron"
	ShapeTetrahedron = "tetrahedron"
	ShapeFile        = "file"
)

// Config holds all sculptor settings.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Brush   BrushConfig   `yaml:"brush"`
	Index   IndexConfig   `yaml:"index"`
	Normals NormalsConfig `yaml:"normals"`
	Mesh    MeshConfig    `yaml:"mesh"`
	Export  ExportConfig  `yaml:"export"`
	Light   LightConfig   `yaml:"light"`
	Debug   DebugConfig   `yaml:"debug"`
	Logging LoggingConfig `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// BrushConfig holds stroke tuning.
type BrushConfig struct {
	StrokeBudget int     `yaml:"stroke_budget"` // triangles painted per frame
	NormalBudget int     `yaml:"normal_budget"` // triangles renormalized per frame
	SmallPatch   float32 `yaml:"small_patch"`   // patch radius for the small size
	BigPatch     float32 `yaml:"big_patch"`     // patch radius for the big size
	InflateStep  float32 `yaml:"inflate_step"`
	HandleStep   float32 `yaml:"handle_step"`
	LiftHeight   float32 `yaml:"lift_height"` // lift tool's offset from the stroke start surface
	DefaultTool  string  `yaml:"default_tool"` // color, inflate, deflate, handle, lift
	DefaultSize  string  `yaml:"default_size"` // tri, small, big
}

// IndexConfig holds spatial index settings.
type IndexConfig struct {
	Dimension int `yaml:"dimension"` // bins per axis, at most 255
}

// NormalsConfig holds normal propagation settings.
type NormalsConfig struct {
	ThresholdDeg float32 `yaml:"threshold_deg"`
}

// MeshConfig selects the startup mesh.
type MeshConfig struct {
	Shape     string `yaml:"shape"`
	Divisions int    `yaml:"divisions"` // spiral sphere divisions or icosahedron subdivisions
	Variant   int    `yaml:"variant"`   // spiral sphere shape variant
	Path      string `yaml:"path"`      // STL file when shape is "file"
	Seed      int64  `yaml:"seed"`      // vertex colors and variant parameters; 0 picks one at startup
}

// ExportConfig holds mesh export settings.
type ExportConfig struct {
	Dir      string `yaml:"dir"`
	Basename string `yaml:"basename"`
}

// LightConfig holds shading settings. Angles are in degrees.
type LightConfig struct {
	Longitude float32 `yaml:"sun_longitude"`
	Latitude  float32 `yaml:"sun_latitude"`
	Sun       float32 `yaml:"sun"`
	Headlight float32 `yaml:"headlight"`
	Ambient   float32 `yaml:"ambient"`
}

// DebugConfig holds diagnostics settings.
type DebugConfig struct {
	MetricsAddr string `yaml:"metrics_addr"` // empty disables the /metrics endpoint
	ShowBins    bool   `yaml:"show_bins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Sculptor",
			Width:  1024,
			Height: 768,
			VSync:  true,
		},
		Brush: BrushConfig{
			StrokeBudget: 200,
			NormalBudget: 200,
			SmallPatch:   0.39269908, // π/8
			BigPatch:     0.78539816, // π/4
			InflateStep:  0.05,
			HandleStep:   0.01,
			LiftHeight:   0.1,
			DefaultTool:  "inflate",
			DefaultSize:  "small",
		},
		Index: IndexConfig{
			Dimension: 32,
		},
		Normals: NormalsConfig{
			ThresholdDeg: 0.5,
		},
		Mesh: MeshConfig{
			Shape:     ShapeSphere,
			Divisions: 60,
		},
		Export: ExportConfig{
			Dir:      ".",
			Basename: "sculpt",
		},
		Light: LightConfig{
			Longitude: 225,
			Latitude:  45,
			Sun:       0.35,
			Headlight: 0.6,
			Ambient:   0.2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidWindow, c.Window.Width, c.Window.Height)
	}
	if c.Index.Dimension < 4 || c.Index.Dimension > 255 {
		return fmt.Errorf("%w: %d", ErrInvalidDimension, c.Index.Dimension)
	}
	if c.Brush.StrokeBudget <= 0 {
		return fmt.Errorf("%w: stroke_budget=%d", ErrInvalidBudget, c.Brush.StrokeBudget)
	}
	if c.Brush.NormalBudget <= 0 {
		return fmt.Errorf("%w: normal_budget=%d", ErrInvalidBudget, c.Brush.NormalBudget)
	}
	switch c.Mesh.Shape {
	case ShapeSphere, ShapeIcosahedron, ShapeTetrahedron:
	case ShapeFile:
		if c.Mesh.Path == "" {
			return fmt.Errorf("%w: file shape without path", ErrInvalidShape)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidShape, c.Mesh.Shape)
	}
	if !logger.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, c.Logging.Level)
	}
	return nil
}
