package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging and the bin overlay")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
	flagMesh       = flag.String("mesh", "", "Startup mesh: sphere, icosahedron, tetrahedron or an STL path")
	flagDivisions  = flag.Int("divisions", 0, "Startup mesh resolution")
	flagMetrics    = flag.String("metrics", "", "Serve Prometheus metrics on this address")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Debug.ShowBins = true
	}
	if *flagFullscreen {
		cfg.Window.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	switch *flagMesh {
	case "":
	case ShapeSphere, ShapeIcosahedron, ShapeTetrahedron:
		cfg.Mesh.Shape = *flagMesh
	default:
		cfg.Mesh.Shape = ShapeFile
		cfg.Mesh.Path = *flagMesh
	}
	if *flagDivisions > 0 {
		cfg.Mesh.Divisions = *flagDivisions
	}
	if *flagMetrics != "" {
		cfg.Debug.MetricsAddr = *flagMetrics
	}
}
