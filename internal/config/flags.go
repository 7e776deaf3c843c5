package config

import (
	"flag"
	"strconv"
	"strings"
)

var (
	flagConfig       = flag.String("config", "", "Path to config file")
	flagDebug        = flag.Bool("debug", false, "Enable debug logging")
	flagTextureAware = flag.Bool("texture-aware", false, "Enable importance-aware simplification")
	flagNoCompress   = flag.Bool("no-compress", false, "Disable meshopt compression")
	flagPositionBits = flag.Int("position-bits", 0, "Position quantization bits (8 or 16)")
	flagTextureScale = flag.Float64("texture-scale", 0, "Texture rescale factor in (0,1]")
	flagLODLevels    = flag.String("lod-levels", "", "Comma-separated LOD ratios, e.g. 1.0,0.5,0.25")
	flagOutputDir    = flag.String("output-dir", "", "Output directory")
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
	}
	if *flagTextureAware {
		cfg.Optimize.TextureAware = true
	}
	if *flagNoCompress {
		cfg.Optimize.MeshoptCompression = false
	}
	if *flagPositionBits == 8 || *flagPositionBits == 16 {
		cfg.Optimize.PositionBits = *flagPositionBits
	}
	if *flagTextureScale > 0 && *flagTextureScale <= 1 {
		cfg.Optimize.TextureScale = float32(*flagTextureScale)
	}
	if *flagLODLevels != "" {
		if levels := parseLevels(*flagLODLevels); len(levels) > 0 {
			cfg.Optimize.LODLevels = levels
		}
	}
	if *flagOutputDir != "" {
		cfg.Output.Dir = *flagOutputDir
	}
}

// parseLevels parses a comma-separated ratio list, dropping malformed or
// out-of-range entries.
func parseLevels(s string) []float32 {
	var out []float32
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil || v <= 0 || v > 1 {
			continue
		}
		out = append(out, float32(v))
	}
	return out
}
