// Package config handles optimizer configuration loading and management.
package config

import "github.com/Faultbox/glbopt/pkg/optimize"

// Config holds all tool settings.
type Config struct {
	Optimize OptimizeConfig `yaml:"optimize"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// OptimizeConfig mirrors the pipeline options in YAML form.
type OptimizeConfig struct {
	DeduplicateVertices bool      `yaml:"deduplicate_vertices"`
	OptimizeVertexCache bool      `yaml:"optimize_vertex_cache"`
	QuantizePositions   bool      `yaml:"quantize_positions"`
	PositionBits        int       `yaml:"position_bits"` // 8 or 16
	QuantizeNormals     bool      `yaml:"quantize_normals"`
	QuantizeUVs         bool      `yaml:"quantize_uvs"`
	QuantizeTangents    bool      `yaml:"quantize_tangents"`
	MeshoptCompression  bool      `yaml:"meshopt_compression"`
	TextureAware        bool      `yaml:"texture_aware"`
	ImportanceThreshold float32   `yaml:"importance_threshold"`
	LODErrorThreshold   float32   `yaml:"lod_error_threshold"`
	TextureScale        float32   `yaml:"texture_scale"`
	LODLevels           []float32 `yaml:"lod_levels"`
}

// OutputConfig holds output placement settings.
type OutputConfig struct {
	Dir    string `yaml:"dir"`    // Output directory; empty = next to input
	Suffix string `yaml:"suffix"` // Inserted before the LOD tag in filenames
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	opts := optimize.Default()
	return &Config{
		Optimize: OptimizeConfig{
			DeduplicateVertices: opts.DeduplicateVertices,
			OptimizeVertexCache: opts.OptimizeVertexCache,
			QuantizePositions:   opts.QuantizePositions,
			PositionBits:        opts.PositionBits,
			QuantizeNormals:     opts.QuantizeNormals,
			QuantizeUVs:         opts.QuantizeUVs,
			QuantizeTangents:    opts.QuantizeTangents,
			MeshoptCompression:  opts.MeshoptCompression,
			TextureAware:        opts.TextureAware,
			ImportanceThreshold: opts.ImportanceThreshold,
			LODErrorThreshold:   opts.LODErrorThreshold,
			TextureScale:        opts.TextureScale,
			LODLevels:           opts.LODLevels,
		},
		Output: OutputConfig{
			Suffix: "_opt",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Options converts the YAML mirror into pipeline options.
func (c *Config) Options() optimize.Options {
	o := c.Optimize
	return optimize.Options{
		DeduplicateVertices: o.DeduplicateVertices,
		OptimizeVertexCache: o.OptimizeVertexCache,
		QuantizePositions:   o.QuantizePositions,
		PositionBits:        o.PositionBits,
		QuantizeNormals:     o.QuantizeNormals,
		QuantizeUVs:         o.QuantizeUVs,
		QuantizeTangents:    o.QuantizeTangents,
		MeshoptCompression:  o.MeshoptCompression,
		TextureAware:        o.TextureAware,
		ImportanceThreshold: o.ImportanceThreshold,
		LODErrorThreshold:   o.LODErrorThreshold,
		TextureScale:        o.TextureScale,
		LODLevels:           append([]float32(nil), o.LODLevels...),
	}
}
