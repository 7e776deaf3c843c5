// glbopt is a CLI utility for optimizing glTF-Binary (GLB) assets:
// vertex deduplication, cache reordering, LOD generation, quantization
// and meshopt-compressed output.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/glbopt/internal/config"
	"github.com/Faultbox/glbopt/internal/logger"
	"github.com/Faultbox/glbopt/pkg/glb"
	"github.com/Faultbox/glbopt/pkg/optimize"
)

func main() {
	config.ParseFlags()
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	rest := args[1:]

	switch command {
	case "info":
		cmdInfo(rest)
	case "optimize", "opt":
		cmdOptimize(rest)
	case "config":
		cmdConfig(rest)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`glbopt - glTF-Binary mesh optimizer

Usage:
  glbopt [flags] <command> [arguments]

Commands:
  info <file.glb>           Show asset statistics
  optimize <file.glb>...    Optimize assets and emit LOD chains
  config init [path]        Write a starter config file

Flags:
  -config <path>            Config file (default ./glbopt.yaml)
  -debug                    Debug logging
  -texture-aware            Importance-aware simplification
  -no-compress              Disable meshopt compression
  -position-bits <8|16>     Position quantization width
  -texture-scale <f>        Rescale textures by f in (0,1]
  -lod-levels <list>        LOD ratios, e.g. 1.0,0.5,0.25
  -output-dir <dir>         Output directory

Examples:
  glbopt info model.glb
  glbopt optimize model.glb
  glbopt -texture-aware -lod-levels 1.0,0.5 optimize model.glb`)
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: glbopt info <file.glb>")
		os.Exit(1)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fatal(err)
	}
	asset, err := glb.Parse(data)
	if err != nil {
		fatal(err)
	}

	stats := asset.Stats()
	fmt.Printf("File:       %s (%.2f MB)\n", args[0], float64(len(data))/(1024*1024))
	fmt.Printf("Meshes:     %d\n", stats.Meshes)
	fmt.Printf("Primitives: %d\n", stats.Primitives)
	fmt.Printf("Vertices:   %d\n", stats.Vertices)
	fmt.Printf("Triangles:  %d\n", stats.Triangles)
	fmt.Printf("Materials:  %d\n", len(asset.Doc.Materials))
	fmt.Printf("Images:     %d\n", len(asset.Doc.Images))
	fmt.Printf("Animations: %d\n", len(asset.Doc.Animations))
	fmt.Printf("Skins:      %d\n", len(asset.Doc.Skins))
	for _, w := range asset.Warnings {
		fmt.Printf("Warning:    %s\n", w)
	}
}

func cmdOptimize(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: glbopt optimize <file.glb>...")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fatal(err)
	}
	defer logger.Sync()

	opt := optimize.New()
	opt.Log = logger.Log
	opts := cfg.Options()

	for _, input := range args {
		if err := optimizeFile(opt, opts, cfg, input); err != nil {
			fatal(fmt.Errorf("%s: %w", input, err))
		}
	}
}

func optimizeFile(opt *optimize.Optimizer, opts optimize.Options, cfg *config.Config, input string) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	asset, err := glb.Parse(data)
	if err != nil {
		return err
	}

	result, err := opt.Optimize(context.Background(), asset, opts)
	if err != nil {
		return err
	}

	for _, note := range result.Degraded {
		logger.Sugar.Warnw("degraded", "note", note)
	}

	outDir := cfg.Output.Dir
	if outDir == "" {
		outDir = filepath.Dir(input)
	} else if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	for _, lod := range result.LODs {
		name := fmt.Sprintf("%s%s_lod%03d.glb", stem, cfg.Output.Suffix, int(lod.Ratio*100))
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, lod.GLB, 0644); err != nil {
			return err
		}
		fmt.Printf("%s: %d triangles, %.2f MB\n", path, lod.TriangleCount, float64(len(lod.GLB))/(1024*1024))
	}
	return nil
}

func cmdConfig(args []string) {
	if len(args) < 1 || args[0] != "init" {
		fmt.Fprintln(os.Stderr, "Usage: glbopt config init [path]")
		os.Exit(1)
	}
	path := "./glbopt.yaml"
	if len(args) > 1 {
		path = args[1]
	}
	if err := config.Default().SaveTo(path); err != nil {
		fatal(err)
	}
	fmt.Printf("Wrote %s\n", path)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
