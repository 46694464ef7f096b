package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"github.com/OCharnyshevich/cavegen/internal/cave"
	"github.com/OCharnyshevich/cavegen/internal/cave/config"
	"github.com/OCharnyshevich/cavegen/internal/cave/storage"
)

func main() {
	cfg := config.DefaultConfig()

	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "generation seed")
	flag.Float64Var(&cfg.CaveLength, "length", cfg.CaveLength, "cave path length in world units")
	flag.Float64Var(&cfg.NodeSpacing, "spacing", cfg.NodeSpacing, "distance between path nodes")
	flag.Float64Var(&cfg.CaveRadius, "radius", cfg.CaveRadius, "open cave radius")
	flag.Float64Var(&cfg.MaxInfluenceRadius, "influence", cfg.MaxInfluenceRadius, "max influence radius of a path edge")
	flag.Float64Var(&cfg.SamplesPerUnit, "resolution", cfg.SamplesPerUnit, "density samples per world unit")
	flag.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "cells per chunk edge")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "meshing workers (0 = number of CPUs)")
	flag.StringVar(&cfg.Normals, "normals", cfg.Normals, "vertex normals: gradient or face")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	var (
		configPath = flag.String("config", "", "YAML config file (exclusive with -preset)")
		preset     = flag.String("preset", "", "fetch a YAML preset from a go-getter source (URL, git::, s3::, path); exclusive with -config")
		dir        = flag.String("dir", "./cave-data", "data directory for cave.yaml and presets")
		saveConfig = flag.Bool("save-config", false, "write the effective config to <dir>/cave.yaml")
	)
	flag.Parse()

	if err := checkSources(*configPath, *preset); err != nil {
		slog.Error("invalid flags", "error", err)
		os.Exit(2)
	}

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	boot := slog.New(slog.NewTextHandler(os.Stdout, nil))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.New(*dir, boot)
	if err != nil {
		boot.Error("open storage", "error", err)
		os.Exit(1)
	}

	fromFile := config.DefaultConfig()
	switch {
	case *preset != "":
		src, _, _ := strings.Cut(*preset, "?")
		local, err := store.FetchPreset(ctx, *preset, path.Base(src))
		if err != nil {
			boot.Error("fetch preset", "error", err)
			os.Exit(1)
		}
		if err := config.LoadInto(local, fromFile); err != nil {
			boot.Error("load preset", "error", err)
			os.Exit(1)
		}
	case *configPath != "":
		if err := config.LoadInto(*configPath, fromFile); err != nil {
			boot.Error("load config", "error", err)
			os.Exit(1)
		}
	default:
		if err := store.LoadConfig(fromFile); err != nil {
			boot.Error("load config", "error", err)
			os.Exit(1)
		}
	}
	config.Merge(cfg, fromFile, explicit)

	level, err := cfg.Level()
	if err != nil {
		boot.Error("invalid config", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if *saveConfig {
		if err := store.SaveConfig(cfg); err != nil {
			log.Error("save config", "error", err)
			os.Exit(1)
		}
		log.Info("config saved", "dir", store.Dir())
	}

	gen, err := cave.New(cfg, log)
	if err != nil {
		log.Error("create generator", "error", err)
		os.Exit(1)
	}

	res, err := gen.Generate(ctx)
	if err != nil {
		log.Error("generate cave", "error", err)
		os.Exit(1)
	}

	lo, hi, ok := res.Bounds()
	log.Info("done",
		"nodes", len(res.Path),
		"chunks", len(res.Chunks),
		"triangles", res.TriangleCount(),
		"hasGeometry", ok,
		"min", lo,
		"max", hi,
	)
}

// checkSources rejects ambiguous config sources.
func checkSources(configPath, preset string) error {
	if configPath != "" && preset != "" {
		return errors.New("-config and -preset are mutually exclusive")
	}
	return nil
}
