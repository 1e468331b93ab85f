package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brettbedarf/memfs/adapters"
	"github.com/brettbedarf/memfs/api"
	"github.com/brettbedarf/memfs/config"
	"github.com/brettbedarf/memfs/internal/util"
	"github.com/brettbedarf/memfs/metrics"
	"github.com/brettbedarf/memfs/requests"
	"github.com/brettbedarf/memfs/server"
)

// sourceFetchTimeout bounds fetching all manifest file sources
const sourceFetchTimeout = time.Minute

// demoDirs is the tree created by -seed-demo
var demoDirs = []string{
	"/home/fgk/videos",
	"/home/fgk/downloads",
	"/home/lassan",
}

func main() {
	// Parse command line arguments
	var (
		configPath string
		verbose    int
		nodesDef   string
		umount     bool
		httpAddr   string
		seedDemo   bool
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML or JSON config file")
	flag.StringVar(&configPath, "c", "", "--config (shorthand)")
	flag.StringVar(&nodesDef, "nodes", "", "Path to a JSON or YAML manifest of nodes to create at startup")
	flag.StringVar(&nodesDef, "n", "", "--nodes (shorthand)")
	flag.BoolVar(&umount, "umount", false,
		"Unmount the fs first if needed before mounting again. Useful for debuggers that don't exit properly.")
	flag.BoolVar(&umount, "u", false, "--umount (shorthand)")
	flag.IntVar(&verbose, "verbose", 0, "Log verbosity level between 1 (error) and 5 (trace). Default is 3 (info) unless set in the config file.")
	flag.IntVar(&verbose, "v", 0, "--verbose (shorthand)")
	flag.StringVar(&httpAddr, "http", "", "Listen address of the admin HTTP API, i.e. :8080 (overrides config)")
	flag.BoolVar(&seedDemo, "seed-demo", false, "Create a small demo tree under /home")
	flag.Parse()

	// Init the config
	cfg := config.NewDefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.NewConfigFromFile(configPath); err != nil {
			util.InitializeLogger(util.ErrorLevel)
			logger := util.GetLogger("main")
			logger.Fatal().Err(err).Str("config", configPath).Msg("Failed to load config file")
		}
	}
	override := &config.ConfigOverride{}
	if verbose != 0 {
		override.LogLvl = &verbose
	}
	if httpAddr != "" {
		override.HTTPAddr = &httpAddr
	}
	cfg.Merge(override)

	// Initialize logger
	util.InitializeLogger(cfg.LogLvl)
	logger := util.GetLogger("main")

	mnt := flag.Arg(0)
	logger.Info().Str("config", configPath).Str("nodes", nodesDef).Str("mnt", mnt).Msg("MemFS server initializing")
	// Check if mount point is provided
	if mnt == "" {
		logger.Fatal().Msg("Mount point not specified; it must be passed as the argument")
	}
	// Try unmount if requested
	if umount { // send cli command
		cmd := exec.Command("fusermount", "-u", mnt)
		// we ignore error here if not already mounted
		cmd.Run() // nolint:errcheck
	}

	var (
		rec            metrics.Recorder = metrics.Nop{}
		metricsHandler http.Handler
	)
	if cfg.HTTPAddr != "" {
		collector, err := metrics.NewCollector(cfg.MetricsNamespace)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create metrics collector")
		}
		rec, metricsHandler = collector, collector.Handler()
	}

	fs := server.New(cfg, rec)

	if seedDemo {
		for _, p := range demoDirs {
			if _, err := fs.MkdirAll(p, requests.DefaultDirPerms); err != nil {
				logger.Error().Err(err).Str("path", p).Msg("Failed to seed demo directory")
			}
		}
		logger.Info().Strs("dirs", demoDirs).Msg("Seeded demo tree")
	}

	// Load manifest
	if nodesDef != "" {
		m, err := requests.LoadManifest(nodesDef)
		if err != nil {
			logger.Fatal().Err(err).Str("nodes", nodesDef).Msg("Failed to load manifest")
		}
		logger.Debug().Str("nodes", nodesDef).Int("requests", m.Len()).Msg("Manifest loaded successfully")
		reg := adapters.NewRegistry()
		adapters.RegisterBuiltins(reg, nil)
		fetchCtx, cancelFetch := context.WithTimeout(context.Background(), sourceFetchTimeout)
		if err := m.ResolveSources(fetchCtx, reg); err != nil {
			logger.Warn().Err(err).Msg("Some file sources could not be fetched")
		}
		cancelFetch()
		if _, err := requests.Apply(fs, m); err != nil {
			logger.Warn().Err(err).Msg("Some manifest requests failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Admin API; apiDone stays nil when disabled so it never fires
	var apiDone chan error
	if cfg.HTTPAddr != "" {
		if cfg.LogLvl != util.TraceLevel {
			gin.SetMode(gin.ReleaseMode)
		}
		apiDone = make(chan error, 1)
		srv := api.NewServer(fs, rec, metricsHandler, api.WithMaxBodySize(int64(cfg.MaxFileSize)))
		go func() {
			apiDone <- srv.ListenAndServe(ctx, cfg.HTTPAddr)
		}()
	}

	// Serve
	if err := fs.Serve(mnt); err != nil {
		logger.Fatal().Err(err).Msg("Failed to mount filesystem")
	}

	// Setup signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	logger.Info().Str("mountpoint", mnt).Msg("Filesystem mounted successfully")

	// Wait for termination signal
	select {
	case sig := <-signalChan:
		logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")
	case err := <-apiDone:
		logger.Error().Err(err).Msg("Admin API stopped, unmounting filesystem")
		apiDone = nil
	}

	// Unmount the filesystem and tear the tree down
	if err := fs.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to unmount filesystem")
	} else {
		logger.Info().Msg("Filesystem unmounted successfully")
	}

	cancel()
	if apiDone != nil {
		if err := <-apiDone; err != nil {
			logger.Error().Err(err).Msg("Admin API shutdown failed")
		}
	}
}
