package main

import (
	"log"
	"os"

	"launcherd/internal/api"
	"launcherd/internal/catalog"
	"launcherd/internal/config"
	"launcherd/internal/fetch"
	"launcherd/internal/guard"
	"launcherd/internal/launcher"
	"launcherd/internal/pipeline"
	"launcherd/internal/status"
	"launcherd/internal/store"
	"launcherd/internal/tasks"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("launcherd: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"catalog_path", cfg.CatalogPath,
		"install_dir", cfg.InstallDir,
	)

	cat, err := catalog.Load(cfg.CatalogPath, logger)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	registry := tasks.NewRegistry(logger)
	hub := status.NewHub(logger)
	hub.Subscribe(store.NewEventRecorder(db, logger))

	manager := launcher.NewManager(launcher.Options{
		Logger:     logger,
		Catalog:    cat,
		Registry:   registry,
		Guard:      guard.New(logger),
		Pipeline:   pipeline.New(fetch.NewHTTPFetcher(cfg.FetchTimeout), logger),
		Hub:        hub,
		History:    db,
		InstallDir: cfg.InstallDir,
	})
	manager.SeedStates()

	srv := api.NewServer(cfg.ListenAddr, manager, cat, registry, hub, db, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}

	// Let in-flight operations and their history writes settle.
	registry.Wait()
	manager.Wait()
}
