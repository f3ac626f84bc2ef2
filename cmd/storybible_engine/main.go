package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/quillside/storybible-engine/api"
	"github.com/quillside/storybible-engine/config"
	"github.com/quillside/storybible-engine/internal/analytics"
	"github.com/quillside/storybible-engine/internal/engine"
	"github.com/quillside/storybible-engine/internal/persistence"
	"github.com/quillside/storybible-engine/store"
)

const catalogFileName = "catalog.gob"

func main() {
	// Define command-line flags
	var (
		help    = flag.Bool("help", false, "Show help message")
		version = flag.Bool("version", false, "Show version information")
		port    = flag.String("port", "8080", "Port to run the server on")
		dataDir = flag.String("data-dir", config.DefaultDataDir, "Directory for catalog snapshots and analytics data")
	)

	flag.Parse()

	// Handle help flag
	if *help {
		fmt.Printf("Story Bible Engine - reference matching and live annotation for manuscripts\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nExamples:\n")
		fmt.Printf("  %s                            # Start server on default port 8080\n", os.Args[0])
		fmt.Printf("  %s --port 9000                # Start server on port 9000\n", os.Args[0])
		fmt.Printf("  %s --data-dir /tmp/storybible # Use custom data directory\n", os.Args[0])
		return
	}

	// Handle version flag
	if *version {
		fmt.Printf("Story Bible Engine v1.0.0\n")
		fmt.Printf("Debounced window scanning, async rescans, and scan analytics\n")
		return
	}

	log.Printf("Using data directory: %s", *dataDir)

	// Load the entity catalog snapshot; a missing file means a fresh start.
	catalog := store.NewCatalogStore()
	catalogPath := filepath.Join(*dataDir, catalogFileName)
	if err := persistence.LoadGob(catalogPath, catalog); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("No catalog snapshot found at %s, starting with an empty catalog", catalogPath)
		} else {
			log.Fatalf("Failed to load catalog snapshot: %v", err)
		}
	} else {
		log.Printf("Loaded %d entities from %s (catalog version %d)", catalog.Count(), catalogPath, catalog.Version())
	}

	settings := config.EngineSettings{DataDir: *dataDir}
	settings.ApplyDefaults()

	annotationEngine := engine.NewEngine(catalog, settings)
	defer annotationEngine.Stop()

	analyticsService := analytics.NewService(annotationEngine, *dataDir)
	defer analyticsService.Close()
	annotationEngine.SetScanRecorder(analyticsService)

	documents := store.NewDocumentStore()
	apiHandlers := api.NewAPI(annotationEngine, catalog, documents, analyticsService)
	apiHandlers.SetPersistHook(func() error {
		return persistence.SaveGob(catalogPath, catalog)
	})

	// Initialize Gin router
	router := gin.Default()
	router.Use(api.CORSMiddleware())
	router.Use(api.RequestIDMiddleware())
	router.Use(api.RequestSizeLimitMiddleware(10 << 20)) // 10 MB request cap

	// Setup API routes
	api.SetupRoutes(router, apiHandlers)

	// Start the server
	log.Printf("Starting server on port %s...", *port)
	if err := router.Run(":" + *port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
