package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/jasmine-z2a/studio/internal/config"
	"github.com/jasmine-z2a/studio/internal/feed"
	"github.com/jasmine-z2a/studio/internal/panel"
	"github.com/jasmine-z2a/studio/internal/server"
	"github.com/jasmine-z2a/studio/internal/storage"
)

func main() {
	port := flag.Int("port", 8090, "HTTP port to listen on")
	dbPath := flag.String("db", "studio.db", "Path to the config database")
	dataDir := flag.String("data", "./data", "Directory for history snapshots")
	webDir := flag.String("web", "", "Directory for static web files (optional)")
	historyCap := flag.Int("cap", feed.DefaultCap, "Max records retained per topic")
	retentionStr := flag.String("retention", "168h", "Snapshot retention duration (e.g. 72h)")
	defaultTopic := flag.String("default-topic", panel.DefaultTopic, "Fallback topic when nothing is selected")
	ingestToken := flag.String("ingest-token", "", "Set (and persist) the ingest token, then continue")
	ingestRate := flag.Float64("ingest-rate", 0, "Max ingest requests/sec, 0 = unlimited")
	rulesPath := flag.String("rules", "", "JSON file with custom datatype field rules")
	flag.Parse()

	retention, err := time.ParseDuration(*retentionStr)
	if err != nil {
		log.Fatalf("Invalid retention duration: %v", err)
	}

	log.Println("Studio log panel service starting...")

	cfg, err := config.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open config database: %v", err)
	}
	defer cfg.Close()

	if *ingestToken != "" {
		if err := cfg.SetIngestToken(context.Background(), *ingestToken); err != nil {
			log.Fatalf("Failed to store ingest token: %v", err)
		}
		log.Println("Ingest token updated")
	}

	registry := panel.NewRegistry()
	if *rulesPath != "" {
		if err := loadFieldRules(registry, *rulesPath); err != nil {
			log.Fatalf("Failed to load field rules: %v", err)
		}
	}

	store := feed.NewStore(*historyCap)
	if err := storage.LoadAll(*dataDir, store); err != nil {
		log.Printf("Snapshot restore failed: %v", err)
	} else if n := len(store.Topics()); n > 0 {
		log.Printf("Restored history for %d topics from %s", n, *dataDir)
	}

	go storage.RunCleaner(*dataDir, retention, 1*time.Hour)

	srv := server.New(store, registry, cfg, server.Options{
		WebDir:       *webDir,
		DefaultTopic: *defaultTopic,
		IngestRate:   rate.Limit(*ingestRate),
	})
	addr := fmt.Sprintf(":%d", *port)

	go func() {
		log.Printf("Listening on %s", addr)
		if err := srv.Start(addr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal: %v. Shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Writing history snapshots...")
	if err := storage.SaveAll(*dataDir, store); err != nil {
		log.Printf("Snapshot write failed: %v", err)
	}

	log.Println("Studio exited gracefully.")
}

// loadFieldRules registers custom datatype mappings from a JSON file
// containing an array of field rules.
func loadFieldRules(registry *panel.Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var rules []panel.FieldRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return err
	}
	for _, rule := range rules {
		if err := registry.RegisterFieldRule(rule); err != nil {
			return err
		}
	}
	log.Printf("Registered %d custom datatype rules", len(rules))
	return nil
}
