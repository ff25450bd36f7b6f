package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ChugThaJug/hellfast/config"
	"github.com/ChugThaJug/hellfast/processors"
	"github.com/ChugThaJug/hellfast/server"
	"github.com/ChugThaJug/hellfast/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	store, err := storage.NewJobStore(cfg)
	if err != nil {
		log.Fatalf("failed to init job store: %v", err)
	}

	generator := processors.NewOpenAIGenerator(cfg)
	runner := processors.NewRunner(store, generator, cfg)
	log.Printf("Pipeline runner initialized (model %s, max %d concurrent jobs)", cfg.Model, cfg.MaxConcurrentJobs)

	mux := http.NewServeMux()
	handlers := server.NewHandlers(store, runner)
	handlers.Register(mux)

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	// Let in-flight jobs finish before the process exits.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Println("Shutting down, waiting for running jobs...")
		runner.Wait()
		log.Println("All jobs finished")
		os.Exit(0)
	}()

	log.Printf("Server listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
