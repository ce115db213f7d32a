package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"mcmcref/adapters/api"
	"mcmcref/adapters/fsstore"
	"mcmcref/app"
	"mcmcref/internal/config"
	"mcmcref/internal/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.NewDefaultLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}

	localRoot := cfg.Store.LocalRoot
	if localRoot == "" {
		localRoot = fsstore.DefaultLocalRoot()
	}
	store := fsstore.New(localRoot, cfg.Store.PackagedRoot)
	service := app.NewReferenceService(store)
	server := api.NewServer(service, log)

	addr := ":" + cfg.Server.Port
	log.Info("corpus API listening on %s (local root %s)", addr, localRoot)
	if err := http.ListenAndServe(addr, server.Handler()); err != nil {
		log.Error("server stopped: %v", err)
		os.Exit(1)
	}
}
