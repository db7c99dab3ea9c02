package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/servicedeskhq/auth-service/internal/app/bootstrap"
)

func main() {
	_ = godotenv.Load() // load .env if present (ok if missing in prod)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/default.yaml"
	}

	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, configPath)
	if err != nil {
		log.Fatalf("bootstrap runtime: %v", err)
	}
	if err := runtime.RunAPI(ctx); err != nil {
		log.Fatalf("run api: %v", err)
	}
}
