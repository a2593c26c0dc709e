// The web binary serves the price API: the published snapshot, budget
// suggestions and health/metrics endpoints.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"cardpulse/internal/app"
)

func main() {
	// Optional .env for local development; env vars win either way.
	_ = godotenv.Load()

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
