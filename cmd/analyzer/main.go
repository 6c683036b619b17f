// Lambda entry point for single-text sentiment analysis.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/spacesedan/sentiserve/internal/app"
)

func main() {
	cfg, err := app.Bootstrap()
	if err != nil {
		slog.Error("[Main] Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("[Main] Failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()

	lambda.Start(a.Handlers.AnalyzeLambda)
}
