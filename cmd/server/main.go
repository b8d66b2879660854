package main

import (
	"context"
	"log"

	"github.com/sakshee44566/4-IN-A-ROW/internal/app"
)

func main() {
	logger := log.Default()
	cfg := app.ConfigFromEnv(logger)
	if err := app.Run(context.Background(), cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
