package main

import (
	"context"
	"log"
	"os"

	"github.com/Wang-tianhao/session-auth-go/internal/app"
	"github.com/Wang-tianhao/session-auth-go/internal/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("init error: %v", err)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
