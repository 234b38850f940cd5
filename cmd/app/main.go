package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"order-desk/internal/adapters/cli"
	"order-desk/internal/bootstrap"
	"order-desk/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, cli.Usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()

	ctx := context.Background()
	rt, err := bootstrap.Build(ctx, cfg, logger, os.Args[1] == "migrate")
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer rt.Close()

	if err := cli.Run(ctx, rt.Service, os.Args[1:], os.Stdout); err != nil {
		rt.Close()
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}
