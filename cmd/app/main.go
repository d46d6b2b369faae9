package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"MandiCast/internal/di"
	"MandiCast/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	once := flag.Bool("once", false, "run a single forecast and evaluation, print the advice and exit")
	commodity := flag.String("commodity", "", "commodity for -once mode")
	market := flag.String("market", "", "market for -once mode")
	quantity := flag.Float64("qty", 100, "quantity in quintals for -once mode")
	days := flag.Int("days", 30, "forecast horizon in days for -once mode")
	storageDays := flag.Int("storage-days", 0, "storage limit in days for -once mode, 0 means full horizon")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if *once {
		if *commodity == "" || *market == "" {
			log.Fatal("-once requires -commodity and -market")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		advice, err := app.Advisor().Advise(ctx, *commodity, *market, *quantity, *days, *storageDays)
		if err != nil {
			log.Fatalf("advise failed: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(advice); err != nil {
			log.Fatalf("encode advice: %v", err)
		}
		return
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
