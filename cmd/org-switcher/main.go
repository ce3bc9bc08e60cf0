package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/scalekit-inc/org-switcher-demo/internal"
	"github.com/scalekit-inc/org-switcher-demo/internal/config"
	"github.com/scalekit-inc/org-switcher-demo/internal/log"
)

var BuildVersion = "dev"

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("org-switcher %s\n", BuildVersion)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.LogError("Invalid configuration: %v", err)
		os.Exit(1)
	}

	app, err := internal.NewApp(context.Background(), cfg)
	if err != nil {
		log.LogError("Failed to build application: %v", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		log.LogError("Application error: %v", err)
		os.Exit(1)
	}
}
