package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"

	"github.com/ironsheep/spine-tools/internal/config"
	"github.com/ironsheep/spine-tools/internal/ui"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	folder := ""
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("spine-annotator %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("spine-annotator - draw and measure dendritic spines across time-lapse frames")
			fmt.Println()
			fmt.Println("Usage: spine-annotator [folder]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Configuration is read from " + config.DefaultConfigPath + ", .env and SPINE_* variables.")
			return
		default:
			folder = os.Args[1]
		}
	}

	cfg, err := config.Load(config.DefaultConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spine-annotator: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.Level(),
		TimeFormat: "15:04:05",
	}))

	app := ui.CreateApp(cfg, logger)
	if folder != "" {
		if err := app.LoadFolder(folder); err != nil {
			logger.Error("failed to load folder", "dir", folder, "err", err)
		}
	}
	app.Run()
}
