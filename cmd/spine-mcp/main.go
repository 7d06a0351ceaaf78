package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"

	"github.com/ironsheep/spine-tools/internal/config"
	"github.com/ironsheep/spine-tools/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("spine-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("spine-mcp - MCP server for dendritic spine annotation")
			fmt.Println()
			fmt.Println("Usage: spine-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Configuration is read from " + config.DefaultConfigPath + " and .env in the")
			fmt.Println("working directory, then from the environment:")
			fmt.Println("  " + config.EnvPixelToMicron + "=0.129")
			fmt.Println("  " + config.EnvStabilityThreshold + "=50")
			fmt.Println("  " + config.EnvExtensions + "=.tif,.tiff")
			fmt.Println("  " + config.EnvDisplayGamma + "=1.0")
			fmt.Println("  " + config.EnvLogLevel + "=debug")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	cfg, err := config.Load(config.DefaultConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spine-mcp: %v\n", err)
		os.Exit(1)
	}

	// Logging goes to stderr; stdout is for MCP protocol
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.Level(),
		TimeFormat: "15:04:05",
	}))
	logger.Debug("starting spine-mcp", "version", Version, "built", BuildTime, "commit", GitCommit)

	srv := server.New(cfg, server.WithLogger(logger), server.WithVersion(Version))
	if err := srv.Run(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
