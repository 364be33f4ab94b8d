// Package main provides the marker locator daemon. It watches a directory
// for captured frames and writes marker results for each one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marker-locator/internal/config"
	"marker-locator/internal/pipeline"
	"marker-locator/internal/version"
	"marker-locator/internal/watch"
)

const appTitle = "Marker Locator"

func main() {
	flags := config.BindFlags(flag.CommandLine)
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", appTitle, version.String())
		return
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, version.Version)

	cfg, err := flags.Load(flag.CommandLine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Watch.InputDir == "" {
		fmt.Println("Usage: marker-locator -input <dir> [-config locator.yaml] [-results results.txt]")
		os.Exit(1)
	}

	runner, err := pipeline.NewRunner(cfg, pipeline.New(cfg, nil))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open outputs: %v\n", err)
		os.Exit(1)
	}
	defer runner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(cfg.Watch.InputDir, time.Duration(cfg.Watch.SettleMS)*time.Millisecond)
	w.OnFrame(runner.HandleFile)

	log.Printf("Watch: waiting for frames in %s", w.Dir())
	if err := w.Run(ctx); err != nil {
		log.Printf("Watch: %v", err)
		runner.Close()
		os.Exit(1)
	}
	log.Printf("Shutting down after %d frames", runner.Frames())
}
