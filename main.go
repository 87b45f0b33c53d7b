package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/afero"

	"imagebatch/cleaner"
	"imagebatch/database"
	"imagebatch/logging"
	"imagebatch/resizer"
	"imagebatch/scanner"
	"imagebatch/signalhandler"
	"imagebatch/types"
	"imagebatch/utils"
)

func main() {
	// Set the optimal number of CPUs to use
	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	// Parse command line arguments into a map
	args := utils.ParseArguments(os.Args[1:])

	// Get the command (resize or dedupe)
	command, hasCommand := args["command"]

	// Setup debug logging if enabled
	if _, ok := args["debug"]; ok {
		logPath := "imagebatch.log"
		if customLogPath, ok := args["logfile"]; ok && customLogPath != "" {
			logPath = customLogPath
		}
		if err := logging.SetupLogger(logPath); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		} else {
			fmt.Printf("Debug mode enabled. Logging to: %s\n", logPath)
			defer logging.CloseLogger()
		}
	}

	// Check if required arguments are missing
	showUsage := !hasCommand

	if hasCommand && command == "resize" && (args["source"] == "" || args["dest"] == "") {
		showUsage = true
	}

	if hasCommand && command == "dedupe" && args["folder"] == "" {
		showUsage = true
	}

	// Show usage if required arguments are missing
	if showUsage {
		utils.PrintUsage()
		os.Exit(1)
	}

	// Cancelled on SIGINT/SIGTERM so a run stops at its next checkpoint
	ctx, cancel := signalhandler.SetupHandler(context.Background())
	defer cancel()

	var err error
	switch command {
	case "resize":
		err = handleResizeCommand(ctx, args)
	case "dedupe":
		err = handleDedupeCommand(ctx, args)
	}

	if err != nil {
		logging.CloseLogger()
		log.Fatalf("Error: %v", err)
	}
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func handleResizeCommand(ctx context.Context, args map[string]string) error {
	params, err := utils.ParseResizeParams(args)
	if err != nil {
		return err
	}

	source := absPath(args["source"])
	dest := absPath(args["dest"])

	fmt.Printf("Resizing images from %s to %s\n", source, dest)
	switch params.Mode {
	case types.ModeFit:
		fmt.Printf("Mode: fit within %s (no enlarge: %v)\n", params.Fit, params.NoEnlarge)
	default:
		fmt.Printf("Mode: %s %d\n", params.Mode, params.Value)
	}
	fmt.Printf("Output format: %s, quality: %d, keep structure: %v\n", params.OutputFormat, params.Quality, params.KeepStructure)

	startTime := time.Now()

	engine := resizer.NewEngine(afero.NewOsFs())
	run, err := engine.Start(ctx, source, dest, params)
	if err != nil {
		return err
	}
	logging.SetRunID(run.ID())
	defer logging.SetRunID("")

	tracker := scanner.NewProgressTracker("Resizing", run.Events())
	tracker.Wait()

	stats, err := run.Wait()
	if err != nil {
		return err
	}

	if stats.State == types.StateCancelled {
		fmt.Printf("\nResize stopped.\n")
	} else {
		fmt.Printf("\nResize completed successfully!\n")
	}
	fmt.Printf("Run ID: %s\n", stats.RunID)
	fmt.Printf("Total execution time: %v\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Printf("\nSummary:\n")
	fmt.Printf("- Images found: %d\n", stats.Total)
	fmt.Printf("- Resized: %d\n", stats.Succeeded)
	fmt.Printf("- Skipped: %d\n", stats.Skipped)
	if skips := tracker.Skips(); len(skips) > 0 {
		fmt.Printf("\nSkipped images:\n")
		for _, line := range skips {
			fmt.Printf("   %s\n", line)
		}
	}
	return nil
}

func handleDedupeCommand(ctx context.Context, args map[string]string) error {
	folder := absPath(args["folder"])

	opts := cleaner.DefaultOptions()

	if thresholdStr, ok := args["threshold"]; ok {
		threshold, err := utils.ParseThreshold(thresholdStr)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		opts.Threshold = threshold
	}

	var err error
	if opts.Algorithm, err = types.ParseHashAlgorithm(args["algorithm"]); err != nil {
		return err
	}
	if opts.Strategy, err = cleaner.ParseStrategy(args["strategy"]); err != nil {
		return err
	}

	workers, err := utils.ParseWorkers(args["workers"], 1)
	if err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
	opts.Workers = workers

	useCache, err := utils.ParseBool(args, "cache", false)
	if err != nil {
		return err
	}

	var dbPath string
	if useCache {
		dbPath = utils.GetDefaultDatabasePath()
		if customDB, ok := args["database"]; ok && customDB != "" {
			dbPath = customDB
		}

		// Initialize database with retry logic
		const maxRetries = 3
		for i := 0; i < maxRetries; i++ {
			opts.Cache, err = database.InitDatabase(dbPath)
			if err == nil {
				break
			}
			if i < maxRetries-1 {
				log.Printf("Error initializing fingerprint cache (attempt %d/%d): %v - retrying...", i+1, maxRetries, err)
				time.Sleep(time.Second * time.Duration(i+1))
			} else {
				return fmt.Errorf("error initializing fingerprint cache after %d attempts: %w", maxRetries, err)
			}
		}
		defer opts.Cache.Close()
	}

	fmt.Printf("Scanning %s for near-duplicates...\n", folder)
	fmt.Printf("Algorithm: %s, threshold: %d, strategy: %s, workers: %d\n", opts.Algorithm, opts.Threshold, opts.Strategy, opts.Workers)

	startTime := time.Now()

	engine := cleaner.NewEngine(afero.NewOsFs())
	scan, err := engine.Start(ctx, folder, opts)
	if err != nil {
		var nf *types.NotFoundError
		if errors.As(err, &nf) {
			return fmt.Errorf("folder path does not exist: %s", folder)
		}
		return err
	}
	logging.SetRunID(scan.ID())
	defer logging.SetRunID("")

	tracker := scanner.NewProgressTracker("Scanning", scan.Events())
	tracker.Wait()

	res := scan.Wait()
	if res.State == types.StateFailed {
		return res.Err
	}

	for _, msg := range tracker.Messages() {
		if msg != types.StoppedMessage {
			fmt.Println(msg)
		}
	}

	if res.State == types.StateCancelled {
		fmt.Printf("\nScan stopped.\n")
	} else {
		fmt.Printf("\nScan completed successfully!\n")
	}
	fmt.Printf("Run ID: %s\n", res.RunID)
	fmt.Printf("Total execution time: %v\n", time.Since(startTime).Round(time.Millisecond))

	if len(res.Groups) == 0 {
		fmt.Println("\nNo duplicates found.")
	} else {
		fmt.Printf("\nDuplicate groups:\n")
		for i, group := range res.Groups {
			fmt.Printf("%d. %s\n", i+1, group.Anchor())
			for j := 1; j < len(group.Paths); j++ {
				fmt.Printf("   %s (distance %d)\n", group.Paths[j], group.Distances[j])
			}
		}
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("- Images found: %d\n", res.Total)
	fmt.Printf("- Hashed: %d (from cache: %d)\n", res.Hashed, res.Cached)
	fmt.Printf("- Errors: %d\n", res.Failed)
	fmt.Printf("- Duplicate groups: %d\n", len(res.Groups))

	if opts.Cache != nil {
		stats, err := opts.Cache.GetCacheStats()
		if err == nil && stats != nil {
			fmt.Printf("\nFingerprint cache: %s\n", dbPath)
			fmt.Printf("- Cached fingerprints: %d\n", stats.TotalEntries)
			fmt.Printf("- Unique fingerprints: %d\n", stats.UniqueHashes)
		}
	}
	return nil
}
