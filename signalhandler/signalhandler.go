package signalhandler

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"imagebatch/logging"
)

// SetupHandler returns a context that is cancelled on the first SIGINT or
// SIGTERM, so a running engine stops at its next checkpoint and still reports
// its tally. A second signal exits immediately.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logging.LogWarning("Received %s, stopping at the next checkpoint", sig)
			fmt.Fprintln(os.Stderr, "\nStopping...")
			cancel()
		case <-ctx.Done():
			return
		}

		// Second signal: the user does not want to wait for the checkpoint
		<-sigChan
		os.Exit(130)
	}()

	return ctx, cancel
}

// GetOptimalProcs returns the optimal number of worker goroutines for the system
func GetOptimalProcs() int {
	numCPU := runtime.NumCPU()

	// Decoding through cgo (OpenCV fallback) misbehaves with too many goroutines
	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
