package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesTaggedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	if err := SetupLogger(path); err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}

	SetRunID("run-1")
	LogInfo("hello %d", 1)
	LogImageProcessed("/a.png", false, "vertical")
	SetRunID("")
	LogWarning("untagged")
	CloseLogger()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	for _, want := range []string{
		"[run-1] INFO: hello 1",
		"[run-1] SKIPPED: /a.png - Reason: vertical",
		"WARNING: untagged",
		"ImageBatch Debug Log Closed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "] WARNING: untagged") {
		t.Error("run ID tag not cleared")
	}
}

func TestLoggingWithoutSetupIsSilent(t *testing.T) {
	var stderr bytes.Buffer
	log.SetOutput(&stderr)
	defer log.SetOutput(os.Stderr)

	CloseLogger()
	LogInfo("dropped")
	DebugLog("dropped")
	LogError("dropped")
	LogWarning("dropped")
	LogImageProcessed("/a.png", true, "")

	if stderr.Len() != 0 {
		t.Errorf("unexpected output without a log file: %q", stderr.String())
	}
}
