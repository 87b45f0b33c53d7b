package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"imagebatch/imageprocessor"
	"imagebatch/types"
)

// Commands understood by the CLI
var commands = map[string]bool{"resize": true, "dedupe": true}

// ParseArguments converts command-line arguments (without the program name)
// into a map of flags and values. The command is stored under "command".
func ParseArguments(argv []string) map[string]string {
	args := make(map[string]string)

	// First, identify the command (resize/dedupe)
	commandIndex := -1
	for i, arg := range argv {
		if commands[arg] {
			args["command"] = arg
			commandIndex = i
			break
		}
	}

	// Process all arguments, skipping the command
	for i := 0; i < len(argv); i++ {
		if i == commandIndex {
			continue
		}

		arg := argv[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flagName := strings.TrimPrefix(parts[0], "--")
			args[flagName] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Check if this is a boolean flag (no value)
			if i+1 >= len(argv) || strings.HasPrefix(argv[i+1], "--") || i+1 == commandIndex {
				args[flagName] = "true"
			} else {
				// The next argument is the value
				args[flagName] = argv[i+1]
				i++ // Skip the value in the next iteration
			}
		}
	}

	return args
}

// GetDefaultDatabasePath returns the default path for the fingerprint cache
func GetDefaultDatabasePath() string {
	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory if executable path can't be determined
		return "fingerprints.db"
	}

	return filepath.Join(filepath.Dir(exePath), "fingerprints.db")
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage() {
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s resize --source=PATH --dest=PATH [--mode=MODE] [--value=N|WxH] [--quality=N] [--format=FMT]\n", os.Args[0])
	fmt.Printf("         [--no-enlarge] [--skip-vertical] [--skip-horizontal] [--flatten] [--debug] [--logfile=PATH]\n")
	fmt.Printf("  %s dedupe --folder=PATH [--threshold=N] [--algorithm=ALGO] [--strategy=STRATEGY] [--workers=N]\n", os.Args[0])
	fmt.Printf("         [--cache] [--database=PATH] [--debug] [--logfile=PATH]\n")
	fmt.Printf("\nSupported input files: %s\n", strings.Join(imageprocessor.GetSupportedExtensions(), ", "))
	fmt.Printf("\nResize parameters:\n")
	fmt.Printf("  --source          : Folder containing the images to resize\n")
	fmt.Printf("  --dest            : Output folder, created if missing\n")
	fmt.Printf("  --mode            : percentage, width, height, max or fit (default: percentage)\n")
	fmt.Printf("  --value           : Percentage or pixel size; WxH or W,H for fit (default: %d)\n", types.DefaultPercentage)
	fmt.Printf("  --quality         : JPEG/WEBP quality 1-100 (default: %d)\n", types.DefaultQuality)
	fmt.Printf("  --format          : JPG, PNG, WEBP or Original (default: JPG)\n")
	fmt.Printf("  --no-enlarge      : In fit mode, never scale images up\n")
	fmt.Printf("  --skip-vertical   : Skip images taller than wide\n")
	fmt.Printf("  --skip-horizontal : Skip images wider than tall\n")
	fmt.Printf("  --flatten         : Write every image directly into --dest\n")
	fmt.Printf("\nDedupe parameters:\n")
	fmt.Printf("  --folder          : Folder to scan for near-duplicates\n")
	fmt.Printf("  --threshold       : Maximum Hamming distance 0-64 (default: %d, 0 = exact)\n", types.DefaultThreshold)
	fmt.Printf("  --algorithm       : phash, ahash or dhash (default: %s)\n", types.DefaultHashAlgorithm)
	fmt.Printf("  --strategy        : anchor or transitive (default: anchor)\n")
	fmt.Printf("  --workers         : Number of images decoded in parallel (default: 1)\n")
	fmt.Printf("  --cache           : Reuse fingerprints of unchanged files between runs\n")
	fmt.Printf("  --database        : Path to the fingerprint cache (default: %s)\n", GetDefaultDatabasePath())
	fmt.Printf("\nCommon parameters:\n")
	fmt.Printf("  --debug           : Enable debug mode (logs detailed information)\n")
	fmt.Printf("  --logfile         : Specify custom log file path (default: imagebatch.log)\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s resize --source=/photos --dest=/web --mode=fit --value=1920x1080 --no-enlarge --format=WEBP\n", os.Args[0])
	fmt.Printf("  %s dedupe --folder=/photos --threshold=3 --workers=4 --cache\n", os.Args[0])
}

// ParseThreshold parses and validates the threshold value from string
func ParseThreshold(thresholdStr string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(thresholdStr))
	if err != nil || parsed < 0 || parsed > 64 {
		return types.DefaultThreshold, fmt.Errorf("Invalid threshold value '%s', using default (%d)", thresholdStr, types.DefaultThreshold)
	}
	return parsed, nil
}

// ParseWorkers parses a worker count; an empty string yields fallback
func ParseWorkers(workersStr string, fallback int) (int, error) {
	if workersStr == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(workersStr))
	if err != nil || parsed < 1 {
		return fallback, fmt.Errorf("Invalid workers value '%s', using default (%d)", workersStr, fallback)
	}
	return parsed, nil
}

// ParseFitValue parses a fit box written as "WxH" or "W,H"
func ParseFitValue(s string) (types.Size, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == 'x' || r == ',' })
	if len(parts) != 2 {
		return types.Size{}, &types.ValidationError{Field: "value", Message: fmt.Sprintf("fit value must look like 1024x768, got %q", s)}
	}

	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil {
		return types.Size{}, &types.ValidationError{Field: "value", Message: fmt.Sprintf("fit value must be two integers, got %q", s)}
	}
	return types.Size{Width: w, Height: h}, nil
}

// ParseBool reads a flag value; a missing flag yields fallback
func ParseBool(args map[string]string, key string, fallback bool) (bool, error) {
	v, ok := args[key]
	if !ok {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, &types.ValidationError{Field: key, Message: fmt.Sprintf("expected true or false, got %q", v)}
	}
	return b, nil
}

// ParseResizeParams builds validated resize parameters from parsed arguments
func ParseResizeParams(args map[string]string) (types.ResizeParams, error) {
	params := types.DefaultResizeParams()
	var err error

	if m, ok := args["mode"]; ok {
		if params.Mode, err = types.ParseResizeMode(m); err != nil {
			return params, err
		}
	}

	if v, ok := args["value"]; ok {
		if params.Mode == types.ModeFit {
			if params.Fit, err = ParseFitValue(v); err != nil {
				return params, err
			}
		} else {
			n, convErr := strconv.Atoi(strings.TrimSpace(v))
			if convErr != nil {
				return params, &types.ValidationError{Field: "value", Message: fmt.Sprintf("expected an integer, got %q", v)}
			}
			params.Value = n
		}
	} else if params.Mode != types.ModePercentage {
		return params, &types.ValidationError{Field: "value", Message: fmt.Sprintf("%s mode needs --value", params.Mode)}
	}

	if q, ok := args["quality"]; ok {
		n, convErr := strconv.Atoi(strings.TrimSpace(q))
		if convErr != nil {
			return params, &types.ValidationError{Field: "quality", Message: fmt.Sprintf("expected an integer, got %q", q)}
		}
		params.Quality = n
	}

	if f, ok := args["format"]; ok {
		if params.OutputFormat, err = types.ParseOutputFormat(f); err != nil {
			return params, err
		}
	}

	if params.NoEnlarge, err = ParseBool(args, "no-enlarge", false); err != nil {
		return params, err
	}
	if params.SkipVertical, err = ParseBool(args, "skip-vertical", false); err != nil {
		return params, err
	}
	if params.SkipHorizontal, err = ParseBool(args, "skip-horizontal", false); err != nil {
		return params, err
	}

	flatten, err := ParseBool(args, "flatten", false)
	if err != nil {
		return params, err
	}
	if params.KeepStructure, err = ParseBool(args, "keep-structure", !flatten); err != nil {
		return params, err
	}

	return params, params.Validate()
}
