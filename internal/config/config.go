// Package config resolves the listen port and the symbol-store data
// directory from CLI flags and the environment, per spec.md §6. Flag
// parsing is external-interface plumbing, not core logic, so it is left to
// github.com/peterbourgon/ff/v3 (already a teacher dependency) rather than
// hand-rolled with the stdlib flag package.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/peterbourgon/ff/v3"
)

const (
	defaultPort = 4317
	appName     = "eprofiler-tui"
)

// Config holds the resolved runtime configuration.
type Config struct {
	Port    uint16
	DataDir string
}

// Parse reads args (typically os.Args[1:]) and environment variables
// prefixed EPROFILER_TUI_ into a Config. When --data-dir/-d is omitted, the
// OS per-user cache directory joined with appName is used, mirroring the
// original Rust implementation's directories::ProjectDirs lookup — the
// idiomatic Go equivalent is the stdlib os.UserCacheDir(), since no pack
// repo imports a dedicated XDG-dirs library (see DESIGN.md).
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)

	var port uint
	var dataDir string
	fs.UintVar(&port, "port", defaultPort, "listen port")
	fs.UintVar(&port, "p", defaultPort, "listen port (shorthand for --port)")
	fs.StringVar(&dataDir, "data-dir", "", "symbol store directory")
	fs.StringVar(&dataDir, "d", "", "symbol store directory (shorthand for --data-dir)")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("EPROFILER_TUI")); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	if dataDir == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve default data dir: %w", err)
		}
		dataDir = filepath.Join(cache, appName)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}

	return Config{Port: uint16(port), DataDir: dataDir}, nil
}
