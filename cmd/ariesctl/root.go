package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ariesdb/logmgr/internal/logging"
	"github.com/ariesdb/logmgr/internal/logmgr"
	storage "github.com/ariesdb/logmgr/internal/storageengine"
)

var (
	dataDir    string
	pageSize   int
	logLevel   string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "ariesctl",
	Short: "Inspect and drive an ARIES log manager directly",
	Long: `ariesctl operates a logmgr.LogManager against a reference storage
engine rooted at --data-dir. It is not a transaction API: callers supply
their own transaction ids and serialize their own writes, exactly as
logmgr.LogManager expects of any caller.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", ".", "storage engine data directory")
	rootCmd.PersistentFlags().IntVar(&pageSize, "page-size", 0, "page size in bytes (0 = engine default)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit JSON instead of text")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openManager opens the reference storage engine at --data-dir and
// binds a fresh LogManager to it. Callers are responsible for closing
// the returned engine.
func openManager() (*logmgr.LogManager, *storage.Engine, error) {
	opts := storage.DefaultEngineOptions().WithDataDir(dataDir)
	if pageSize > 0 {
		opts = opts.WithPageSize(pageSize)
	}

	engine, err := storage.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage engine: %w", err)
	}

	log := logging.New(logging.Config{Level: logLevel, Format: "text", Output: "stderr"})
	engine.SetLogger(log)
	lm := logmgr.New(log.Zerolog())
	lm.SetStorageEngine(engine)
	engine.BindLogManager(lm)
	return lm, engine, nil
}
