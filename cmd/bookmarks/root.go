package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/bookmarks/internal/config"
	"github.com/knowledge-engine/bookmarks/internal/engine"
	"github.com/knowledge-engine/bookmarks/internal/storage"
)

// set at build time with -ldflags "-X main.version=..."
var version = "dev"

var configPath string

var globalConfig *config.Config
var globalLogger *logrus.Entry
var globalStore storage.Store
var globalEngine *engine.Engine

var rootCmd = &cobra.Command{
	Use:           "bookmarks",
	Short:         "Semantic search over your bookmarks",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Enrich a bookmark list with page text and embeddings, then search it
by meaning from the command line, over HTTP, or as MCP tools.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		globalConfig = cfg
		globalLogger = newLogger(cfg.Log).WithField("service", "bookmarks")

		store, err := storage.NewFileStorage(cfg.Storage, globalLogger.WithField("component", "storage"))
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		globalStore = store

		eng, err := engine.NewEngine(cfg, globalLogger, store)
		if err != nil {
			return fmt.Errorf("failed to initialize engine: %w", err)
		}
		globalEngine = eng
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if globalStore != nil {
			_ = globalStore.Close()
			globalStore = nil
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Load(), nil
	}
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
