package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deidaraiorek/xmlsql/internal/config"
	"github.com/deidaraiorek/xmlsql/internal/engine"
	"github.com/deidaraiorek/xmlsql/internal/fetcher"
	"github.com/deidaraiorek/xmlsql/internal/logger"
	"github.com/deidaraiorek/xmlsql/internal/metrics"
)

var (
	configPath string
	importPath string
	exportPath string
	logLevel   string

	cfg *config.AppConfig
	log *logger.Logger
	eng *engine.Engine
)

var rootCmd = &cobra.Command{
	Use:   "xmlsql",
	Short: "Query XML and HTML documents with CSS selectors and SQL",
	Long: `xmlsql loads XML and HTML documents into an in-memory relational store
and queries them with CSS selectors, raw SQL or stemmed full-text search.
The whole store can be exported to a SQLite file and imported again later.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&importPath, "import", "", "Snapshot to load before running the command")
	rootCmd.PersistentFlags().StringVar(&exportPath, "export", "", "Write a snapshot here after the command finishes")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(shellCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log = logger.NewLogger(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})

	eng, err = engine.New(engine.Options{
		Logger:  log,
		Metrics: metrics.NewMetrics(),
		Fetcher: fetcher.New(fetcher.Options{
			UserAgent:     cfg.Fetch.UserAgent,
			Timeout:       cfg.Fetch.Timeout(),
			MaxBytes:      cfg.Fetch.MaxBytes,
			RespectRobots: cfg.Fetch.RespectRobots,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	if importPath != "" {
		if err := importSnapshot(eng, importPath); err != nil {
			return err
		}
		log.Info().Str("path", importPath).Msg("Snapshot imported")
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if eng == nil {
		return nil
	}
	defer eng.Close()

	if exportPath != "" {
		if err := exportSnapshot(eng, exportPath); err != nil {
			return err
		}
		log.Info().Str("path", exportPath).Msg("Snapshot exported")
	}
	return nil
}

func importSnapshot(e *engine.Engine, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return e.ImportStore(data)
}

func exportSnapshot(e *engine.Engine, path string) error {
	data, err := e.ExportStore()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
