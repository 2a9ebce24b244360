package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/breadwinner/stock-tracer/internal/config"
	"github.com/breadwinner/stock-tracer/internal/ledger"
	"github.com/breadwinner/stock-tracer/internal/logger"
	"github.com/breadwinner/stock-tracer/internal/sheets"
	"github.com/breadwinner/stock-tracer/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Track stock positions in a spreadsheet-backed ledger",
	Long: `tracker keeps a personal ledger of stock trades in a single table
backed by an Excel workbook, a SQLite file, or a remote sheet service.

Open and close positions, review realized P&L, and export or chart the
closed trades.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs", "directory containing config.yml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the dependencies every subcommand needs.
type app struct {
	cfg    config.Config
	log    *zap.Logger
	ledger *ledger.Ledger
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return nil, fmt.Errorf("could not initialize logger: %w", err)
	}

	st, err := newTableStore(&cfg, log)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		log:    log,
		ledger: ledger.New(st, cfg.Store.Table, log),
	}, nil
}

// newTableStore picks the storage backend configured under store.backend.
func newTableStore(cfg *config.Config, log *zap.Logger) (store.TableStore, error) {
	switch cfg.Store.Backend {
	case "xlsx", "":
		return store.NewXLSX(cfg.Store.XLSXPath), nil
	case "sqlite":
		return store.NewSQLite(cfg.Store.DSN)
	case "sheets":
		return sheets.NewStore(sheets.NewClient(&cfg.Sheets, log)), nil
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// withApp wraps a subcommand body with config loading and logger setup.
func withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()
		return run(cmd, a, args)
	}
}
