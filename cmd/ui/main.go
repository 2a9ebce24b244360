package main

import (
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/breadwinner/stock-tracer/internal/config"
	"github.com/breadwinner/stock-tracer/internal/ledger"
	"github.com/breadwinner/stock-tracer/internal/logger"
	"github.com/breadwinner/stock-tracer/internal/sheets"
	"github.com/breadwinner/stock-tracer/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Open the table backend
	st, err := newTableStore(&cfg, log)
	if err != nil {
		log.Fatal("Failed to open table store", zap.Error(err))
	}

	book := ledger.New(st, cfg.Store.Table, log)

	// Setup HTTP server
	mux := http.NewServeMux()

	// Create a handler that has access to the logger and ledger
	apiHandler := NewAPIHandler(log, book)

	// API endpoints
	mux.HandleFunc("GET /api/holdings", apiHandler.HoldingsHandler)
	mux.HandleFunc("GET /api/history", apiHandler.HistoryHandler)
	mux.HandleFunc("GET /api/equity", apiHandler.EquityHandler)
	mux.HandleFunc("GET /api/bars", apiHandler.BarsHandler)
	mux.HandleFunc("POST /api/open", apiHandler.OpenHandler)
	mux.HandleFunc("POST /api/close", apiHandler.CloseHandler)
	mux.HandleFunc("POST /api/delete", apiHandler.DeleteHandler)
	mux.HandleFunc("GET /api/export", apiHandler.ExportHandler)

	// Static file serving for CSS, JS, etc.
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	// HTML template serving
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "web/templates/index.html")
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting web server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
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
