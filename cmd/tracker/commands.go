package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/breadwinner/stock-tracer/internal/analytics"
	"github.com/breadwinner/stock-tracer/internal/chart"
	"github.com/breadwinner/stock-tracer/internal/export"
	"github.com/breadwinner/stock-tracer/internal/ledger"
	"github.com/breadwinner/stock-tracer/internal/models"
)

var (
	openDate   string
	openNotes  string
	closeDate  string
	closeNotes string
	listClosed bool
	listAll    bool
	exportOut  string
	chartDir   string
)

func init() {
	openCmd.Flags().StringVarP(&openDate, "date", "d", "", "open date as YYYY-MM-DD (default today)")
	openCmd.Flags().StringVarP(&openNotes, "notes", "n", "", "free-form notes")
	closeCmd.Flags().StringVarP(&closeDate, "date", "d", "", "close date as YYYY-MM-DD (default today)")
	closeCmd.Flags().StringVarP(&closeNotes, "notes", "n", "", "note appended to the trade on close")
	listCmd.Flags().BoolVar(&listClosed, "closed", false, "list closed trades, most recent first")
	listCmd.Flags().BoolVar(&listAll, "all", false, "list every trade in storage order")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default from config)")
	chartCmd.Flags().StringVar(&chartDir, "dir", "", "output directory (default from config)")

	rootCmd.AddCommand(openCmd, closeCmd, deleteCmd, listCmd, summaryCmd, exportCmd, chartCmd)
}

var openCmd = &cobra.Command{
	Use:   "open SYMBOL PRICE QUANTITY",
	Short: "Open a new position",
	Args:  cobra.ExactArgs(3),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		price, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", args[1], err)
		}
		qty, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid quantity %q: %w", args[2], err)
		}
		date, err := models.ParseDate(openDate)
		if err != nil {
			return err
		}

		trade, err := a.ledger.Open(cmd.Context(), ledger.OpenRequest{
			Symbol:   args[0],
			BuyPrice: price,
			Quantity: qty,
			OpenDate: date,
			Notes:    openNotes,
		})
		if err != nil {
			return err
		}

		fmt.Printf("opened #%d %s %d @ %s on %s\n",
			trade.ID, trade.Symbol, trade.Quantity, trade.BuyPrice, trade.OpenDate)
		return nil
	}),
}

var closeCmd = &cobra.Command{
	Use:   "close ID PRICE",
	Short: "Close an open position",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid trade id %q: %w", args[0], err)
		}
		price, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", args[1], err)
		}
		date, err := models.ParseDate(closeDate)
		if err != nil {
			return err
		}

		trade, err := a.ledger.Close(cmd.Context(), ledger.CloseRequest{
			ID:        id,
			SellPrice: price,
			CloseDate: date,
			Notes:     closeNotes,
		})
		if err != nil {
			return err
		}

		fmt.Printf("closed #%d %s @ %s on %s: pnl %s (%s%%)\n",
			trade.ID, trade.Symbol, trade.SellPrice, trade.CloseDate, trade.PnL, trade.PnLPercent)
		return nil
	}),
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Remove a trade from the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid trade id %q: %w", args[0], err)
		}

		if err := a.ledger.Delete(cmd.Context(), id); err != nil {
			return err
		}

		fmt.Printf("deleted trade #%d\n", id)
		return nil
	}),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List open positions",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		ctx := cmd.Context()

		var trades []models.Trade
		var err error
		switch {
		case listAll:
			trades, err = a.ledger.All(ctx)
		case listClosed:
			trades, err = a.ledger.ListClosed(ctx)
		default:
			trades, err = a.ledger.ListOpen(ctx)
		}
		if err != nil {
			return err
		}

		if len(trades) == 0 {
			fmt.Println("no trades")
			return nil
		}
		if listAll || listClosed {
			return printClosedTrades(os.Stdout, trades, listAll)
		}
		return printOpenTrades(os.Stdout, trades)
	}),
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show realized P&L and open exposure",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		trades, err := a.ledger.All(cmd.Context())
		if err != nil {
			return err
		}

		s := analytics.Summarize(trades)
		open := 0
		for _, t := range trades {
			if t.IsOpen() {
				open++
			}
		}

		fmt.Printf("closed trades:    %d\n", s.ClosedCount)
		fmt.Printf("realized pnl:     %s\n", s.TotalPnL)
		fmt.Printf("win rate:         %.1f%%\n", s.WinRate)
		fmt.Printf("open positions:   %d\n", open)
		fmt.Printf("open cost basis:  %s\n", analytics.OpenCostBasis(trades))
		return nil
	}),
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export closed trades as CSV",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		trades, err := a.ledger.ListClosed(cmd.Context())
		if err != nil {
			return err
		}

		path := exportOut
		if path == "" {
			path = a.cfg.Export.Path
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()

		if err := export.WriteClosedTrades(f, trades); err != nil {
			return err
		}

		fmt.Printf("exported %d closed trades to %s\n", len(trades), path)
		return nil
	}),
}

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render equity curve and per-trade P&L charts",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		trades, err := a.ledger.All(cmd.Context())
		if err != nil {
			return err
		}

		dir := chartDir
		if dir == "" {
			dir = a.cfg.Chart.Dir
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}

		equityPath := filepath.Join(dir, "equity.png")
		barsPath := filepath.Join(dir, "pnl.png")

		if err := chart.RenderEquityCurve(analytics.EquityCurve(trades), equityPath); err != nil {
			if errors.Is(err, chart.ErrNoData) {
				fmt.Println("no closed trades to chart")
				return nil
			}
			return err
		}
		if err := chart.RenderPnLBars(analytics.PnLBars(trades), barsPath); err != nil {
			return err
		}

		fmt.Printf("wrote %s and %s\n", equityPath, barsPath)
		return nil
	}),
}

func printOpenTrades(w io.Writer, trades []models.Trade) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSYMBOL\tQTY\tBUY\tOPENED\tCOST\tNOTES")
	for _, t := range trades {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
			t.ID, t.Symbol, t.Quantity, t.BuyPrice, t.OpenDate, t.CostBasis(), t.Notes)
	}
	return tw.Flush()
}

func printClosedTrades(w io.Writer, trades []models.Trade, withStatus bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if withStatus {
		fmt.Fprintln(tw, "ID\tSYMBOL\tSTATUS\tQTY\tBUY\tSELL\tOPENED\tCLOSED\tPNL\tPNL%\tNOTES")
	} else {
		fmt.Fprintln(tw, "ID\tSYMBOL\tQTY\tBUY\tSELL\tOPENED\tCLOSED\tPNL\tPNL%\tNOTES")
	}
	for _, t := range trades {
		if withStatus {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.Symbol, t.Status, t.Quantity, t.BuyPrice, t.SellPrice,
				t.OpenDate, t.CloseDate, t.PnL, t.PnLPercent, t.Notes)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Symbol, t.Quantity, t.BuyPrice, t.SellPrice,
			t.OpenDate, t.CloseDate, t.PnL, t.PnLPercent, t.Notes)
	}
	return tw.Flush()
}
