// finsight-report runs one reconciliation cycle offline: it reads the three
// input files, builds the ledger, and writes the review and P&L exports to a
// directory, without starting the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finsight/finsight-go/internal/config"
	"github.com/finsight/finsight-go/internal/domain"
	"github.com/finsight/finsight-go/internal/export"
	"github.com/finsight/finsight-go/internal/infra/cache"
	"github.com/finsight/finsight-go/internal/infra/observability"
	"github.com/finsight/finsight-go/internal/infra/resilience"
	"github.com/finsight/finsight-go/internal/service"
)

var version = "dev"

var (
	salesPath    string
	expensesPath string
	chartPath    string
	configPath   string
	outDir       string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "finsight-report",
	Short: "Reconcile financial exports and write review reports",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reconciliation cycle and write CSV reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("finsight-report " + version)
	},
}

func init() {
	runCmd.Flags().StringVar(&salesPath, "sales", "", "sales transactions file (csv or xlsx)")
	runCmd.Flags().StringVar(&expensesPath, "expenses", "", "expense transactions file (csv or xlsx)")
	runCmd.Flags().StringVar(&chartPath, "chart", "", "chart of accounts file (csv or xlsx)")
	runCmd.Flags().StringVar(&configPath, "config", "", "pipeline config file (yaml)")
	runCmd.Flags().StringVar(&outDir, "out", "output", "directory for generated reports")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	runCmd.MarkFlagRequired("sales")
	runCmd.MarkFlagRequired("expenses")

	rootCmd.AddCommand(runCmd, versionCmd)
}

func run(ctx context.Context) error {
	logger := observability.NewLogger(logLevel)
	defer logger.Sync()

	pipeline, err := config.LoadPipeline(configPath)
	if err != nil {
		return err
	}
	if chartPath == "" {
		chartPath = pipeline.ChartFile
	}
	if chartPath == "" {
		return fmt.Errorf("no chart of accounts: pass --chart or set chart_file in the pipeline config")
	}

	sales, err := os.Open(salesPath)
	if err != nil {
		return err
	}
	defer sales.Close()
	expenses, err := os.Open(expensesPath)
	if err != nil {
		return err
	}
	defer expenses.Close()
	chart, err := os.Open(chartPath)
	if err != nil {
		return err
	}
	defer chart.Close()

	reconciler := service.NewReconciler(
		pipeline,
		resilience.NewBulkhead(1),
		cache.New[any](time.Minute),
		observability.NewMetrics(),
		logger,
	)

	report, err := reconciler.RunCycle(ctx,
		service.Upload{Name: filepath.Base(salesPath), Reader: sales},
		service.Upload{Name: filepath.Base(expensesPath), Reader: expenses},
		service.Upload{Name: filepath.Base(chartPath), Reader: chart},
	)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, name := range []string{
		service.ExportLedger,
		service.ExportUnmapped,
		service.ExportOrphans,
		service.ExportSkipped,
		service.ExportPnL,
	} {
		table, err := reconciler.Export(ctx, name)
		if err != nil {
			return err
		}
		if err := writeTable(table); err != nil {
			return err
		}
	}

	series, err := reconciler.Series(ctx, domain.MetricNetProfit, nil, false)
	if err != nil {
		return err
	}
	if err := writeTable(export.SeriesTable(series)); err != nil {
		return err
	}

	for _, bd := range []struct {
		metric domain.Metric
		dim    domain.Dimension
	}{
		{domain.MetricRevenue, domain.DimensionProduct},
		{domain.MetricExpenses, domain.DimensionExpenseType},
	} {
		table, err := reconciler.Breakdown(ctx, bd.metric, bd.dim, 10)
		if err != nil {
			return err
		}
		if err := writeTable(export.BreakdownExportTable(table)); err != nil {
			return err
		}
	}

	logger.Info("reports written",
		zap.String("dir", outDir),
		zap.String("snapshot_id", report.SnapshotID),
		zap.Int("transactions", report.TotalTransactions),
		zap.Int("unmapped", report.UnmappedCount+report.AmbiguousCount),
	)

	fmt.Printf("reconciled %d transactions (%d mapped, %d unmapped, %d ambiguous)\n",
		report.TotalTransactions, report.MappedCount, report.UnmappedCount, report.AmbiguousCount)
	if len(report.OrphanAccounts) > 0 {
		fmt.Printf("warning: %d chart accounts matched no transactions\n", len(report.OrphanAccounts))
	}
	fmt.Printf("reports written to %s\n", outDir)
	return nil
}

func writeTable(table *export.Table) error {
	path := filepath.Join(outDir, table.Name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.Write(f, table)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
