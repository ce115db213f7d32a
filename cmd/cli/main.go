package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"mcmcref/adapters/fsstore"
	"mcmcref/adapters/postgres"
	"mcmcref/app"
	"mcmcref/domain/compare"
	"mcmcref/domain/quality"
	"mcmcref/internal/config"
	"mcmcref/internal/logger"
	"mcmcref/ports"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "mcmcref",
		Short: "MCMC reference draws corpus: convert, gate, query",
	}

	rootCmd.AddCommand(
		newListCmd(),
		newStatsCmd(),
		newDiagnosticsCmd(),
		newDrawsCmd(),
		newInfoCmd(),
		newDataCmd(),
		newModelCodeCmd(),
		newCompareCmd(),
		newConvertCmd(),
		newPairsCmd(),
		newPairCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newReferenceService() (*app.ReferenceService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	localRoot := cfg.Store.LocalRoot
	if localRoot == "" {
		localRoot = fsstore.DefaultLocalRoot()
	}
	store := fsstore.New(localRoot, cfg.Store.PackagedRoot)
	return app.NewReferenceService(store), nil
}

func newListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all reference models in the corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := newReferenceService()
			if err != nil {
				return err
			}
			models, err := service.ListModels()
			if err != nil {
				return err
			}
			if format == "json" {
				return printJSON(models)
			}
			for _, model := range models {
				fmt.Println(model)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var params string
	var format string
	var backendName string
	var includeDiagnostics bool

	cmd := &cobra.Command{
		Use:   "stats [model]",
		Short: "Compute summary statistics for a reference model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := newReferenceService()
			if err != nil {
				return err
			}
			stats, err := service.Stats(args[0], splitList(params), backendName, includeDiagnostics)
			if err != nil {
				return err
			}
			return printStats(stats, format)
		},
	}

	cmd.Flags().StringVar(&params, "params", "", "Comma-separated parameter list")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, csv or json")
	cmd.Flags().StringVar(&backendName, "backend", "gonum", "Stats backend: gonum or montana")
	cmd.Flags().BoolVar(&includeDiagnostics, "include-diagnostics", false, "Include rhat/ess metrics")
	return cmd
}

func newDiagnosticsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "diagnostics [model]",
		Short: "Show convergence diagnostics for a reference model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := newReferenceService()
			if err != nil {
				return err
			}
			diag, err := service.DiagnosticsFor(args[0], nil)
			if err != nil {
				return err
			}
			stats := make(map[string]map[string]float64, len(diag))
			for param, record := range diag {
				stats[param] = map[string]float64{
					"rhat":     float64(record.Rhat),
					"ess_bulk": float64(record.ESSBulk),
					"ess_tail": float64(record.ESSTail),
				}
			}
			return printStats(stats, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, csv or json")
	return cmd
}

func newDrawsCmd() *cobra.Command {
	var params string
	var chains string
	var output string

	cmd := &cobra.Command{
		Use:   "draws [model]",
		Short: "Export reference draws as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := newReferenceService()
			if err != nil {
				return err
			}
			chainList, err := splitInts(chains)
			if err != nil {
				return fmt.Errorf("invalid --chains: %w", err)
			}
			result, err := service.Draws(args[0], splitList(params), chainList)
			if err != nil {
				return err
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			w := csv.NewWriter(out)
			table := result.Table
			header := append([]string{"chain", "draw"}, table.Params...)
			if err := w.Write(header); err != nil {
				return err
			}
			for i := 0; i < table.NumRows(); i++ {
				record := []string{strconv.Itoa(table.Chain[i]), strconv.Itoa(table.Draw[i])}
				for _, p := range table.Params {
					record = append(record, strconv.FormatFloat(table.Values[p][i], 'g', -1, 64))
				}
				if err := w.Write(record); err != nil {
					return err
				}
			}
			w.Flush()
			return w.Error()
		},
	}

	cmd.Flags().StringVar(&params, "params", "", "Comma-separated parameter list")
	cmd.Flags().StringVar(&chains, "chains", "", "Comma-separated chain indices")
	cmd.Flags().StringVar(&output, "output", "", "Output file (default stdout)")
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [model]",
		Short: "Show a model's metadata record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := newReferenceService()
			if err != nil {
				return err
			}
			meta, err := service.Meta(args[0])
			if err != nil {
				return err
			}
			return printJSON(meta)
		},
	}
}

func newDataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "data [model]",
		Short: "Show the Stan data bundled with a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := newReferenceService()
			if err != nil {
				return err
			}
			data, err := service.StanData(args[0])
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
}

func newModelCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "model-code [model]",
		Short: "Show the Stan program for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := newReferenceService()
			if err != nil {
				return err
			}
			code, err := service.ModelCode(args[0])
			if err != nil {
				return err
			}
			fmt.Print(code)
			return nil
		},
	}
}

func newCompareCmd() *cobra.Command {
	var actualPath string
	var tolerance float64
	var format string

	cmd := &cobra.Command{
		Use:   "compare [model]",
		Short: "Compare actual draws against reference statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := newReferenceService()
			if err != nil {
				return err
			}
			actual, err := readActualCSV(actualPath)
			if err != nil {
				return err
			}
			result, err := service.Compare(args[0], actual, tolerance, compare.DefaultMetrics)
			if err != nil {
				return err
			}

			if format == "json" {
				if err := printJSON(result); err != nil {
					return err
				}
			} else {
				if result.Passed {
					fmt.Println("passed")
				} else {
					fmt.Println("failed")
				}
				for _, failure := range result.Failures {
					fmt.Printf("- %s\n", failure)
				}
			}
			if !result.Passed {
				os.Exit(2)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&actualPath, "actual", "", "CSV file with actual draws (required)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", compare.DefaultTolerance, "Relative error tolerance")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	_ = cmd.MarkFlagRequired("actual")
	return cmd
}

func newConvertCmd() *cobra.Command {
	var name string
	var force bool

	cmd := &cobra.Command{
		Use:   "convert [input]",
		Short: "Convert a draw archive into a quality-gated corpus entry",
		Long: `Convert raw MCMC output (.csv, .json.zip or .xlsx) into the local corpus.

The conversion computes rank-normalized split R-hat and bulk/tail ESS for
every parameter and refuses inputs that fail the quality gate. --force
converts anyway and records the failing checks in the metadata.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			localRoot := cfg.Store.LocalRoot
			if localRoot == "" {
				localRoot = fsstore.DefaultLocalRoot()
			}
			store := fsstore.New(localRoot, cfg.Store.PackagedRoot)

			var registry ports.ConversionRegistry
			if cfg.Database.Enabled {
				db, err := sqlx.Connect("postgres", cfg.Database.URL)
				if err != nil {
					return fmt.Errorf("failed to connect to conversion registry: %w", err)
				}
				defer db.Close()
				if err := postgres.Migrate(cmd.Context(), db); err != nil {
					return err
				}
				registry = postgres.NewConversionRepository(db)
			}

			policy := quality.Policy{
				MinChains:  cfg.Gate.MinChains,
				DrawBudget: cfg.Gate.DrawBudget,
				MinESSBulk: cfg.Gate.MinESSBulk,
				MaxRhat:    cfg.Gate.MaxRhat,
			}
			service := app.NewConvertService(store, registry, policy, logger.Default)

			result, err := service.ConvertFile(context.Background(), args[0], name, force)
			if err != nil {
				return err
			}
			fmt.Printf("converted %s -> %s\n", name, result.DrawsPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Model name for the converted entry (required)")
	cmd.Flags().BoolVar(&force, "force", false, "Convert even if quality checks fail")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newPairsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "pairs",
		Short: "List all reparametrization pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := newReferenceService()
			if err != nil {
				return err
			}
			names, err := service.ListPairs()
			if err != nil {
				return err
			}
			if format == "json" {
				return printJSON(names)
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

func newPairCmd() *cobra.Command {
	var html bool

	cmd := &cobra.Command{
		Use:   "pair [name]",
		Short: "Show info about a reparametrization pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := newReferenceService()
			if err != nil {
				return err
			}
			pair, err := service.Pair(args[0])
			if err != nil {
				return err
			}
			if html {
				fmt.Println(pair.DescriptionHTML())
				return nil
			}
			return printJSON(map[string]any{
				"name":                 pair.Name,
				"description":          pair.Description,
				"bad_variant":          pair.BadVariant,
				"good_variant":         pair.GoodVariant,
				"reference_model":      pair.ReferenceModel,
				"expected_pathologies": pair.ExpectedPathologies,
				"difficulty":           pair.Difficulty,
			})
		},
	}

	cmd.Flags().BoolVar(&html, "html", false, "Render the pair description as HTML")
	return cmd
}

func printJSON(payload any) error {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}

func printStats(stats map[string]map[string]float64, format string) error {
	switch format {
	case "json":
		return printJSON(ports.ToMetricMap(stats))
	case "csv":
		headers := append([]string{"param"}, metricHeaders(stats)...)
		fmt.Println(strings.Join(headers, ","))
		for _, param := range sortedKeys(stats) {
			row := []string{param}
			for _, h := range headers[1:] {
				row = append(row, strconv.FormatFloat(stats[param][h], 'g', -1, 64))
			}
			fmt.Println(strings.Join(row, ","))
		}
		return nil
	default:
		headers := append([]string{"param"}, metricHeaders(stats)...)
		widths := make([]int, len(headers))
		for i, h := range headers {
			widths[i] = len(h)
			if widths[i] < 10 {
				widths[i] = 10
			}
		}
		for i, h := range headers {
			fmt.Printf("%-*s ", widths[i], h)
		}
		fmt.Println()
		for _, param := range sortedKeys(stats) {
			fmt.Printf("%-*s ", widths[0], param)
			for i, h := range headers[1:] {
				fmt.Printf("%-*.6g ", widths[i+1], stats[param][h])
			}
			fmt.Println()
		}
		return nil
	}
}

func metricHeaders(stats map[string]map[string]float64) []string {
	keys := make(map[string]bool)
	for _, metrics := range stats {
		for name := range metrics {
			keys[name] = true
		}
	}
	out := make([]string, 0, len(keys))
	for name := range keys {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(stats map[string]map[string]float64) []string {
	out := make([]string, 0, len(stats))
	for name := range stats {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func splitInts(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func readActualCSV(path string) (map[string][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV: %s", path)
	}

	header := records[0]
	actual := make(map[string][]float64)
	for col, name := range header {
		if name == "chain" || name == "draw" {
			continue
		}
		values := make([]float64, 0, len(records)-1)
		for _, record := range records[1:] {
			v, err := strconv.ParseFloat(record[col], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value for %s: %w", name, err)
			}
			values = append(values, v)
		}
		actual[name] = values
	}
	return actual, nil
}
