package main

import (
	"fmt"
	"os"

	"forecastprep"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "forecastprep",
	Short: "Reshape time-series tables for forecasting and reconcile hierarchical forecasts",
	Long: `forecastprep converts wide tables (CSV or XLSX) to the unique_id/ds/y
format, back again, infers sampling frequency, scores forecast columns and
reconciles hierarchical forecasts bottom-up. Tables are written as CSV to stdout.

Settings come from --config (YAML) and FORECASTPREP_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = forecastprep.NewLogger(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// settings loads and validates the settings for a command.
func settings() (forecastprep.Settings, error) {
	s, err := forecastprep.LoadSettings(configPath)
	if err != nil {
		return forecastprep.Settings{}, err
	}
	logger.Debug("settings loaded",
		zap.String("frequency", s.Frequency),
		zap.Strings("group_by", s.GroupBy),
		zap.String("order_by", s.OrderBy),
		zap.String("target", s.Target),
		zap.Strings("hierarchy", s.Hierarchy))
	return s, nil
}

func load(path string) (*forecastprep.Frame, error) {
	f, err := forecastprep.LoadTable(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("table loaded", zap.String("path", path), zap.Int("rows", f.Len()), zap.Strings("columns", f.Columns()))
	return f, nil
}

// --- normalize ---

var inferFreq bool

var normalizeCmd = &cobra.Command{
	Use:   "normalize <table>",
	Short: "Convert a wide table to unique_id/ds/y",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load settings and table
		s, err := settings()
		if err != nil {
			return err
		}
		f, err := load(args[0])
		if err != nil {
			return err
		}

		// 2. Pick the resampling frequency
		if inferFreq {
			s.Frequency = forecastprep.InferFrequency(f, s.OrderBy, s.Frequency)
			logger.Info("inferred frequency", zap.String("frequency", s.Frequency))
		}

		// 3. Reshape
		out, err := forecastprep.ToNormalized(f, s, s.ExogVars...)
		if err != nil {
			return err
		}
		return forecastprep.WriteCSV(cmd.OutOrStdout(), out)
	},
}

// --- denormalize ---

var denormalizeCmd = &cobra.Command{
	Use:   "denormalize <results>",
	Short: "Map a normalized results table back to the original grouping columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings()
		if err != nil {
			return err
		}
		f, err := load(args[0])
		if err != nil {
			return err
		}
		out, err := forecastprep.FromNormalized(f, s)
		if err != nil {
			return err
		}
		return forecastprep.WriteCSV(cmd.OutOrStdout(), out)
	},
}

// --- infer-freq ---

var (
	freqColumn  string
	freqDefault string
)

var inferFreqCmd = &cobra.Command{
	Use:   "infer-freq <table>",
	Short: "Print the sampling frequency of a time column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := load(args[0])
		if err != nil {
			return err
		}
		column := freqColumn
		if column == "" {
			s, err := settings()
			if err != nil {
				return err
			}
			column = s.OrderBy
		}
		fmt.Fprintln(cmd.OutOrStdout(), forecastprep.InferFrequency(f, column, freqDefault))
		return nil
	},
}

// --- score ---

var metricName string

var scoreCmd = &cobra.Command{
	Use:   "score <results>",
	Short: "Score every model column of a results table against y",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		metric, err := forecastprep.MetricByName(metricName)
		if err != nil {
			return err
		}
		f, err := load(args[0])
		if err != nil {
			return err
		}
		acc, err := forecastprep.ModelAccuracy(f, metric)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, s := range acc {
			fmt.Fprintf(w, "%s\t%.6f\n", s.Model, s.Score)
		}
		best, err := forecastprep.BestModel(f, metric)
		if err != nil {
			return err
		}
		if best == "" {
			fmt.Fprintln(w, "best\t(none)")
		} else {
			fmt.Fprintf(w, "best\t%s\n", best)
		}
		return nil
	},
}

// --- hierarchy ---

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy <table>",
	Short: "Aggregate a wide table over the configured hierarchy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings()
		if err != nil {
			return err
		}
		f, err := load(args[0])
		if err != nil {
			return err
		}
		rec := forecastprep.NewReconciler(forecastprep.DefaultEngine(), logger)
		h, err := rec.BuildHierarchy(f, s)
		if err != nil {
			return err
		}
		for _, level := range h.Tags {
			logger.Info("hierarchy level", zap.String("level", level.Key), zap.Strings("nodes", level.IDs))
		}
		return forecastprep.WriteCSV(cmd.OutOrStdout(), h.Frame)
	},
}

// --- reconcile ---

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <history> <forecasts>",
	Short: "Reconcile node forecasts bottom-up and print leaf results",
	Long: `reconcile builds the hierarchy from the wide history table, then reads
forecasts keyed by the hierarchy's unique_id values (e.g. total/east/s1) with a
ds column and one column per model.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load settings and both tables
		s, err := settings()
		if err != nil {
			return err
		}
		history, err := load(args[0])
		if err != nil {
			return err
		}
		forecasts, err := load(args[1])
		if err != nil {
			return err
		}

		// 2. Aggregate history over the hierarchy
		rec := forecastprep.NewReconciler(forecastprep.DefaultEngine(), logger)
		h, err := rec.BuildHierarchy(history, s)
		if err != nil {
			return err
		}

		// 3. Reconcile and unpack to leaves
		out, err := rec.Reconcile(h.Frame, forecasts, h.Matrix, h.Tags)
		if err != nil {
			return err
		}
		return forecastprep.WriteCSV(cmd.OutOrStdout(), out)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML settings file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	normalizeCmd.Flags().BoolVar(&inferFreq, "infer-freq", false, "infer the frequency from the order column")
	inferFreqCmd.Flags().StringVar(&freqColumn, "column", "", "time column (default: order_by setting)")
	inferFreqCmd.Flags().StringVar(&freqDefault, "default", forecastprep.DefaultFrequency, "frequency returned when inference fails")
	scoreCmd.Flags().StringVar(&metricName, "metric", "r2", "r2, mae, rmse or mape")

	rootCmd.AddCommand(normalizeCmd, denormalizeCmd, inferFreqCmd, scoreCmd, hierarchyCmd, reconcileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
