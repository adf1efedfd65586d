package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	forecaster "github.com/srirammulukuntla11/forecastpro-app"
	"github.com/srirammulukuntla11/forecastpro-app/logging"
	"github.com/srirammulukuntla11/forecastpro-app/metrics"
	"github.com/srirammulukuntla11/forecastpro-app/table"
)

const (
	FormatJSON  = "json"
	FormatTable = "table"

	envPrefix = "FORECASTPRO_"
)

var (
	ErrNoInput       = errors.New("no input file given")
	ErrInvalidOutput = errors.New("invalid output format")
	ErrInvalidCutoff = errors.New("invalid cutoff date")
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	logLevel   string
	logFormat  string
	cpuProfile string
	cutoff     string
	format     string
	maxRows    int

	input       string
	dateColumn  string
	valueColumn string

	profiler interface{ Stop() }
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "forecastpro",
		Short:         "Monthly sales forecasting from tabular data",
		Long:          "Builds a monthly series from a CSV or JSON table, trains a regression model and forecasts the months that follow.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.profiler != nil {
				g.profiler.Stop()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.logLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	flags.StringVar(&g.logFormat, "log-format", getEnv("LOG_FORMAT", logging.FormatConsole), "Log format: json or console")
	flags.StringVar(&g.cpuProfile, "cpuprofile", "", "Write a CPU profile into this directory")
	flags.StringVar(&g.cutoff, "cutoff", "", "Latest date a row may carry, later dates are clamped (default 2025-12-31)")
	flags.StringVar(&g.format, "format", FormatJSON, "Output format: json or table")
	flags.IntVar(&g.maxRows, "max-rows", getEnvInt("MAX_ROWS", 0), "Read at most this many rows, 0 reads everything")

	rootCmd.AddCommand(forecastCmd(g))
	rootCmd.AddCommand(compareCmd(g))
	rootCmd.AddCommand(anomaliesCmd(g))
	rootCmd.AddCommand(seriesCmd(g))
	rootCmd.AddCommand(serveCmd(g))
	return rootCmd
}

func (g *globalOptions) setup(cmd *cobra.Command) error {
	if err := logging.Setup(cmd.ErrOrStderr(), g.logLevel, g.logFormat); err != nil {
		return err
	}
	switch g.format {
	case FormatJSON, FormatTable:
	default:
		return errors.Wrapf(ErrInvalidOutput, "%q, expected json or table", g.format)
	}
	if g.cpuProfile != "" {
		g.profiler = profile.Start(profile.CPUProfile, profile.ProfilePath(g.cpuProfile), profile.Quiet)
	}
	return nil
}

// addInputFlags registers the flags of commands that read a table
func (g *globalOptions) addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&g.input, "input", "i", "", "CSV or JSON table to read, - reads stdin")
	cmd.Flags().StringVar(&g.dateColumn, "date-column", "", "Date column, inferred when empty")
	cmd.Flags().StringVar(&g.valueColumn, "value-column", "", "Value column, inferred when empty")
}

func (g *globalOptions) options(collector *metrics.Collector) (*forecaster.Options, error) {
	opt := forecaster.NewDefaultOptions()
	opt.Metrics = collector
	opt.Build.DateColumn = g.dateColumn
	opt.Build.ValueColumn = g.valueColumn
	if g.cutoff != "" {
		cutoff, err := dateparse.ParseIn(g.cutoff, time.UTC)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidCutoff, "%q", g.cutoff)
		}
		opt.Build.Cutoff = cutoff
	}
	return opt, nil
}

func (g *globalOptions) forecaster(collector *metrics.Collector) (*forecaster.Forecaster, error) {
	opt, err := g.options(collector)
	if err != nil {
		return nil, err
	}
	return forecaster.New(opt)
}

// readTable loads the input as JSON when the file ends in .json and as CSV
// otherwise.
func (g *globalOptions) readTable(cmd *cobra.Command) (*table.Table, error) {
	if g.input == "" {
		return nil, ErrNoInput
	}

	var r io.Reader
	if g.input == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(g.input)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to open %s", g.input)
		}
		defer f.Close()
		r = f
	}

	if strings.EqualFold(filepath.Ext(g.input), ".json") {
		tbl, err := table.ReadJSON(r)
		if err != nil {
			return nil, err
		}
		if g.maxRows > 0 {
			tbl = tbl.Limit(g.maxRows)
		}
		return tbl, nil
	}
	return table.ReadCSV(r, &table.CSVOptions{Delimiter: ',', MaxRows: g.maxRows})
}

type tablePrinter interface {
	TablePrint(w io.Writer, prefix, indent string) error
}

func (g *globalOptions) write(w io.Writer, v tablePrinter) error {
	if g.format == FormatTable {
		return v.TablePrint(w, "", "  ")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(envPrefix + key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(envPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}
