package main

import (
	"io"

	"github.com/spf13/cobra"
	forecaster "github.com/srirammulukuntla11/forecastpro-app"
	"github.com/srirammulukuntla11/forecastpro-app/models"
	"github.com/srirammulukuntla11/forecastpro-app/stats"
	"github.com/srirammulukuntla11/forecastpro-app/timedataset"
)

// DefaultHorizon is the number of months forecast when no horizon is given
const DefaultHorizon = 6

func forecastCmd(g *globalOptions) *cobra.Command {
	var (
		kind    string
		horizon int
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Train one model and forecast the following months",
		Example: "  forecastpro forecast --input sales.csv --model linear --horizon 6\n" +
			"  forecastpro forecast -i sales.json --model random --format table",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := models.ParseKind(kind)
			if err != nil {
				return err
			}
			if err := forecaster.CheckHorizon(horizon); err != nil {
				return err
			}
			tbl, err := g.readTable(cmd)
			if err != nil {
				return err
			}
			f, err := g.forecaster(nil)
			if err != nil {
				return err
			}
			res, err := f.Run(tbl, k, horizon)
			if err != nil {
				return err
			}
			return g.write(cmd.OutOrStdout(), res)
		},
	}
	g.addInputFlags(cmd)
	cmd.Flags().StringVarP(&kind, "model", "m", models.KindLinear.String(), "Model kind: linear, polynomial, random or gradient")
	cmd.Flags().IntVarP(&horizon, "horizon", "n", DefaultHorizon, "Months to forecast, at most 36")
	return cmd
}

func compareCmd(g *globalOptions) *cobra.Command {
	var horizon int
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Train every model kind and rank them by in-sample R2",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := forecaster.CheckHorizon(horizon); err != nil {
				return err
			}
			tbl, err := g.readTable(cmd)
			if err != nil {
				return err
			}
			f, err := g.forecaster(nil)
			if err != nil {
				return err
			}
			cmp, err := f.Compare(tbl, horizon)
			if err != nil {
				return err
			}
			return g.write(cmd.OutOrStdout(), cmp)
		},
	}
	g.addInputFlags(cmd)
	cmd.Flags().IntVarP(&horizon, "horizon", "n", DefaultHorizon, "Months to forecast, at most 36")
	return cmd
}

func anomaliesCmd(g *globalOptions) *cobra.Command {
	var method, column string
	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "Flag anomalous rows of a numeric column",
		Example: "  forecastpro anomalies --input sales.csv --method iqr --column Sales\n" +
			"  forecastpro anomalies -i sales.csv --method isolation",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := stats.ParseAnomalyMethod(method)
			if err != nil {
				return err
			}
			tbl, err := g.readTable(cmd)
			if err != nil {
				return err
			}
			f, err := g.forecaster(nil)
			if err != nil {
				return err
			}
			report, err := f.Anomalies(tbl, m, column)
			if err != nil {
				return err
			}
			return g.write(cmd.OutOrStdout(), report)
		},
	}
	g.addInputFlags(cmd)
	cmd.Flags().StringVar(&method, "method", string(stats.MethodZScore), "Detection method: zscore, iqr or isolation")
	cmd.Flags().StringVar(&column, "column", "", "Numeric column to examine, the inferred value column when empty")
	return cmd
}

func seriesCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Print the monthly series built from the input",
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := g.readTable(cmd)
			if err != nil {
				return err
			}
			f, err := g.forecaster(nil)
			if err != nil {
				return err
			}
			series, report, err := f.Build(tbl)
			if err != nil {
				return err
			}
			return g.write(cmd.OutOrStdout(), seriesOutput{Series: series, Report: report})
		},
	}
	g.addInputFlags(cmd)
	return cmd
}

type seriesOutput struct {
	Series *timedataset.MonthlySeries `json:"series"`
	Report *timedataset.BuildReport   `json:"report"`
}

func (s seriesOutput) TablePrint(w io.Writer, prefix, indent string) error {
	return forecaster.SeriesTablePrint(w, s.Series, prefix, indent)
}
