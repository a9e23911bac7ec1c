// PriceBoard offline tool. Runs the anomaly filter and the category
// aggregation over exported JSON without a database.
//
// Usage:
//
//	priceboard visualize --in products.json [--category creatine] [--from 2024-01-01]
//	priceboard filter --in history.json [--debug]
//	priceboard stats --in products.json
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kjannette/priceboard-backend/internal/aggregate"
	"github.com/kjannette/priceboard-backend/internal/logging"
	"github.com/kjannette/priceboard-backend/internal/models"
	"github.com/kjannette/priceboard-backend/internal/pricefilter"
)

var version = "dev"

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:    "priceboard",
		Usage:   "Filter and aggregate exported price histories",
		Version: version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "profile",
				Value:   pricefilter.ProfileDefault,
				Usage:   "Anomaly filter profile (default, strict)",
				EnvVars: []string{"FILTER_PROFILE"},
			},
			&cli.StringFlag{
				Name:    "tz",
				Value:   "UTC",
				Usage:   "Time zone used to assign prices to calendar days",
				EnvVars: []string{"AGGREGATE_TIMEZONE"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			visualizeCommand(),
			filterCommand(),
			statsCommand(),
		},
	}
}

func inFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "in",
		Aliases:  []string{"i"},
		Usage:    "Path to the input JSON file, - for stdin",
		Required: true,
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "json",
		Usage:   "Output format (json, table)",
	}
}

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "search", Usage: "Keep categories containing this text"},
		&cli.StringFlag{Name: "category", Usage: "Keep only this category"},
		&cli.StringFlag{Name: "from", Usage: "First day to keep (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "to", Usage: "Last day to keep (YYYY-MM-DD)"},
		&cli.BoolFlag{Name: "subtype-pairs", Usage: "Also report subtype_subtype categories"},
	}
}

// =============================================================================
// VISUALIZE COMMAND
// =============================================================================

func visualizeCommand() *cli.Command {
	return &cli.Command{
		Name:   "visualize",
		Usage:  "Print per-category daily average prices for a product export",
		Flags:  append([]cli.Flag{inFlag(), formatFlag()}, queryFlags()...),
		Action: runVisualize,
	}
}

func runVisualize(c *cli.Context) error {
	series, err := loadSeries(c)
	if err != nil {
		return err
	}
	out := c.App.Writer

	if c.String("format") != "table" {
		return writeJSON(out, series)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tDATE\tAVERAGE\tPOINTS")
	for _, category := range series.Categories() {
		for _, p := range series[category] {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%d\n", category, p.Date, p.AveragePrice, p.SampleCount)
		}
	}
	return tw.Flush()
}

// =============================================================================
// FILTER COMMAND
// =============================================================================

func filterCommand() *cli.Command {
	return &cli.Command{
		Name:  "filter",
		Usage: "Run the anomaly filter over a single price history",
		Flags: []cli.Flag{
			inFlag(),
			&cli.BoolFlag{Name: "debug", Usage: "Also print the acceptance window and removed points"},
		},
		Action: runFilter,
	}
}

type filterReport struct {
	Kept    []models.PricePoint `json:"kept"`
	Removed []models.PricePoint `json:"removed"`
	Bounds  *pricefilter.Bounds `json:"bounds,omitempty"`
}

func runFilter(c *cli.Context) error {
	params, err := pricefilter.Profile(c.String("profile"))
	if err != nil {
		return err
	}
	var history []models.PricePoint
	if err := readJSON(c.String("in"), &history); err != nil {
		return err
	}
	log := logging.Component(logging.New(os.Stderr, c.String("log-level"), "console"), "CLI")

	kept := pricefilter.Filter(history, params)
	if kept == nil {
		kept = []models.PricePoint{}
	}
	log.Info().Int("in", len(history)).Int("kept", len(kept)).Msg("history filtered")
	if !c.Bool("debug") {
		return writeJSON(c.App.Writer, kept)
	}
	return writeJSON(c.App.Writer, explainFilter(history, kept, params))
}

// explainFilter lists the points Filter dropped and, when there are
// positive values, the window it computed.
func explainFilter(history, kept []models.PricePoint, params pricefilter.Params) filterReport {
	report := filterReport{Kept: kept, Removed: []models.PricePoint{}}

	survived := make(map[models.PricePoint]int, len(kept))
	for _, pt := range kept {
		survived[pt]++
	}
	var values []float64
	for _, pt := range history {
		if pt.Value > 0 {
			values = append(values, pt.Value)
		}
		if survived[pt] > 0 {
			survived[pt]--
			continue
		}
		report.Removed = append(report.Removed, pt)
	}
	if len(values) > 0 {
		b := pricefilter.ComputeBounds(values, params)
		report.Bounds = &b
	}
	return report
}

// =============================================================================
// STATS COMMAND
// =============================================================================

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Summarize the aggregated categories of a product export",
		Flags:  append([]cli.Flag{inFlag(), formatFlag()}, queryFlags()...),
		Action: runStats,
	}
}

func runStats(c *cli.Context) error {
	series, err := loadSeries(c)
	if err != nil {
		return err
	}
	sum := aggregate.Summarize(series)
	out := c.App.Writer

	if c.String("format") != "table" {
		return writeJSON(out, sum)
	}
	fmt.Fprintf(out, "Categories: %d  Data points: %d  Avg per category: %d\n\n",
		sum.TotalCategories, sum.TotalDataPoints, sum.AvgDataPointsPerCategory)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tPOINTS\tMIN\tMAX\tAVG\tRANGE")
	for _, cs := range sum.Categories {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n",
			cs.Category, cs.DataPoints, cs.MinPrice, cs.MaxPrice, cs.AvgPrice, cs.PriceRange)
	}
	return tw.Flush()
}

// =============================================================================
// HELPERS
// =============================================================================

func loadSeries(c *cli.Context) (aggregate.Series, error) {
	params, err := pricefilter.Profile(c.String("profile"))
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(c.String("tz"))
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", c.String("tz"), err)
	}
	q := aggregate.Query{
		Search:   c.String("search"),
		Category: c.String("category"),
		From:     c.String("from"),
		To:       c.String("to"),
	}
	for _, d := range []string{q.From, q.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", d)
		}
	}

	var products []models.Product
	if err := readJSON(c.String("in"), &products); err != nil {
		return nil, err
	}

	log := logging.Component(logging.New(os.Stderr, c.String("log-level"), "console"), "CLI")
	series := aggregate.Process(products, aggregate.Options{
		Filter:   params,
		Labels:   aggregate.LabelOptions{SubtypePairs: c.Bool("subtype-pairs")},
		Location: loc,
	})
	log.Info().Int("products", len(products)).Int("categories", len(series)).Msg("catalog aggregated")

	if !q.IsZero() {
		series = aggregate.Apply(series, q)
	}
	return series, nil
}

func readJSON(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
