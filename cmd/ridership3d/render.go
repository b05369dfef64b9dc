package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ridership3d/internal/ridership/view"
	"github.com/ridership3d/pkg/ridership/models"
)

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "render the fixed dataset once and write the deck JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data", Usage: "CSV file to render (overrides DATA_PATH)"},
			&cli.StringFlag{Name: "url", Usage: "download the CSV from this URL instead"},
			&cli.StringSliceFlag{Name: "line", Usage: "line to show; repeat for several (default: all)"},
			&cli.StringFlag{Name: "metric", Value: "daily_avg", Usage: "daily_avg (日平均) or year_total (年總量)"},
			&cli.Float64Flag{Name: "scale", Usage: "elevation scale in [0.0001, 0.5]"},
			&cli.Float64Flag{Name: "pitch", Usage: "camera pitch in [0, 85]"},
			&cli.Float64Flag{Name: "bearing", Usage: "camera bearing in [-180, 180]"},
			&cli.BoolFlag{Name: "lenient", Usage: "zero-fill missing ridership values"},
			&cli.BoolFlag{Name: "strict", Usage: "drop rows with any missing value"},
			&cli.BoolFlag{Name: "single", Usage: "input uses the single-system header schema"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default: stdout)"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("lenient") && c.Bool("strict") {
				return cli.Exit("--lenient and --strict are mutually exclusive", 2)
			}

			e, err := setup(c.Context, true)
			if err != nil {
				return err
			}
			defer e.Close()

			applyRenderFlags(c, e)
			p := e.newPipeline()

			sel, err := renderSelection(c, p.Settings().DefaultSelection(models.SourceFixed))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			out, err := p.Run(c.Context, e.fixedSource(), sel)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			e.log.Info("Rendered fixed dataset",
				"run_id", out.RunID,
				"stations", len(out.View.Records),
				"metric", out.View.Params.ElevationColumn)

			var w io.Writer = c.App.Writer
			if path := c.String("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("creating output: %w", err)
				}
				defer f.Close()
				w = f
			}
			return out.Deck.WriteJSON(w)
		},
	}
}

func applyRenderFlags(c *cli.Context, e *env) {
	if c.IsSet("data") {
		e.cfg.Data.Path = c.String("data")
		e.cfg.Data.URL = ""
	}
	if c.IsSet("url") {
		e.cfg.Data.URL = c.String("url")
	}
	if c.Bool("lenient") {
		e.cfg.Data.FixedPolicy = models.PolicyLenient
	}
	if c.Bool("strict") {
		e.cfg.Data.FixedPolicy = models.PolicyStrict
	}
	if c.Bool("single") {
		e.cfg.Data.SchemaKind = models.SchemaSingleSystem
	}
}

func renderSelection(c *cli.Context, sel view.Selection) (view.Selection, error) {
	if c.IsSet("line") {
		sel.Lines = c.StringSlice("line")
	}
	metric, err := view.ParseMetric(c.String("metric"))
	if err != nil {
		return sel, err
	}
	sel.Metric = metric
	if c.IsSet("scale") {
		sel.ElevationScale = c.Float64("scale")
	}
	if c.IsSet("pitch") {
		sel.Pitch = c.Float64("pitch")
	}
	if c.IsSet("bearing") {
		sel.Bearing = c.Float64("bearing")
	}
	return sel, sel.Validate()
}
