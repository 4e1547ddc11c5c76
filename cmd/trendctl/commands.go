package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yanqian/telemetry-trend/internal/domain/accuracy"
	"github.com/yanqian/telemetry-trend/internal/domain/chart"
	"github.com/yanqian/telemetry-trend/internal/domain/series"
	"github.com/yanqian/telemetry-trend/internal/infra/collector"
	"github.com/yanqian/telemetry-trend/internal/infra/render"
	"github.com/yanqian/telemetry-trend/pkg/logger"
)

func assessCommand() *cli.Command {
	return &cli.Command{
		Name:  "assess",
		Usage: "Align a forecast with observed history and print the error metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "history", Aliases: []string{"H"}, Usage: "History payload (array of {timestamp, value})", Required: true},
			&cli.StringFlag{Name: "forecast", Aliases: []string{"f"}, Usage: "Predict payload ({predictionPoints: [...]})", Required: true},
		},
		Action: runAssess,
	}
}

func runAssess(c *cli.Context) error {
	toolkit, err := toolkitFrom(c)
	if err != nil {
		return err
	}
	history, err := loadSeries(toolkit, c.String("history"))
	if err != nil {
		return err
	}
	fc, err := loadForecast(toolkit, c.String("forecast"))
	if err != nil {
		return err
	}

	assessment := accuracy.Assess(history, fc)
	logFor(c).Debug("assessed forecast", "history", history.Len(), "forecast", fc.Points.Len(), "status", assessment.Status)

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(assessment)
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Render history and an optional forecast overlay to SVG or PNG",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "history", Aliases: []string{"H"}, Usage: "History payload (array of {timestamp, value})", Required: true},
			&cli.StringFlag{Name: "forecast", Aliases: []string{"f"}, Usage: "Predict payload ({predictionPoints: [...]})"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file; the extension selects svg or png", Required: true},
			&cli.IntFlag{Name: "width", Value: 880, Usage: "Surface width in pixels"},
			&cli.IntFlag{Name: "height", Value: 360, Usage: "Surface height in pixels"},
		},
		Action: runRender,
	}
}

func runRender(c *cli.Context) error {
	toolkit, err := toolkitFrom(c)
	if err != nil {
		return err
	}
	loc, _ := locationFrom(c)
	history, err := loadSeries(toolkit, c.String("history"))
	if err != nil {
		return err
	}
	var fc series.Forecast
	if path := c.String("forecast"); path != "" {
		if fc, err = loadForecast(toolkit, path); err != nil {
			return err
		}
	}
	layout, err := chart.NewLayout(c.Int("width"), c.Int("height"))
	if err != nil {
		return err
	}
	out := c.String("out")
	format, err := chart.ParseFormat(strings.TrimPrefix(filepath.Ext(out), "."))
	if err != nil {
		return err
	}

	frame := chart.Compose(layout, history, fc.Points, loc)
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := render.New(render.DefaultPalette).Render(context.Background(), f, frame, format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}
	logFor(c).Info("chart rendered", "out", out, "format", format, "history", history.Len(), "forecast", fc.Points.Len())
	return nil
}

func toolkitFrom(c *cli.Context) (series.Toolkit, error) {
	loc, err := locationFrom(c)
	if err != nil {
		return nil, err
	}
	return series.NewToolkit(loc), nil
}

func locationFrom(c *cli.Context) (*time.Location, error) {
	name := strings.TrimSpace(c.String("timezone"))
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

func loadSeries(toolkit series.Toolkit, path string) (series.Series, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	records, err := collector.DecodeHistory(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return toolkit.BuildSeries(records), nil
}

func loadForecast(toolkit series.Toolkit, path string) (series.Forecast, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return series.Forecast{}, fmt.Errorf("read forecast: %w", err)
	}
	records, err := collector.DecodeForecast(body)
	if err != nil {
		return series.Forecast{}, fmt.Errorf("%s: %w", path, err)
	}
	return toolkit.BuildForecast(records), nil
}

func logFor(c *cli.Context) *slog.Logger {
	return logger.NewWithWriter(c.App.ErrWriter, c.String("log-level")).With("component", "trendctl")
}
