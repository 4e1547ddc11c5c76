// trendctl evaluates and renders telemetry trends from exported collector payloads.
//
// Usage:
//
//	trendctl assess --history history.json --forecast predict.json
//	trendctl render --history history.json [--forecast predict.json] --out chart.svg
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "trendctl",
		Usage: "Offline accuracy and chart tooling for telemetry trends",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "timezone",
				Value:   "UTC",
				Usage:   "Location used for timestamps without a zone",
				EnvVars: []string{"TREND_TIMEZONE"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			assessCommand(),
			renderCommand(),
		},
	}
}
