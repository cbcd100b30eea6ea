package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresuchdata/exportflow/internal/config"
	"github.com/andresuchdata/exportflow/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type app struct {
	cfg *config.Config
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	cliApp := &cli.App{
		Name:  "exportflow",
		Usage: "Export, download, process and archive remote exports in one unattended run",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Optional config file (yaml, json or toml)",
				EnvVars: []string{"EXPORTFLOW_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override LOG_LEVEL",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Override LOG_FORMAT (console or json)",
			},
		},
		Before: a.setup,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the whole pipeline: export, wait, fetch, process, archive, summarize",
				Flags:  pipelineFlags(),
				Action: a.runPipeline,
			},
			{
				Name:   "wait",
				Usage:  "Wait until the export container is non-empty and list its entries",
				Flags:  pipelineFlags(),
				Action: a.waitForExports,
			},
			{
				Name:   "fetch",
				Usage:  "Wait for exports and download them into the staging directory",
				Flags:  pipelineFlags(),
				Action: a.fetchExports,
			},
			{
				Name:  "archive",
				Usage: "Move staged inputs and processed outputs into a new run directory and write its summary",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "file-count",
						Usage: "Files processed to report in the summary (default: entries in the staging dir)",
						Value: -1,
					},
				},
				Action: a.archiveOutputs,
			},
			{
				Name:  "history",
				Usage: "List recent pipeline runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of runs to show",
						Value: 10,
					},
				},
				Action: a.listHistory,
			},
			{
				Name:   "migrate",
				Usage:  "Create the run history table in Postgres",
				Action: a.migrate,
			},
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("exportflow failed")
		stop()
		os.Exit(1)
	}
}

func (a *app) setup(c *cli.Context) error {
	if file := c.String("config"); file != "" {
		if err := os.Setenv("EXPORTFLOW_CONFIG", file); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, format := cfg.Log.Level, cfg.Log.Format
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		format = c.String("log-format")
	}
	logger.SetFormat(format, os.Stdout)
	logger.SetLevel(level)

	a.cfg = cfg
	return nil
}

func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "container",
			Usage: "Override EXPORT_CONTAINER",
		},
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "Override POLL_INTERVAL_SECONDS",
		},
		&cli.DurationFlag{
			Name:  "max-wait",
			Usage: "Override MAX_WAIT_SECONDS",
		},
	}
}
