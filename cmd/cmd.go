// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// commonFlags are accepted by every leaf command.
func commonFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}, extra...)
}

// queueFlags are accepted by commands that talk to the job queue backend.
func queueFlags(extra ...cli.Flag) []cli.Flag {
	return commonFlags(append([]cli.Flag{
		&cli.StringFlag{
			Name:  "url",
			Usage: "Job queue base URL (overrides queue.base_url)",
		},
	}, extra...)...)
}

// batchFlags are shared by batch run and batch watch.
func batchFlags(extra ...cli.Flag) []cli.Flag {
	return queueFlags(append([]cli.Flag{
		&cli.StringSliceFlag{
			Name:    "items",
			Aliases: []string{"i"},
			Usage:   "Item IDs to process (comma separated or repeated)",
		},
		&cli.StringFlag{
			Name:  "items-file",
			Usage: "File with one item ID per line, - for stdin",
		},
		&cli.StringFlag{
			Name:    "priority",
			Aliases: []string{"p"},
			Usage:   "Queue priority: low, normal or high (default: queue.default_priority)",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write the final batch state to this file",
		},
		&cli.StringFlag{
			Name:  "report-format",
			Usage: "Report format: text, csv or json (default: from --report extension)",
		},
		&cli.BoolFlag{
			Name:  "no-ledger",
			Usage: "Do not record protocol violations in the database",
		},
	}, extra...)...)
}

// batchCommand handles batch submission and monitoring
func batchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Submit a batch of items and follow it to completion",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Submit items and print progress until every job is terminal",
				Flags: batchFlags(
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the final batch state as JSON",
					},
				),
				Action: r.BatchRun,
			},
			{
				Name:   "watch",
				Usage:  "Submit items and monitor them in an interactive TUI",
				Flags:  batchFlags(),
				Action: r.BatchWatch,
			},
		},
	}
}

// jobCommand handles single job operations
func jobCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "job",
		Usage: "Single job operations",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show the current status of a job",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: queueFlags(
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				),
				Action: r.JobStatus,
			},
		},
	}
}

// queueCommand handles whole-queue operations
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Whole-queue operations",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show job counts by state across the whole queue",
				Flags: queueFlags(
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				),
				Action: r.QueueStats,
			},
			{
				Name:  "clean",
				Usage: "Delete finished jobs older than a given age",
				Flags: queueFlags(
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Minimum age of removed jobs (default: queue.cleanup_age)",
					},
				),
				Action: r.QueueClean,
			},
		},
	}
}

// violationsCommand handles the protocol violation ledger
func violationsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "violations",
		Usage: "Inspect protocol violations recorded during batch runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded violations",
				Flags: commonFlags(
					&cli.StringFlag{
						Name:  "run",
						Usage: "Only violations from this run ID",
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Only violations of this kind (regression, count_mismatch, id_mismatch)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Show at most this many of the most recent violations",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				),
				Action: r.ViolationsList,
			},
			{
				Name:   "clear",
				Usage:  "Delete all recorded violations",
				Flags:  commonFlags(),
				Action: r.ViolationsClear,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml populated with defaults",
				Flags:  commonFlags(),
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: commonFlags(
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recent migration instead",
					},
				),
				Action: r.SetupDatabase,
			},
		},
	}
}

// mockCommand runs the in-memory job queue backend
func mockCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mock",
		Usage: "In-memory job queue backend for local testing",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve the job queue HTTP API from memory",
				Flags: commonFlags(
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (default: mock.addr)",
					},
					&cli.FloatFlag{
						Name:  "advance",
						Usage: "Progress added per status read (default: mock.advance)",
					},
					&cli.StringFlag{
						Name:  "fail-prefix",
						Usage: "Items with this prefix fail halfway (default: mock.fail_prefix)",
					},
				),
				Action: r.MockServe,
			},
		},
	}
}
