package main

import (
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"tablet.dev/compaction/logging"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "compaction-planner",
		Usage: "Plan tablet compactions from a compaction service configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "debug, info, warn or error",
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := logging.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			logging.SetLevel(level)
			slog.SetDefault(slog.New(logging.NewTextHandler()))
			return nil
		},
		Commands: []*cli.Command{{
			Name:      "validate",
			Usage:     "Check a services document and print each service's executors",
			Args:      true,
			ArgsUsage: "<services.yaml>",
			Action: func(ctx *cli.Context) error {
				return validate(ctx.App.Writer, ctx.Args().First())
			},
		}, {
			Name:      "plan",
			Usage:     "Plan one compaction for each tablet directory",
			Args:      true,
			ArgsUsage: "<tablet>...",
			Flags:     planFlags(),
			Action: func(ctx *cli.Context) error {
				opts, err := planOptionsFromFlags(ctx)
				if err != nil {
					return err
				}
				return plan(ctx.Context, ctx.App.Writer, opts)
			},
		}, {
			Name:      "watch",
			Usage:     "Plan tablets on an interval and serve planning metrics",
			Args:      true,
			ArgsUsage: "<tablet>...",
			Flags: append(planFlags(),
				&cli.DurationFlag{
					Name:  "interval",
					Value: 30 * time.Second,
					Usage: "time between planning rounds",
				},
				&cli.StringFlag{
					Name:  "metrics-addr",
					Value: "127.0.0.1:9090",
					Usage: "address serving /metrics",
				},
			),
			Action: func(ctx *cli.Context) error {
				opts, err := planOptionsFromFlags(ctx)
				if err != nil {
					return err
				}
				return watch(ctx.Context, opts, ctx.Duration("interval"), ctx.String("metrics-addr"))
			},
		}, {
			Name:      "select",
			Usage:     "Run the file selector on a list of file sizes",
			Args:      true,
			ArgsUsage: "<size>...",
			Flags: []cli.Flag{
				&cli.Float64Flag{
					Name:  "ratio",
					Value: 3,
					Usage: "compaction ratio",
				},
				&cli.IntFlag{
					Name:  "max-files",
					Value: 100,
					Usage: "most files in one group",
				},
				&cli.StringFlag{
					Name:  "max-size",
					Usage: "largest total size of one group, e.g. 512M",
				},
			},
			Action: func(ctx *cli.Context) error {
				return selectFiles(ctx.App.Writer, ctx.Args().Slice(), ctx.Float64("ratio"), ctx.Int("max-files"), ctx.String("max-size"))
			},
		}},
	}
}

func planFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Usage:    "services document",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "service",
			Usage:    "compaction service to plan with",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "kind",
			Value: "system",
			Usage: "system, user, selector or chop",
		},
		&cli.Float64Flag{
			Name:  "ratio",
			Usage: "compaction ratio, defaults to the service's ratio",
		},
		&cli.StringSliceFlag{
			Name:  "running",
			Usage: "names of files already being compacted by a system compaction",
		},
		&cli.StringFlag{
			Name:  "suffix",
			Value: ".rf",
			Usage: "only plan files with this suffix",
		},
	}
}
