package archiver

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/database"
	"github.com/fleetwatch/fleetwatch/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "archiver",
		Usage: "Maintains the raw AVL audit trail",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "subscribe to the archive topic and write raw payloads to daily files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "output-directory",
						Usage:    "Directory to write output files to",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "topic",
						Value: "avl-archive",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					ctx, cancel := context.WithCancel(c.Context)
					defer cancel()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					go func() {
						<-signals
						cancel()
					}()

					subscriber := &Subscriber{
						Topic:           c.String("topic"),
						OutputDirectory: c.String("output-directory"),
					}

					return subscriber.Run(ctx)
				},
			},
			{
				Name:  "bundle",
				Usage: "bundle old arrival/departure facts into a compressed archive",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "output-directory",
						Usage:    "Directory to write output files to",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "max-age",
						Value: 30 * 24 * time.Hour,
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					bundler := &Bundler{
						OutputDirectory: c.String("output-directory"),
						MaxAge:          c.Duration("max-age"),
					}

					return bundler.Perform(c.Context)
				},
			},
		},
	}
}
