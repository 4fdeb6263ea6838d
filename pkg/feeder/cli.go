package feeder

import (
	"github.com/fleetwatch/fleetwatch/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "feeder",
		Usage: "Publishes vehicle position reports onto the tracker queue",
		Subcommands: []*cli.Command{
			{
				Name:  "replay",
				Usage: "replay position reports from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "queue",
						Value: "avl-queue",
					},
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "delay between published reports",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					return Replay(c.String("queue"), c.String("file"), c.Duration("interval"))
				},
			},
		},
	}
}
