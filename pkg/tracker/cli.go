package tracker

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/consumer"
	"github.com/fleetwatch/fleetwatch/pkg/database"
	"github.com/fleetwatch/fleetwatch/pkg/diversion"
	"github.com/fleetwatch/fleetwatch/pkg/elastic_client"
	"github.com/fleetwatch/fleetwatch/pkg/recorder"
	"github.com/fleetwatch/fleetwatch/pkg/redis_client"
	"github.com/fleetwatch/fleetwatch/pkg/schedule"
	"github.com/fleetwatch/fleetwatch/pkg/transit"
	"github.com/kr/pretty"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "tracker",
		Usage: "Ingests vehicle position reports and tracks schedule adherence",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run an instance of the tracker",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Usage: "path to the tracker yaml config",
					},
				},
				Action: func(c *cli.Context) error {
					config, err := LoadConfig(c.String("config"))
					if err != nil {
						return err
					}

					if err := database.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(false); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					graph, err := schedule.Load(c.Context)
					if err != nil {
						return err
					}
					diversions, err := diversion.Load(c.Context)
					if err != nil {
						return err
					}

					trackerConsumer, err := NewConsumer(config, graph, diversions, recorder.NewStore())
					if err != nil {
						return err
					}
					if err := trackerConsumer.Start(); err != nil {
						return err
					}

					consumer.StartStatsServer(config.QueueName, "localhost:3333")

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish
					trackerConsumer.Stop()

					return nil
				},
			},
			{
				Name:  "cleaner",
				Usage: "run the queue cleaner for the tracker queue",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					StartCleaner()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals

					return nil
				},
			},
			{
				Name:  "testmatch",
				Usage: "run the diversion matcher against a synthetic position report",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "trip", Required: true},
					&cli.StringFlag{Name: "route", Required: true},
					&cli.Float64Flag{Name: "longitude", Required: true},
					&cli.Float64Flag{Name: "latitude", Required: true},
					&cli.Float64Flag{Name: "max-distance", Value: 60},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					diversions, err := diversion.Load(c.Context)
					if err != nil {
						return err
					}

					report := &transit.PositionReport{
						VehicleID:  "testmatch",
						Location:   transit.NewLocation(c.Float64("longitude"), c.Float64("latitude")),
						RecordedAt: time.Now(),
						TripRef:    c.String("trip"),
					}

					matches := diversions.Matches(report, c.String("trip"), c.String("route"), "", 0, c.Float64("max-distance"))
					pretty.Println(matches)

					return nil
				},
			},
		},
	}
}
