package recorder

import (
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/database"
	"github.com/fleetwatch/fleetwatch/pkg/prediction/datafilter"
	"github.com/kr/pretty"
	"github.com/urfave/cli/v2"
)

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.TimestampFlag{
			Name:     "start",
			Layout:   time.RFC3339,
			Required: true,
		},
		&cli.TimestampFlag{
			Name:     "end",
			Layout:   time.RFC3339,
			Required: true,
		},
		&cli.StringFlag{Name: "vehicle"},
		&cli.StringFlag{Name: "trip"},
		&cli.StringFlag{Name: "service"},
		&cli.IntFlag{Name: "stop-path-index"},
		&cli.StringFlag{
			Name:  "role",
			Usage: "arrivals, departures or any",
			Value: "any",
		},
	}
}

func filterFromContext(c *cli.Context) Filter {
	filter := Filter{
		Start: *c.Timestamp("start"),
		End:   *c.Timestamp("end"),

		VehicleID: c.String("vehicle"),
		TripID:    c.String("trip"),
		ServiceID: c.String("service"),
	}

	if c.IsSet("stop-path-index") {
		stopPathIndex := c.Int("stop-path-index")
		filter.StopPathIndex = &stopPathIndex
	}

	switch c.String("role") {
	case "arrivals":
		filter.Role = RoleArrivals
	case "departures":
		filter.Role = RoleDepartures
	}

	return filter
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "recorder",
		Usage: "Queries recorded arrival and departure facts",
		Subcommands: []*cli.Command{
			{
				Name:  "query",
				Usage: "print matching facts for a time window",
				Flags: append(filterFlags(),
					&cli.Int64Flag{Name: "offset"},
					&cli.Int64Flag{Name: "limit", Value: 100},
				),
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					store := NewStore()
					facts, err := store.FindBatch(c.Context, filterFromContext(c), c.Int64("offset"), c.Int64("limit"))
					if err != nil {
						return err
					}

					pretty.Println(facts)

					return nil
				},
			},
			{
				Name:  "count",
				Usage: "count matching facts for a time window",
				Flags: filterFlags(),
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					store := NewStore()
					count, err := store.Count(c.Context, filterFromContext(c))
					if err != nil {
						return err
					}

					pretty.Println(count)

					return nil
				},
			},
			{
				Name:  "dwell-times",
				Usage: "pair arrivals with departures and print admitted dwell times",
				Flags: append(filterFlags(),
					&cli.StringFlag{
						Name:  "filter",
						Usage: "dwell time filter name",
						Value: "default",
					},
					&cli.DurationFlag{
						Name:  "max-dwell",
						Usage: "longest dwell the default filter admits",
					},
					&cli.StringFlag{
						Name:  "expression",
						Usage: "admission expression for the expression filter",
					},
				),
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					admit, err := datafilter.New(datafilter.Config{
						Name:       c.String("filter"),
						MaxDwell:   c.Duration("max-dwell"),
						Expression: c.String("expression"),
					})
					if err != nil {
						return err
					}

					store := NewStore()
					dwellTimes, err := store.DwellTimes(c.Context, filterFromContext(c), admit)
					if err != nil {
						return err
					}

					pretty.Println(dwellTimes)

					return nil
				},
			},
		},
	}
}
