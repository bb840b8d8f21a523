package command

import (
	"github.com/urfave/cli/v2"

	"biathlonstats/internal/pipeline"
	"biathlonstats/internal/render"
)

func (a *App) resultsCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "race", Aliases: []string{"r"}, Usage: "race id, default the latest completed race"},
		&cli.BoolFlag{Name: "men", Usage: "men's races instead of women's"},
		&cli.StringFlag{Name: "discipline", Aliases: []string{"d"}, Usage: "disciplines considered for the latest race"},
		&cli.StringFlag{Name: "country", Aliases: []string{"c"}, Usage: "only athletes of a nation (NOR, FRA, ...)"},
		&cli.IntFlag{Name: "first", Usage: "only the first N finishers"},
		&cli.IntFlag{Name: "top", Usage: "only athletes in the top N of the World Cup standings"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "rows to show"},
		&cli.StringFlag{Name: "sort", Usage: "result, course, ski, range, shooting, penalty, misses or gain"},
	}
	return &cli.Command{
		Name:  "results",
		Usage: "one race with derived course, ski, range and shooting times",
		Flags: append(flags, outputFlags()...),
		Action: func(c *cli.Context) error {
			cfg, _, runner, err := a.setup(c)
			if err != nil {
				return err
			}
			rep, err := runner.Race(contextOf(c), pipeline.RaceRequest{
				RaceID:     c.String("race"),
				Men:        c.Bool("men"),
				Discipline: c.String("discipline"),
				Country:    c.String("country"),
				First:      c.Int("first"),
				Top:        c.Int("top"),
				Limit:      c.Int("limit"),
				Sort:       c.String("sort"),
				Now:        a.now(),
			})
			if err != nil {
				return exit(err)
			}
			return a.emit(c, cfg, render.Race(rep))
		},
	}
}

func (a *App) relayCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "race", Aliases: []string{"r"}, Usage: "race id, default the latest completed relay"},
		&cli.BoolFlag{Name: "men", Usage: "men's relays instead of women's"},
		&cli.BoolFlag{Name: "mixed", Usage: "mixed and single mixed relays"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "teams to show"},
	}
	return &cli.Command{
		Name:  "relay",
		Usage: "one relay with leg splits and team totals",
		Flags: append(flags, outputFlags()...),
		Action: func(c *cli.Context) error {
			cfg, _, runner, err := a.setup(c)
			if err != nil {
				return err
			}
			rep, err := runner.Relay(contextOf(c), pipeline.RelayRequest{
				RaceID: c.String("race"),
				Men:    c.Bool("men"),
				Mixed:  c.Bool("mixed"),
				Limit:  c.Int("limit"),
				Now:    a.now(),
			})
			if err != nil {
				return exit(err)
			}
			return a.emit(c, cfg, render.Relay(rep))
		},
	}
}
