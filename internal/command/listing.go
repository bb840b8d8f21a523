package command

import (
	"github.com/urfave/cli/v2"

	"biathlonstats/internal/pipeline"
	"biathlonstats/internal/render"
)

func (a *App) standingsCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "season", Aliases: []string{"s"}, Usage: "season id such as 2526, default the current one"},
		&cli.BoolFlag{Name: "men", Usage: "men's standings instead of women's"},
		&cli.IntFlag{Name: "level", Aliases: []string{"l"}, Value: 1, Usage: "cup level, 1 for the World Cup"},
		&cli.StringFlag{Name: "sort", Value: "total", Usage: "total, sprint, pursuit, individual or mass-start"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "rows to show, default from the configuration"},
	}
	return &cli.Command{
		Name:  "standings",
		Usage: "cup standings with the score of each discipline cup",
		Flags: append(flags, outputFlags()...),
		Action: func(c *cli.Context) error {
			cfg, _, runner, err := a.setup(c)
			if err != nil {
				return err
			}
			limit := cfg.Output.Limit
			if c.IsSet("limit") {
				limit = c.Int("limit")
			}
			rep, err := runner.Standings(contextOf(c), pipeline.StandingsRequest{
				Season: c.String("season"),
				Men:    c.Bool("men"),
				Level:  c.Int("level"),
				Sort:   c.String("sort"),
				Limit:  limit,
			})
			if err != nil {
				return exit(err)
			}
			return a.emit(c, cfg, render.Standings(rep))
		},
	}
}

func (a *App) eventsCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "season", Aliases: []string{"s"}, Usage: "season id, or all, default the current one"},
		&cli.IntFlag{Name: "level", Aliases: []string{"l"}, Value: 1, Usage: "event level up to 6, 1 for the World Cup, -1 for every level"},
		&cli.StringFlag{Name: "search", Usage: "only events whose name contains this text"},
		&cli.BoolFlag{Name: "completed", Usage: "only events that have started"},
		&cli.StringFlag{Name: "sort", Value: pipeline.EventSortStart, Usage: "startdate, event or country"},
	}
	return &cli.Command{
		Name:  "events",
		Usage: "list the events of a season",
		Flags: append(flags, outputFlags()...),
		Action: func(c *cli.Context) error {
			cfg, _, runner, err := a.setup(c)
			if err != nil {
				return err
			}
			rep, err := runner.Events(contextOf(c), pipeline.EventsRequest{
				Season:    c.String("season"),
				Level:     c.Int("level"),
				Search:    c.String("search"),
				Completed: c.Bool("completed"),
				Sort:      c.String("sort"),
				Now:       a.now(),
			})
			if err != nil {
				return exit(err)
			}
			return a.emit(c, cfg, render.Events(rep))
		},
	}
}

func (a *App) seasonsCommand() *cli.Command {
	return &cli.Command{
		Name:  "seasons",
		Usage: "list the seasons of the results service",
		Flags: append([]cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "rows to show, default from the configuration"},
		}, outputFlags()...),
		Action: func(c *cli.Context) error {
			cfg, _, runner, err := a.setup(c)
			if err != nil {
				return err
			}
			limit := cfg.Output.Limit
			if c.IsSet("limit") {
				limit = c.Int("limit")
			}
			seasons, err := runner.Seasons(contextOf(c), limit)
			if err != nil {
				return exit(err)
			}
			return a.emit(c, cfg, render.Seasons(seasons))
		},
	}
}
