package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"biathlonstats/internal/analytics"
	"biathlonstats/internal/events"
	"biathlonstats/internal/pipeline"
	"biathlonstats/internal/render"
)

var metricUsage = map[pipeline.Metric]string{
	pipeline.MetricCourse:    "cumulative result time",
	pipeline.MetricSki:       "cumulative ski time",
	pipeline.MetricRange:     "cumulative range time",
	pipeline.MetricShooting:  "cumulative shooting time",
	pipeline.MetricPenalty:   "cumulative penalty loop time",
	pipeline.MetricMiss:      "cumulative missed targets",
	pipeline.MetricRemontada: "places gained in pursuits",
}

func cumulateFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.BoolFlag{Name: "men", Usage: "men's races instead of women's"},
		&cli.StringFlag{Name: "discipline", Aliases: []string{"d"}, Usage: "one of sprint, pursuit, individual, mass-start or all"},
		&cli.StringFlag{Name: "season", Aliases: []string{"s"}, Usage: "season id such as 2526, default the current one"},
		&cli.StringFlag{Name: "event", Aliases: []string{"e"}, Usage: "restrict to one event id"},
		&cli.BoolFlag{Name: "position", Aliases: []string{"p"}, Usage: "rank by average position instead of time"},
		&cli.BoolFlag{Name: "no-start-delay", Usage: "remove the start delay from pursuit result times"},
		&cli.IntFlag{Name: "min-race", Usage: "races an athlete must be counted in for --position and remontada tables"},
		&cli.IntFlag{Name: "top", Usage: "only athletes in the top N of the World Cup standings"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "rows to show, default from the configuration"},
		&cli.BoolFlag{Name: "reverse", Usage: "reverse the sort order"},
		&cli.StringFlag{Name: "sort", Usage: "sort column (time, misses, accuracy, position, gain) allowed by the table"},
		&cli.StringFlag{Name: "since", Usage: "only races since a date, such as 2025-12-01 or \"last month\""},
		&cli.BoolFlag{Name: "debug-races", Usage: "print whether each race was used"},
		&cli.BoolFlag{Name: "badges", Usage: "list the badges earned below the table"},
	}
	return append(flags, outputFlags()...)
}

func (a *App) cumulateCommand() *cli.Command {
	var subs []*cli.Command
	for _, m := range pipeline.Metrics() {
		subs = append(subs, &cli.Command{
			Name:   string(m),
			Usage:  metricUsage[m],
			Flags:  cumulateFlags(),
			Action: a.cumulateAction(m),
		})
	}
	return &cli.Command{
		Name:        "cumulate",
		Usage:       "rank athletes over the races of a season or event",
		Flags:       cumulateFlags(),
		Subcommands: subs,
		Action:      a.cumulateAction(pipeline.MetricCourse),
	}
}

func requestFrom(c *cli.Context, m pipeline.Metric, defaultLimit int) pipeline.Request {
	req := pipeline.Request{
		Metric:       m,
		Men:          c.Bool("men"),
		Discipline:   c.String("discipline"),
		Season:       c.String("season"),
		Event:        c.String("event"),
		Position:     c.Bool("position"),
		NoStartDelay: c.Bool("no-start-delay"),
		MinRaces:     c.Int("min-race"),
		Top:          c.Int("top"),
		Limit:        defaultLimit,
		Sort:         c.String("sort"),
		Reverse:      c.Bool("reverse"),
		Since:        c.String("since"),
	}
	if c.IsSet("limit") {
		req.Limit = c.Int("limit")
	}
	return req
}

func (a *App) cumulateAction(m pipeline.Metric) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, logger, runner, err := a.setup(c)
		if err != nil {
			return err
		}
		plan, err := requestFrom(c, m, cfg.Output.Limit).Validate(a.now())
		if err != nil {
			return exit(err)
		}

		var progress pipeline.Progress
		if c.Bool("debug-races") {
			progress = func(ev events.RaceProgress) {
				fmt.Fprintf(a.Stderr, "[%s] %s (%s): %s\n", m, ev.Title, ev.RaceID, ev.Status)
			}
		}
		rep, err := runner.Run(contextOf(c), plan, "cli", progress)
		if err != nil {
			logger.Debug("[Cumulate] run ended without a table", "metric", string(m), "error", err)
			return exit(err)
		}

		if err := a.emit(c, cfg, render.Cumulate(rep)); err != nil {
			return err
		}
		if c.Bool("badges") {
			a.writeBadges(analytics.Awards(rep.Table))
		}
		return nil
	}
}

func (a *App) writeBadges(awards []analytics.Award) {
	if len(awards) == 0 {
		return
	}
	fmt.Fprintln(a.Stdout)
	fmt.Fprintln(a.Stdout, "Badges")
	for _, aw := range awards {
		names := make([]string, len(aw.Badges))
		for i, b := range aw.Badges {
			names[i] = b.Name
		}
		fmt.Fprintf(a.Stdout, "  %d. %s (%s): %s\n", aw.Rank, aw.Name, aw.Nation, strings.Join(names, ", "))
	}
}
