package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"biathlonstats/internal/config"
	"biathlonstats/internal/render"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "tsv", Usage: "tab-separated output"},
		&cli.BoolFlag{Name: "markdown", Usage: "markdown table output"},
		&cli.BoolFlag{Name: "no-color", Usage: "plain text even on a terminal"},
		&cli.StringFlag{Name: "xlsx", Usage: "also write the table to an Excel `FILE`"},
		&cli.StringFlag{Name: "chart", Usage: "also write a PNG bar chart to `FILE`"},
	}
}

// emit writes t to stdout in the selected format, then to the requested
// files.
func (a *App) emit(c *cli.Context, cfg config.Config, t render.Table) error {
	var err error
	switch {
	case c.Bool("tsv"):
		err = render.TSV(a.Stdout, t)
	case c.Bool("markdown"):
		err = render.Markdown(a.Stdout, t)
	default:
		color := render.ColorEnabled(a.Stdout, cfg.Output.NoColor || c.Bool("no-color"))
		err = render.Text(a.Stdout, t, color)
	}
	if err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	if path := c.String("xlsx"); path != "" {
		if err := writeFile(path, func(f *os.File) error { return render.XLSX(f, t) }); err != nil {
			return err
		}
	}
	if path := c.String("chart"); path != "" {
		if err := writeFile(path, func(f *os.File) error { return render.Chart(f, t) }); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
