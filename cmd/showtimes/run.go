package main

import (
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/drewfead/showtimes/internal/commands"
)

func main() {
	app := &cli.App{
		Name:     "showtimes",
		Usage:    "A utility for discovering and fetching showtime schedules from Boxoffice-powered theater websites",
		Commands: commands.Scrapers,
	}
	if err := app.Run(os.Args); err != nil {
		zap.L().Fatal("Fatal error", zap.Error(err))
	}
}
